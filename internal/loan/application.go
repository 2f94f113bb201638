// Package loan turns loan-approval requests into model-ready features: it
// validates applications against the static domain rules, fills optional
// defaults and encodes categorical fields through the fitted encoders.
package loan

const (
	DefaultDependents   = "0"
	DefaultSelfEmployed = "No"
)

// Application is one loan application as received from a client.
// Dependents and SelfEmployed are optional; nil means absent.
type Application struct {
	Gender            string  `json:"gender"`
	Married           string  `json:"married"`
	Dependents        *string `json:"dependents,omitempty"`
	Education         string  `json:"education"`
	SelfEmployed      *string `json:"self_employed,omitempty"`
	ApplicantIncome   float64 `json:"applicant_income"`
	CoapplicantIncome float64 `json:"coapplicant_income"`
	LoanAmount        float64 `json:"loan_amount"`
	LoanAmountTerm    float64 `json:"loan_amount_term"`
	CreditHistory     float64 `json:"credit_history"`
	PropertyArea      string  `json:"property_area"`
}

// DependentsOrDefault returns the dependents bucket, "0" when absent or empty.
func (a Application) DependentsOrDefault() string {
	if a.Dependents == nil || *a.Dependents == "" {
		return DefaultDependents
	}
	return *a.Dependents
}

// SelfEmployedOrDefault returns the self-employed flag, "No" when absent or empty.
func (a Application) SelfEmployedOrDefault() string {
	if a.SelfEmployed == nil || *a.SelfEmployed == "" {
		return DefaultSelfEmployed
	}
	return *a.SelfEmployed
}

// Payload is the wire form of an Application. Every field is a pointer so a
// missing required field can be told apart from a zero value.
type Payload struct {
	Gender            *string  `json:"gender"`
	Married           *string  `json:"married"`
	Dependents        *string  `json:"dependents"`
	Education         *string  `json:"education"`
	SelfEmployed      *string  `json:"self_employed"`
	ApplicantIncome   *float64 `json:"applicant_income"`
	CoapplicantIncome *float64 `json:"coapplicant_income"`
	LoanAmount        *float64 `json:"loan_amount"`
	LoanAmountTerm    *float64 `json:"loan_amount_term"`
	CreditHistory     *float64 `json:"credit_history"`
	PropertyArea      *string  `json:"property_area"`
}

// BatchPayload is the wire form of a batch request.
type BatchPayload struct {
	Applications []Payload `json:"applications"`
}

// Application converts the payload, returning one error per missing
// required field in declaration order.
func (p Payload) Application() (Application, []string) {
	var missing []string
	str := func(v *string, name string) string {
		if v == nil {
			missing = append(missing, name+" is required")
			return ""
		}
		return *v
	}
	num := func(v *float64, name string) float64 {
		if v == nil {
			missing = append(missing, name+" is required")
			return 0
		}
		return *v
	}

	app := Application{
		Gender:            str(p.Gender, "gender"),
		Married:           str(p.Married, "married"),
		Dependents:        p.Dependents,
		Education:         str(p.Education, "education"),
		SelfEmployed:      p.SelfEmployed,
		ApplicantIncome:   num(p.ApplicantIncome, "applicant_income"),
		CoapplicantIncome: num(p.CoapplicantIncome, "coapplicant_income"),
		LoanAmount:        num(p.LoanAmount, "loan_amount"),
		LoanAmountTerm:    num(p.LoanAmountTerm, "loan_amount_term"),
		CreditHistory:     num(p.CreditHistory, "credit_history"),
		PropertyArea:      str(p.PropertyArea, "property_area"),
	}
	return app, missing
}
