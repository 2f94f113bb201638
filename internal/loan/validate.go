package loan

var (
	genders       = []string{"Male", "Female"}
	yesNo         = []string{"Yes", "No"}
	educations    = []string{"Graduate", "Not Graduate"}
	propertyAreas = []string{"Urban", "Rural", "Semiurban"}
	dependents    = []string{"0", "1", "2", "3+"}
)

// Validate checks an application against the static domain rules and returns
// every violation, in rule order. An empty result means the application is
// valid. Optional fields are only checked when present.
func Validate(a Application) []string {
	var errs []string
	if a.ApplicantIncome < 0 {
		errs = append(errs, "Applicant income cannot be negative")
	}
	if a.CoapplicantIncome < 0 {
		errs = append(errs, "Coapplicant income cannot be negative")
	}
	if !(a.LoanAmount > 0) {
		errs = append(errs, "Loan amount must be positive")
	}
	if !(a.LoanAmountTerm > 0) {
		errs = append(errs, "Loan amount term must be positive")
	}
	if a.CreditHistory != 0.0 && a.CreditHistory != 1.0 {
		errs = append(errs, "Credit history must be 0.0 or 1.0")
	}
	if !oneOf(a.Gender, genders) {
		errs = append(errs, "Gender must be 'Male' or 'Female'")
	}
	if !oneOf(a.Married, yesNo) {
		errs = append(errs, "Married must be 'Yes' or 'No'")
	}
	if !oneOf(a.Education, educations) {
		errs = append(errs, "Education must be 'Graduate' or 'Not Graduate'")
	}
	if !oneOf(a.PropertyArea, propertyAreas) {
		errs = append(errs, "Property area must be 'Urban', 'Rural', or 'Semiurban'")
	}
	if a.Dependents != nil && !oneOf(*a.Dependents, dependents) {
		errs = append(errs, "Dependents must be '0', '1', '2', or '3+'")
	}
	if a.SelfEmployed != nil && !oneOf(*a.SelfEmployed, yesNo) {
		errs = append(errs, "Self employed must be 'Yes' or 'No'")
	}
	return errs
}

func oneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}
