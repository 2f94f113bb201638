package loan

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"ml-api/internal/model"
)

// Column names, in the order the loan model was trained on. The model only
// sees positions, so this order must match the training frame exactly.
const (
	ColGender            = "Gender"
	ColMarried           = "Married"
	ColDependents        = "Dependents"
	ColEducation         = "Education"
	ColSelfEmployed      = "Self_Employed"
	ColApplicantIncome   = "ApplicantIncome"
	ColCoapplicantIncome = "CoapplicantIncome"
	ColLoanAmount        = "LoanAmount"
	ColLoanAmountTerm    = "Loan_Amount_Term"
	ColCreditHistory     = "Credit_History"
	ColPropertyArea      = "Property_Area"

	ColLoanID     = "Loan_ID"
	ColLoanStatus = "Loan_Status"
)

var (
	Columns = []string{
		ColGender, ColMarried, ColDependents, ColEducation, ColSelfEmployed,
		ColApplicantIncome, ColCoapplicantIncome, ColLoanAmount, ColLoanAmountTerm,
		ColCreditHistory, ColPropertyArea,
	}
	CategoricalColumns = []string{ColGender, ColMarried, ColDependents, ColEducation, ColSelfEmployed, ColPropertyArea}
	NumericalColumns   = []string{ColApplicantIncome, ColCoapplicantIncome, ColLoanAmount, ColLoanAmountTerm, ColCreditHistory}
)

// Labels maps the loan model's class index to its display name.
var Labels = map[int]string{0: "Rejected", 1: "Approved"}

// ErrColumnOrder is returned when a model was trained on a different layout.
var ErrColumnOrder = errors.New("model columns do not match loan feature layout")

// CheckColumns verifies a model's recorded feature names against Columns.
func CheckColumns(featureNames []string) error {
	if len(featureNames) != len(Columns) {
		return fmt.Errorf("%w: got %d columns, want %d", ErrColumnOrder, len(featureNames), len(Columns))
	}
	for i, name := range featureNames {
		if name != Columns[i] {
			return fmt.Errorf("%w: column %d is %q, want %q", ErrColumnOrder, i, name, Columns[i])
		}
	}
	return nil
}

// EncodingTable maps column -> category -> code. It is built once from the
// fitted encoders and only read afterwards.
type EncodingTable map[string]map[string]int

// NewEncodingTable flattens fitted encoders into lookup maps.
func NewEncodingTable(set model.EncoderSet) EncodingTable {
	t := make(EncodingTable, len(set))
	for col, enc := range set {
		t[col] = enc.Mapping()
	}
	return t
}

// Encode returns the feature vector for a validated application. Optional
// fields are defaulted first. A categorical value missing from its column's
// table is an error. A categorical column without a table was numeric in the
// training data and is parsed as a number instead.
func (t EncodingTable) Encode(a Application) ([]float64, error) {
	categorical := map[string]string{
		ColGender:       a.Gender,
		ColMarried:      a.Married,
		ColDependents:   a.DependentsOrDefault(),
		ColEducation:    a.Education,
		ColSelfEmployed: a.SelfEmployedOrDefault(),
		ColPropertyArea: a.PropertyArea,
	}
	numerical := map[string]float64{
		ColApplicantIncome:   a.ApplicantIncome,
		ColCoapplicantIncome: a.CoapplicantIncome,
		ColLoanAmount:        a.LoanAmount,
		ColLoanAmountTerm:    a.LoanAmountTerm,
		ColCreditHistory:     a.CreditHistory,
	}

	x := make([]float64, len(Columns))
	for i, col := range Columns {
		if v, ok := numerical[col]; ok {
			x[i] = v
			continue
		}
		v, err := t.encodeCategory(col, categorical[col])
		if err != nil {
			return nil, err
		}
		x[i] = v
	}
	return x, nil
}

func (t EncodingTable) encodeCategory(col, value string) (float64, error) {
	table, ok := t[col]
	if !ok {
		f, err := strconv.ParseFloat(strings.TrimSuffix(value, "+"), 64)
		if err != nil {
			return 0, fmt.Errorf("encode %s: no encoder and %q is not numeric", col, value)
		}
		return f, nil
	}
	code, ok := table[value]
	if !ok {
		return 0, fmt.Errorf("encode %s: %w: %q", col, model.ErrUnseenLabel, value)
	}
	return float64(code), nil
}
