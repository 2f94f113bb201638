package predict

import "fmt"

// Response is the success body of every prediction endpoint.
type Response struct {
	Prediction     []int       `json:"prediction"`
	PredictionName []string    `json:"prediction_name"`
	Proba          [][]float64 `json:"proba"`
}

// NewResponse returns an empty response whose slices encode as [] not null.
func NewResponse() Response {
	return Response{
		Prediction:     []int{},
		PredictionName: []string{},
		Proba:          [][]float64{},
	}
}

// LabelTable maps a class index to its display name.
type LabelTable map[int]string

// LabelsFromClasses builds a table from an ordered class list.
func LabelsFromClasses(classes []string) LabelTable {
	t := make(LabelTable, len(classes))
	for i, c := range classes {
		t[i] = c
	}
	return t
}

// Build labels each prediction and pairs it with its probability row.
func Build(preds []int, proba [][]float64, labels LabelTable) (Response, error) {
	resp := NewResponse()
	if err := resp.Append(preds, proba, labels); err != nil {
		return Response{}, err
	}
	return resp, nil
}

// Append adds labeled predictions to the response.
func (r *Response) Append(preds []int, proba [][]float64, labels LabelTable) error {
	if len(preds) != len(proba) {
		return fmt.Errorf("%d predictions for %d probability rows", len(preds), len(proba))
	}
	for i, p := range preds {
		name, ok := labels[p]
		if !ok {
			return fmt.Errorf("no label for class %d", p)
		}
		r.Prediction = append(r.Prediction, p)
		r.PredictionName = append(r.PredictionName, name)
		r.Proba = append(r.Proba, proba[i])
	}
	return nil
}
