// Package predict runs encoded feature vectors through a classifier and
// shapes the output into labeled responses.
package predict

import (
	"fmt"

	"ml-api/internal/model"
)

// PredictionError wraps any failure raised by the underlying model call.
type PredictionError struct {
	Err error
}

func (e *PredictionError) Error() string { return e.Err.Error() }

func (e *PredictionError) Unwrap() error { return e.Err }

// Adapter invokes a classifier's prediction and probability routines.
type Adapter struct {
	clf model.Classifier
}

// NewAdapter wraps a loaded classifier.
func NewAdapter(clf model.Classifier) *Adapter {
	return &Adapter{clf: clf}
}

// Predict returns parallel class indices and probability rows for X. Errors
// and panics from the classifier come back as *PredictionError.
func (a *Adapter) Predict(X [][]float64) (preds []int, proba [][]float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			preds, proba = nil, nil
			err = &PredictionError{Err: fmt.Errorf("%v", r)}
		}
	}()

	preds, err = a.clf.Predict(X)
	if err != nil {
		return nil, nil, &PredictionError{Err: err}
	}
	proba, err = a.clf.PredictProba(X)
	if err != nil {
		return nil, nil, &PredictionError{Err: err}
	}
	if len(preds) != len(proba) {
		return nil, nil, &PredictionError{Err: fmt.Errorf("classifier returned %d predictions and %d probability rows", len(preds), len(proba))}
	}
	return preds, proba, nil
}
