// Package modeltest builds small, hand-checked artifacts for tests that need
// real models on disk.
package modeltest

import (
	"path/filepath"
	"testing"

	"ml-api/internal/model"
)

// IrisClasses are the fixture's Iris class names, in encoder order.
var IrisClasses = []string{"Iris-setosa", "Iris-versicolor", "Iris-virginica"}

// Artifacts are the paths written by Write.
type Artifacts struct {
	IrisModel    string
	IrisEncoder  string
	LoanModel    string
	LoanEncoders string
}

// IrisModel returns a scaler + tree pipeline. Petal length splits off
// setosa; petal width separates versicolor (0.9) from virginica (1.0).
func IrisModel() *model.Model {
	return &model.Model{
		Kind:         model.KindDecisionTree,
		Version:      "fixture",
		FeatureNames: []string{"SepalLengthCm", "SepalWidthCm", "PetalLengthCm", "PetalWidthCm"},
		NFeatures:    4,
		NClasses:     3,
		Scaler: &model.StandardScaler{
			Mean:  []float64{5.8, 3.05, 3.76, 1.2},
			Scale: []float64{0.83, 0.43, 1.76, 0.76},
		},
		Trees: []*model.DecisionTree{{
			ChildrenLeft:  []int{1, model.Leaf, 3, model.Leaf, model.Leaf},
			ChildrenRight: []int{2, model.Leaf, 4, model.Leaf, model.Leaf},
			Feature:       []int{2, -2, 3, -2, -2},
			Threshold:     []float64{-0.744, -2, 0.724, -2, -2},
			Value:         [][]float64{{50, 45, 55}, {50, 0, 0}, {0, 45, 55}, {0, 45, 5}, {0, 0, 50}},
			Impurity:      []float64{0.666, 0, 0.495, 0.18, 0},
			NodeSamples:   []float64{150, 50, 100, 50, 50},
		}},
	}
}

// IrisEncoder returns the Iris species encoder.
func IrisEncoder() *model.LabelEncoder {
	return model.FitLabelEncoder(IrisClasses)
}

// LoanModel returns a two-tree forest over the loan columns. With
// credit_history 1 and applicant_income above 1000 it predicts Approved with
// probabilities [0.25, 0.75]; with credit_history 0 it predicts Rejected
// with [0.6, 0.4].
func LoanModel(featureNames []string) *model.Model {
	return &model.Model{
		Kind:         model.KindRandomForest,
		Version:      "fixture",
		FeatureNames: featureNames,
		NFeatures:    11,
		NClasses:     2,
		Trees: []*model.DecisionTree{
			split(9, 0.5, []float64{9, 1}, []float64{2, 8}),
			split(5, 1000, []float64{6, 4}, []float64{3, 7}),
		},
	}
}

// LoanEncoders returns encoders for the six categorical loan columns.
func LoanEncoders() model.EncoderSet {
	return model.EncoderSet{
		"Gender":        model.FitLabelEncoder([]string{"Male", "Female"}),
		"Married":       model.FitLabelEncoder([]string{"Yes", "No"}),
		"Dependents":    model.FitLabelEncoder([]string{"0", "1", "2", "3+"}),
		"Education":     model.FitLabelEncoder([]string{"Graduate", "Not Graduate"}),
		"Self_Employed": model.FitLabelEncoder([]string{"Yes", "No"}),
		"Property_Area": model.FitLabelEncoder([]string{"Urban", "Rural", "Semiurban"}),
	}
}

// Write saves every fixture artifact under dir.
func Write(t testing.TB, dir string, loanColumns []string) Artifacts {
	t.Helper()

	a := Artifacts{
		IrisModel:    filepath.Join(dir, "iris-model", "dt_model.json"),
		IrisEncoder:  filepath.Join(dir, "iris-model", "label_encoder.json"),
		LoanModel:    filepath.Join(dir, "loan-approval", "results", "random_forest_model.json"),
		LoanEncoders: filepath.Join(dir, "loan-approval", "results", "label_encoders.json"),
	}
	if err := IrisModel().Save(a.IrisModel); err != nil {
		t.Fatalf("save iris model: %v", err)
	}
	if err := IrisEncoder().Save(a.IrisEncoder); err != nil {
		t.Fatalf("save iris encoder: %v", err)
	}
	if err := LoanModel(loanColumns).Save(a.LoanModel); err != nil {
		t.Fatalf("save loan model: %v", err)
	}
	if err := LoanEncoders().Save(a.LoanEncoders); err != nil {
		t.Fatalf("save loan encoders: %v", err)
	}
	return a
}

func split(feature int, threshold float64, left, right []float64) *model.DecisionTree {
	return &model.DecisionTree{
		ChildrenLeft:  []int{1, model.Leaf, model.Leaf},
		ChildrenRight: []int{2, model.Leaf, model.Leaf},
		Feature:       []int{feature, -2, -2},
		Threshold:     []float64{threshold, -2, -2},
		Value:         [][]float64{{left[0] + right[0], left[1] + right[1]}, left, right},
	}
}
