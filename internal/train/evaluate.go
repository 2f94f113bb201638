package train

import (
	"fmt"
	"strings"
)

// Evaluation summarizes predictions against held-out labels. Precision,
// Recall and F1 are for PositiveClass.
type Evaluation struct {
	Accuracy      float64
	Precision     float64
	Recall        float64
	F1            float64
	PositiveClass int
	Confusion     [][]int
	Classes       []ClassScore
}

// ClassScore is one row of a classification report.
type ClassScore struct {
	Precision float64
	Recall    float64
	F1        float64
	Support   int
}

// ConfusionMatrix counts rows as true class and columns as predicted class.
func ConfusionMatrix(yTrue, yPred []int, nClasses int) [][]int {
	m := make([][]int, nClasses)
	for i := range m {
		m[i] = make([]int, nClasses)
	}
	for i := range yTrue {
		m[yTrue[i]][yPred[i]]++
	}
	return m
}

// Evaluate scores yPred against yTrue. Undefined ratios (no predicted or no
// actual members of a class) are reported as zero.
func Evaluate(yTrue, yPred []int, nClasses, positive int) (Evaluation, error) {
	if len(yTrue) != len(yPred) {
		return Evaluation{}, fmt.Errorf("%d labels but %d predictions", len(yTrue), len(yPred))
	}
	if len(yTrue) == 0 {
		return Evaluation{}, ErrEmptyTrainingSet
	}
	for i := range yTrue {
		if yTrue[i] < 0 || yTrue[i] >= nClasses || yPred[i] < 0 || yPred[i] >= nClasses {
			return Evaluation{}, fmt.Errorf("row %d: class outside [0, %d)", i, nClasses)
		}
	}

	cm := ConfusionMatrix(yTrue, yPred, nClasses)
	correct := 0
	for c := 0; c < nClasses; c++ {
		correct += cm[c][c]
	}

	classes := make([]ClassScore, nClasses)
	for c := 0; c < nClasses; c++ {
		tp := cm[c][c]
		predicted, actual := 0, 0
		for k := 0; k < nClasses; k++ {
			predicted += cm[k][c]
			actual += cm[c][k]
		}
		s := ClassScore{Support: actual}
		if predicted > 0 {
			s.Precision = float64(tp) / float64(predicted)
		}
		if actual > 0 {
			s.Recall = float64(tp) / float64(actual)
		}
		if s.Precision+s.Recall > 0 {
			s.F1 = 2 * s.Precision * s.Recall / (s.Precision + s.Recall)
		}
		classes[c] = s
	}

	e := Evaluation{
		Accuracy:      float64(correct) / float64(len(yTrue)),
		PositiveClass: positive,
		Confusion:     cm,
		Classes:       classes,
	}
	if positive >= 0 && positive < nClasses {
		e.Precision = classes[positive].Precision
		e.Recall = classes[positive].Recall
		e.F1 = classes[positive].F1
	}
	return e, nil
}

// Report renders per-class precision, recall, F1 and support followed by
// accuracy and the macro and weighted averages.
func (e Evaluation) Report(names []string) string {
	width := len("weighted avg")
	for _, n := range names {
		if len(n) > width {
			width = len(n)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%*s %9s %9s %9s %9s\n\n", width, "", "precision", "recall", "f1-score", "support")

	var total int
	var macro, weighted [3]float64
	for c, s := range e.Classes {
		name := fmt.Sprint(c)
		if c < len(names) {
			name = names[c]
		}
		fmt.Fprintf(&b, "%*s %9.2f %9.2f %9.2f %9d\n", width, name, s.Precision, s.Recall, s.F1, s.Support)
		total += s.Support
		macro[0] += s.Precision
		macro[1] += s.Recall
		macro[2] += s.F1
		weighted[0] += s.Precision * float64(s.Support)
		weighted[1] += s.Recall * float64(s.Support)
		weighted[2] += s.F1 * float64(s.Support)
	}
	n := float64(len(e.Classes))
	fmt.Fprintf(&b, "\n%*s %9s %9s %9.2f %9d\n", width, "accuracy", "", "", e.Accuracy, total)
	fmt.Fprintf(&b, "%*s %9.2f %9.2f %9.2f %9d\n", width, "macro avg", macro[0]/n, macro[1]/n, macro[2]/n, total)
	if total > 0 {
		t := float64(total)
		fmt.Fprintf(&b, "%*s %9.2f %9.2f %9.2f %9d\n", width, "weighted avg", weighted[0]/t, weighted[1]/t, weighted[2]/t, total)
	}
	return b.String()
}
