package predict

import (
	"encoding/json"
	"errors"
	"testing"

	"ml-api/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubClassifier struct {
	preds      []int
	proba      [][]float64
	predictErr error
	probaErr   error
	panicWith  interface{}
}

func (s *stubClassifier) Predict(X [][]float64) ([]int, error) {
	if s.panicWith != nil {
		panic(s.panicWith)
	}
	return s.preds, s.predictErr
}

func (s *stubClassifier) PredictProba(X [][]float64) ([][]float64, error) {
	return s.proba, s.probaErr
}

func TestAdapter_Predict(t *testing.T) {
	a := NewAdapter(&stubClassifier{preds: []int{1, 0}, proba: [][]float64{{0.2, 0.8}, {0.9, 0.1}}})
	preds, proba, err := a.Predict([][]float64{{1}, {2}})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 0}, preds)
	assert.Equal(t, [][]float64{{0.2, 0.8}, {0.9, 0.1}}, proba)
}

func TestAdapter_WrapsClassifierErrors(t *testing.T) {
	tests := []struct {
		name string
		clf  *stubClassifier
		msg  string
	}{
		{"predict error", &stubClassifier{predictErr: errors.New("boom")}, "boom"},
		{"proba error", &stubClassifier{preds: []int{0}, probaErr: errors.New("proba boom")}, "proba boom"},
		{"panic", &stubClassifier{panicWith: "index out of range"}, "index out of range"},
		{"length mismatch", &stubClassifier{preds: []int{0, 1}, proba: [][]float64{{1, 0}}}, "2 predictions and 1 probability rows"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			preds, proba, err := NewAdapter(tt.clf).Predict([][]float64{{1}})
			require.Error(t, err)
			var perr *PredictionError
			require.True(t, errors.As(err, &perr))
			assert.Contains(t, perr.Error(), tt.msg)
			assert.Nil(t, preds)
			assert.Nil(t, proba)
		})
	}
}

func TestAdapter_FeatureCountErrorKeepsCause(t *testing.T) {
	m := &model.Model{
		Kind: model.KindDecisionTree, NFeatures: 2, NClasses: 2,
		Trees: []*model.DecisionTree{{
			ChildrenLeft: []int{model.Leaf}, ChildrenRight: []int{model.Leaf},
			Feature: []int{-2}, Threshold: []float64{-2}, Value: [][]float64{{1, 1}},
		}},
	}
	_, _, err := NewAdapter(m).Predict([][]float64{{1}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrFeatureCount))
}

func TestBuild_LabelsPredictions(t *testing.T) {
	labels := LabelTable{0: "Rejected", 1: "Approved"}
	resp, err := Build([]int{1, 0}, [][]float64{{0.3, 0.7}, {0.6, 0.4}}, labels)
	require.NoError(t, err)
	assert.Equal(t, []string{"Approved", "Rejected"}, resp.PredictionName)
	assert.Equal(t, []int{1, 0}, resp.Prediction)
	assert.Equal(t, [][]float64{{0.3, 0.7}, {0.6, 0.4}}, resp.Proba)
}

func TestBuild_UnknownClass(t *testing.T) {
	_, err := Build([]int{2}, [][]float64{{0, 0, 1}}, LabelTable{0: "a", 1: "b"})
	assert.Error(t, err)
}

func TestResponse_AppendAccumulates(t *testing.T) {
	labels := LabelsFromClasses([]string{"Rejected", "Approved"})
	resp := NewResponse()
	require.NoError(t, resp.Append([]int{0}, [][]float64{{1, 0}}, labels))
	require.NoError(t, resp.Append([]int{1}, [][]float64{{0, 1}}, labels))
	assert.Equal(t, []int{0, 1}, resp.Prediction)
	assert.Equal(t, []string{"Rejected", "Approved"}, resp.PredictionName)
}

func TestNewResponse_EncodesEmptyArrays(t *testing.T) {
	data, err := json.Marshal(NewResponse())
	require.NoError(t, err)
	assert.JSONEq(t, `{"prediction":[],"prediction_name":[],"proba":[]}`, string(data))
}
