package model

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stump splits on feature 0 at 0.5: left leaf favors class 0, right class 1.
func stump(left, right []float64) *DecisionTree {
	return &DecisionTree{
		ChildrenLeft:  []int{1, Leaf, Leaf},
		ChildrenRight: []int{2, Leaf, Leaf},
		Feature:       []int{0, -2, -2},
		Threshold:     []float64{0.5, -2, -2},
		Value:         [][]float64{{10, 10}, left, right},
		Impurity:      []float64{0.5, 0.32, 0.18},
		NodeSamples:   []float64{20, 10, 10},
	}
}

func TestModel_PredictSingleTree(t *testing.T) {
	m := &Model{Kind: KindDecisionTree, NFeatures: 2, NClasses: 2, Trees: []*DecisionTree{stump([]float64{8, 2}, []float64{1, 9})}}
	require.NoError(t, m.Validate())

	proba, err := m.PredictProba([][]float64{{0, 3}, {1, 3}, {0.5, 0}})
	require.NoError(t, err)
	want := [][]float64{{0.8, 0.2}, {0.1, 0.9}, {0.8, 0.2}}
	if diff := cmp.Diff(want, proba, cmpApprox); diff != "" {
		t.Errorf("PredictProba mismatch (-want +got):\n%s", diff)
	}

	preds, err := m.Predict([][]float64{{0, 3}, {1, 3}})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, preds)
}

func TestModel_ForestAveragesTrees(t *testing.T) {
	m := &Model{
		Kind:      KindRandomForest,
		NFeatures: 1,
		NClasses:  2,
		Trees: []*DecisionTree{
			stump([]float64{10, 0}, []float64{0, 10}),
			stump([]float64{5, 5}, []float64{4, 6}),
		},
	}
	require.NoError(t, m.Validate())

	proba, err := m.PredictProba([][]float64{{0}, {1}})
	require.NoError(t, err)
	want := [][]float64{{0.75, 0.25}, {0.2, 0.8}}
	if diff := cmp.Diff(want, proba, cmpApprox); diff != "" {
		t.Errorf("PredictProba mismatch (-want +got):\n%s", diff)
	}
}

func TestModel_TieGoesToLowestClass(t *testing.T) {
	m := &Model{Kind: KindDecisionTree, NFeatures: 1, NClasses: 2, Trees: []*DecisionTree{stump([]float64{5, 5}, []float64{5, 5})}}
	preds, err := m.Predict([][]float64{{0}})
	require.NoError(t, err)
	assert.Equal(t, []int{0}, preds)
}

func TestModel_FeatureCountMismatch(t *testing.T) {
	m := &Model{Kind: KindDecisionTree, NFeatures: 2, NClasses: 2, Trees: []*DecisionTree{stump([]float64{1, 0}, []float64{0, 1})}}
	_, err := m.Predict([][]float64{{1, 2, 3}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFeatureCount))
}

func TestModel_ScalerRunsBeforeTrees(t *testing.T) {
	m := &Model{
		Kind:      KindDecisionTree,
		NFeatures: 1,
		NClasses:  2,
		Scaler:    &StandardScaler{Mean: []float64{10}, Scale: []float64{2}},
		Trees:     []*DecisionTree{stump([]float64{1, 0}, []float64{0, 1})},
	}
	require.NoError(t, m.Validate())
	// (10-10)/2 = 0 goes left; (12-10)/2 = 1 goes right
	preds, err := m.Predict([][]float64{{10}, {12}})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, preds)
}

func TestModel_ValidateRejectsBrokenArtifacts(t *testing.T) {
	tests := []struct {
		name  string
		model *Model
	}{
		{"unknown kind", &Model{Kind: "svm", NFeatures: 1, NClasses: 2, Trees: []*DecisionTree{stump([]float64{1, 0}, []float64{0, 1})}}},
		{"no trees", &Model{Kind: KindRandomForest, NFeatures: 1, NClasses: 2}},
		{"two trees for a decision tree", &Model{Kind: KindDecisionTree, NFeatures: 1, NClasses: 2, Trees: []*DecisionTree{
			stump([]float64{1, 0}, []float64{0, 1}), stump([]float64{1, 0}, []float64{0, 1}),
		}}},
		{"class count mismatch", &Model{Kind: KindDecisionTree, NFeatures: 1, NClasses: 3, Trees: []*DecisionTree{stump([]float64{1, 0}, []float64{0, 1})}}},
		{"feature out of range", &Model{Kind: KindDecisionTree, NFeatures: 1, NClasses: 2, Trees: []*DecisionTree{{
			ChildrenLeft: []int{1, Leaf, Leaf}, ChildrenRight: []int{2, Leaf, Leaf},
			Feature: []int{4, -2, -2}, Threshold: []float64{0, 0, 0}, Value: [][]float64{{1, 1}, {1, 0}, {0, 1}},
		}}}},
		{"child points backwards", &Model{Kind: KindDecisionTree, NFeatures: 1, NClasses: 2, Trees: []*DecisionTree{{
			ChildrenLeft: []int{0, Leaf, Leaf}, ChildrenRight: []int{2, Leaf, Leaf},
			Feature: []int{0, -2, -2}, Threshold: []float64{0, 0, 0}, Value: [][]float64{{1, 1}, {1, 0}, {0, 1}},
		}}}},
		{"scaler width", &Model{Kind: KindDecisionTree, NFeatures: 2, NClasses: 2, Scaler: &StandardScaler{Mean: []float64{0}, Scale: []float64{1}},
			Trees: []*DecisionTree{stump([]float64{1, 0}, []float64{0, 1})}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.model.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidModel), "got %v", err)
		})
	}
}

func TestModel_SaveLoadKeepsPredictions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "model.json")
	m := &Model{
		Kind:         KindRandomForest,
		Version:      "test",
		FeatureNames: []string{"a", "b"},
		NFeatures:    2,
		NClasses:     2,
		Trees:        []*DecisionTree{stump([]float64{3, 1}, []float64{1, 3})},
	}
	require.NoError(t, m.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, m.FeatureNames, loaded.FeatureNames)

	X := [][]float64{{0, 0}, {1, 0}}
	want, _ := m.PredictProba(X)
	got, err := loaded.PredictProba(X)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()
	_, err := Load(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0o600))
	_, err = Load(bad)
	assert.Error(t, err)

	empty := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(empty, []byte(`{"kind":"random_forest","n_features":1,"n_classes":2}`), 0o600))
	_, err = Load(empty)
	assert.True(t, errors.Is(err, ErrInvalidModel))
}

func TestModel_Importances(t *testing.T) {
	m := &Model{Kind: KindDecisionTree, NFeatures: 2, NClasses: 2, Trees: []*DecisionTree{stump([]float64{8, 2}, []float64{1, 9})}}
	imp := m.Importances()
	assert.InDelta(t, 1.0, imp[0], 1e-9)
	assert.InDelta(t, 0.0, imp[1], 1e-9)
}

func TestDecisionTree_Depth(t *testing.T) {
	assert.Equal(t, 1, stump([]float64{1, 0}, []float64{0, 1}).Depth())
	leaf := &DecisionTree{ChildrenLeft: []int{Leaf}, ChildrenRight: []int{Leaf}, Feature: []int{-2}, Threshold: []float64{-2}, Value: [][]float64{{1}}}
	assert.Equal(t, 0, leaf.Depth())
}

var cmpApprox = cmp.Comparer(func(a, b float64) bool {
	d := a - b
	return d < 1e-9 && d > -1e-9
})
