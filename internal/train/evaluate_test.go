package train

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate(t *testing.T) {
	yTrue := []int{1, 1, 0, 0, 1}
	yPred := []int{1, 0, 0, 1, 1}

	e, err := Evaluate(yTrue, yPred, 2, 1)
	require.NoError(t, err)

	assert.InDelta(t, 0.6, e.Accuracy, 1e-12)
	assert.InDelta(t, 2.0/3, e.Precision, 1e-12)
	assert.InDelta(t, 2.0/3, e.Recall, 1e-12)
	assert.InDelta(t, 2.0/3, e.F1, 1e-12)
	assert.Equal(t, [][]int{{1, 1}, {1, 2}}, e.Confusion)
	assert.Equal(t, 2, e.Classes[0].Support)
	assert.Equal(t, 3, e.Classes[1].Support)
	assert.InDelta(t, 0.5, e.Classes[0].Precision, 1e-12)
}

func TestEvaluate_UndefinedRatios(t *testing.T) {
	e, err := Evaluate([]int{0, 0}, []int{0, 0}, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, 1.0, e.Accuracy)
	assert.Zero(t, e.Precision)
	assert.Zero(t, e.Recall)
	assert.Zero(t, e.F1)
}

func TestEvaluate_Errors(t *testing.T) {
	_, err := Evaluate([]int{0}, []int{0, 1}, 2, 1)
	assert.Error(t, err)

	_, err = Evaluate(nil, nil, 2, 1)
	assert.ErrorIs(t, err, ErrEmptyTrainingSet)

	_, err = Evaluate([]int{0}, []int{2}, 2, 1)
	assert.Error(t, err)
}

func TestEvaluation_Report(t *testing.T) {
	e, err := Evaluate([]int{1, 1, 0, 0, 1}, []int{1, 0, 0, 1, 1}, 2, 1)
	require.NoError(t, err)

	report := e.Report(LoanTargetNames)
	lines := strings.Split(strings.TrimRight(report, "\n"), "\n")
	require.Len(t, lines, 8)
	assert.Contains(t, lines[0], "precision")
	assert.Contains(t, lines[2], "Rejected (N)")
	assert.Contains(t, lines[2], "0.50")
	assert.Contains(t, lines[3], "Approved (Y)")
	assert.Contains(t, lines[3], "0.67")
	assert.Contains(t, lines[5], "accuracy")
	assert.Contains(t, lines[5], "0.60")
	assert.Contains(t, lines[6], "macro avg")
	assert.True(t, strings.HasSuffix(lines[7], " 5"))
}

func TestRankImportances(t *testing.T) {
	ranked := RankImportances([]string{"a", "b", "c"}, []float64{0.2, 0.5, 0.2, 0.1})
	assert.Equal(t, []FeatureImportance{
		{"b", 0.5},
		{"a", 0.2},
		{"c", 0.2},
		{"feature_3", 0.1},
	}, ranked)
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestWriteCSVs(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "results")

	require.NoError(t, WritePredictionsCSV(filepath.Join(dir, "p.csv"), []int{1, 0}, []int{1, 1}))
	assert.Equal(t, [][]string{
		{"Actual", "Predicted", "Correct"},
		{"1", "1", "True"},
		{"0", "1", "False"},
	}, readCSV(t, filepath.Join(dir, "p.csv")))

	require.NoError(t, WriteImportanceCSV(filepath.Join(dir, "i.csv"), []FeatureImportance{{"x", 0.75}, {"y", 0.25}}))
	assert.Equal(t, [][]string{
		{"Feature", "Importance"},
		{"x", "0.75"},
		{"y", "0.25"},
	}, readCSV(t, filepath.Join(dir, "i.csv")))

	assert.Error(t, WritePredictionsCSV(filepath.Join(dir, "bad.csv"), []int{1}, nil))
}
