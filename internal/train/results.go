package train

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
)

// FeatureImportance is one ranked entry of a model's importances.
type FeatureImportance struct {
	Feature    string
	Importance float64
}

// RankImportances pairs names with importances, most important first. Equal
// importances keep their column order.
func RankImportances(names []string, importances []float64) []FeatureImportance {
	out := make([]FeatureImportance, len(importances))
	for i, v := range importances {
		name := fmt.Sprintf("feature_%d", i)
		if i < len(names) {
			name = names[i]
		}
		out[i] = FeatureImportance{Feature: name, Importance: v}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Importance > out[b].Importance })
	return out
}

// WriteImportanceCSV writes Feature,Importance rows.
func WriteImportanceCSV(path string, ranked []FeatureImportance) error {
	rows := make([][]string, 0, len(ranked)+1)
	rows = append(rows, []string{"Feature", "Importance"})
	for _, fi := range ranked {
		rows = append(rows, []string{fi.Feature, strconv.FormatFloat(fi.Importance, 'g', -1, 64)})
	}
	return writeCSV(path, rows)
}

// WritePredictionsCSV writes Actual,Predicted,Correct rows for a test set.
func WritePredictionsCSV(path string, actual, predicted []int) error {
	if len(actual) != len(predicted) {
		return fmt.Errorf("%d labels but %d predictions", len(actual), len(predicted))
	}
	rows := make([][]string, 0, len(actual)+1)
	rows = append(rows, []string{"Actual", "Predicted", "Correct"})
	for i := range actual {
		correct := "False"
		if actual[i] == predicted[i] {
			correct = "True"
		}
		rows = append(rows, []string{strconv.Itoa(actual[i]), strconv.Itoa(predicted[i]), correct})
	}
	return writeCSV(path, rows)
}

func writeCSV(path string, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
