// Package model holds the serialized classifier artifacts served by the API
// and the inference code that runs them.
//
// Artifacts are plain JSON. A tree is stored as parallel node arrays, so a
// decision tree and a random forest share one representation: a forest is a
// list of trees whose per-class probabilities are averaged. An optional
// standard scaler runs before the trees, which covers the scaler + tree
// pipeline used for Iris.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gonum.org/v1/gonum/floats"
)

const (
	KindDecisionTree = "decision_tree"
	KindRandomForest = "random_forest"
)

var (
	// ErrFeatureCount is returned when a sample does not have the number of
	// columns the model was trained on.
	ErrFeatureCount = errors.New("feature count mismatch")
	// ErrInvalidModel is returned when a loaded artifact is structurally broken.
	ErrInvalidModel = errors.New("invalid model artifact")
)

// Classifier is the contract the prediction path relies on.
type Classifier interface {
	Predict(X [][]float64) ([]int, error)
	PredictProba(X [][]float64) ([][]float64, error)
}

// Model is a fitted tree ensemble, optionally preceded by a scaler.
type Model struct {
	Kind         string          `json:"kind"`
	Version      string          `json:"version"`
	TrainedAt    time.Time       `json:"trained_at"`
	FeatureNames []string        `json:"feature_names"`
	NFeatures    int             `json:"n_features"`
	NClasses     int             `json:"n_classes"`
	Scaler       *StandardScaler `json:"scaler,omitempty"`
	Trees        []*DecisionTree `json:"trees"`
}

var _ Classifier = (*Model)(nil)

// Validate checks that the artifact is internally consistent.
func (m *Model) Validate() error {
	if m.Kind != KindDecisionTree && m.Kind != KindRandomForest {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidModel, m.Kind)
	}
	if m.NFeatures <= 0 || m.NClasses <= 0 {
		return fmt.Errorf("%w: n_features=%d n_classes=%d", ErrInvalidModel, m.NFeatures, m.NClasses)
	}
	if len(m.FeatureNames) != 0 && len(m.FeatureNames) != m.NFeatures {
		return fmt.Errorf("%w: %d feature names for %d features", ErrInvalidModel, len(m.FeatureNames), m.NFeatures)
	}
	if len(m.Trees) == 0 {
		return fmt.Errorf("%w: no trees", ErrInvalidModel)
	}
	if m.Kind == KindDecisionTree && len(m.Trees) != 1 {
		return fmt.Errorf("%w: decision tree artifact holds %d trees", ErrInvalidModel, len(m.Trees))
	}
	if m.Scaler != nil {
		if err := m.Scaler.validate(m.NFeatures); err != nil {
			return err
		}
	}
	for i, t := range m.Trees {
		if err := t.validate(m.NFeatures, m.NClasses); err != nil {
			return fmt.Errorf("tree %d: %w", i, err)
		}
	}
	return nil
}

// PredictProba returns one probability row per sample. Each tree contributes
// its normalized leaf distribution and the rows are averaged across trees.
func (m *Model) PredictProba(X [][]float64) ([][]float64, error) {
	out := make([][]float64, len(X))
	for i, x := range X {
		if len(x) != m.NFeatures {
			return nil, fmt.Errorf("%w: sample %d has %d features, model expects %d", ErrFeatureCount, i, len(x), m.NFeatures)
		}
		if m.Scaler != nil {
			x = m.Scaler.Transform(x)
		}
		row := make([]float64, m.NClasses)
		for _, t := range m.Trees {
			floats.Add(row, t.leafProba(x))
		}
		floats.Scale(1/float64(len(m.Trees)), row)
		out[i] = row
	}
	return out, nil
}

// Predict returns the class index with the highest averaged probability.
// Ties go to the lowest index.
func (m *Model) Predict(X [][]float64) ([]int, error) {
	proba, err := m.PredictProba(X)
	if err != nil {
		return nil, err
	}
	preds := make([]int, len(proba))
	for i, row := range proba {
		preds[i] = floats.MaxIdx(row)
	}
	return preds, nil
}

// Importances returns the mean impurity-based importance of every feature
// across the trees, normalized to sum to one.
func (m *Model) Importances() []float64 {
	total := make([]float64, m.NFeatures)
	for _, t := range m.Trees {
		imp := t.importances(m.NFeatures)
		if s := floats.Sum(imp); s > 0 {
			floats.Scale(1/s, imp)
		}
		floats.Add(total, imp)
	}
	if s := floats.Sum(total); s > 0 {
		floats.Scale(1/s, total)
	}
	return total
}

// Load reads and validates a model artifact.
func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model %s: %w", path, err)
	}
	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse model %s: %w", path, err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("model %s: %w", path, err)
	}
	return &m, nil
}

// Save writes the artifact, creating parent directories as needed.
func (m *Model) Save(path string) error {
	if err := m.Validate(); err != nil {
		return err
	}
	return writeJSON(path, m)
}

func writeJSON(path string, v interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal artifact: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
