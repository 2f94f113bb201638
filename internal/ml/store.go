package ml

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"ml-api/internal/common"
	"ml-api/internal/loan"
	"ml-api/internal/model"
	"ml-api/internal/predict"
)

// Paths locates the artifacts loaded at start-up.
type Paths struct {
	IrisModel    string
	IrisEncoder  string
	LoanModel    string
	LoanEncoders string
}

// Store holds every artifact the API serves from. It is built once and only
// read afterwards, so handlers share it without locking.
type Store struct {
	Iris         *model.Model
	IrisClasses  *model.LabelEncoder
	IrisLabels   predict.LabelTable
	Loan         *model.Model
	LoanEncoders model.EncoderSet
	LoanTable    loan.EncodingTable
	LoadedAt     time.Time
}

// LoadStore reads and cross-checks the Iris and loan artifacts. Any failure
// is returned; the server is not meant to start without its models.
func LoadStore(p Paths) (*Store, error) {
	iris, err := model.Load(p.IrisModel)
	if err != nil {
		return nil, fmt.Errorf("load iris model: %w", err)
	}
	classes, err := model.LoadLabelEncoder(p.IrisEncoder)
	if err != nil {
		return nil, fmt.Errorf("load iris encoder: %w", err)
	}
	if iris.NClasses != len(classes.Classes) {
		return nil, fmt.Errorf("iris model has %d classes but encoder has %d", iris.NClasses, len(classes.Classes))
	}

	loanModel, err := model.Load(p.LoanModel)
	if err != nil {
		return nil, fmt.Errorf("load loan model: %w", err)
	}
	if err := loan.CheckColumns(loanModel.FeatureNames); err != nil {
		return nil, fmt.Errorf("loan model %s: %w", p.LoanModel, err)
	}
	if loanModel.NClasses != len(loan.Labels) {
		return nil, fmt.Errorf("loan model has %d classes, want %d", loanModel.NClasses, len(loan.Labels))
	}
	encoders, err := model.LoadEncoderSet(p.LoanEncoders)
	if err != nil {
		return nil, fmt.Errorf("load loan encoders: %w", err)
	}

	s := &Store{
		Iris:         iris,
		IrisClasses:  classes,
		IrisLabels:   predict.LabelsFromClasses(classes.Classes),
		Loan:         loanModel,
		LoanEncoders: encoders,
		LoanTable:    loan.NewEncodingTable(encoders),
		LoadedAt:     time.Now(),
	}

	log.Info().
		Str("iris_kind", iris.Kind).
		Str("iris_version", iris.Version).
		Strs("iris_classes", classes.Classes).
		Str("loan_kind", loanModel.Kind).
		Str("loan_version", loanModel.Version).
		Int("loan_trees", len(loanModel.Trees)).
		Int("loan_encoders", len(encoders)).
		Msg("Models loaded")

	return s, nil
}

// Info describes a loaded model for the /model/info endpoint.
type Info struct {
	Kind         string        `json:"kind"`
	Version      string        `json:"version"`
	TrainedAt    time.Time     `json:"trained_at"`
	Features     []string      `json:"features"`
	Classes      []string      `json:"classes"`
	Trees        int           `json:"trees"`
	MaxDepth     int           `json:"max_depth"`
	ActiveRecord *ModelVersion `json:"registry,omitempty"`
}

// Describe returns metadata for both models. registry may be nil.
func (s *Store) Describe(registry *ModelManager) map[string]Info {
	loanClasses := make([]string, len(loan.Labels))
	for i := range loanClasses {
		loanClasses[i] = loan.Labels[i]
	}

	out := map[string]Info{
		common.ModelIris: describe(s.Iris, s.IrisClasses.Classes),
		common.ModelLoan: describe(s.Loan, loanClasses),
	}
	if registry != nil {
		for name, info := range out {
			info.ActiveRecord = registry.GetCurrentVersion(name)
			out[name] = info
		}
	}
	return out
}

func describe(m *model.Model, classes []string) Info {
	depth := 0
	for _, t := range m.Trees {
		if d := t.Depth(); d > depth {
			depth = d
		}
	}
	return Info{
		Kind:      m.Kind,
		Version:   m.Version,
		TrainedAt: m.TrainedAt,
		Features:  m.FeatureNames,
		Classes:   classes,
		Trees:     len(m.Trees),
		MaxDepth:  depth,
	}
}
