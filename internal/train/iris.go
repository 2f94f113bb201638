package train

import (
	"fmt"
	"math/rand"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"ml-api/internal/common"
	"ml-api/internal/dataset"
	"ml-api/internal/ml"
	"ml-api/internal/model"
)

const (
	irisIDColumn      = "Id"
	irisSpeciesColumn = "Species"

	IrisModelFile   = "dt_model.json"
	IrisEncoderFile = "label_encoder.json"
)

// Options are shared by the training pipelines.
type Options struct {
	Dataset  string
	OutDir   string
	TestSize float64
	Seed     int64
	// Registry records the new artifact when set.
	Registry *ml.ModelManager
}

func (o Options) withDefaults() Options {
	if o.TestSize == 0 {
		o.TestSize = 0.2
	}
	return o
}

// Result describes a finished training run.
type Result struct {
	ModelPath  string
	Model      *model.Model
	Classes    []string
	Evaluation Evaluation
	Metrics    ml.ModelMetrics
	Version    *ml.ModelVersion
}

func versionOf(t time.Time) string {
	return t.UTC().Format("20060102-150405")
}

// TrainIris fits the scaler + decision tree pipeline on an Iris CSV. Rows
// with any measurement outside 1.5 IQR are dropped first.
func TrainIris(opts Options) (*Result, error) {
	opts = opts.withDefaults()
	frame, err := dataset.ReadCSV(opts.Dataset)
	if err != nil {
		return nil, err
	}
	if !frame.Has(irisSpeciesColumn) {
		return nil, fmt.Errorf("%w: %s", dataset.ErrNoColumn, irisSpeciesColumn)
	}

	var features []string
	for _, col := range frame.Columns {
		if col != irisIDColumn && col != irisSpeciesColumn {
			features = append(features, col)
		}
	}
	if len(features) != common.IrisFeatures {
		return nil, fmt.Errorf("iris dataset has %d measurement columns, want %d", len(features), common.IrisFeatures)
	}

	keep, err := frame.IQRMask(features, 1.5)
	if err != nil {
		return nil, err
	}
	before := frame.Len()
	frame = frame.Filter(keep)
	log.Info().Int("rows", frame.Len()).Int("outliers", before-frame.Len()).Msg("Loaded iris dataset")

	X, err := frame.Matrix(features)
	if err != nil {
		return nil, err
	}
	species, err := frame.Strings(irisSpeciesColumn)
	if err != nil {
		return nil, err
	}
	encoder, y, err := EncodeLabels(species)
	if err != nil {
		return nil, err
	}

	split, err := dataset.Split(len(X), opts.TestSize, opts.Seed)
	if err != nil {
		return nil, err
	}
	XTrain, yTrain := dataset.Rows(X, split.Train), dataset.Rows(y, split.Train)
	XTest, yTest := dataset.Rows(X, split.Test), dataset.Rows(y, split.Test)

	scaler, err := FitScaler(XTrain)
	if err != nil {
		return nil, err
	}
	tree, err := FitTree(TransformAll(scaler, XTrain), yTrain, nil, len(encoder.Classes), TreeParams{}, rand.New(rand.NewSource(opts.Seed)))
	if err != nil {
		return nil, err
	}

	now := time.Now()
	m := &model.Model{
		Kind:         model.KindDecisionTree,
		Version:      versionOf(now),
		TrainedAt:    now.UTC(),
		FeatureNames: features,
		NFeatures:    len(features),
		NClasses:     len(encoder.Classes),
		Scaler:       scaler,
		Trees:        []*model.DecisionTree{tree},
	}

	pred, err := m.Predict(XTest)
	if err != nil {
		return nil, err
	}
	eval, err := Evaluate(yTest, pred, m.NClasses, -1)
	if err != nil {
		return nil, err
	}
	log.Info().Float64("accuracy", eval.Accuracy).Strs("classes", encoder.Classes).Msg("Iris model evaluated")

	modelPath := filepath.Join(opts.OutDir, IrisModelFile)
	if err := m.Save(modelPath); err != nil {
		return nil, fmt.Errorf("save iris model: %w", err)
	}
	if err := encoder.Save(filepath.Join(opts.OutDir, IrisEncoderFile)); err != nil {
		return nil, fmt.Errorf("save iris encoder: %w", err)
	}

	res := &Result{
		ModelPath:  modelPath,
		Model:      m,
		Classes:    encoder.Classes,
		Evaluation: eval,
		Metrics: ml.ModelMetrics{
			Accuracy:        eval.Accuracy,
			TrainingSamples: len(XTrain),
			TestSamples:     len(XTest),
		},
	}
	if err := register(opts.Registry, common.ModelIris, res); err != nil {
		return nil, err
	}
	return res, nil
}

func register(registry *ml.ModelManager, name string, res *Result) error {
	if registry == nil {
		return nil
	}
	v, err := registry.AddVersion(name, res.ModelPath, res.Metrics)
	if err != nil {
		return fmt.Errorf("register %s model: %w", name, err)
	}
	log.Info().Str("model", name).Str("version", v.Version).Msg("Registered model version")
	res.Version = &v
	return nil
}
