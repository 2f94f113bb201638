package train

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"ml-api/internal/common"
	"ml-api/internal/dataset"
	"ml-api/internal/loan"
	"ml-api/internal/ml"
	"ml-api/internal/model"
)

const (
	LoanModelFile       = "random_forest_model.json"
	LoanEncodersFile    = "label_encoders.json"
	LoanPredictionsFile = "predictions.csv"
	LoanImportanceFile  = "feature_importance.csv"
)

// LoanTargetNames label the loan classes in the classification report.
var LoanTargetNames = []string{"Rejected (N)", "Approved (Y)"}

// LoanForest is the forest configuration used for the loan model.
var LoanForest = ForestParams{
	NTrees: 100,
	Tree: TreeParams{
		MaxDepth:        10,
		MinSamplesSplit: 5,
		MinSamplesLeaf:  2,
	},
	ClassWeight: ClassWeightBalanced,
}

// LoanResult extends Result with the loan run's extra outputs.
type LoanResult struct {
	Result
	Encoders    model.EncoderSet
	Importances []FeatureImportance
	Report      string
}

// PrepareLoan imputes and encodes a raw loan frame in place. Non-numeric
// columns get their mode, numeric columns their median. Every remaining
// non-numeric column other than the target is label encoded. The target is
// returned as 1 for Y and 0 for N.
func PrepareLoan(frame *dataset.Frame) (model.EncoderSet, []int, error) {
	frame.Drop(loan.ColLoanID)
	if !frame.Has(loan.ColLoanStatus) {
		return nil, nil, fmt.Errorf("%w: %s", dataset.ErrNoColumn, loan.ColLoanStatus)
	}

	numeric := make(map[string]bool, len(frame.Columns))
	for _, col := range frame.Columns {
		numeric[col] = frame.IsNumeric(col)
		missing := frame.Missing(col)
		if missing == 0 {
			continue
		}
		if numeric[col] {
			median, err := frame.ImputeMedian(col)
			if err != nil {
				return nil, nil, err
			}
			log.Debug().Str("column", col).Int("missing", missing).Float64("median", median).Msg("Imputed with median")
		} else {
			mode, err := frame.ImputeMode(col)
			if err != nil {
				return nil, nil, err
			}
			log.Debug().Str("column", col).Int("missing", missing).Str("mode", mode).Msg("Imputed with mode")
		}
	}

	encoders := make(model.EncoderSet)
	for _, col := range frame.Columns {
		if numeric[col] || col == loan.ColLoanStatus {
			continue
		}
		values, err := frame.Strings(col)
		if err != nil {
			return nil, nil, err
		}
		enc, codes, err := EncodeLabels(values)
		if err != nil {
			return nil, nil, err
		}
		encoded := make([]string, len(codes))
		for i, c := range codes {
			encoded[i] = strconv.Itoa(c)
		}
		if err := frame.Set(col, encoded); err != nil {
			return nil, nil, err
		}
		encoders[col] = enc
		log.Debug().Str("column", col).Strs("classes", enc.Classes).Msg("Encoded column")
	}

	status, err := frame.Strings(loan.ColLoanStatus)
	if err != nil {
		return nil, nil, err
	}
	y := make([]int, len(status))
	for i, s := range status {
		switch s {
		case "Y":
			y[i] = 1
		case "N":
			y[i] = 0
		default:
			return nil, nil, fmt.Errorf("row %d: %s is %q, want Y or N", i, loan.ColLoanStatus, s)
		}
	}
	return encoders, y, nil
}

// TrainLoan fits the loan-approval random forest and writes the model, the
// encoders, the test-set predictions and the ranked importances to OutDir.
func TrainLoan(opts Options) (*LoanResult, error) {
	opts = opts.withDefaults()
	frame, err := dataset.ReadCSV(opts.Dataset)
	if err != nil {
		return nil, err
	}
	log.Info().Int("rows", frame.Len()).Int("columns", len(frame.Columns)).Msg("Loaded loan dataset")

	encoders, y, err := PrepareLoan(frame)
	if err != nil {
		return nil, err
	}
	X, err := frame.Matrix(loan.Columns)
	if err != nil {
		return nil, err
	}

	split, err := dataset.StratifiedSplit(y, opts.TestSize, opts.Seed)
	if err != nil {
		return nil, err
	}
	XTrain, yTrain := dataset.Rows(X, split.Train), dataset.Rows(y, split.Train)
	XTest, yTest := dataset.Rows(X, split.Test), dataset.Rows(y, split.Test)
	log.Info().Int("train", len(XTrain)).Int("test", len(XTest)).Msg("Training random forest")

	params := LoanForest
	params.Seed = opts.Seed
	trees, err := FitForest(XTrain, yTrain, len(loan.Labels), params)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	m := &model.Model{
		Kind:         model.KindRandomForest,
		Version:      versionOf(now),
		TrainedAt:    now.UTC(),
		FeatureNames: append([]string(nil), loan.Columns...),
		NFeatures:    len(loan.Columns),
		NClasses:     len(loan.Labels),
		Trees:        trees,
	}

	pred, err := m.Predict(XTest)
	if err != nil {
		return nil, err
	}
	eval, err := Evaluate(yTest, pred, m.NClasses, 1)
	if err != nil {
		return nil, err
	}
	log.Info().
		Float64("accuracy", eval.Accuracy).
		Float64("precision", eval.Precision).
		Float64("recall", eval.Recall).
		Float64("f1", eval.F1).
		Msg("Loan model evaluated")

	ranked := RankImportances(m.FeatureNames, m.Importances())

	modelPath := filepath.Join(opts.OutDir, LoanModelFile)
	if err := m.Save(modelPath); err != nil {
		return nil, fmt.Errorf("save loan model: %w", err)
	}
	if err := encoders.Save(filepath.Join(opts.OutDir, LoanEncodersFile)); err != nil {
		return nil, fmt.Errorf("save loan encoders: %w", err)
	}
	if err := WritePredictionsCSV(filepath.Join(opts.OutDir, LoanPredictionsFile), yTest, pred); err != nil {
		return nil, err
	}
	if err := WriteImportanceCSV(filepath.Join(opts.OutDir, LoanImportanceFile), ranked); err != nil {
		return nil, err
	}

	res := &LoanResult{
		Result: Result{
			ModelPath:  modelPath,
			Model:      m,
			Classes:    LoanTargetNames,
			Evaluation: eval,
			Metrics: ml.ModelMetrics{
				Accuracy:        eval.Accuracy,
				Precision:       eval.Precision,
				Recall:          eval.Recall,
				F1Score:         eval.F1,
				TrainingSamples: len(XTrain),
				TestSamples:     len(XTest),
			},
		},
		Encoders:    encoders,
		Importances: ranked,
		Report:      eval.Report(LoanTargetNames),
	}
	if err := register(opts.Registry, common.ModelLoan, &res.Result); err != nil {
		return nil, err
	}
	return res, nil
}
