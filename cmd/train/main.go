package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"ml-api/internal/common"
	"ml-api/internal/ml"
	"ml-api/internal/train"
)

const usage = `usage: train <iris|loan> [flags]

Trains a model from a CSV dataset and writes its JSON artifacts.
Run "train <iris|loan> -h" for the flags of each model.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	switch cmd := os.Args[1]; cmd {
	case common.ModelIris:
		runIris(os.Args[2:])
	case common.ModelLoan:
		runLoan(os.Args[2:])
	case "-h", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown model %q\n\n%s", cmd, usage)
		os.Exit(2)
	}
}

type commonFlags struct {
	dataset   *string
	out       *string
	modelsDir *string
	testSize  *float64
	seed      *int64
	logLevel  *string
}

func newFlags(name, dataset, out string) (*flag.FlagSet, commonFlags) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	return fs, commonFlags{
		dataset:   fs.String("data", dataset, "Path to the CSV dataset"),
		out:       fs.String("out", out, "Output directory for artifacts"),
		modelsDir: fs.String("models-dir", common.DefaultModelsDir, "Model registry directory (empty to skip registration)"),
		testSize:  fs.Float64("test-size", 0.2, "Fraction of rows held out for evaluation"),
		seed:      fs.Int64("seed", 42, "Random seed for the split and the model"),
		logLevel:  fs.String("log-level", "info", "Log level: debug, info, warn, error"),
	}
}

func (f commonFlags) options() train.Options {
	level, err := zerolog.ParseLevel(*f.logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	opts := train.Options{
		Dataset:  *f.dataset,
		OutDir:   *f.out,
		TestSize: *f.testSize,
		Seed:     *f.seed,
	}
	if *f.modelsDir != "" {
		registry, err := ml.NewModelManager(*f.modelsDir)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to open model registry")
		}
		opts.Registry = registry
	}
	return opts
}

func runIris(args []string) {
	out := filepath.Dir(common.DefaultIrisModelPath)
	fs, flags := newFlags(common.ModelIris, filepath.Join(out, "dataset", "Iris.csv"), out)
	fs.Parse(args)

	res, err := train.TrainIris(flags.options())
	if err != nil {
		log.Fatal().Err(err).Msg("Iris training failed")
	}

	fmt.Printf("Model Accuracy: %.2f\n", res.Evaluation.Accuracy)
	fmt.Println("Artifacts generated successfully.")
	fmt.Printf("Classes: %v\n", res.Classes)
	printVersion(res.Version)
}

func runLoan(args []string) {
	out := filepath.Dir(common.DefaultLoanModelPath)
	fs, flags := newFlags(common.ModelLoan, filepath.Join(filepath.Dir(out), "datasets", "LoanApprovalPrediction.csv"), out)
	fs.Parse(args)

	res, err := train.TrainLoan(flags.options())
	if err != nil {
		log.Fatal().Err(err).Msg("Loan training failed")
	}

	e := res.Evaluation
	fmt.Println("=== Model Evaluation ===")
	fmt.Printf("Training set: %d samples\n", res.Metrics.TrainingSamples)
	fmt.Printf("Test set: %d samples\n", res.Metrics.TestSamples)
	fmt.Printf("Accuracy:  %.4f (%.2f%%)\n", e.Accuracy, e.Accuracy*100)
	fmt.Printf("Precision: %.4f\n", e.Precision)
	fmt.Printf("Recall:    %.4f\n", e.Recall)
	fmt.Printf("F1-Score:  %.4f\n", e.F1)

	fmt.Println("\nConfusion Matrix:")
	fmt.Printf("%18s %10s %10s\n", "", "Pred N", "Pred Y")
	for i, row := range e.Confusion {
		fmt.Printf("%18s %10d %10d\n", "Actual "+train.LoanTargetNames[i], row[0], row[1])
	}

	fmt.Println("\nClassification Report:")
	fmt.Print(res.Report)

	fmt.Println("\n=== Feature Importance ===")
	fmt.Printf("%-6s%-20s%-12s\n", "Rank", "Feature", "Importance")
	for i, fi := range res.Importances {
		fmt.Printf("%-6d%-20s%.4f\n", i+1, fi.Feature, fi.Importance)
	}

	fmt.Printf("\nModel saved to: %s\n", res.ModelPath)
	printVersion(res.Version)
}

func printVersion(v *ml.ModelVersion) {
	if v != nil {
		fmt.Printf("Registered %s version %s\n", v.Model, v.Version)
	}
}
