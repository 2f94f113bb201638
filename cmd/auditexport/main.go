package main

import (
	"encoding/json"
	"flag"
	"io"
	"os"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"ml-api/internal/common"
	"ml-api/internal/storage"
)

// Exports audited predictions as newline-delimited JSON. The audit database
// is locked while the API server runs, so export from a stopped server or a
// copy of the data directory.
func main() {
	var (
		dataPath   = flag.String("data", "data", "Audit data directory")
		outputPath = flag.String("output", "", "Output file (stdout when empty)")
		model      = flag.String("model", "", "Model to export: iris, loan, or empty for both")
		days       = flag.Int("days", 30, "Number of days to export (0 for all)")
	)
	flag.Parse()
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	models := []string{common.ModelIris, common.ModelLoan}
	if *model != "" {
		if *model != common.ModelIris && *model != common.ModelLoan {
			log.Fatal().Str("model", *model).Msg("unknown model")
		}
		models = []string{*model}
	}

	end := time.Now()
	start := time.Unix(0, 0)
	if *days > 0 {
		start = end.AddDate(0, 0, -*days)
	}

	store, err := storage.New(*dataPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *dataPath).Msg("Failed to open audit store")
	}
	defer store.Close()

	var records []storage.PredictionRecord
	for _, m := range models {
		recs, err := store.GetPredictions(m, start, end)
		if err != nil {
			log.Fatal().Err(err).Str("model", m).Msg("Failed to read predictions")
		}
		records = append(records, recs...)
	}
	sort.SliceStable(records, func(i, j int) bool { return records[i].Timestamp.Before(records[j].Timestamp) })

	var out io.Writer = os.Stdout
	if *outputPath != "" {
		f, err := os.Create(*outputPath)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create output file")
		}
		defer f.Close()
		out = f
	}

	enc := json.NewEncoder(out)
	for _, r := range records {
		if err := enc.Encode(r); err != nil {
			log.Fatal().Err(err).Msg("Failed to write record")
		}
	}

	if len(records) == 0 {
		log.Warn().Msg("No records found matching criteria")
		return
	}

	counts := make(map[string]map[string]int)
	for _, r := range records {
		if counts[r.Model] == nil {
			counts[r.Model] = make(map[string]int)
		}
		counts[r.Model][r.Label]++
	}
	log.Info().
		Int("records", len(records)).
		Time("from", records[0].Timestamp).
		Time("to", records[len(records)-1].Timestamp).
		Msg("Export complete")
	for m, byLabel := range counts {
		log.Info().Str("model", m).Interface("by_label", byLabel).Msg("Records by prediction")
	}
}
