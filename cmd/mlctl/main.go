package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"ml-api/internal/api"
	"ml-api/internal/client"
	"ml-api/internal/common"
	"ml-api/internal/loan"
)

const usage = `usage: mlctl [flags] <command> [file]

Commands:
  health          check the server
  info            show the loaded models
  iris  [file]    classify {"data": [[...4 floats...], ...]}
  loan  [file]    score one application
  batch [file]    score {"applications": [...]}
  stream [file]   score a JSON array of applications over one websocket

Request bodies are read from file, or stdin when omitted.
The server URL comes from -url, then ML_API_URL, then the default.

Flags:
`

func main() {
	_ = godotenv.Load()
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	url := flag.String("url", getEnvOrDefault(common.EnvAPIURL, common.DefaultAPIURL), "API base URL")
	timeout := flag.Duration("timeout", 30*time.Second, "Request timeout")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	c := client.New(*url, *timeout)
	out, err := run(ctx, c, flag.Arg(0), flag.Arg(1))
	if err != nil {
		var apiErr *client.APIError
		if errors.As(err, &apiErr) {
			printJSON(apiErr)
			os.Exit(1)
		}
		log.Fatal().Err(err).Str("command", flag.Arg(0)).Msg("request failed")
	}
	printJSON(out)
}

func run(ctx context.Context, c *client.Client, cmd, path string) (interface{}, error) {
	switch cmd {
	case "health":
		status, err := c.Health(ctx)
		return api.HealthResponse{Status: status}, err
	case "info":
		return c.ModelInfo(ctx)
	case "iris":
		var req api.IrisRequest
		if err := readJSON(path, &req); err != nil {
			return nil, err
		}
		return c.PredictIris(ctx, req.Data)
	case "loan":
		var app loan.Payload
		if err := readJSON(path, &app); err != nil {
			return nil, err
		}
		return c.PredictLoan(ctx, app)
	case "batch":
		var req loan.BatchPayload
		if err := readJSON(path, &req); err != nil {
			return nil, err
		}
		return c.PredictLoanBatch(ctx, req.Applications)
	case "stream":
		var apps []loan.Payload
		if err := readJSON(path, &apps); err != nil {
			return nil, err
		}
		return c.StreamLoans(ctx, apps)
	default:
		return nil, fmt.Errorf("unknown command %q", cmd)
	}
}

func readJSON(path string, v interface{}) error {
	var r io.Reader = os.Stdin
	if path != "" && path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}
	if err := json.NewDecoder(r).Decode(v); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}

func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		log.Fatal().Err(err).Msg("encode output")
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
