// cmd/tools/datagen/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"time"

	"voice-assistant/internal/common/config"
	"voice-assistant/internal/common/database"
	apperrors "voice-assistant/internal/common/errors"
	"voice-assistant/internal/common/logger"
	"voice-assistant/internal/common/metrics"
	"voice-assistant/internal/generator"
	"voice-assistant/internal/nlu"
)

type options struct {
	samples  int
	output   string
	seed     uint64
	postgres bool
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	opts := options{}
	flag.IntVar(&opts.samples, "n", cfg.Generator.Samples, "Number of samples to generate")
	flag.StringVar(&opts.output, "out", cfg.Generator.Output, "Output JSONL file")
	flag.Uint64Var(&opts.seed, "seed", cfg.Generator.Seed, "Random seed (0 picks one from the clock)")
	flag.BoolVar(&opts.postgres, "postgres", false, "Also store samples in the nlu_training_samples table")
	flag.Parse()

	log := logger.NewStructured(cfg.Logging.Level, "console")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if err := run(ctx, cfg, opts, os.Stdout, log); err != nil {
		stdErr := apperrors.Normalize(err)
		log.Error("generation failed", map[string]interface{}{
			"errorCode": string(stdErr.Code),
			"retryable": apperrors.IsRetryableErrorCode(stdErr.Code),
			"details":   stdErr.Details,
		})
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// postgresSink reports insert failures with the storage error code.
type postgresSink struct {
	generator.Sink
}

func (s postgresSink) Write(ctx context.Context, samples []generator.Sample) error {
	if err := s.Sink.Write(ctx, samples); err != nil {
		return apperrors.NewDatabaseInsertFailedError(err)
	}
	return nil
}

func newGenerator(seed uint64, templates []generator.TemplateSet) (*generator.Generator, error) {
	gen, err := generator.New(templates, nlu.DefaultPools, rand.New(rand.NewPCG(seed, seed>>1)))
	switch {
	case err == nil:
		return gen, nil
	case errors.Is(err, generator.ErrUnknownPlaceholder):
		return nil, apperrors.NewUnknownPlaceholderError(err)
	default:
		return nil, fmt.Errorf("build generator: %w", err)
	}
}

func run(ctx context.Context, cfg *config.Config, opts options, stdout io.Writer, log logger.Logger) error {
	if opts.seed == 0 {
		opts.seed = uint64(time.Now().UnixNano())
	}

	gen, err := newGenerator(opts.seed, generator.DefaultTemplates)
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "Generating %d synthetic data samples...\n", opts.samples)
	samples, err := gen.Generate(opts.samples)
	if err != nil {
		return err
	}

	f, err := os.Create(opts.output)
	if err != nil {
		return fmt.Errorf("create %s: %w", opts.output, err)
	}
	defer f.Close()

	sinks := generator.MultiSink{generator.NewJSONLSink(f)}

	if opts.postgres {
		if err := config.ValidateForPostgres(cfg); err != nil {
			return err
		}
		pg, err := database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		defer pg.Close()

		if err := pg.Ping(ctx); err != nil {
			return err
		}
		if err := pg.EnsureSchema(ctx, database.TrainingSampleSchema); err != nil {
			return err
		}
		sinks = append(sinks, postgresSink{generator.NewPostgresSink(pg.GetDB())})
	}

	if err := sinks.Write(ctx, samples); err != nil {
		return err
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", opts.output, err)
	}

	perIntent := map[string]int{}
	for _, s := range samples {
		metrics.SamplesGenerated.WithLabelValues(string(s.Intent)).Inc()
		perIntent[string(s.Intent)]++
	}
	log.Info("samples written", map[string]interface{}{
		"seed":      opts.seed,
		"output":    opts.output,
		"postgres":  opts.postgres,
		"perIntent": perIntent,
	})

	fmt.Fprintf(stdout, "Successfully saved %d samples to %s\n", len(samples), opts.output)
	fmt.Fprintln(stdout, "Done.")
	return nil
}
