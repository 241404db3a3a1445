// Package main provides the batch gap-filling CLI.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"go.ngs.io/currents-api/internal/adapter/store"
	"go.ngs.io/currents-api/internal/adapter/store/netcdf"
	"go.ngs.io/currents-api/internal/adapter/store/remote"
	"go.ngs.io/currents-api/internal/config"
	"go.ngs.io/currents-api/internal/engine"
	"go.ngs.io/currents-api/internal/usecase"
)

const version = "0.1.0"

func main() {
	configPath := flag.String("config", "", "Path to the YAML run configuration (required)")
	inPath := flag.String("in", "", "Target dataset locator (overrides config input)")
	outPath := flag.String("out", "", "Output NetCDF path (overrides config output)")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("gapfill version %s\n", version)
		return
	}
	if *configPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: gapfill -config run.yaml [-in dataset.nc] [-out filled.nc]")
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	input := cfg.Input
	if *inPath != "" {
		input = *inPath
	}
	output := cfg.Output
	if *outPath != "" {
		output = *outPath
	}
	if input == "" {
		log.Fatalf("No input dataset: set input in the config or pass -in")
	}
	if output == "" {
		log.Fatalf("No output path: set output in the config or pass -out")
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	localStore := netcdf.NewStore()
	var remoteStore store.DatasetLoader
	if endpoint := os.Getenv("S3_ENDPOINT"); endpoint != "" {
		client, err := minio.New(endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(os.Getenv("S3_ACCESS_KEY"), os.Getenv("S3_SECRET_KEY"), ""),
			Secure: os.Getenv("S3_USE_SSL") != "false",
		})
		if err != nil {
			log.Fatalf("Failed to initialize object storage: %v", err)
		}
		remoteStore = remote.NewStore(client)
	}
	loader := store.NewMulti(localStore, remoteStore)

	var smoother engine.Smoother
	if len(cfg.Engine.Command) > 0 {
		exec := engine.NewExecSmoother(cfg.Engine.Command[0], cfg.Engine.Command[1:]...)
		defer func() { _ = exec.Close() }()
		smoother = exec
	}

	gapfiller, err := usecase.NewGapfillerFromConfig(cfg.Steps, usecase.StepDeps{
		Loader:   loader,
		Smoother: smoother,
		Logger:   logger,
	})
	if err != nil {
		log.Fatalf("Failed to build pipeline: %v", err)
	}

	ctx := context.Background()

	log.Printf("Loading target dataset: %s", input)
	target, err := loader.Load(ctx, input)
	if err != nil {
		log.Fatalf("Failed to load target dataset: %v", err)
	}

	filled, reports, err := gapfiller.Execute(ctx, target)
	if err != nil {
		log.Fatalf("Gapfill failed: %v", err)
	}
	for _, r := range reports {
		log.Printf("Step %s: invalid %d -> %d", r.Step, r.InvalidBefore, r.InvalidAfter)
	}

	if err := netcdf.SaveFile(output, filled); err != nil {
		log.Fatalf("Failed to save output dataset: %v", err)
	}
	log.Printf("Wrote filled dataset: %s", output)
}
