// Package main provides the currents API HTTP server.
package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"go.ngs.io/currents-api/internal/adapter/store"
	"go.ngs.io/currents-api/internal/adapter/store/netcdf"
	"go.ngs.io/currents-api/internal/adapter/store/remote"
	"go.ngs.io/currents-api/internal/engine"
	httpHandler "go.ngs.io/currents-api/internal/http"
	"go.ngs.io/currents-api/internal/usecase"
)

const version = "0.1.0"

func main() {
	// Parse command-line flags.
	showHelp := flag.Bool("help", false, "Show usage information")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showHelp {
		printUsage()
		return
	}

	if *showVersion {
		fmt.Printf("currents-api version %s\n", version)
		return
	}

	// Load configuration from environment.
	port := getEnv("PORT", "8080")
	engineCmd := getEnv("ENGINE_CMD", "")
	s3Endpoint := getEnv("S3_ENDPOINT", "")
	s3AccessKey := getEnv("S3_ACCESS_KEY", "")
	s3SecretKey := getEnv("S3_SECRET_KEY", "")
	s3UseSSL := getEnv("S3_USE_SSL", "true") != "false"

	log.Printf("Starting Currents API server...")
	log.Printf("Port: %s", port)

	// Initialize the dataset loader: local NetCDF files, plus S3-backed
	// locators when object storage is configured.
	localStore := netcdf.NewStore()
	var remoteStore store.DatasetLoader
	if s3Endpoint != "" {
		log.Printf("Initializing object storage")
		log.Printf("  Endpoint: %s", s3Endpoint)
		client, err := minio.New(s3Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(s3AccessKey, s3SecretKey, ""),
			Secure: s3UseSSL,
		})
		if err != nil {
			log.Fatalf("Failed to initialize object storage: %v", err)
		}
		remoteStore = remote.NewStore(client)
	} else {
		log.Printf("Object storage disabled (s3:// locators unavailable)")
	}
	loader := store.NewMulti(localStore, remoteStore)

	// Initialize the smoothing engine (optional).
	var smoother engine.Smoother
	if engineCmd != "" {
		argv := strings.Fields(engineCmd)
		log.Printf("Smoothing engine: %v", argv)
		exec := engine.NewExecSmoother(argv[0], argv[1:]...)
		defer func() { _ = exec.Close() }()
		smoother = exec
	} else {
		log.Printf("Smoothing engine disabled (smoothing steps unavailable)")
	}

	deps := usecase.StepDeps{
		Loader:   loader,
		Smoother: smoother,
		Logger:   slog.New(slog.NewTextHandler(os.Stderr, nil)),
	}

	// Setup router.
	router := httpHandler.SetupRouter(deps, localStore)

	// Start server.
	addr := fmt.Sprintf(":%s", port)
	log.Printf("Server listening on %s", addr)
	log.Printf("Health check: http://localhost:%s/health", port)
	log.Printf("API endpoints:")
	log.Printf("  - POST /v1/gapfill")
	log.Printf("  - GET /v1/steps")

	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// printUsage prints usage information.
func printUsage() {
	fmt.Printf("Currents API Server v%s\n\n", version)
	fmt.Println("USAGE:")
	fmt.Println("  currents-api [flags]")
	fmt.Println()
	fmt.Println("FLAGS:")
	fmt.Println("  -help          Show this help message")
	fmt.Println("  -version       Show version information")
	fmt.Println()
	fmt.Println("ENVIRONMENT VARIABLES:")
	fmt.Println("  PORT                    Server port (default: 8080)")
	fmt.Println("  ENGINE_CMD              Smoothing engine command line (optional)")
	fmt.Println("  CORS_ALLOWED_ORIGINS    Comma-separated list of allowed origins (default: all origins)")
	fmt.Println("  S3_ENDPOINT             S3-compatible endpoint for s3:// dataset locators (optional)")
	fmt.Println("  S3_ACCESS_KEY           Object storage access key")
	fmt.Println("  S3_SECRET_KEY           Object storage secret key")
	fmt.Println("  S3_USE_SSL              Use TLS for object storage (default: true)")
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  # Start server with default settings")
	fmt.Println("  currents-api")
	fmt.Println()
	fmt.Println("  # Start server with a smoothing engine")
	fmt.Println("  ENGINE_CMD='python3 tools/smoothn_engine.py' currents-api")
	fmt.Println()
	fmt.Println("API ENDPOINTS:")
	fmt.Println("  GET  /health       Health check")
	fmt.Println("  GET  /v1/steps     List registered gapfill step kinds")
	fmt.Println("  POST /v1/gapfill   Run a gap-filling pipeline over a dataset")
	fmt.Println()
}
