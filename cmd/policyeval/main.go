// policyeval runs the municipal policy document evaluation pipeline as
// an HTTP service: submit a run, fetch its manifest, check health.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/codeready-toolchain/policypipeline/pkg/api"
	"github.com/codeready-toolchain/policypipeline/pkg/grid"
	"github.com/codeready-toolchain/policypipeline/pkg/manifeststore"
	"github.com/codeready-toolchain/policypipeline/pkg/orchestrator"
	"github.com/codeready-toolchain/policypipeline/pkg/pipelineconfig"
	"github.com/codeready-toolchain/policypipeline/pkg/questionnaire"
	"github.com/codeready-toolchain/policypipeline/pkg/retention"
	"github.com/codeready-toolchain/policypipeline/pkg/runmanager"
	"github.com/codeready-toolchain/policypipeline/pkg/scoring"
	"github.com/codeready-toolchain/policypipeline/pkg/version"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./deploy/config"),
		"Path to configuration directory")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("Warning: Could not load %s file: %v", envPath, err)
		log.Printf("Continuing with existing environment variables...")
	} else {
		log.Printf("Loaded environment from %s", envPath)
	}

	httpPort := getEnv("HTTP_PORT", "8080")
	ginMode := getEnv("GIN_MODE", "debug")
	gin.SetMode(ginMode)

	log.Printf("Starting %s", version.Full())
	log.Printf("HTTP Port: %s", httpPort)

	ctx := context.Background()

	var store *manifeststore.Client
	if getEnv("MANIFESTSTORE_ENABLED", "true") == "true" {
		dbCfg, err := manifeststore.LoadConfigFromEnv()
		if err != nil {
			log.Fatalf("Failed to load manifest store config: %v", err)
		}
		store, err = manifeststore.NewClient(ctx, dbCfg)
		if err != nil {
			log.Fatalf("Failed to connect to manifest store: %v", err)
		}
		defer func() {
			if err := store.Close(); err != nil {
				log.Printf("Error closing manifest store: %v", err)
			}
		}()
		log.Println("Connected to manifest store")

		retentionSvc := retention.NewService(retention.Config{
			RetentionPeriod: 90 * 24 * time.Hour,
			SweepInterval:   24 * time.Hour,
		}, store)
		retentionSvc.Start(ctx)
		defer retentionSvc.Stop()
	}

	runs := runmanager.NewManager()

	server := api.NewServer(runs, store, buildRunInput)

	log.Printf("HTTP server listening on :%s", httpPort)
	if err := server.Run(":" + httpPort); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// buildRunInput resolves an incoming SubmitRequest into a full
// orchestrator.RunInput: the raw config, the default YAML questionnaire
// loader, the default sidecar document ingester, and the default
// content-hash-seeded reference scorer.
func buildRunInput(req api.SubmitRequest) (orchestrator.RunInput, error) {
	raw := pipelineconfig.RawConfig{
		DocumentPath:        req.DocumentPath,
		QuestionnairePath:   req.QuestionnairePath,
		QuestionnaireHash:   req.QuestionnaireHash,
		CalibrationProfile:  req.CalibrationProfile,
		AbortOnInsufficient: req.AbortOnInsufficient,
		ActivePhases:        append([]int(nil), pipelineconfig.ActivePhases...),
		ResourceLimits: pipelineconfig.ResourceLimits{
			DefaultTimeout: time.Duration(req.DefaultTimeoutMS) * time.Millisecond,
		},
	}

	if raw.ResourceLimits.DefaultTimeout <= 0 {
		return orchestrator.RunInput{}, fmt.Errorf("default_timeout_ms must be positive")
	}

	return orchestrator.RunInput{
		RawConfig: raw,
		Loader:    questionnaire.YAMLLoader{},
		Ingester:  grid.NewSidecarIngester(),
		Scorer:    scoring.NewReferenceScorer(),
	}, nil
}
