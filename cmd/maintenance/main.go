package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"librarium/internal/domains/catalog/model"
	"librarium/pkg/container"
	"librarium/pkg/logger"
)

const usage = `usage: maintenance <command>

commands:
  integrity-check        scan the catalog and report invariant violations
  cleanup-orphans        delete every orphan author, publisher, and series
  import <file.json>     merge an exported batch into the catalog
`

// The maintenance binary runs the offline catalog jobs against the same
// services the API serves, so behavior cannot drift between the two.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Info().Msg("no .env file found, using system environment variables")
	}
	logger.Init(os.Getenv("APP_ENV"))

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	appContainer, err := container.NewContainer()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize container")
	}
	defer appContainer.Cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	switch os.Args[1] {
	case "integrity-check":
		runIntegrityCheck(ctx, appContainer)
	case "cleanup-orphans":
		runCleanupOrphans(ctx, appContainer)
	case "import":
		if len(os.Args) < 3 {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		runImport(ctx, appContainer, os.Args[2])
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
}

func runIntegrityCheck(ctx context.Context, c *container.Container) {
	report, err := c.ImpactAnalyzer.IntegrityCheck(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("integrity check failed")
	}
	printJSON(report)
	if !report.IsValid {
		os.Exit(1)
	}
}

func runCleanupOrphans(ctx context.Context, c *container.Container) {
	result, err := c.LifecycleService.CleanupOrphans(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("orphan cleanup failed")
	}
	printJSON(result)
}

func runImport(ctx context.Context, c *container.Container, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("failed to read batch file")
	}

	var batch model.ImportBatch
	if err := json.Unmarshal(data, &batch); err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("failed to parse batch file")
	}

	result, err := c.ImportService.ImportBatch(ctx, &batch)
	if err != nil {
		log.Fatal().Err(err).Msg("import failed")
	}
	printJSON(result)
}

func printJSON(v interface{}) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to encode output")
	}
	fmt.Println(string(out))
}
