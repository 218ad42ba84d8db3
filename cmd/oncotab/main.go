package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"oncotab/config"
	"oncotab/core"
	"oncotab/stats"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"

	// Database drivers

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
)

func main() {
	if err := run(os.Stdout, os.Args[1:]); err != nil {
		slog.Error("Extraction failed", "error", err)
		os.Exit(1)
	}
}

func run(output io.Writer, args []string) error {
	flags := flag.NewFlagSet("oncotab", flag.ContinueOnError)
	flags.SetOutput(output)

	sourceFile := flags.String("source", "", "Path to the study workbook (required)")
	destFile := flags.String("dest", "", "Path to the deliverable workbook (required)")
	endDay := flags.Int("end-day", 0, "End day override; 0 derives it from the per-day sheets")
	configFile := flags.String("config", "", "Path to YAML configuration overriding the built-in table policy (optional)")
	dbDriver := flags.String("db-driver", "", "Database driver for query sheets: mysql or postgres (optional)")
	dbDSN := flags.String("db-dsn", "", "Database connection string (DSN)")
	s3Bucket := flags.String("s3-bucket", "", "S3 bucket name for uploading the deliverable")
	s3Prefix := flags.String("s3-prefix", "oncotab-output", "S3 prefix (folder) for uploaded files")

	if err := flags.Parse(args); err != nil {
		return err
	}
	if *sourceFile == "" || *destFile == "" {
		return fmt.Errorf("both -source and -dest are required")
	}

	// Initialize structured logger
	logger := slog.New(slog.NewTextHandler(output, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	// 1. Load configuration
	bundle := config.DefaultBundle()
	if *configFile != "" {
		slog.Info("Loading configuration bundle", "file", *configFile)
		var err error
		bundle, err = config.LoadBundle(*configFile)
		if err != nil {
			return err
		}
	}

	// 2. Prepare the optional query-sheet fetcher
	var fetcher core.DataFetcher
	if *dbDriver != "" {
		if *dbDSN == "" {
			return fmt.Errorf("db-dsn is required for %s", *dbDriver)
		}
		slog.Info("Initializing SQL Data Fetcher", "driver", *dbDriver)
		db, err := sql.Open(*dbDriver, *dbDSN)
		if err != nil {
			return fmt.Errorf("failed to open db connection: %w", err)
		}
		// Verify connection
		if err := db.Ping(); err != nil {
			return fmt.Errorf("failed to ping db: %w", err)
		}
		defer db.Close()
		fetcher = core.NewSQLDataFetcher(db, *dbDriver)
	}

	// 3. Run the extraction pipeline
	slog.Info("Processing study workbook", "source", *sourceFile, "dest", *destFile)
	extractor := core.NewExtractor(bundle, stats.Dunnett{}, logger)
	pipeline := core.NewPipeline(extractor, fetcher, bundle.QuerySheets, logger)

	report, err := pipeline.Run(*sourceFile, *destFile, *endDay)
	if err != nil {
		return err
	}
	if !report.OK() {
		for _, f := range report.Failures {
			slog.Warn("step incomplete", "detail", f)
		}
	}
	slog.Info("Deliverable written", "dest", *destFile, "endDay", report.EndDay, "failures", len(report.Failures))

	// 4. Upload to S3 if configured
	if *s3Bucket != "" {
		slog.Info("Starting S3 upload", "bucket", *s3Bucket, "prefix", *s3Prefix)

		cfg, err := awsconfig.LoadDefaultConfig(context.TODO())
		if err != nil {
			return fmt.Errorf("unable to load AWS SDK config for S3: %w", err)
		}

		uploader := core.NewS3Uploader(cfg, *s3Bucket, *s3Prefix)
		if err := uploader.UploadDeliverables(context.TODO(), *destFile); err != nil {
			return fmt.Errorf("failed to upload deliverable to s3: %w", err)
		}
		slog.Info("Successfully uploaded to S3")
	}

	return nil
}
