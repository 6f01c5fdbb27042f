package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"bhiv/hr-platform/internal/config"
	"bhiv/hr-platform/internal/logger"
	"bhiv/hr-platform/internal/repositories"
)

const app = "seed"

var (
	candidatesFile string
	jobsFile       string
	dryRun         bool

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "seed loads candidates and jobs from CSV files into the HR platform database",
		RunE:  run,
	}
)

func init() {
	rootCmd.Flags().StringVarP(&candidatesFile, "candidates", "c", "", "candidates CSV (name,email,phone,location,experience,skills,education)")
	rootCmd.Flags().StringVarP(&jobsFile, "jobs", "j", "", "jobs CSV (title,department,location,experience_level,requirements,description)")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "parse the files without writing to the database")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	if candidatesFile == "" && jobsFile == "" {
		return errors.New("at least one of --candidates or --jobs is required")
	}

	cfg := config.Load()
	zl, err := logger.New(cfg.Log.JSON, cfg.Log.Debug)
	if err != nil {
		log.Fatalf("❌ Failed to initialize logger: %v", err)
	}
	defer zl.Sync()

	var db *gorm.DB
	if !dryRun {
		db, err = config.InitDatabase(cfg, zl)
		if err != nil {
			return err
		}
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
	defer cancel()

	if candidatesFile != "" {
		if err := seedCandidates(ctx, db, zl); err != nil {
			return err
		}
	}
	if jobsFile != "" {
		if err := seedJobs(ctx, db, zl); err != nil {
			return err
		}
	}

	zl.Info("🎉 Seeding completed", zap.Bool("dry_run", dryRun))
	return nil
}

func seedCandidates(ctx context.Context, db *gorm.DB, zl *zap.Logger) error {
	f, err := os.Open(candidatesFile)
	if err != nil {
		return fmt.Errorf("failed to open candidates file: %w", err)
	}
	defer f.Close()

	candidates, err := parseCandidates(f)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", candidatesFile, err)
	}
	zl.Info("📄 Parsed candidates", zap.String("file", candidatesFile), zap.Int("count", len(candidates)))

	if db == nil {
		return nil
	}
	if err := repositories.NewCandidateRepository(db).Upsert(ctx, candidates); err != nil {
		return err
	}
	zl.Info("✅ Candidates upserted", zap.Int("count", len(candidates)))
	return nil
}

func seedJobs(ctx context.Context, db *gorm.DB, zl *zap.Logger) error {
	f, err := os.Open(jobsFile)
	if err != nil {
		return fmt.Errorf("failed to open jobs file: %w", err)
	}
	defer f.Close()

	jobs, err := parseJobs(f)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", jobsFile, err)
	}
	zl.Info("📄 Parsed jobs", zap.String("file", jobsFile), zap.Int("count", len(jobs)))

	if db == nil {
		return nil
	}
	if err := repositories.NewJobRepository(db).Upsert(ctx, jobs); err != nil {
		return err
	}
	zl.Info("✅ Jobs upserted", zap.Int("count", len(jobs)))
	return nil
}
