// Command ingest loads a course document into the configured database.
//
//	ingest -file course.json [-prune] [-dry-run]
//	ingest -s3 s3://bucket/courses/course.json
package main

import (
	"alcyxob/course-app/internal/app"
	"alcyxob/course-app/internal/config"
	"alcyxob/course-app/internal/domain"
	"alcyxob/course-app/internal/logger"
	"alcyxob/course-app/internal/service"
	"alcyxob/course-app/internal/storage"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

type options struct {
	file       string
	s3URI      string
	configPath string
	prune      bool
	dryRun     bool
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("ingest", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.file, "file", "", "path to the course JSON document")
	fs.StringVar(&opts.s3URI, "s3", "", "s3://bucket/key of the course JSON document")
	fs.StringVar(&opts.configPath, "config", ".", "directory containing config.yaml")
	fs.BoolVar(&opts.prune, "prune", false, "delete modules, sections and lessons missing from the document")
	fs.BoolVar(&opts.dryRun, "dry-run", false, "report the changes without writing")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if (opts.file == "") == (opts.s3URI == "") {
		return opts, errors.New("exactly one of -file or -s3 is required")
	}
	return opts, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "ingest: %v\n", err)
		return 1
	}

	cfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "ingest: load config: %v\n", err)
		return 1
	}
	log, err := logger.New(cfg.Log.Mode, cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(stderr, "ingest: create logger: %v\n", err)
		return 1
	}
	defer log.Sync()

	doc, err := readDocument(ctx, opts, cfg, log)
	if err != nil {
		fmt.Fprintf(stderr, "ingest: %v\n", err)
		return 1
	}

	repos, err := app.OpenRepositories(ctx, cfg.Database, log)
	if err != nil {
		fmt.Fprintf(stderr, "ingest: %v\n", err)
		return 1
	}
	defer repos.Close()

	redisClient, err := app.OpenRedis(ctx, cfg.Redis, log)
	if err != nil {
		if !opts.dryRun {
			// A configured cache that cannot be invalidated would keep serving the old tree.
			fmt.Fprintf(stderr, "ingest: %v (cached hierarchy could not be invalidated, nothing written)\n", err)
			return 1
		}
		log.Warn("redis unavailable during dry run", "error", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	content := service.NewContentService(repos.Content, app.HierarchyCache(redisClient, cfg.Redis, log), log)
	report, err := content.UpsertCourse(ctx, doc, service.IngestOptions{Prune: opts.prune, DryRun: opts.dryRun})
	if err != nil {
		fmt.Fprintf(stderr, "ingest: %v\n", err)
		return 1
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		fmt.Fprintf(stderr, "ingest: write report: %v\n", err)
		return 1
	}
	return 0
}

// readDocument opens the local file or the S3 object named by opts.
func readDocument(ctx context.Context, opts options, cfg config.Config, log *logger.Logger) (*domain.CourseDocument, error) {
	var (
		rc  io.ReadCloser
		err error
	)
	if opts.file != "" {
		rc, err = os.Open(opts.file)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", opts.file, err)
		}
	} else {
		bucket, key, err := storage.ParseS3URI(opts.s3URI)
		if err != nil {
			return nil, err
		}
		s3Storage, err := storage.NewS3Storage(ctx, cfg.S3, log)
		if err != nil {
			return nil, fmt.Errorf("init s3: %w", err)
		}
		rc, err = s3Storage.OpenObject(ctx, bucket, key)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", opts.s3URI, err)
		}
	}
	defer rc.Close()

	return service.DecodeCourseDocument(rc)
}
