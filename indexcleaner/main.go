package main

import (
	"context"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/awslabs/centralized-logging/es"
	"github.com/awslabs/centralized-logging/indexcleaner/cfg"
)

var janitor *cleaner

const (
	defaultAge    = 18
	defaultPrefix = "cwl-"
)

// indexDateLayout is the timestring the delivery stream stamps into
// index names, e.g. cwl-2015.08.24.
const indexDateLayout = "2006.01.02"

var indexDatePattern = regexp.MustCompile(`\d{4}\.\d{2}\.\d{2}`)

// CleanerEvent optionally overrides the retention age (days) and the
// index name prefix. Absent keys fall back to the defaults.
type CleanerEvent struct {
	Age    *int    `json:"AGE_KEY"`
	Prefix *string `json:"PREFIX_KEY"`
}

type HandlerFn func(context.Context, CleanerEvent) error

func withGracefulShutdown(handler HandlerFn, gracePeriod time.Duration) HandlerFn {
	return func(ctx context.Context, event CleanerEvent) error {
		deadline, ok := ctx.Deadline()
		if !ok {
			return handler(ctx, event)
		}
		shorterDeadline := deadline.Add(-gracePeriod)
		graceCtx, cancel := context.WithDeadline(ctx, shorterDeadline)
		defer cancel()
		return handler(graceCtx, event)
	}
}

func main() {
	lambda.Start(withGracefulShutdown(janitor.handleRequest, time.Second*5))
}

func init() {
	config, err := cfg.GetConfig()
	if err != nil {
		slog.Error("Failed to get config from environment variables", "error", err)
		os.Exit(1)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: config.LogLevel,
	}))

	client, err := es.NewClient(config.ESHost, config.Region)
	if err != nil {
		logger.Error("Failed to create search domain client", "error", err)
		os.Exit(1)
	}
	janitor = newCleaner(config, client, logger)
}

type cleaner struct {
	config *cfg.Config
	client es.Client
	logger *slog.Logger
}

func newCleaner(config *cfg.Config, client es.Client, logger *slog.Logger) *cleaner {
	return &cleaner{config: config, client: client, logger: logger}
}

func (c *cleaner) handleRequest(ctx context.Context, event CleanerEvent) error {
	age := defaultAge
	if event.Age != nil {
		age = *event.Age
	}
	prefix := defaultPrefix
	if event.Prefix != nil {
		prefix = *event.Prefix
	}

	names, err := c.client.ListIndices(ctx)
	if err != nil {
		return err
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -age)
	aged := agedIndices(names, prefix, cutoff)
	if len(aged) == 0 {
		c.logger.Info("No indices to delete", "prefix", prefix, "age_days", age)
		return nil
	}
	c.logger.Info("Indices to delete", "indices", aged)

	if c.config.DryRun {
		c.logger.Info("Dry run, leaving indices in place", "count", len(aged))
		return nil
	}
	if err := c.client.DeleteIndices(ctx, aged); err != nil {
		return err
	}
	c.logger.Info("Deleted indices", "count", len(aged))
	return nil
}

// agedIndices keeps the indices carrying the prefix whose embedded date
// is strictly older than the cutoff. Names without a parseable date are
// left alone.
func agedIndices(names []string, prefix string, cutoff time.Time) []string {
	var aged []string
	for _, name := range names {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		match := indexDatePattern.FindString(name)
		if match == "" {
			continue
		}
		date, err := time.Parse(indexDateLayout, match)
		if err != nil {
			continue
		}
		if date.Before(cutoff) {
			aged = append(aged, name)
		}
	}
	return aged
}
