package main

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/awslabs/centralized-logging/cfg"
	"github.com/awslabs/centralized-logging/chunker"
	"github.com/awslabs/centralized-logging/cwlog"
	"github.com/awslabs/centralized-logging/firehose"
	"github.com/awslabs/centralized-logging/metrics"
	"github.com/awslabs/centralized-logging/transform"
)

var processor *transformer

type HandlerFn func(context.Context, events.KinesisEvent) error

func withGracefulShutdown(handler HandlerFn, gracePeriod time.Duration) HandlerFn {
	return func(ctx context.Context, event events.KinesisEvent) error {
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
	lambda.Start(withGracefulShutdown(processor.handleRequest, time.Second*5))
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

	sink, err := firehose.NewClient(config.DeliveryStream, config.CustomUserAgent)
	if err != nil {
		logger.Error("Failed to create delivery stream client", "error", err)
		os.Exit(1)
	}

	reporter := metrics.NewReporter(config.MetricsEndpoint, config.SolutionID, config.DeploymentUUID)
	processor = newTransformer(config, sink, reporter, logger)
}

// reporter is the slice of metrics.Reporter the transformer needs.
type reporter interface {
	Send(ctx context.Context, data any) error
}

type transformer struct {
	config   *cfg.Config
	chunker  *chunker.Chunker
	sink     firehose.Client
	reporter reporter
	logger   *slog.Logger
}

func newTransformer(config *cfg.Config, sink firehose.Client, reporter reporter, logger *slog.Logger) *transformer {
	return &transformer{
		config:   config,
		chunker:  chunker.NewChunker(chunker.MaxBatchCount),
		sink:     sink,
		reporter: reporter,
		logger:   logger,
	}
}

// handleRequest processes every streaming record of the invocation
// concurrently and always settles: a bad record is logged and skipped,
// never allowed to fail the rest. Redelivery is the stream's concern.
func (t *transformer) handleRequest(ctx context.Context, event events.KinesisEvent) error {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("Recovering from panic in handleRequest", "panic", r)
		}
	}()

	t.logger.Debug("Received streaming records", "count", len(event.Records))
	var wg sync.WaitGroup
	for _, record := range event.Records {
		wg.Add(1)
		go func(record events.KinesisEventRecord) {
			defer wg.Done()
			t.processRecord(ctx, record)
		}(record)
	}
	wg.Wait()
	return nil
}

func (t *transformer) processRecord(ctx context.Context, record events.KinesisEventRecord) {
	payload, err := cwlog.Decode(record.Kinesis.Data)
	if err != nil {
		t.logger.Error("Failed to decode record, skipping",
			"sequence_number", record.Kinesis.SequenceNumber,
			"error", err,
		)
		return
	}
	if payload.IsControl() {
		t.logger.Debug("Skipping control message", "log_group", payload.LogGroup)
		return
	}

	docs := transform.Transform(payload)
	if len(docs) == 0 {
		t.logger.Debug("No documents produced", "log_group", payload.LogGroup)
		return
	}

	batches, err := t.chunker.ChunkDocuments(docs)
	if err != nil {
		t.logger.Error("Failed to chunk documents, skipping record",
			"log_group", payload.LogGroup,
			"error", err,
		)
		return
	}

	var wg sync.WaitGroup
	for _, batch := range batches {
		wg.Add(1)
		go func(batch chunker.Batch) {
			defer wg.Done()
			t.sendBatch(ctx, batch)
		}(batch)
	}
	wg.Wait()
}

func (t *transformer) sendBatch(ctx context.Context, batch chunker.Batch) {
	failed, err := t.sink.PutRecordBatch(ctx, batch.Records)
	if err != nil {
		t.logger.Error("Failed to put record batch",
			"records", len(batch.Records),
			"error", err,
		)
		return
	}
	if failed > 0 {
		t.logger.Warn("Delivery stream rejected records",
			"failed", failed,
			"records", len(batch.Records),
		)
	}
	t.logger.Debug("Delivered batch", "records", len(batch.Records), "bytes", batch.Bytes)

	if !t.config.SendAnonymousData {
		return
	}
	if err := t.reporter.Send(ctx, metrics.TransformerData{DataSize: batch.Bytes}); err != nil {
		t.logger.Warn("Failed to send usage metric", "error", err)
	}
}
