package firehose

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/firehose"
	"github.com/aws/aws-sdk-go-v2/service/firehose/types"
)

// Client is the delivery-stream surface the transformer needs.
type Client interface {
	PutRecordBatch(ctx context.Context, records [][]byte) (int, error)
}

type DefaultClient struct {
	svc        *firehose.Client
	streamName string
}

// NewClient builds a client bound to one delivery stream. A non-empty
// userAgentApp is appended to the SDK user agent so calls are attributable
// to the deployment.
func NewClient(streamName, userAgentApp string) (*DefaultClient, error) {
	var opts []func(*config.LoadOptions) error
	if userAgentApp != "" {
		opts = append(opts, config.WithAppID(userAgentApp))
	}
	cfg, err := config.LoadDefaultConfig(context.TODO(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS SDK config, err: %v", err)
	}

	svc := firehose.NewFromConfig(cfg)
	return &DefaultClient{svc: svc, streamName: streamName}, nil
}

// PutRecordBatch sends one batch of serialized documents to the delivery
// stream and returns how many records the service rejected. Rejected
// records are not resent here; redelivery belongs to the stream's own
// retry machinery.
func (c *DefaultClient) PutRecordBatch(ctx context.Context, records [][]byte) (int, error) {
	entries := make([]types.Record, 0, len(records))
	for _, r := range records {
		entries = append(entries, types.Record{Data: r})
	}

	input := &firehose.PutRecordBatchInput{
		DeliveryStreamName: aws.String(c.streamName),
		Records:            entries,
	}
	output, err := c.svc.PutRecordBatch(ctx, input)
	if err != nil {
		return 0, err
	}
	return int(aws.ToInt32(output.FailedPutCount)), nil
}
