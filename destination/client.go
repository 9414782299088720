package destination

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
)

// Client manages log destinations within a single region.
type Client interface {
	PutDestination(ctx context.Context, name, roleARN, targetARN string) (string, error)
	PutDestinationPolicy(ctx context.Context, name, accessPolicy string) error
	DeleteDestination(ctx context.Context, name string) error
}

// ClientFactory builds a Client bound to the given region.
type ClientFactory func(region string) (Client, error)

type DefaultClient struct {
	svc *cloudwatchlogs.Client
}

func NewAWSClient(region string) (Client, error) {
	cfg, err := config.LoadDefaultConfig(context.TODO(), config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS SDK config for region %s, err: %v", region, err)
	}

	svc := cloudwatchlogs.NewFromConfig(cfg)
	return &DefaultClient{svc: svc}, nil
}

// PutDestination creates or replaces the named destination pointing the
// role at the target stream and returns the destination ARN.
func (c *DefaultClient) PutDestination(ctx context.Context, name, roleARN, targetARN string) (string, error) {
	input := &cloudwatchlogs.PutDestinationInput{
		DestinationName: aws.String(name),
		RoleArn:         aws.String(roleARN),
		TargetArn:       aws.String(targetARN),
	}
	output, err := c.svc.PutDestination(ctx, input)
	if err != nil {
		return "", err
	}
	if output.Destination == nil {
		return "", fmt.Errorf("put destination %s returned no destination", name)
	}
	return aws.ToString(output.Destination.Arn), nil
}

func (c *DefaultClient) PutDestinationPolicy(ctx context.Context, name, accessPolicy string) error {
	input := &cloudwatchlogs.PutDestinationPolicyInput{
		DestinationName: aws.String(name),
		AccessPolicy:    aws.String(accessPolicy),
	}
	_, err := c.svc.PutDestinationPolicy(ctx, input)
	return err
}

func (c *DefaultClient) DeleteDestination(ctx context.Context, name string) error {
	input := &cloudwatchlogs.DeleteDestinationInput{
		DestinationName: aws.String(name),
	}
	_, err := c.svc.DeleteDestination(ctx, input)
	return err
}
