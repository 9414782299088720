package regions

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
)

type Client interface {
	GetRegionNames(ctx context.Context) ([]string, error)
}

type DefaultClient struct {
	svc *ec2.Client
}

func NewAWSClient() (Client, error) {
	cfg, err := config.LoadDefaultConfig(context.TODO())
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS SDK config, err: %v", err)
	}

	svc := ec2.NewFromConfig(cfg)
	return &DefaultClient{svc: svc}, nil
}

// GetRegionNames returns the regions enabled for the account, which is
// the universe a log destination can exist in.
func (c *DefaultClient) GetRegionNames(ctx context.Context) ([]string, error) {
	output, err := c.svc.DescribeRegions(ctx, &ec2.DescribeRegionsInput{})
	if err != nil {
		return nil, fmt.Errorf("failed to describe regions, err: %v", err)
	}
	if len(output.Regions) == 0 {
		return nil, fmt.Errorf("region enumeration returned no regions")
	}
	names := make([]string, 0, len(output.Regions))
	for _, r := range output.Regions {
		names = append(names, aws.ToString(r.RegionName))
	}
	return names, nil
}
