package servicerole

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/smithy-go"
)

// ServiceName is the service principal the linked role is created for.
const ServiceName = "es.amazonaws.com"

// errCodeRoleTaken is what IAM returns when the service-linked role
// already exists in the account.
const errCodeRoleTaken = "InvalidInput"

type Client interface {
	EnsureServiceLinkedRole(ctx context.Context) error
}

type api interface {
	CreateServiceLinkedRole(ctx context.Context, params *iam.CreateServiceLinkedRoleInput, optFns ...func(*iam.Options)) (*iam.CreateServiceLinkedRoleOutput, error)
}

type DefaultClient struct {
	svc api
}

func NewAWSClient() (Client, error) {
	cfg, err := config.LoadDefaultConfig(context.TODO())
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS SDK config, err: %v", err)
	}

	svc := iam.NewFromConfig(cfg)
	return &DefaultClient{svc: svc}, nil
}

// EnsureServiceLinkedRole creates the service-linked role the search
// domain needs. A role that already exists counts as success.
func (c *DefaultClient) EnsureServiceLinkedRole(ctx context.Context) error {
	input := &iam.CreateServiceLinkedRoleInput{
		AWSServiceName: aws.String(ServiceName),
	}
	if _, err := c.svc.CreateServiceLinkedRole(ctx, input); err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == errCodeRoleTaken {
			return nil
		}
		return fmt.Errorf("failed to create service linked role for %s, err: %v", ServiceName, err)
	}
	return nil
}
