package servicerole

import (
	"context"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIAM struct {
	err   error
	calls int
	input *iam.CreateServiceLinkedRoleInput
}

func (f *fakeIAM) CreateServiceLinkedRole(ctx context.Context, params *iam.CreateServiceLinkedRoleInput, optFns ...func(*iam.Options)) (*iam.CreateServiceLinkedRoleOutput, error) {
	f.calls++
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &iam.CreateServiceLinkedRoleOutput{}, nil
}

func TestEnsureServiceLinkedRole(t *testing.T) {
	fake := &fakeIAM{}
	c := &DefaultClient{svc: fake}

	require.NoError(t, c.EnsureServiceLinkedRole(context.Background()))
	assert.Equal(t, 1, fake.calls)
	assert.Equal(t, ServiceName, aws.ToString(fake.input.AWSServiceName))
}

func TestEnsureServiceLinkedRoleAlreadyExists(t *testing.T) {
	taken := &smithy.GenericAPIError{
		Code:    "InvalidInput",
		Message: "Service role name AWSServiceRoleForAmazonElasticsearchService has been taken in this account",
	}
	fake := &fakeIAM{err: fmt.Errorf("operation error IAM: CreateServiceLinkedRole, %w", taken)}
	c := &DefaultClient{svc: fake}

	assert.NoError(t, c.EnsureServiceLinkedRole(context.Background()))
}

func TestEnsureServiceLinkedRoleOtherAPIError(t *testing.T) {
	denied := &smithy.GenericAPIError{Code: "AccessDenied", Message: "not authorized"}
	fake := &fakeIAM{err: fmt.Errorf("operation error IAM: CreateServiceLinkedRole, %w", denied)}
	c := &DefaultClient{svc: fake}

	assert.Error(t, c.EnsureServiceLinkedRole(context.Background()))
}

func TestEnsureServiceLinkedRolePlainError(t *testing.T) {
	fake := &fakeIAM{err: fmt.Errorf("dial tcp: connection refused")}
	c := &DefaultClient{svc: fake}

	assert.Error(t, c.EnsureServiceLinkedRole(context.Background()))
}
