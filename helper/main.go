package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/cfn"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/google/uuid"

	"github.com/awslabs/centralized-logging/destination"
	"github.com/awslabs/centralized-logging/helper/cfg"
	"github.com/awslabs/centralized-logging/metrics"
	"github.com/awslabs/centralized-logging/regions"
	"github.com/awslabs/centralized-logging/servicerole"
	"github.com/awslabs/centralized-logging/utils"
)

var provisioner *helper

// resourceKind discriminates the custom resources this helper backs.
// Parsing it up front keeps every dispatch branch explicit; an unknown
// type or request type is always an error, never a silent no-op.
type resourceKind string

const (
	kindCreateUUID        resourceKind = "Custom::CreateUUID"
	kindCreateServiceRole resourceKind = "Custom::CreateServiceRole"
	kindLaunchData        resourceKind = "Custom::LaunchData"
	kindCWDestination     resourceKind = "Custom::CWDestination"
)

func parseResourceKind(resourceType string) (resourceKind, error) {
	switch kind := resourceKind(resourceType); kind {
	case kindCreateUUID, kindCreateServiceRole, kindLaunchData, kindCWDestination:
		return kind, nil
	}
	return "", fmt.Errorf("unrecognized resource type %q", resourceType)
}

type destinationProperties struct {
	DestinationName string   `json:"DestinationName"`
	Role            string   `json:"Role"`
	DataStream      string   `json:"DataStream"`
	SpokeAccounts   []string `json:"SpokeAccounts"`
	Regions         []string `json:"Regions"`
}

type launchProperties struct {
	SolutionID string `json:"SolutionId"`
	UUID       string `json:"UUID"`
	Version    string `json:"Version"`
	Stack      string `json:"Stack"`
}

type regionLister interface {
	GetRegionNames(ctx context.Context) ([]string, error)
}

type destinationManager interface {
	Put(ctx context.Context, requested, universe []string, spec destination.Spec) error
	Delete(ctx context.Context, name string, regions []string)
}

type roleClient interface {
	EnsureServiceLinkedRole(ctx context.Context) error
}

type reporter interface {
	Send(ctx context.Context, data any) error
}

// reporterFactory builds a reporter for the identity carried in the
// resource properties; the deployment UUID is not known at init time.
type reporterFactory func(solutionID, deploymentUUID string) reporter

type helper struct {
	config       *cfg.Config
	regions      regionLister
	destinations destinationManager
	roles        roleClient
	newReporter  reporterFactory
	logger       *slog.Logger
}

func main() {
	lambda.Start(cfn.LambdaWrap(provisioner.handleRequest))
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

	regionsClient, err := regions.NewAWSClient()
	if err != nil {
		logger.Error("Failed to create region client", "error", err)
		os.Exit(1)
	}
	rolesClient, err := servicerole.NewAWSClient()
	if err != nil {
		logger.Error("Failed to create IAM client", "error", err)
		os.Exit(1)
	}

	manager := destination.NewManager(destination.NewAWSClient, logger)
	factory := func(solutionID, deploymentUUID string) reporter {
		return metrics.NewReporter(config.MetricsEndpoint, solutionID, deploymentUUID)
	}
	provisioner = newHelper(config, regionsClient, manager, rolesClient, factory, logger)
}

func newHelper(config *cfg.Config, regions regionLister, destinations destinationManager, roles roleClient, newReporter reporterFactory, logger *slog.Logger) *helper {
	return &helper{
		config:       config,
		regions:      regions,
		destinations: destinations,
		roles:        roles,
		newReporter:  newReporter,
		logger:       logger,
	}
}

// handleRequest is wrapped by cfn.LambdaWrap: a returned error becomes a
// FAILED response whose Reason is the error text, anything else SUCCESS.
// The inbound physical ID is always handed back so CloudFormation never
// mistakes an update for a replacement.
func (h *helper) handleRequest(ctx context.Context, event cfn.Event) (physicalID string, data map[string]interface{}, err error) {
	physicalID = event.PhysicalResourceID
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("Recovering from panic in handleRequest", "panic", r)
			err = fmt.Errorf("panic while handling %s: %v", event.ResourceType, r)
		}
	}()

	kind, err := parseResourceKind(event.ResourceType)
	if err != nil {
		return physicalID, nil, err
	}
	h.logger.Info("Handling custom resource request",
		"resource_type", event.ResourceType,
		"request_type", event.RequestType,
		"logical_resource_id", event.LogicalResourceID,
	)

	switch kind {
	case kindCreateUUID:
		return h.handleCreateUUID(event, physicalID)
	case kindCreateServiceRole:
		return h.handleServiceRole(ctx, event, physicalID)
	case kindLaunchData:
		return h.handleLaunchData(ctx, event, physicalID)
	case kindCWDestination:
		return h.handleDestination(ctx, event, physicalID)
	}
	return physicalID, nil, fmt.Errorf("unhandled resource kind %q", kind)
}

func (h *helper) handleCreateUUID(event cfn.Event, physicalID string) (string, map[string]interface{}, error) {
	switch event.RequestType {
	case cfn.RequestCreate:
		id := uuid.NewString()
		h.logger.Info("Minted deployment UUID", "uuid", id)
		return physicalID, map[string]interface{}{"UUID": id}, nil
	case cfn.RequestUpdate, cfn.RequestDelete:
		return physicalID, nil, nil
	}
	return physicalID, nil, fmt.Errorf("unrecognized request type %q", event.RequestType)
}

func (h *helper) handleServiceRole(ctx context.Context, event cfn.Event, physicalID string) (string, map[string]interface{}, error) {
	switch event.RequestType {
	case cfn.RequestCreate, cfn.RequestUpdate:
		if err := h.roles.EnsureServiceLinkedRole(ctx); err != nil {
			return physicalID, nil, err
		}
		h.logger.Info("Service-linked role in place", "service", servicerole.ServiceName)
		return physicalID, nil, nil
	case cfn.RequestDelete:
		// the role is shared with every other search domain in the account
		return physicalID, nil, nil
	}
	return physicalID, nil, fmt.Errorf("unrecognized request type %q", event.RequestType)
}

func (h *helper) handleLaunchData(ctx context.Context, event cfn.Event, physicalID string) (string, map[string]interface{}, error) {
	switch event.RequestType {
	case cfn.RequestCreate, cfn.RequestUpdate, cfn.RequestDelete:
	default:
		return physicalID, nil, fmt.Errorf("unrecognized request type %q", event.RequestType)
	}

	var props launchProperties
	if err := decodeProperties(event.ResourceProperties, &props); err != nil {
		h.logger.Warn("Failed to decode launch data properties", "error", err)
		return physicalID, nil, nil
	}
	data := metrics.LaunchData{
		Version:      props.Version,
		Stack:        props.Stack,
		Region:       h.config.Region,
		Architecture: utils.RuntimeArchitecture(),
		RequestType:  string(event.RequestType),
	}
	if err := h.newReporter(props.SolutionID, props.UUID).Send(ctx, data); err != nil {
		h.logger.Warn("Failed to send deployment metric", "error", err)
	}
	return physicalID, nil, nil
}

func (h *helper) handleDestination(ctx context.Context, event cfn.Event, physicalID string) (string, map[string]interface{}, error) {
	var props destinationProperties
	if err := decodeProperties(event.ResourceProperties, &props); err != nil {
		return physicalID, nil, err
	}
	universe, err := h.regions.GetRegionNames(ctx)
	if err != nil {
		return physicalID, nil, fmt.Errorf("failed to enumerate regions, err: %v", err)
	}

	switch event.RequestType {
	case cfn.RequestCreate, cfn.RequestUpdate:
		requested := destination.ResolveRegions(props.Regions, universe)
		spec := destination.Spec{
			Name:              props.DestinationName,
			RoleARN:           props.Role,
			TargetStreamARN:   props.DataStream,
			AllowedAccountIDs: props.SpokeAccounts,
		}
		if err := h.destinations.Put(ctx, requested, universe, spec); err != nil {
			return physicalID, nil, err
		}
		h.logger.Info("Log destination in place",
			"destination", props.DestinationName,
			"regions", len(requested),
		)
		return physicalID, nil, nil
	case cfn.RequestDelete:
		// the stack cannot reliably recall the originally requested
		// subset, so sweep the whole universe
		h.destinations.Delete(ctx, props.DestinationName, universe)
		return physicalID, nil, nil
	}
	return physicalID, nil, fmt.Errorf("unrecognized request type %q", event.RequestType)
}

func decodeProperties(props map[string]interface{}, out any) error {
	raw, err := json.Marshal(props)
	if err != nil {
		return fmt.Errorf("failed to marshal resource properties, err: %v", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to parse resource properties, err: %v", err)
	}
	return nil
}
