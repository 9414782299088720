package destination

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
)

// AllRegions is the sentinel callers may pass instead of an explicit
// region list to target the full enumerated universe.
const AllRegions = "All"

// Spec describes one logical log destination replicated across regions.
type Spec struct {
	Name              string
	RoleARN           string
	TargetStreamARN   string
	AllowedAccountIDs []string
}

// Manager reconciles a logical destination across a set of regions,
// building one single-region Client per region through its factory.
type Manager struct {
	factory ClientFactory
	logger  *slog.Logger
}

func NewManager(factory ClientFactory, logger *slog.Logger) *Manager {
	return &Manager{factory: factory, logger: logger}
}

// AreRegionsValid reports whether every requested region is a member of
// the universe. Invalid regions are never silently dropped; callers
// reject the whole request instead.
func AreRegionsValid(requested, universe []string) bool {
	known := make(map[string]struct{}, len(universe))
	for _, region := range universe {
		known[region] = struct{}{}
	}
	for _, region := range requested {
		if _, ok := known[region]; !ok {
			return false
		}
	}
	return true
}

// ResolveRegions expands the AllRegions sentinel to the full universe.
func ResolveRegions(requested, universe []string) []string {
	if len(requested) == 1 && requested[0] == AllRegions {
		return universe
	}
	return requested
}

// Put recreates the destination in every requested region. The previous
// incarnation is deleted first so each create starts clean; an update is
// a full delete and recreate per region, not an in-place patch. Creates
// run in parallel and fail fast: any single region's failure fails the
// whole operation.
func (m *Manager) Put(ctx context.Context, requested, universe []string, spec Spec) error {
	if len(requested) == 0 {
		return fmt.Errorf("no regions requested for destination %s", spec.Name)
	}
	if !AreRegionsValid(requested, universe) {
		return fmt.Errorf("requested regions %v are not all within the account regions %v", requested, universe)
	}

	m.Delete(ctx, spec.Name, requested)

	g, ctx := errgroup.WithContext(ctx)
	for _, region := range requested {
		region := region
		g.Go(func() error {
			return m.create(ctx, region, spec)
		})
	}
	return g.Wait()
}

func (m *Manager) create(ctx context.Context, region string, spec Spec) error {
	client, err := m.factory(region)
	if err != nil {
		return fmt.Errorf("failed to create logs client in %s, err: %v", region, err)
	}
	arn, err := client.PutDestination(ctx, spec.Name, spec.RoleARN, spec.TargetStreamARN)
	if err != nil {
		return fmt.Errorf("failed to put destination %s in %s, err: %v", spec.Name, region, err)
	}
	policy, err := subscriptionPolicy(arn, spec.AllowedAccountIDs)
	if err != nil {
		return fmt.Errorf("failed to build access policy for %s in %s, err: %v", spec.Name, region, err)
	}
	if err := client.PutDestinationPolicy(ctx, spec.Name, policy); err != nil {
		return fmt.Errorf("failed to put destination policy for %s in %s, err: %v", spec.Name, region, err)
	}
	m.logger.Info("Created log destination", "region", region, "destination_arn", arn)
	return nil
}

// Delete removes the named destination from every given region. Each
// region settles on its own: a missing destination is only worth a
// warning and never blocks the other regions.
func (m *Manager) Delete(ctx context.Context, name string, regions []string) {
	var wg sync.WaitGroup
	for _, region := range regions {
		wg.Add(1)
		go func(region string) {
			defer wg.Done()
			client, err := m.factory(region)
			if err != nil {
				m.logger.Warn("Failed to create logs client", "region", region, "error", err)
				return
			}
			if err := client.DeleteDestination(ctx, name); err != nil {
				m.logger.Warn("Failed to delete log destination", "region", region, "destination", name, "error", err)
				return
			}
			m.logger.Debug("Deleted log destination", "region", region, "destination", name)
		}(region)
	}
	wg.Wait()
}

type policyDocument struct {
	Version   string            `json:"Version"`
	Statement []policyStatement `json:"Statement"`
}

type policyStatement struct {
	Effect    string          `json:"Effect"`
	Principal policyPrincipal `json:"Principal"`
	Action    string          `json:"Action"`
	Resource  string          `json:"Resource"`
}

type policyPrincipal struct {
	AWS []string `json:"AWS"`
}

// subscriptionPolicy grants the spoke accounts the single permission
// they need to subscribe their log groups to the destination.
func subscriptionPolicy(destinationARN string, accountIDs []string) (string, error) {
	doc := policyDocument{
		Version: "2012-10-17",
		Statement: []policyStatement{{
			Effect:    "Allow",
			Principal: policyPrincipal{AWS: accountIDs},
			Action:    "logs:PutSubscriptionFilter",
			Resource:  destinationARN,
		}},
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
