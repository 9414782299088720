package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/awslabs/centralized-logging/indexcleaner/cfg"
)

type fakeSearch struct {
	names     []string
	listErr   error
	deleted   [][]string
	deleteErr error
}

func (f *fakeSearch) ListIndices(ctx context.Context) ([]string, error) {
	return f.names, f.listErr
}

func (f *fakeSearch) DeleteIndices(ctx context.Context, names []string) error {
	f.deleted = append(f.deleted, names)
	return f.deleteErr
}

func newTestCleaner(config *cfg.Config, client *fakeSearch) *cleaner {
	return newCleaner(config, client, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func intp(v int) *int       { return &v }
func strp(v string) *string { return &v }

func TestAgedIndices(t *testing.T) {
	cutoff := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	names := []string{
		"cwl-2024.03.14",
		"cwl-2024.03.15",
		"cwl-2024.03.16",
		"cwl-2023.01.01",
		"other-2023.01.01",
		"cwl-noformat",
		"cwl-9999.99.99",
		".kibana",
	}

	aged := agedIndices(names, "cwl-", cutoff)
	assert.Equal(t, []string{"cwl-2024.03.14", "cwl-2023.01.01"}, aged)
}

func TestAgedIndicesPrefixOnly(t *testing.T) {
	cutoff := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	names := []string{"cwl-2020.01.01", "applogs-2020.01.01"}

	assert.Equal(t, []string{"applogs-2020.01.01"}, agedIndices(names, "applogs-", cutoff))
}

func TestHandleRequestDeletesAgedIndices(t *testing.T) {
	now := time.Now().UTC()
	old := "cwl-" + now.AddDate(0, 0, -30).Format(indexDateLayout)
	fresh := "cwl-" + now.Format(indexDateLayout)
	client := &fakeSearch{names: []string{old, fresh, ".kibana"}}
	c := newTestCleaner(&cfg.Config{}, client)

	require.NoError(t, c.handleRequest(context.Background(), CleanerEvent{}))
	require.Len(t, client.deleted, 1)
	assert.Equal(t, []string{old}, client.deleted[0])
}

func TestHandleRequestEventOverrides(t *testing.T) {
	now := time.Now().UTC()
	names := []string{
		"applogs-" + now.AddDate(0, 0, -5).Format(indexDateLayout),
		"applogs-" + now.AddDate(0, 0, -1).Format(indexDateLayout),
		"cwl-" + now.AddDate(0, 0, -30).Format(indexDateLayout),
	}
	client := &fakeSearch{names: names}
	c := newTestCleaner(&cfg.Config{}, client)

	event := CleanerEvent{Age: intp(3), Prefix: strp("applogs-")}
	require.NoError(t, c.handleRequest(context.Background(), event))
	require.Len(t, client.deleted, 1)
	assert.Equal(t, []string{names[0]}, client.deleted[0])
}

func TestHandleRequestNothingToDelete(t *testing.T) {
	fresh := "cwl-" + time.Now().UTC().Format(indexDateLayout)
	client := &fakeSearch{names: []string{fresh}}
	c := newTestCleaner(&cfg.Config{}, client)

	require.NoError(t, c.handleRequest(context.Background(), CleanerEvent{}))
	assert.Empty(t, client.deleted)
}

func TestHandleRequestDryRun(t *testing.T) {
	old := "cwl-" + time.Now().UTC().AddDate(0, 0, -30).Format(indexDateLayout)
	client := &fakeSearch{names: []string{old}}
	c := newTestCleaner(&cfg.Config{DryRun: true}, client)

	require.NoError(t, c.handleRequest(context.Background(), CleanerEvent{}))
	assert.Empty(t, client.deleted)
}

func TestHandleRequestListFailure(t *testing.T) {
	client := &fakeSearch{listErr: fmt.Errorf("ESClient returned unexpected status code: 503")}
	c := newTestCleaner(&cfg.Config{}, client)

	assert.Error(t, c.handleRequest(context.Background(), CleanerEvent{}))
}

func TestHandleRequestDeleteFailure(t *testing.T) {
	old := "cwl-" + time.Now().UTC().AddDate(0, 0, -30).Format(indexDateLayout)
	client := &fakeSearch{names: []string{old}, deleteErr: fmt.Errorf("forbidden")}
	c := newTestCleaner(&cfg.Config{}, client)

	assert.Error(t, c.handleRequest(context.Background(), CleanerEvent{}))
}
