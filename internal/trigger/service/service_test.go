package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hookline/hookline/internal/common/errors"
	"github.com/hookline/hookline/internal/common/logger"
	"github.com/hookline/hookline/internal/events"
	"github.com/hookline/hookline/internal/events/bus"
	"github.com/hookline/hookline/internal/trigger"
	"github.com/hookline/hookline/internal/trigger/converter"
	"github.com/hookline/hookline/internal/trigger/store"
)

func newTestService(t *testing.T) (*Service, store.Ledger, bus.EventBus) {
	t.Helper()
	log, err := logger.NewLogger(logger.LoggingConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)

	ledger := store.NewMemoryLedger()
	eventBus := bus.NewMemoryEventBus(log)
	t.Cleanup(eventBus.Close)

	return NewService(converter.NewDispatcher(log), ledger, eventBus, log), ledger, eventBus
}

const pushPayload = `{
	"ref": "refs/heads/main",
	"head_commit": {
		"id": "4e4e5cf",
		"message": "update readme",
		"timestamp": "2023-04-01T10:00:00+08:00",
		"url": "https://github.com/acme/demo/commit/4e4e5cf",
		"author": {"name": "Ann Dev", "email": "ann@acme.io", "username": "anndev"}
	},
	"commits": [],
	"pusher": {"name": "anndev", "email": "ann@acme.io"}
}`

func TestIngestConvertedPublishesTrigger(t *testing.T) {
	svc, ledger, eventBus := newTestService(t)
	ctx := context.Background()

	received := make(chan *bus.Event, 1)
	_, err := eventBus.Subscribe(events.TriggerReceived, func(_ context.Context, e *bus.Event) error {
		received <- e
		return nil
	})
	require.NoError(t, err)

	outcome, err := svc.Ingest(ctx, "hook-a", trigger.SourceGitHub, converter.GitHubEventPush, []byte(pushPayload))
	require.NoError(t, err)
	assert.Equal(t, converter.StatusConverted, outcome.Status)

	select {
	case e := <-received:
		assert.Equal(t, "hook-a", e.Source)
		assert.Equal(t, "github", e.Data[trigger.VarGitSource])
		assert.Equal(t, "PUSH", e.Data[trigger.VarGitEvent])
		assert.Equal(t, "update readme", e.Data[trigger.VarGitCommitMessage])
	case <-time.After(2 * time.Second):
		t.Fatal("expected trigger.received event")
	}

	items, total, err := ledger.List(ctx, "hook-a", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "converted: PUSH", items[0].Status)
}

func TestIngestSkippedRecordsOneItem(t *testing.T) {
	svc, ledger, eventBus := newTestService(t)
	ctx := context.Background()

	published := make(chan *bus.Event, 1)
	_, err := eventBus.Subscribe(events.TriggerReceived, func(_ context.Context, e *bus.Event) error {
		published <- e
		return nil
	})
	require.NoError(t, err)

	payload := []byte(`{"type": "comment-added", "change": {"project": "acme/demo"}}`)
	outcome, err := svc.Ingest(ctx, "hook-a", trigger.SourceGerrit, converter.GerritAllEvents, payload)
	require.NoError(t, err)
	assert.Equal(t, converter.StatusSkipped, outcome.Status)

	items, total, err := ledger.List(ctx, "hook-a", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, `skipped: unsupported gerrit event "comment-added"`, items[0].Status)

	select {
	case <-published:
		t.Fatal("skipped delivery must not publish a trigger")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestIngestRejectedRecordsBeforeSurfacing(t *testing.T) {
	svc, ledger, _ := newTestService(t)
	ctx := context.Background()

	payload := []byte(`{"ref": "refs/heads/main", "commits": [], "pusher": {"name": "anndev"}}`)
	outcome, err := svc.Ingest(ctx, "hook-a", trigger.SourceGitHub, converter.GitHubEventPush, payload)

	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
	assert.Equal(t, converter.StatusRejected, outcome.Status)

	items, total, err := ledger.List(ctx, "hook-a", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Contains(t, items[0].Status, "rejected:")
}

func TestIngestUnknownEventIsNotAnError(t *testing.T) {
	svc, ledger, _ := newTestService(t)
	ctx := context.Background()

	outcome, err := svc.Ingest(ctx, "hook-a", trigger.SourceGitHub, "deployment_status", []byte(`{}`))
	require.NoError(t, err)
	assert.Equal(t, converter.StatusSkipped, outcome.Status)

	_, total, err := ledger.List(ctx, "hook-a", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}
