package notification_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hookline/hookline/internal/common/config"
	"github.com/hookline/hookline/internal/common/errors"
	"github.com/hookline/hookline/internal/common/logger"
	"github.com/hookline/hookline/internal/configstore"
	"github.com/hookline/hookline/internal/events"
	"github.com/hookline/hookline/internal/events/bus"
	"github.com/hookline/hookline/internal/flow"
	"github.com/hookline/hookline/internal/notification"
	"github.com/hookline/hookline/internal/notification/store"
)

type fakeTransport struct {
	mu   sync.Mutex
	sent []*notification.EmailMessage
	err  error
}

func (t *fakeTransport) Send(_ context.Context, _ *configstore.SmtpData, msg *notification.EmailMessage) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.err != nil {
		return t.err
	}
	t.sent = append(t.sent, msg)
	return nil
}

func (t *fakeTransport) messages() []*notification.EmailMessage {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*notification.EmailMessage, len(t.sent))
	copy(out, t.sent)
	return out
}

type fixture struct {
	service   *notification.Service
	store     notification.Store
	configs   configstore.Store
	eventBus  bus.EventBus
	transport *fakeTransport
}

func newFixture(t *testing.T, flows flow.Users) *fixture {
	t.Helper()
	log, err := logger.NewLogger(logger.LoggingConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)

	eventBus := bus.NewMemoryEventBus(log)
	t.Cleanup(eventBus.Close)

	configs := configstore.NewMemoryStore()
	registry := store.NewMemoryStore()
	transport := &fakeTransport{}

	if flows == nil {
		flows = flow.NewMemoryUsers(nil)
	}

	email, err := notification.NewEmailSender(configs, flows, eventBus, transport, log)
	require.NoError(t, err)
	webhook := notification.NewWebhookSender(log)

	cfg := config.NotifyConfig{MaxInFlight: 4, SendTimeout: 5}
	svc := notification.NewService(registry, configs, eventBus, email, webhook, cfg, log)
	t.Cleanup(svc.Stop)

	return &fixture{
		service:   svc,
		store:     registry,
		configs:   configs,
		eventBus:  eventBus,
		transport: transport,
	}
}

func (f *fixture) saveSmtpConfig(t *testing.T, name string) {
	t.Helper()
	cfg, err := configstore.NewSmtpConfig(name, configstore.SmtpData{
		Host:     "smtp.acme.io",
		Port:     587,
		Username: "ci@acme.io",
		Password: "secret",
	})
	require.NoError(t, err)
	require.NoError(t, f.configs.Save(context.Background(), cfg))
}

func emailTarget(name string) *notification.Notification {
	return &notification.Notification{
		Name:       name,
		Trigger:    notification.OnJobFinished,
		SmtpConfig: "smtp-ci",
		To:         "team@acme.io",
		Subject:    "build finished",
	}
}

func TestSaveEmail(t *testing.T) {
	f := newFixture(t, nil)
	f.saveSmtpConfig(t, "smtp-ci")
	ctx := context.Background()

	n := emailTarget("job-mail")
	n.Condition = `JOB_STATUS == "SUCCESS"`
	require.NoError(t, f.service.SaveEmail(ctx, n))

	saved, err := f.service.GetByName(ctx, "job-mail")
	require.NoError(t, err)
	assert.Equal(t, notification.VariantEmail, saved.Variant)
}

func TestSaveEmailMissingConfig(t *testing.T) {
	f := newFixture(t, nil)

	err := f.service.SaveEmail(context.Background(), emailTarget("job-mail"))
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestSaveEmailWrongConfigCategory(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	text := &configstore.Config{Name: "smtp-ci", Category: configstore.CategoryText, Data: []byte(`"hi"`)}
	require.NoError(t, f.configs.Save(ctx, text))

	err := f.service.SaveEmail(ctx, emailTarget("job-mail"))
	require.Error(t, err)
	assert.True(t, errors.IsStatus(err))

	_, err = f.service.GetByName(ctx, "job-mail")
	assert.True(t, errors.IsNotFound(err))
}

func TestSaveEmailInvalidCondition(t *testing.T) {
	f := newFixture(t, nil)
	f.saveSmtpConfig(t, "smtp-ci")
	ctx := context.Background()

	n := emailTarget("job-mail")
	n.Condition = `JOB_STATUS == `
	err := f.service.SaveEmail(ctx, n)
	require.Error(t, err)
	assert.True(t, errors.IsStatus(err))

	_, err = f.service.GetByName(ctx, "job-mail")
	assert.True(t, errors.IsNotFound(err))
}

func TestSaveWebhookRequiresURL(t *testing.T) {
	f := newFixture(t, nil)

	n := &notification.Notification{Name: "hook", Trigger: notification.OnJobFinished}
	err := f.service.SaveWebhook(context.Background(), n)
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func TestSendConditionNotSatisfied(t *testing.T) {
	f := newFixture(t, nil)
	f.saveSmtpConfig(t, "smtp-ci")
	ctx := context.Background()

	n := emailTarget("job-mail")
	n.Condition = `JOB_STATUS == "SUCCESS"`
	require.NoError(t, f.service.SaveEmail(ctx, n))

	f.service.Send(ctx, n, map[string]string{events.VarJobStatus: "FAILURE"})

	assert.Empty(t, f.transport.messages())
	saved, err := f.service.GetByName(ctx, "job-mail")
	require.NoError(t, err)
	assert.Empty(t, saved.LastError)
}

func TestSendConditionRuntimeFailureSkips(t *testing.T) {
	f := newFixture(t, nil)
	f.saveSmtpConfig(t, "smtp-ci")
	ctx := context.Background()

	n := emailTarget("job-mail")
	// Compiles fine but fails at runtime for non-numeric statuses.
	n.Condition = `int(JOB_STATUS) > 0`
	require.NoError(t, f.service.SaveEmail(ctx, n))

	f.service.Send(ctx, n, map[string]string{events.VarJobStatus: "SUCCESS"})

	assert.Empty(t, f.transport.messages())
	saved, err := f.service.GetByName(ctx, "job-mail")
	require.NoError(t, err)
	assert.Empty(t, saved.LastError)
}

func TestSendEmailClearsPreviousError(t *testing.T) {
	f := newFixture(t, nil)
	f.saveSmtpConfig(t, "smtp-ci")
	ctx := context.Background()

	n := emailTarget("job-mail")
	require.NoError(t, f.service.SaveEmail(ctx, n))
	require.NoError(t, f.store.UpdateError(ctx, n.ID, "dial tcp: connection refused"))

	f.service.Send(ctx, n, map[string]string{events.VarJobStatus: "SUCCESS"})

	require.Len(t, f.transport.messages(), 1)
	saved, err := f.service.GetByName(ctx, "job-mail")
	require.NoError(t, err)
	assert.Empty(t, saved.LastError)
}

func TestDispatchIsolatesTransportFailures(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	var delivered sync.WaitGroup
	delivered.Add(1)
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer delivered.Done()
		body, _ := io.ReadAll(r.Body)
		var payload map[string]string
		_ = json.Unmarshal(body, &payload)
		assert.Equal(t, "SUCCESS", payload[events.VarJobStatus])
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(good.Close)

	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(bad.Close)

	failing := &notification.Notification{Name: "hook-bad", Trigger: notification.OnJobFinished, URL: bad.URL}
	require.NoError(t, f.service.SaveWebhook(ctx, failing))
	working := &notification.Notification{Name: "hook-good", Trigger: notification.OnJobFinished, URL: good.URL}
	require.NoError(t, f.service.SaveWebhook(ctx, working))

	require.NoError(t, f.service.Start())

	event := bus.NewEvent(events.JobFinished, "job-service", map[string]string{
		events.VarJobStatus: "SUCCESS",
		events.VarFlowName:  "release",
	})
	require.NoError(t, f.eventBus.Publish(ctx, events.JobFinished, event))

	waitTimeout(t, &delivered, 3*time.Second)

	require.Eventually(t, func() bool {
		savedBad, err := f.service.GetByName(ctx, "hook-bad")
		if err != nil || savedBad.LastError == "" {
			return false
		}
		savedGood, err := f.service.GetByName(ctx, "hook-good")
		return err == nil && savedGood.LastError == ""
	}, 3*time.Second, 20*time.Millisecond)

	savedBad, err := f.service.GetByName(ctx, "hook-bad")
	require.NoError(t, err)
	assert.Contains(t, savedBad.LastError, "status 500")
}

func waitTimeout(t *testing.T, wg *sync.WaitGroup, timeout time.Duration) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		t.Fatal("timed out waiting for delivery")
	}
}
