package notification_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hookline/hookline/internal/common/errors"
	"github.com/hookline/hookline/internal/common/logger"
	"github.com/hookline/hookline/internal/configstore"
	"github.com/hookline/hookline/internal/events"
	"github.com/hookline/hookline/internal/events/bus"
	"github.com/hookline/hookline/internal/flow"
	"github.com/hookline/hookline/internal/notification"
)

type emailFixture struct {
	sender    *notification.EmailSender
	configs   configstore.Store
	eventBus  bus.EventBus
	transport *fakeTransport
}

func newEmailFixture(t *testing.T, flows flow.Users) *emailFixture {
	t.Helper()
	log, err := logger.NewLogger(logger.LoggingConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)

	eventBus := bus.NewMemoryEventBus(log)
	t.Cleanup(eventBus.Close)

	configs := configstore.NewMemoryStore()
	transport := &fakeTransport{}

	if flows == nil {
		flows = flow.NewMemoryUsers(nil)
	}

	sender, err := notification.NewEmailSender(configs, flows, eventBus, transport, log)
	require.NoError(t, err)

	cfg, err := configstore.NewSmtpConfig("smtp-ci", configstore.SmtpData{
		Host:     "smtp.acme.io",
		Port:     587,
		Username: "ci@acme.io",
		Password: "secret",
	})
	require.NoError(t, err)
	require.NoError(t, configs.Save(context.Background(), cfg))

	return &emailFixture{sender: sender, configs: configs, eventBus: eventBus, transport: transport}
}

func TestEmailSendExplicitRecipient(t *testing.T) {
	f := newEmailFixture(t, nil)

	n := emailTarget("job-mail")
	n.From = "builds@acme.io"
	vars := map[string]string{events.VarJobStatus: "SUCCESS", events.VarFlowName: "release"}

	require.NoError(t, f.sender.Send(context.Background(), n, vars))

	msgs := f.transport.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "builds@acme.io", msgs[0].From)
	assert.Equal(t, []string{"team@acme.io"}, msgs[0].To)
	assert.Equal(t, "build finished", msgs[0].Subject)
	assert.Contains(t, msgs[0].HTML, "SUCCESS")
	assert.Contains(t, msgs[0].HTML, "JOB_STATUS")
}

func TestEmailSendFromFallsBackToAccount(t *testing.T) {
	f := newEmailFixture(t, nil)

	n := emailTarget("job-mail")
	require.NoError(t, f.sender.Send(context.Background(), n, map[string]string{}))

	msgs := f.transport.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "ci@acme.io", msgs[0].From)
}

func TestEmailSendToFlowUsers(t *testing.T) {
	flows := flow.NewMemoryUsers(map[string][]string{
		"release": {"ann@acme.io", "bo@acme.io"},
	})
	f := newEmailFixture(t, flows)

	n := emailTarget("job-mail")
	n.To = ""
	n.ToFlowUsers = true
	vars := map[string]string{events.VarFlowName: "release"}

	require.NoError(t, f.sender.Send(context.Background(), n, vars))

	msgs := f.transport.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, []string{"ann@acme.io", "bo@acme.io"}, msgs[0].To)
}

func TestEmailSendToFlowUsersMissingFlowName(t *testing.T) {
	f := newEmailFixture(t, nil)

	n := emailTarget("job-mail")
	n.ToFlowUsers = true

	err := f.sender.Send(context.Background(), n, map[string]string{})
	require.Error(t, err)
	assert.True(t, errors.IsStatus(err))
	assert.Empty(t, f.transport.messages())
}

func TestEmailSendPublishesRenderedTemplate(t *testing.T) {
	f := newEmailFixture(t, nil)

	rendered := make(chan *bus.Event, 1)
	_, err := f.eventBus.Subscribe(events.EmailRendered, func(_ context.Context, e *bus.Event) error {
		rendered <- e
		return nil
	})
	require.NoError(t, err)

	n := emailTarget("job-mail")
	vars := map[string]string{events.VarJobStatus: "SUCCESS"}
	require.NoError(t, f.sender.Send(context.Background(), n, vars))

	select {
	case e := <-rendered:
		assert.Equal(t, "job-mail", e.Data["notification"])
		assert.Contains(t, e.Data["content"], "SUCCESS")
		assert.Contains(t, e.Data["content"], "build finished")
	case <-time.After(2 * time.Second):
		t.Fatal("expected rendered email event")
	}
}

func TestEmailSendMissingConfig(t *testing.T) {
	f := newEmailFixture(t, nil)

	n := emailTarget("job-mail")
	n.SmtpConfig = "no-such-config"

	err := f.sender.Send(context.Background(), n, map[string]string{})
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}
