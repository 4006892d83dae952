package notification

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/hookline/hookline/internal/common/config"
	"github.com/hookline/hookline/internal/common/errors"
	"github.com/hookline/hookline/internal/common/logger"
	"github.com/hookline/hookline/internal/configstore"
	"github.com/hookline/hookline/internal/events"
	"github.com/hookline/hookline/internal/events/bus"
	"github.com/hookline/hookline/internal/notification/condition"
)

// Service manages the notification registry and fans domain events out to
// the channel senders.
type Service struct {
	store       Store
	configs     configstore.Store
	eventBus    bus.EventBus
	email       *EmailSender
	webhook     *WebhookSender
	sem         *semaphore.Weighted
	sendTimeout time.Duration
	logger      *logger.Logger

	subs []bus.Subscription
	wg   sync.WaitGroup
}

func NewService(st Store, configs configstore.Store, eventBus bus.EventBus, email *EmailSender, webhook *WebhookSender, cfg config.NotifyConfig, log *logger.Logger) *Service {
	maxInFlight := cfg.MaxInFlight
	if maxInFlight <= 0 {
		maxInFlight = 10
	}
	return &Service{
		store:       st,
		configs:     configs,
		eventBus:    eventBus,
		email:       email,
		webhook:     webhook,
		sem:         semaphore.NewWeighted(int64(maxInFlight)),
		sendTimeout: cfg.SendTimeoutDuration(),
		logger:      log.WithFields(zap.String("component", "notification-service")),
	}
}

func (s *Service) List(ctx context.Context) ([]*Notification, error) {
	return s.store.List(ctx)
}

func (s *Service) Get(ctx context.Context, id string) (*Notification, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) GetByName(ctx context.Context, name string) (*Notification, error) {
	return s.store.GetByName(ctx, name)
}

// SaveEmail validates and persists an email notification. The referenced
// config must exist and be an SMTP entry, and the condition script, if any,
// must compile. Both checks fail the save; nothing is persisted.
func (s *Service) SaveEmail(ctx context.Context, n *Notification) error {
	n.Variant = VariantEmail

	cfg, err := s.configs.Get(ctx, n.SmtpConfig)
	if err != nil {
		return err
	}
	if cfg.Category != configstore.CategorySMTP {
		return errors.Status("smtp config is required")
	}

	if err := s.validateCondition(n); err != nil {
		return err
	}
	return s.store.Save(ctx, n)
}

// SaveWebhook validates and persists a webhook notification.
func (s *Service) SaveWebhook(ctx context.Context, n *Notification) error {
	n.Variant = VariantWebhook

	if n.URL == "" {
		return errors.Validation("webhook notification requires a url")
	}
	if err := s.validateCondition(n); err != nil {
		return err
	}
	return s.store.Save(ctx, n)
}

func (s *Service) Delete(ctx context.Context, name string) error {
	return s.store.Delete(ctx, name)
}

func (s *Service) validateCondition(n *Notification) error {
	if !n.HasCondition() {
		return nil
	}
	if err := condition.Verify(n.Condition); err != nil {
		return errors.Statusf("invalid condition: %v", err)
	}
	return nil
}

// Send delivers one notification for the given event context.
//
// A condition that evaluates to false, or fails at runtime, skips the send
// without error: one bad script must not surface as a delivery failure.
// Transport errors are recorded on the entity and not returned; the sibling
// sends of the same fan-out batch are unaffected.
func (s *Service) Send(ctx context.Context, n *Notification, vars map[string]string) {
	if n.HasCondition() {
		matched, err := condition.Run(n.Condition, vars)
		if err != nil {
			s.logger.Warn("Cannot execute condition of notification",
				zap.String("notification", n.Name),
				zap.Error(err))
			return
		}
		if !matched {
			return
		}
	}

	var sendErr error
	switch {
	case n.IsEmail():
		sendErr = s.email.Send(ctx, n, vars)
	case n.IsWebhook():
		sendErr = s.webhook.Send(ctx, n, vars)
	default:
		s.logger.Warn("Unknown notification variant",
			zap.String("notification", n.Name),
			zap.String("variant", string(n.Variant)))
		return
	}

	message := ""
	if sendErr != nil {
		s.logger.Warn("Unable to send notification",
			zap.String("notification", n.Name),
			zap.Error(sendErr))
		message = sendErr.Error()
	}
	if err := s.store.UpdateError(ctx, n.ID, message); err != nil {
		s.logger.Error("Failed to record notification send status",
			zap.String("notification", n.Name),
			zap.Error(err))
	}
}

// Start subscribes the dispatch engine to the domain events that drive
// notification fan-out.
func (s *Service) Start() error {
	jobSub, err := s.eventBus.Subscribe(events.JobFinished, s.handleEvent(OnJobFinished))
	if err != nil {
		return err
	}
	s.subs = append(s.subs, jobSub)

	agentSub, err := s.eventBus.Subscribe(events.AgentStatusChanged, s.handleEvent(OnAgentStatusChange))
	if err != nil {
		return err
	}
	s.subs = append(s.subs, agentSub)
	return nil
}

// Stop unsubscribes and waits for in-flight sends to finish.
func (s *Service) Stop() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	s.subs = nil
	s.wg.Wait()
}

// handleEvent fans one domain event out to every matching notification.
// Each send runs on its own goroutine behind the in-flight bound, so a slow
// transport delays neither the publisher nor sibling sends.
func (s *Service) handleEvent(action TriggerAction) bus.EventHandler {
	return func(ctx context.Context, event *bus.Event) error {
		list, err := s.store.FindByTrigger(ctx, action)
		if err != nil {
			s.logger.Error("Failed to look up notifications",
				zap.String("action", string(action)),
				zap.Error(err))
			return err
		}

		for _, n := range list {
			if err := s.sem.Acquire(ctx, 1); err != nil {
				return err
			}
			s.wg.Add(1)
			go func(n *Notification) {
				defer s.wg.Done()
				defer s.sem.Release(1)

				sendCtx := context.Background()
				if s.sendTimeout > 0 {
					var cancel context.CancelFunc
					sendCtx, cancel = context.WithTimeout(sendCtx, s.sendTimeout)
					defer cancel()
				}
				s.Send(sendCtx, n, event.Data)
			}(n)
		}
		return nil
	}
}
