// Package service implements the webhook ingestion pipeline: convert the
// raw payload, record the attempt in the delivery ledger, publish the
// canonical trigger for downstream consumers.
package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/hookline/hookline/internal/common/logger"
	"github.com/hookline/hookline/internal/events"
	"github.com/hookline/hookline/internal/events/bus"
	"github.com/hookline/hookline/internal/trigger"
	"github.com/hookline/hookline/internal/trigger/converter"
	"github.com/hookline/hookline/internal/trigger/store"
)

// Service ties the converter, delivery ledger, and event bus together.
type Service struct {
	dispatcher *converter.Dispatcher
	ledger     store.Ledger
	eventBus   bus.EventBus
	logger     *logger.Logger
}

func NewService(dispatcher *converter.Dispatcher, ledger store.Ledger, eventBus bus.EventBus, log *logger.Logger) *Service {
	return &Service{
		dispatcher: dispatcher,
		ledger:     ledger,
		eventBus:   eventBus,
		logger:     log,
	}
}

// Ingest processes one inbound webhook delivery.
//
// Every attempt is recorded in the ledger regardless of outcome, so the
// delivery history stays complete. A converted trigger is published on
// trigger.received. A skipped outcome is not an error to the caller; a
// rejected outcome surfaces its validation error only after the ledger
// item is recorded.
func (s *Service) Ingest(ctx context.Context, triggerID string, source trigger.GitSource, eventName string, payload []byte) (converter.Outcome, error) {
	outcome := s.dispatcher.Convert(source, eventName, payload)

	item := &store.Item{Status: outcome.String()}
	if err := s.ledger.Append(ctx, triggerID, item); err != nil {
		return outcome, err
	}

	switch outcome.Status {
	case converter.StatusConverted:
		event := bus.NewEvent(events.TriggerReceived, triggerID, trigger.Variables(outcome.Trigger))
		if err := s.eventBus.Publish(ctx, events.TriggerReceived, event); err != nil {
			// Delivery is already recorded; the webhook is still acknowledged.
			s.logger.Error("Failed to publish trigger",
				zap.String("trigger_id", triggerID),
				zap.Error(err))
		}
		return outcome, nil
	case converter.StatusRejected:
		return outcome, outcome.Err
	default:
		return outcome, nil
	}
}

// ListDeliveries returns one page of the trigger's delivery history.
func (s *Service) ListDeliveries(ctx context.Context, triggerID string, page, size int) ([]*store.Item, int64, error) {
	return s.ledger.List(ctx, triggerID, page, size)
}
