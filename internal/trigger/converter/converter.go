// Package converter routes inbound (provider, event name, payload) tuples to
// per-provider parse functions and normalizes the result into a canonical
// trigger. Dispatch tables are built once at construction and never mutated,
// so a single Dispatcher is safe for concurrent use across ingestion
// goroutines.
package converter

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/hookline/hookline/internal/common/logger"
	"github.com/hookline/hookline/internal/trigger"
)

// Request headers used by the boundary layer to discriminate providers.
const (
	GitHubHeader = "X-GitHub-Event"
	GerritHeader = "X-Origin-Url"

	// GerritAllEvents is the pseudo event name for providers that encode the
	// real event inside a generic JSON envelope.
	GerritAllEvents = "all"
)

// Status classifies the result of a conversion attempt.
type Status string

const (
	// StatusConverted means a canonical trigger was produced.
	StatusConverted Status = "converted"

	// StatusSkipped means the event was intentionally ignored: unknown or
	// uninteresting event names, or unparseable envelopes from single-envelope
	// providers. Skips are not failures; the delivery is still acknowledged.
	StatusSkipped Status = "skipped"

	// StatusRejected means a recognized event violated a business rule
	// (missing head commit, wrong ref type, unsupported PR action).
	StatusRejected Status = "rejected"
)

// Outcome is the three-way result of Convert. Exactly one of Trigger,
// Reason, or Err is meaningful, selected by Status.
type Outcome struct {
	Status  Status
	Trigger trigger.Trigger
	Reason  string
	Err     error
}

// String renders the outcome for ledger items and logs.
func (o Outcome) String() string {
	switch o.Status {
	case StatusConverted:
		return fmt.Sprintf("converted: %s", o.Trigger.GitEvent())
	case StatusSkipped:
		return fmt.Sprintf("skipped: %s", o.Reason)
	default:
		return fmt.Sprintf("rejected: %v", o.Err)
	}
}

func converted(t trigger.Trigger) Outcome {
	return Outcome{Status: StatusConverted, Trigger: t}
}

func skipped(reason string) Outcome {
	return Outcome{Status: StatusSkipped, Reason: reason}
}

func rejected(err error) Outcome {
	return Outcome{Status: StatusRejected, Err: err}
}

// parseFunc converts a raw webhook payload into an Outcome. Implementations
// are pure: no shared mutable state, safe for concurrent invocation.
type parseFunc func(payload []byte) Outcome

// Dispatcher holds the immutable per-provider dispatch tables.
type Dispatcher struct {
	tables map[trigger.GitSource]map[string]parseFunc
	logger *logger.Logger
}

// NewDispatcher builds the dispatch tables for all supported providers.
func NewDispatcher(log *logger.Logger) *Dispatcher {
	return &Dispatcher{
		tables: map[trigger.GitSource]map[string]parseFunc{
			trigger.SourceGitHub: newGitHubTable(),
			trigger.SourceGerrit: newGerritTable(),
		},
		logger: log,
	}
}

// Convert routes an inbound event to the matching parse function.
//
// Unknown providers and unmapped event names are Skipped, never rejected:
// providers emit far more event types than the system cares about, and the
// ingestion boundary must be able to acknowledge all of them. Only a parser
// that recognizes the event may reject the payload.
func (d *Dispatcher) Convert(source trigger.GitSource, eventName string, payload []byte) Outcome {
	table, ok := d.tables[source]
	if !ok {
		return skipped(fmt.Sprintf("unsupported provider %q", source))
	}

	parse, ok := table[eventName]
	if !ok {
		return skipped(fmt.Sprintf("unsupported event %q from %s", eventName, source))
	}

	outcome := parse(payload)
	if outcome.Status == StatusSkipped {
		d.logger.Warn("Webhook event skipped",
			zap.String("source", string(source)),
			zap.String("event", eventName),
			zap.String("reason", outcome.Reason))
	}
	return outcome
}

// Events returns the event names the given provider is mapped for.
func (d *Dispatcher) Events(source trigger.GitSource) []string {
	table, ok := d.tables[source]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	return names
}
