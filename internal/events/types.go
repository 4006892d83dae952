// Package events defines the bus subjects and context keys used across
// hookline services.
package events

// Subjects for inbound git triggers
const (
	TriggerReceived = "trigger.received"
)

// Subjects for domain events that drive notification fan-out
const (
	JobFinished        = "job.finished"
	AgentStatusChanged = "agent.status_changed"
)

// Subjects for observability hooks
const (
	EmailRendered = "notification.email_rendered"
)

// Context keys shared between domain event payloads and notification
// condition/render contexts. Condition scripts see these as variables.
const (
	VarFlowName    = "FLOW_NAME"
	VarJobNumber   = "JOB_NUMBER"
	VarJobStatus   = "JOB_STATUS"
	VarAgentName   = "AGENT_NAME"
	VarAgentStatus = "AGENT_STATUS"
)
