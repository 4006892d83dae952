// Package notification implements the notification registry and the
// dispatch engine that fans domain events out to email and webhook targets.
package notification

import "time"

// Variant selects the delivery channel of a notification.
type Variant string

const (
	VariantEmail   Variant = "email"
	VariantWebhook Variant = "webhook"
)

// TriggerAction names the domain event kind a notification reacts to.
type TriggerAction string

const (
	OnJobFinished       TriggerAction = "OnJobFinished"
	OnAgentStatusChange TriggerAction = "OnAgentStatusChange"
)

// Notification is a named delivery target. Variant-specific fields are
// populated only for the matching variant.
//
// LastError holds the most recent send failure; it is cleared on the next
// successful send.
type Notification struct {
	ID        string        `db:"id" json:"id"`
	Name      string        `db:"name" json:"name"`
	Variant   Variant       `db:"variant" json:"variant"`
	Trigger   TriggerAction `db:"trigger_action" json:"trigger"`
	Condition string        `db:"condition" json:"condition,omitempty"`
	LastError string        `db:"last_error" json:"last_error,omitempty"`

	// Email variant
	SmtpConfig  string `db:"smtp_config" json:"smtp_config,omitempty"`
	From        string `db:"from_address" json:"from,omitempty"`
	To          string `db:"to_address" json:"to,omitempty"`
	ToFlowUsers bool   `db:"to_flow_users" json:"to_flow_users,omitempty"`
	Subject     string `db:"subject" json:"subject,omitempty"`

	// Webhook variant
	URL string `db:"url" json:"url,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

func (n *Notification) HasCondition() bool { return n.Condition != "" }

func (n *Notification) IsEmail() bool   { return n.Variant == VariantEmail }
func (n *Notification) IsWebhook() bool { return n.Variant == VariantWebhook }
