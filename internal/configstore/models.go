// Package configstore persists named configuration entries, such as the
// SMTP accounts referenced by email notifications.
package configstore

import (
	"encoding/json"
	"time"

	"github.com/hookline/hookline/internal/common/errors"
)

// Category classifies a configuration entry.
type Category string

const (
	CategorySMTP Category = "smtp"
	CategoryText Category = "text"
)

// Config is a named configuration document. Data holds the category-specific
// body as JSON.
type Config struct {
	ID        string          `db:"id" json:"id"`
	Name      string          `db:"name" json:"name"`
	Category  Category        `db:"category" json:"category"`
	Data      json.RawMessage `db:"data" json:"data"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
}

// SmtpData is the body of a CategorySMTP config.
type SmtpData struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Secure   bool   `json:"secure"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// Smtp decodes the config body as SMTP account data. Fails with a status
// error when the config is not an SMTP entry.
func (c *Config) Smtp() (*SmtpData, error) {
	if c.Category != CategorySMTP {
		return nil, errors.Statusf("config %s is not an smtp config", c.Name)
	}
	var data SmtpData
	if err := json.Unmarshal(c.Data, &data); err != nil {
		return nil, errors.Wrap(err, "failed to decode smtp config data")
	}
	return &data, nil
}

// NewSmtpConfig builds an SMTP config entry from account data.
func NewSmtpConfig(name string, data SmtpData) (*Config, error) {
	body, err := json.Marshal(data)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode smtp config data")
	}
	return &Config{Name: name, Category: CategorySMTP, Data: body}, nil
}
