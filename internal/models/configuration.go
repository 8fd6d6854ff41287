package models

import "time"

// ConfigurationType defines supported types for configuration values.
type ConfigurationType string

const (
	ConfigurationTypeString  ConfigurationType = "STRING"
	ConfigurationTypeBoolean ConfigurationType = "BOOLEAN"
	ConfigurationTypeNumber  ConfigurationType = "NUMBER"
)

// Well-known configuration keys.
const (
	ConfigKeyClassName    = "class.name"
	ConfigKeyAcademicYear = "class.academic_year"
	ConfigKeyNoticeEmails = "notifications.notices"
)

// Configuration represents a persisted configuration entry.
type Configuration struct {
	Key         string            `db:"key" json:"key"`
	Value       string            `db:"value" json:"value"`
	Type        ConfigurationType `db:"type" json:"type"`
	Description *string           `db:"description" json:"description,omitempty"`
	UpdatedBy   *string           `db:"updated_by" json:"updated_by,omitempty"`
	UpdatedAt   time.Time         `db:"updated_at" json:"updated_at"`
}

// ConfigurationUpdate is one entry of a bulk configuration write.
type ConfigurationUpdate struct {
	Key   string            `json:"key" validate:"required,max=120"`
	Value string            `json:"value" validate:"max=1000"`
	Type  ConfigurationType `json:"type" validate:"omitempty,oneof=STRING BOOLEAN NUMBER"`
}

// UpdateConfigurationRequest is the admin payload for persisting settings.
type UpdateConfigurationRequest struct {
	Items []ConfigurationUpdate `json:"items" validate:"required,min=1,dive"`
}
