package dto

import "time"

// ConfigurationItem is a class setting as returned to clients. Default is
// true when nothing has been stored for the key.
type ConfigurationItem struct {
	Key         string     `json:"key"`
	Value       string     `json:"value"`
	Type        string     `json:"type"`
	Description string     `json:"description"`
	Default     bool       `json:"isDefault"`
	UpdatedBy   *string    `json:"updatedBy,omitempty"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
}
