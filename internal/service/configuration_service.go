package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/classsync/classsync-api/internal/dto"
	"github.com/classsync/classsync-api/internal/models"
	"github.com/classsync/classsync-api/pkg/clock"
	appErrors "github.com/classsync/classsync-api/pkg/errors"
)

type configurationRepository interface {
	ListByKeys(ctx context.Context, keys []string) ([]models.Configuration, error)
	Get(ctx context.Context, key string) (*models.Configuration, error)
	Save(ctx context.Context, entries []models.Configuration, at time.Time) error
	Delete(ctx context.Context, key string) (bool, error)
}

type configurationAuditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// configSetting describes one supported key. parse returns the canonical form of
// a raw value or a user-facing reason it was rejected.
type configSetting struct {
	key         string
	kind        models.ConfigurationType
	description string
	fallback    string
	parse       func(string) (string, error)
}

var academicYearPattern = regexp.MustCompile(`^(\d{4})-(\d{2}|\d{4})$`)

// configSchema is ordered as List returns it.
var configSchema = []configSetting{
	{
		key:         models.ConfigKeyClassName,
		kind:        models.ConfigurationTypeString,
		description: "Display name of the class",
		fallback:    "ClassSync",
		parse:       parseText(80),
	},
	{
		key:         models.ConfigKeyAcademicYear,
		kind:        models.ConfigurationTypeString,
		description: "Academic year shown on reports, e.g. 2025-26",
		parse:       parseAcademicYear,
	},
	{
		key:         models.ConfigKeyNoticeEmails,
		kind:        models.ConfigurationTypeBoolean,
		description: "Email students when a notice is posted",
		fallback:    "true",
		parse:       parseBool,
	},
}

func lookupSetting(key string) (configSetting, bool) {
	for _, s := range configSchema {
		if s.key == key {
			return s, true
		}
	}
	return configSetting{}, false
}

func settingKeys() []string {
	keys := make([]string, len(configSchema))
	for i, s := range configSchema {
		keys[i] = s.key
	}
	return keys
}

func parseText(max int) func(string) (string, error) {
	return func(v string) (string, error) {
		switch {
		case v == "":
			return "", errors.New("must not be empty")
		case len([]rune(v)) > max:
			return "", fmt.Errorf("must be at most %d characters", max)
		}
		return v, nil
	}
}

func parseBool(v string) (string, error) {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return "", errors.New("expects true or false")
	}
	return strconv.FormatBool(b), nil
}

// parseAcademicYear accepts "2025-26" or "2025-2026" where the second year follows the first.
func parseAcademicYear(v string) (string, error) {
	m := academicYearPattern.FindStringSubmatch(v)
	if m == nil {
		return "", errors.New("expects the form 2025-26")
	}
	start, _ := strconv.Atoi(m[1])
	end, _ := strconv.Atoi(m[2])
	if len(m[2]) == 2 {
		end += start / 100 * 100
		if end < start {
			end += 100
		}
	}
	if end != start+1 {
		return "", errors.New("must span two consecutive years")
	}
	return fmt.Sprintf("%d-%02d", start, end%100), nil
}

// ConfigurationServiceConfig overrides built-in fallbacks, typically from the environment.
type ConfigurationServiceConfig struct {
	Defaults map[string]string
}

// ConfigurationService manages the class-wide configSchema store.
type ConfigurationService struct {
	repo      configurationRepository
	audit     configurationAuditLogger
	clock     *clock.Clock
	validator *validator.Validate
	logger    *zap.Logger
	defaults  map[string]string
}

// NewConfigurationService constructs a ConfigurationService.
func NewConfigurationService(repo configurationRepository, audit configurationAuditLogger, clk *clock.Clock, validate *validator.Validate, logger *zap.Logger, cfg ConfigurationServiceConfig) *ConfigurationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if clk == nil {
		clk = clock.New(time.UTC)
	}
	defaults := make(map[string]string, len(configSchema))
	for _, s := range configSchema {
		if s.fallback != "" {
			defaults[s.key] = s.fallback
		}
	}
	for key, value := range cfg.Defaults {
		if value != "" {
			defaults[key] = value
		}
	}
	return &ConfigurationService{repo: repo, audit: audit, clock: clk, validator: validate, logger: logger, defaults: defaults}
}

func (s *ConfigurationService) item(def configSetting, stored *models.Configuration) dto.ConfigurationItem {
	item := dto.ConfigurationItem{Key: def.key, Type: string(def.kind), Description: def.description}
	if stored == nil {
		item.Value = s.defaults[def.key]
		item.Default = true
		return item
	}
	at := stored.UpdatedAt
	item.Value = stored.Value
	item.UpdatedBy = stored.UpdatedBy
	item.UpdatedAt = &at
	return item
}

// List returns every supported configSetting, falling back to defaults for unset keys.
func (s *ConfigurationService) List(ctx context.Context) ([]dto.ConfigurationItem, error) {
	rows, err := s.repo.ListByKeys(ctx, settingKeys())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list configurations")
	}
	stored := make(map[string]*models.Configuration, len(rows))
	for i := range rows {
		stored[rows[i].Key] = &rows[i]
	}
	items := make([]dto.ConfigurationItem, 0, len(configSchema))
	for _, def := range configSchema {
		items = append(items, s.item(def, stored[def.key]))
	}
	return items, nil
}

// Get retrieves a single configSetting. A key with neither a stored value nor a default is NOT_FOUND.
func (s *ConfigurationService) Get(ctx context.Context, key string) (*dto.ConfigurationItem, error) {
	def, err := requireSetting(key)
	if err != nil {
		return nil, err
	}
	stored, err := s.repo.Get(ctx, key)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, ok := s.defaults[key]; !ok {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "configuration not set")
		}
		stored = nil
	case err != nil:
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to get configuration")
	}
	item := s.item(def, stored)
	return &item, nil
}

// Update stores the items atomically. Items whose value is unchanged are
// not rewritten. Nothing is written if any item is invalid.
func (s *ConfigurationService) Update(ctx context.Context, req models.UpdateConfigurationRequest, actorID string) ([]dto.ConfigurationItem, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid configuration payload")
	}

	var updatedBy *string
	if actorID != "" {
		updatedBy = &actorID
	}
	now := s.clock.Now().UTC()
	seen := make(map[string]bool, len(req.Items))
	entries := make([]models.Configuration, 0, len(req.Items))
	for _, in := range req.Items {
		def, err := requireSetting(in.Key)
		if err != nil {
			return nil, err
		}
		if seen[in.Key] {
			return nil, appErrors.Clone(appErrors.ErrValidation, "configuration "+in.Key+" listed twice")
		}
		seen[in.Key] = true
		if in.Type != "" && in.Type != def.kind {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s is a %s configSetting", in.Key, def.kind))
		}
		value, err := def.parse(strings.TrimSpace(in.Value))
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s %v", in.Key, err))
		}
		description := def.description
		entries = append(entries, models.Configuration{
			Key:         def.key,
			Value:       value,
			Type:        def.kind,
			Description: &description,
			UpdatedBy:   updatedBy,
			UpdatedAt:   now,
		})
	}

	existing, err := s.repo.ListByKeys(ctx, keysOf(entries))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load existing configurations")
	}
	previous := make(map[string]models.Configuration, len(existing))
	for _, row := range existing {
		previous[row.Key] = row
	}

	changed := entries[:0:0]
	for _, e := range entries {
		if old, ok := previous[e.Key]; ok && old.Value == e.Value {
			continue
		}
		changed = append(changed, e)
	}
	if err := s.repo.Save(ctx, changed, now); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update configurations")
	}

	final := make(map[string]models.Configuration, len(entries))
	for k, v := range previous {
		final[k] = v
	}
	diff := make(map[string][2]string, len(changed))
	for _, e := range changed {
		diff[e.Key] = [2]string{s.effective(previous, e.Key), e.Value}
		final[e.Key] = e
	}
	if len(diff) > 0 {
		s.recordChange(ctx, updatedBy, diff)
	}

	result := make([]dto.ConfigurationItem, 0, len(entries))
	for _, e := range entries {
		def, _ := lookupSetting(e.Key)
		row := final[e.Key]
		result = append(result, s.item(def, &row))
	}
	return result, nil
}

// Reset drops the stored value of key so it reads as its default again.
func (s *ConfigurationService) Reset(ctx context.Context, key, actorID string) (*dto.ConfigurationItem, error) {
	def, err := requireSetting(key)
	if err != nil {
		return nil, err
	}
	old, err := s.repo.Get(ctx, key)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to get configuration")
	}
	existed, err := s.repo.Delete(ctx, key)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reset configuration")
	}
	if existed && old != nil {
		var by *string
		if actorID != "" {
			by = &actorID
		}
		s.recordChange(ctx, by, map[string][2]string{key: {old.Value, s.defaults[key]}})
	}
	item := s.item(def, nil)
	return &item, nil
}

func (s *ConfigurationService) effective(stored map[string]models.Configuration, key string) string {
	if row, ok := stored[key]; ok {
		return row.Value
	}
	return s.defaults[key]
}

func requireSetting(key string) (configSetting, error) {
	def, ok := lookupSetting(key)
	if !ok {
		return configSetting{}, appErrors.Clone(appErrors.ErrValidation, "unsupported configuration key "+key)
	}
	return def, nil
}

func keysOf(entries []models.Configuration) []string {
	keys := make([]string, len(entries))
	for i, e := range entries {
		keys[i] = e.Key
	}
	return keys
}

// recordChange writes one audit row per request; diff maps key to {old, new}.
func (s *ConfigurationService) recordChange(ctx context.Context, actorID *string, diff map[string][2]string) {
	if s.audit == nil {
		return
	}
	oldValues := make(map[string]string, len(diff))
	newValues := make(map[string]string, len(diff))
	for key, pair := range diff {
		oldValues[key] = pair[0]
		newValues[key] = pair[1]
	}
	oldBytes, _ := json.Marshal(oldValues)
	newBytes, _ := json.Marshal(newValues)
	err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:    actorID,
		Action:    models.AuditActionUpdate,
		Resource:  "configuration",
		OldValues: oldBytes,
		NewValues: newBytes,
		UserAgent: "configuration-service",
	})
	if err != nil {
		s.logger.Warn("failed to record configuration audit", zap.Error(err))
	}
}
