// Package services contains server-side business logic. This file implements
// SettingsService, the typed boundary over the loosely-typed settings rows:
// parsing, defaults, and validation live here, not in the repository.
package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/dmitrijs2005/imghost/internal/common"
	"github.com/dmitrijs2005/imghost/internal/logging"
	"github.com/dmitrijs2005/imghost/internal/server/repositories/repomanager"
)

const (
	// DefaultSizeThreshold is used when no threshold row exists: 900 MiB.
	DefaultSizeThreshold int64 = 900 * 1024 * 1024
	// MaxSizeThreshold caps the configurable threshold at 1 GiB, the hard
	// limit of a single backing store.
	MaxSizeThreshold int64 = 1024 * 1024 * 1024
)

const (
	keySizeThreshold = "size_threshold"
	keyNameTemplate  = "repository_name_template"
	keyGuestUploads  = "guest_uploads_enabled"
)

// SettingsService exposes typed, validated runtime settings.
type SettingsService struct {
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
}

func NewSettingsService(m repomanager.RepositoryManager, logger logging.Logger) *SettingsService {
	return &SettingsService{repomanager: m, logger: logger}
}

// SizeThreshold returns the rotation threshold in bytes, falling back to
// the default when the row is unset or unusable. A corrupt setting must
// not take every allocation down with it.
func (s *SettingsService) SizeThreshold(ctx context.Context) (int64, error) {
	raw, err := s.repomanager.Settings().Get(ctx, keySizeThreshold)
	if errors.Is(err, common.ErrorNotFound) {
		return DefaultSizeThreshold, nil
	}
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v <= 0 || v > MaxSizeThreshold {
		s.logger.Warn(ctx, "ignoring invalid size threshold setting", "value", raw)
		return DefaultSizeThreshold, nil
	}
	return v, nil
}

// SetSizeThreshold stores a new rotation threshold. Values outside
// (0, MaxSizeThreshold] are rejected with common.ErrorValidation.
func (s *SettingsService) SetSizeThreshold(ctx context.Context, v int64) error {
	if v <= 0 || v > MaxSizeThreshold {
		return fmt.Errorf("%w: threshold must be in (0, %d]", common.ErrorValidation, MaxSizeThreshold)
	}
	return s.repomanager.Settings().Upsert(ctx, keySizeThreshold, strconv.FormatInt(v, 10))
}

// NameTemplate returns the base name used when rotating in a new store.
// Empty means "derive from the current store's name".
func (s *SettingsService) NameTemplate(ctx context.Context) (string, error) {
	raw, err := s.repomanager.Settings().Get(ctx, keyNameTemplate)
	if errors.Is(err, common.ErrorNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return raw, nil
}

func (s *SettingsService) SetNameTemplate(ctx context.Context, template string) error {
	if template == "" {
		return fmt.Errorf("%w: template must not be empty", common.ErrorValidation)
	}
	return s.repomanager.Settings().Upsert(ctx, keyNameTemplate, template)
}

// GuestUploadsEnabled reports whether anonymous uploads are accepted.
// Absent means enabled.
func (s *SettingsService) GuestUploadsEnabled(ctx context.Context) (bool, error) {
	raw, err := s.repomanager.Settings().Get(ctx, keyGuestUploads)
	if errors.Is(err, common.ErrorNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("bad guest uploads value %q: %w", raw, err)
	}
	return v, nil
}

func (s *SettingsService) SetGuestUploadsEnabled(ctx context.Context, enabled bool) error {
	return s.repomanager.Settings().Upsert(ctx, keyGuestUploads, strconv.FormatBool(enabled))
}
