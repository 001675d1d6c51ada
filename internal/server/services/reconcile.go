// This file implements ReconcileService: replacing drifted size/count
// estimates with authoritative values computed from the metadata rows.
package services

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/imghost/internal/common"
	"github.com/dmitrijs2005/imghost/internal/logging"
	"github.com/dmitrijs2005/imghost/internal/server/models"
	"github.com/dmitrijs2005/imghost/internal/server/repositories/repomanager"
)

// reactivationFactor is the hysteresis band: a full store only becomes
// eligible again once it drops below this fraction of the threshold, so
// stores near the boundary do not flap.
const reactivationFactor = 0.9

// ReconcileResult reports one store's resync.
type ReconcileResult struct {
	StoreID      int64              `json:"store_id"`
	StoreName    string             `json:"store_name"`
	FileCount    int64              `json:"file_count"`
	SizeBytes    int64              `json:"size_bytes"`
	Status       models.StoreStatus `json:"status"`
	StatusChange bool               `json:"status_change"`
}

// ReconcileService recomputes per-store totals from image rows.
type ReconcileService struct {
	repomanager repomanager.RepositoryManager
	settings    *SettingsService
	logger      logging.Logger
}

func NewReconcileService(m repomanager.RepositoryManager, settings *SettingsService, logger logging.Logger) *ReconcileService {
	return &ReconcileService{repomanager: m, settings: settings, logger: logger}
}

// Reconcile resyncs one store: counters are overwritten with the
// authoritative sums, a store at or over the threshold is flipped to full,
// and a full or inactive store that has shrunk below the hysteresis band
// becomes eligible again.
func (s *ReconcileService) Reconcile(ctx context.Context, storeID int64) (*ReconcileResult, error) {
	store, err := s.repomanager.Stores().GetByID(ctx, storeID)
	if err != nil {
		return nil, err
	}

	count, size, err := s.repomanager.Images().StatsByStore(ctx, storeID)
	if err != nil {
		return nil, err
	}

	if err := s.repomanager.Stores().UpdateCounters(ctx, storeID, count, size); err != nil {
		return nil, err
	}

	threshold, err := s.settings.SizeThreshold(ctx)
	if err != nil {
		return nil, err
	}

	result := &ReconcileResult{
		StoreID:   storeID,
		StoreName: store.Name,
		FileCount: count,
		SizeBytes: size,
		Status:    store.Status,
	}

	next := store.Status
	switch {
	case store.Status != models.StoreStatusFull && size >= threshold:
		next = models.StoreStatusFull
	case store.Status != models.StoreStatusActive && float64(size) < reactivationFactor*float64(threshold):
		// Shrunk well below the threshold. Become active again only when
		// no other store holds the active slot, otherwise just eligible.
		next = models.StoreStatusInactive
		if _, err := s.repomanager.Stores().GetActive(ctx); err != nil {
			if !errors.Is(err, common.ErrorNotFound) {
				return nil, err
			}
			next = models.StoreStatusActive
		}
	}

	if next == store.Status {
		return result, nil
	}

	if err := s.repomanager.Stores().SetStatus(ctx, storeID, next); err != nil {
		return nil, err
	}
	result.Status = next
	result.StatusChange = true
	s.logger.Info(ctx, "store status changed by reconcile",
		"store", store.Name, "status", next, "size_bytes", size)
	return result, nil
}

// ReconcileAll resyncs every store.
func (s *ReconcileService) ReconcileAll(ctx context.Context) ([]*ReconcileResult, error) {
	all, err := s.repomanager.Stores().List(ctx)
	if err != nil {
		return nil, err
	}
	results := make([]*ReconcileResult, 0, len(all))
	for _, st := range all {
		r, err := s.Reconcile(ctx, st.ID)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, nil
}
