// This file implements AllocatorService: capacity-aware selection of the
// backing store an upload lands in, including auto-creation of the first
// store and threshold-driven rotation to a fresh one.
package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/imghost/internal/common"
	"github.com/dmitrijs2005/imghost/internal/logging"
	"github.com/dmitrijs2005/imghost/internal/server/blobstore"
	"github.com/dmitrijs2005/imghost/internal/server/config"
	"github.com/dmitrijs2005/imghost/internal/server/discovery"
	"github.com/dmitrijs2005/imghost/internal/server/models"
	"github.com/dmitrijs2005/imghost/internal/server/repositories/repomanager"
)

// Allocation is the outcome of a capacity check: the store the upload
// should land in and whether it was rotated in for this request.
type Allocation struct {
	Store      *models.Store
	CreatedNew bool
}

// AllocatorService picks the active store for each upload, creating or
// rotating stores when capacity demands it.
type AllocatorService struct {
	repomanager repomanager.RepositoryManager
	blobs       blobstore.Client
	settings    *SettingsService
	propagator  discovery.Propagator
	logger      logging.Logger
	owner       string
	token       string
	defaultName string
	globalHook  string
}

func NewAllocatorService(m repomanager.RepositoryManager, blobs blobstore.Client,
	settings *SettingsService, propagator discovery.Propagator,
	logger logging.Logger, cfg *config.Config) *AllocatorService {
	return &AllocatorService{
		repomanager: m,
		blobs:       blobs,
		settings:    settings,
		propagator:  propagator,
		logger:      logger,
		owner:       cfg.GithubOwner,
		token:       cfg.GithubToken,
		defaultName: cfg.DefaultStoreName,
		globalHook:  cfg.DeployHookURL,
	}
}

// suffixPattern matches a rotation suffix like "-001" at the end of a name.
var suffixPattern = regexp.MustCompile(`-(\d+)$`)

// Allocate returns the store an upload of sizeBytes should land in.
// When no active store exists the configured default is materialized;
// when the active store would cross the size threshold a fresh store is
// rotated in and activated.
func (s *AllocatorService) Allocate(ctx context.Context, sizeBytes int64) (*Allocation, error) {
	threshold, err := s.settings.SizeThreshold(ctx)
	if err != nil {
		return nil, err
	}

	store, err := s.repomanager.Stores().GetActive(ctx)
	if errors.Is(err, common.ErrorNotFound) {
		created, cerr := s.materializeDefault(ctx)
		if cerr != nil {
			return nil, fmt.Errorf("%w: %v", common.ErrorCapacity, cerr)
		}
		return &Allocation{Store: created, CreatedNew: true}, nil
	}
	if err != nil {
		return nil, err
	}

	if store.SizeEstimate+sizeBytes <= threshold {
		return &Allocation{Store: store}, nil
	}

	s.logger.Info(ctx, "store at capacity, rotating",
		"store", store.Name, "size_estimate", store.SizeEstimate, "threshold", threshold)

	fresh, err := s.rotate(ctx, store)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorCapacity, err)
	}
	return &Allocation{Store: fresh, CreatedNew: true}, nil
}

// materializeDefault creates the configured default store when the table
// holds no active one. The remote side may already exist from a previous
// run; that is fine.
func (s *AllocatorService) materializeDefault(ctx context.Context) (*models.Store, error) {
	if s.owner == "" || s.defaultName == "" {
		return nil, errors.New("no default store configured")
	}

	// A row may already exist from a previous run or an aborted rotation;
	// adopt it instead of colliding with the uniqueness constraint.
	existing, err := s.repomanager.Stores().GetByName(ctx, s.owner, s.defaultName)
	if err == nil {
		if err := s.repomanager.Stores().SetStatus(ctx, existing.ID, models.StoreStatusActive); err != nil {
			return nil, err
		}
		existing.Status = models.StoreStatusActive
		s.propagate(ctx)
		s.logger.Info(ctx, "existing default store reactivated", "store", existing.Name)
		return existing, nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return nil, err
	}

	if err := s.provisionRemote(ctx, s.defaultName); err != nil {
		return nil, err
	}

	store := &models.Store{
		Owner:         s.owner,
		Name:          s.defaultName,
		Token:         s.token,
		Status:        models.StoreStatusActive,
		DeployHookURL: s.globalHook,
		IsDefault:     true,
	}
	created, err := s.repomanager.Stores().ActivateExclusive(ctx, store)
	if err != nil {
		return nil, err
	}

	s.propagate(ctx)
	s.logger.Info(ctx, "default store materialized", "store", created.Name)
	return created, nil
}

// rotate provisions the next store in the naming sequence and activates
// it, inheriting a deploy hook from the outgoing store when it has one.
func (s *AllocatorService) rotate(ctx context.Context, current *models.Store) (*models.Store, error) {
	name, err := s.nextName(ctx, current)
	if err != nil {
		return nil, err
	}

	if err := s.provisionRemote(ctx, name); err != nil {
		return nil, err
	}

	// The outgoing store is flipped only once the replacement is known to
	// exist remotely, so a failed provision leaves it serving.
	if err := s.repomanager.Stores().SetStatus(ctx, current.ID, models.StoreStatusFull); err != nil {
		return nil, err
	}

	hook := current.DeployHookURL
	if hook == "" {
		hook, err = s.repomanager.Stores().FirstDeployHook(ctx)
		if errors.Is(err, common.ErrorNotFound) {
			hook = s.globalHook
		} else if err != nil {
			return nil, err
		}
	}

	store := &models.Store{
		Owner:         current.Owner,
		Name:          name,
		Token:         current.Token,
		Status:        models.StoreStatusActive,
		Priority:      current.Priority,
		DeployHookURL: hook,
	}
	created, err := s.repomanager.Stores().ActivateExclusive(ctx, store)
	if err != nil {
		return nil, err
	}

	s.propagate(ctx)
	s.logger.Info(ctx, "rotated to new store", "store", created.Name, "previous", current.Name)
	return created, nil
}

// nextName derives the next store name in the rotation sequence: the base
// comes from the name-template setting or the current name with its
// numeric suffix stripped, and the suffix is one past the highest in use.
func (s *AllocatorService) nextName(ctx context.Context, current *models.Store) (string, error) {
	base, err := s.settings.NameTemplate(ctx)
	if err != nil {
		return "", err
	}
	if base == "" {
		base = suffixPattern.ReplaceAllString(current.Name, "")
	}

	names, err := s.repomanager.Stores().NamesByPrefix(ctx, base+"-")
	if err != nil {
		return "", err
	}

	max := 0
	for _, n := range names {
		m := suffixPattern.FindStringSubmatch(n)
		if m == nil || !strings.HasPrefix(n, base+"-") {
			continue
		}
		v, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if v > max {
			max = v
		}
	}

	return fmt.Sprintf("%s-%03d", base, max+1), nil
}

// provisionRemote creates the remote store if absent and seeds the
// directory markers the static site expects.
func (s *AllocatorService) provisionRemote(ctx context.Context, name string) error {
	ref := blobstore.StoreRef{Owner: s.owner, Name: name, Token: s.token}

	exists, err := s.blobs.StoreExists(ctx, ref)
	if err != nil {
		return err
	}
	if !exists {
		if err := s.blobs.CreateStore(ctx, ref, "image store"); err != nil &&
			!errors.Is(err, blobstore.ErrAlreadyExists) {
			return err
		}
	}

	for _, path := range []string{"public/.gitkeep", "public/images/.gitkeep"} {
		_, err := s.blobs.Put(ctx, ref, path, []byte{}, "init store layout", "")
		if err != nil && !errors.Is(err, blobstore.ErrAlreadyExists) {
			return &common.RemoteError{Store: name, Path: path, Err: err}
		}
	}
	return nil
}

// propagate pushes the updated store list downstream. Failures are logged
// and swallowed: the gateway stays usable either way.
func (s *AllocatorService) propagate(ctx context.Context) {
	if s.propagator == nil {
		return
	}
	all, err := s.repomanager.Stores().List(ctx)
	if err != nil {
		s.logger.Warn(ctx, "store list propagation skipped", "error", err)
		return
	}
	names := make([]string, 0, len(all))
	for _, st := range all {
		names = append(names, st.Name)
	}
	if err := s.propagator.PropagateStoreList(ctx, names); err != nil {
		s.logger.Warn(ctx, "store list propagation failed", "error", err)
	}
}
