// This file implements FolderService: resolution of a folder name to a
// committed folder row, creating the remote marker and the row on first use.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/imghost/internal/common"
	"github.com/dmitrijs2005/imghost/internal/logging"
	"github.com/dmitrijs2005/imghost/internal/server/blobstore"
	"github.com/dmitrijs2005/imghost/internal/server/models"
	"github.com/dmitrijs2005/imghost/internal/server/repositories/repomanager"
)

// folderMarkerTimeout bounds the remote marker write so a hung backing
// store cannot stall the whole upload.
const folderMarkerTimeout = 10 * time.Second

// FolderService resolves folder names to folder rows inside one store.
type FolderService struct {
	repomanager repomanager.RepositoryManager
	blobs       blobstore.Client
	logger      logging.Logger
}

func NewFolderService(m repomanager.RepositoryManager, blobs blobstore.Client, logger logging.Logger) *FolderService {
	return &FolderService{repomanager: m, blobs: blobs, logger: logger}
}

// Resolve returns the folder row for name in the given store, creating it
// on first use. Creation is idempotent under races: the uniqueness
// constraint on (path, store) arbitrates, and whoever loses re-reads the
// winner's row. A still-absent row after that is common.ErrorFolderResolution.
func (s *FolderService) Resolve(ctx context.Context, store *models.Store, name string) (*models.Folder, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: folder name must not be empty", common.ErrorValidation)
	}

	path := models.FolderPath(name)
	repo := s.repomanager.Folders()

	folder, err := repo.GetByPath(ctx, store.ID, path)
	if err == nil {
		return folder, nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return nil, err
	}

	if err := s.putMarker(ctx, store, path); err != nil {
		return nil, err
	}

	if err := repo.InsertIfAbsent(ctx, &models.Folder{
		Name:    name,
		Path:    path,
		StoreID: store.ID,
	}); err != nil {
		return nil, err
	}

	folder, err = repo.GetByPath(ctx, store.ID, path)
	if errors.Is(err, common.ErrorNotFound) {
		return nil, common.ErrorFolderResolution
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "folder created", "folder", name, "store", store.Name)
	return folder, nil
}

// ListByStore returns every folder of the store.
func (s *FolderService) ListByStore(ctx context.Context, storeID int64) ([]*models.Folder, error) {
	return s.repomanager.Folders().ListByStore(ctx, storeID)
}

// putMarker writes the README marker that makes the folder visible in the
// backing store. A concurrent creator having won the write is success.
func (s *FolderService) putMarker(ctx context.Context, store *models.Store, path string) error {
	ctx, cancel := context.WithTimeout(ctx, folderMarkerTimeout)
	defer cancel()

	ref := blobstore.StoreRef{Owner: store.Owner, Name: store.Name, Token: store.Token}
	markerPath := path + "/README.md"
	content := []byte("Images uploaded to this folder are listed here.\n")

	_, err := s.blobs.Put(ctx, ref, markerPath, content, "create folder "+path, "")
	if err != nil && !errors.Is(err, blobstore.ErrAlreadyExists) {
		return &common.RemoteError{Store: store.Name, Path: markerPath, Err: err}
	}
	return nil
}
