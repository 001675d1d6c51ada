// This file implements UploadService, the write-path orchestrator: pick a
// store, resolve the target path, commit the blob, record metadata, and
// trigger a rebuild.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/imghost/internal/common"
	"github.com/dmitrijs2005/imghost/internal/logging"
	"github.com/dmitrijs2005/imghost/internal/server/blobstore"
	"github.com/dmitrijs2005/imghost/internal/server/models"
	"github.com/dmitrijs2005/imghost/internal/server/repositories/repomanager"
)

// UploadRequest is one complete file to commit.
type UploadRequest struct {
	FileName   string
	Content    []byte
	MimeType   string
	Folder     string
	SkipDeploy bool
}

// UploadResult is what the client gets back after a committed upload.
type UploadResult struct {
	Image     *models.Image   `json:"image"`
	StoreName string          `json:"store"`
	Links     *Links          `json:"links"`
	Deployed  bool            `json:"deployed"`
	Deploys   []TriggerResult `json:"deploys,omitempty"`
}

// UploadService commits complete files, whether they arrive in one request
// or assembled from a chunked session.
type UploadService struct {
	repomanager repomanager.RepositoryManager
	blobs       blobstore.Client
	allocator   *AllocatorService
	folders     *FolderService
	deploys     *DeployService
	sessions    *SessionService
	logger      logging.Logger
	siteURL     string
	location    *time.Location
}

func NewUploadService(m repomanager.RepositoryManager, blobs blobstore.Client,
	allocator *AllocatorService, folders *FolderService, deploys *DeployService,
	sessionSvc *SessionService, logger logging.Logger, siteURL, timeZone string) (*UploadService, error) {

	loc, err := time.LoadLocation(timeZone)
	if err != nil {
		return nil, fmt.Errorf("bad time zone %q: %w", timeZone, err)
	}

	return &UploadService{
		repomanager: m,
		blobs:       blobs,
		allocator:   allocator,
		folders:     folders,
		deploys:     deploys,
		sessions:    sessionSvc,
		logger:      logger,
		siteURL:     siteURL,
		location:    loc,
	}, nil
}

// Upload commits one complete file. The filename must be unique within
// the target store; a duplicate surfaces as common.ErrorConflict before
// anything is written remotely.
func (s *UploadService) Upload(ctx context.Context, req *UploadRequest) (*UploadResult, error) {
	if req.FileName == "" || len(req.Content) == 0 {
		return nil, fmt.Errorf("%w: file name and content are required", common.ErrorValidation)
	}
	if !strings.HasPrefix(req.MimeType, "image/") {
		return nil, fmt.Errorf("%w: only image uploads are accepted", common.ErrorValidation)
	}

	alloc, err := s.allocator.Allocate(ctx, int64(len(req.Content)))
	if err != nil {
		return nil, err
	}
	store := alloc.Store

	exists, err := s.repomanager.Images().Exists(ctx, store.ID, req.FileName)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: %s", common.ErrorConflict, req.FileName)
	}

	remotePath, err := s.remotePath(ctx, store, req)
	if err != nil {
		return nil, err
	}

	ref := blobstore.StoreRef{Owner: store.Owner, Name: store.Name, Token: store.Token}
	put, err := s.blobs.Put(ctx, ref, remotePath, req.Content, "upload "+req.FileName, "")
	if err != nil {
		if errors.Is(err, blobstore.ErrAlreadyExists) {
			return nil, fmt.Errorf("%w: %s", common.ErrorConflict, req.FileName)
		}
		return nil, &common.RemoteError{Store: store.Name, Path: remotePath, Err: err}
	}

	image, err := s.repomanager.Images().Insert(ctx, &models.Image{
		StoreID:    store.ID,
		Filename:   req.FileName,
		Size:       int64(len(req.Content)),
		MimeType:   req.MimeType,
		RemotePath: remotePath,
		SHA:        put.SHA,
	})
	if err != nil {
		return nil, err
	}

	if err := s.repomanager.Stores().AddUpload(ctx, store.ID, image.Size); err != nil {
		return nil, err
	}

	result := &UploadResult{
		Image:     image,
		StoreName: store.Name,
		Links:     BuildLinks(s.siteURL, remotePath, req.FileName),
	}

	if !req.SkipDeploy {
		ok, deploys, err := s.deploys.Trigger(ctx)
		if err != nil {
			return nil, err
		}
		result.Deployed = ok
		result.Deploys = deploys
	}

	s.logger.Info(ctx, "upload committed",
		"file", req.FileName, "store", store.Name, "path", remotePath, "size", image.Size)
	return result, nil
}

// CompleteSession assembles a chunked session and commits it as a normal
// upload. The session is discarded only after the commit succeeds, so a
// failed commit leaves the chunks resumable.
func (s *UploadService) CompleteSession(ctx context.Context, sessionID string, skipDeploy bool) (*UploadResult, error) {
	sess, content, err := s.sessions.Assemble(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	result, err := s.Upload(ctx, &UploadRequest{
		FileName:   sess.FileName,
		Content:    content,
		MimeType:   sess.MimeType,
		Folder:     sess.Folder,
		SkipDeploy: skipDeploy,
	})
	if err != nil {
		return nil, err
	}

	if err := s.sessions.Discard(ctx, sessionID); err != nil {
		s.logger.Warn(ctx, "session discard failed", "session", sessionID, "error", err)
	}
	return result, nil
}

// Delete removes the remote blob and the metadata row, then lowers the
// store's counters and triggers a rebuild.
func (s *UploadService) Delete(ctx context.Context, imageID int64) error {
	image, err := s.repomanager.Images().GetByID(ctx, imageID)
	if err != nil {
		return err
	}
	store, err := s.repomanager.Stores().GetByID(ctx, image.StoreID)
	if err != nil {
		return err
	}

	ref := blobstore.StoreRef{Owner: store.Owner, Name: store.Name, Token: store.Token}
	if err := s.blobs.Delete(ctx, ref, image.RemotePath, image.SHA, "delete "+image.Filename); err != nil &&
		!errors.Is(err, blobstore.ErrNotFound) {
		return &common.RemoteError{Store: store.Name, Path: image.RemotePath, Err: err}
	}

	if _, err := s.repomanager.Images().Delete(ctx, imageID); err != nil {
		return err
	}
	if err := s.repomanager.Stores().SubtractDelete(ctx, store.ID, image.Size); err != nil {
		return err
	}

	if _, _, err := s.deploys.Trigger(ctx); err != nil {
		s.logger.Warn(ctx, "deploy after delete failed", "error", err)
	}

	s.logger.Info(ctx, "image deleted", "file", image.Filename, "store", store.Name)
	return nil
}

// remotePath picks where the blob lands: inside a named folder when one is
// requested, otherwise under the date-based images tree.
func (s *UploadService) remotePath(ctx context.Context, store *models.Store, req *UploadRequest) (string, error) {
	if req.Folder != "" {
		folder, err := s.folders.Resolve(ctx, store, req.Folder)
		if err != nil {
			return "", err
		}
		return folder.Path + "/" + req.FileName, nil
	}

	now := time.Now().In(s.location)
	return fmt.Sprintf("public/images/%04d/%02d/%02d/%s",
		now.Year(), int(now.Month()), now.Day(), req.FileName), nil
}
