// This file implements SessionService: lifecycle of chunked upload
// sessions, from creation through per-chunk ingest to assembly.
package services

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/dmitrijs2005/imghost/internal/common"
	"github.com/dmitrijs2005/imghost/internal/logging"
	"github.com/dmitrijs2005/imghost/internal/server/sessions"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// CreateSessionRequest describes the upload a client is about to chunk.
type CreateSessionRequest struct {
	FileName    string `json:"file_name" validate:"required,max=255"`
	FileSize    int64  `json:"file_size" validate:"required,gt=0"`
	TotalChunks int    `json:"total_chunks" validate:"required,gt=0,lte=10000"`
	MimeType    string `json:"mime_type" validate:"required"`
	Folder      string `json:"folder" validate:"omitempty,max=255"`
}

// ChunkProgress reports ingest state after one chunk.
type ChunkProgress struct {
	Uploaded int     `json:"uploaded"`
	Expected int     `json:"expected"`
	Progress float64 `json:"progress"`
}

// SessionService manages chunked upload sessions. Expired sessions are
// swept opportunistically on every call, so a store without native expiry
// still converges.
type SessionService struct {
	store    sessions.Store
	logger   logging.Logger
	validate *validator.Validate
	ttl      time.Duration
}

func NewSessionService(store sessions.Store, logger logging.Logger, ttl time.Duration) *SessionService {
	return &SessionService{
		store:    store,
		logger:   logger,
		validate: validator.New(),
		ttl:      ttl,
	}
}

// Create validates the request and opens a new session.
func (s *SessionService) Create(ctx context.Context, req *CreateSessionRequest) (*sessions.Session, error) {
	s.sweep(ctx)

	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorValidation, err)
	}
	if !strings.HasPrefix(req.MimeType, "image/") {
		return nil, fmt.Errorf("%w: only image uploads are accepted", common.ErrorValidation)
	}

	sess := &sessions.Session{
		ID:          uuid.NewString(),
		FileName:    withExtension(req.FileName, req.MimeType),
		FileSize:    req.FileSize,
		TotalChunks: req.TotalChunks,
		MimeType:    req.MimeType,
		Folder:      req.Folder,
		CreatedAt:   time.Now(),
	}
	if err := s.store.Create(ctx, sess, s.ttl); err != nil {
		return nil, err
	}

	s.logger.Debug(ctx, "upload session created",
		"session", sess.ID, "file", sess.FileName, "chunks", sess.TotalChunks)
	return sess, nil
}

// mimeExtensions maps the accepted image types to their usual extension.
var mimeExtensions = map[string]string{
	"image/jpeg":    ".jpg",
	"image/png":     ".png",
	"image/gif":     ".gif",
	"image/webp":    ".webp",
	"image/svg+xml": ".svg",
	"image/avif":    ".avif",
	"image/bmp":     ".bmp",
}

// withExtension appends an extension inferred from the MIME type when the
// file name carries none.
func withExtension(name, mimeType string) string {
	if path.Ext(name) != "" {
		return name
	}
	if ext, ok := mimeExtensions[mimeType]; ok {
		return name + ext
	}
	return name
}

// IngestChunk stores one chunk and extends the session lease.
func (s *SessionService) IngestChunk(ctx context.Context, id string, index int, data []byte) (*ChunkProgress, error) {
	s.sweep(ctx)

	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= sess.TotalChunks {
		return nil, fmt.Errorf("%w: chunk index %d out of range [0,%d)",
			common.ErrorValidation, index, sess.TotalChunks)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty chunk", common.ErrorValidation)
	}

	if err := s.store.PutChunk(ctx, id, index, data); err != nil {
		return nil, err
	}
	if err := s.store.Touch(ctx, id, s.ttl); err != nil {
		return nil, err
	}

	n, err := s.store.ChunkCount(ctx, id)
	if err != nil {
		return nil, err
	}
	return &ChunkProgress{
		Uploaded: n,
		Expected: sess.TotalChunks,
		Progress: float64(n) / float64(sess.TotalChunks),
	}, nil
}

// Assemble concatenates all chunks in index order. When any chunk is
// missing an IncompleteError comes back and the session survives, so the
// client can resume instead of restarting.
func (s *SessionService) Assemble(ctx context.Context, id string) (*sessions.Session, []byte, error) {
	s.sweep(ctx)

	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	chunks, err := s.store.Chunks(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if len(chunks) < sess.TotalChunks {
		return nil, nil, &common.IncompleteError{Uploaded: len(chunks), Expected: sess.TotalChunks}
	}

	indexes := make([]int, 0, len(chunks))
	for i := range chunks {
		indexes = append(indexes, i)
	}
	sort.Ints(indexes)

	var buf []byte
	for want, got := range indexes {
		if got != want {
			return nil, nil, &common.IncompleteError{Uploaded: len(chunks), Expected: sess.TotalChunks}
		}
		buf = append(buf, chunks[got]...)
	}
	return sess, buf, nil
}

// Discard drops the session and its chunks.
func (s *SessionService) Discard(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}

// SweepExpired removes expired sessions and reports how many went.
func (s *SessionService) SweepExpired(ctx context.Context) (int, error) {
	return s.store.Sweep(ctx)
}

func (s *SessionService) sweep(ctx context.Context) {
	if n, err := s.store.Sweep(ctx); err != nil {
		s.logger.Warn(ctx, "session sweep failed", "error", err)
	} else if n > 0 {
		s.logger.Debug(ctx, "expired sessions swept", "count", n)
	}
}
