package services

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/imghost/internal/common"
	"github.com/dmitrijs2005/imghost/internal/server/sessions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSessionService(t *testing.T) *SessionService {
	t.Helper()
	return NewSessionService(sessions.NewMemoryStore(), testLogger(t), 10*time.Minute)
}

func validCreateRequest() *CreateSessionRequest {
	return &CreateSessionRequest{
		FileName:    "cat.png",
		FileSize:    6,
		TotalChunks: 3,
		MimeType:    "image/png",
	}
}

func TestSessionService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("ok", func(t *testing.T) {
		svc := newSessionService(t)
		sess, err := svc.Create(ctx, validCreateRequest())
		require.NoError(t, err)

		assert.NotEmpty(t, sess.ID)
		assert.Equal(t, "cat.png", sess.FileName)
		assert.Equal(t, 3, sess.TotalChunks)
	})

	t.Run("infers extension from mime type", func(t *testing.T) {
		svc := newSessionService(t)
		req := validCreateRequest()
		req.FileName = "screenshot"
		req.MimeType = "image/jpeg"

		sess, err := svc.Create(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, "screenshot.jpg", sess.FileName)
	})

	t.Run("keeps existing extension", func(t *testing.T) {
		svc := newSessionService(t)
		req := validCreateRequest()
		req.FileName = "photo.jpeg"
		req.MimeType = "image/jpeg"

		sess, err := svc.Create(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, "photo.jpeg", sess.FileName)
	})

	t.Run("rejects non image mime", func(t *testing.T) {
		svc := newSessionService(t)
		req := validCreateRequest()
		req.MimeType = "application/pdf"

		_, err := svc.Create(ctx, req)
		assert.ErrorIs(t, err, common.ErrorValidation)
	})

	t.Run("rejects zero chunks", func(t *testing.T) {
		svc := newSessionService(t)
		req := validCreateRequest()
		req.TotalChunks = 0

		_, err := svc.Create(ctx, req)
		assert.ErrorIs(t, err, common.ErrorValidation)
	})
}

func TestSessionService_IngestChunk(t *testing.T) {
	ctx := context.Background()
	svc := newSessionService(t)

	sess, err := svc.Create(ctx, validCreateRequest())
	require.NoError(t, err)

	p, err := svc.IngestChunk(ctx, sess.ID, 0, []byte("ab"))
	require.NoError(t, err)
	assert.Equal(t, 1, p.Uploaded)
	assert.Equal(t, 3, p.Expected)
	assert.InDelta(t, 1.0/3.0, p.Progress, 1e-9)

	_, err = svc.IngestChunk(ctx, sess.ID, 3, []byte("xx"))
	assert.ErrorIs(t, err, common.ErrorValidation)

	_, err = svc.IngestChunk(ctx, sess.ID, -1, []byte("xx"))
	assert.ErrorIs(t, err, common.ErrorValidation)

	_, err = svc.IngestChunk(ctx, sess.ID, 1, nil)
	assert.ErrorIs(t, err, common.ErrorValidation)

	_, err = svc.IngestChunk(ctx, "unknown", 0, []byte("ab"))
	assert.ErrorIs(t, err, common.ErrorSessionNotFound)
}

func TestSessionService_Assemble(t *testing.T) {
	ctx := context.Background()

	t.Run("concatenates in index order", func(t *testing.T) {
		svc := newSessionService(t)
		sess, err := svc.Create(ctx, validCreateRequest())
		require.NoError(t, err)

		// Out of order on purpose.
		_, err = svc.IngestChunk(ctx, sess.ID, 2, []byte("ef"))
		require.NoError(t, err)
		_, err = svc.IngestChunk(ctx, sess.ID, 0, []byte("ab"))
		require.NoError(t, err)
		_, err = svc.IngestChunk(ctx, sess.ID, 1, []byte("cd"))
		require.NoError(t, err)

		got, content, err := svc.Assemble(ctx, sess.ID)
		require.NoError(t, err)
		assert.Equal(t, sess.ID, got.ID)
		assert.Equal(t, []byte("abcdef"), content)
	})

	t.Run("incomplete keeps the session alive", func(t *testing.T) {
		svc := newSessionService(t)
		sess, err := svc.Create(ctx, validCreateRequest())
		require.NoError(t, err)

		_, err = svc.IngestChunk(ctx, sess.ID, 0, []byte("ab"))
		require.NoError(t, err)

		_, _, err = svc.Assemble(ctx, sess.ID)
		var incomplete *common.IncompleteError
		require.ErrorAs(t, err, &incomplete)
		assert.Equal(t, 1, incomplete.Uploaded)
		assert.Equal(t, 3, incomplete.Expected)

		// The client can resume.
		p, err := svc.IngestChunk(ctx, sess.ID, 1, []byte("cd"))
		require.NoError(t, err)
		assert.Equal(t, 2, p.Uploaded)
	})

	t.Run("unknown session", func(t *testing.T) {
		svc := newSessionService(t)
		_, _, err := svc.Assemble(ctx, "nope")
		assert.ErrorIs(t, err, common.ErrorSessionNotFound)
	})
}

func TestSessionService_Discard(t *testing.T) {
	ctx := context.Background()
	svc := newSessionService(t)

	sess, err := svc.Create(ctx, validCreateRequest())
	require.NoError(t, err)

	require.NoError(t, svc.Discard(ctx, sess.ID))

	_, err = svc.IngestChunk(ctx, sess.ID, 0, []byte("ab"))
	assert.ErrorIs(t, err, common.ErrorSessionNotFound)
}
