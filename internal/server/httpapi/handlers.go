package httpapi

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/imghost/internal/common"
	"github.com/dmitrijs2005/imghost/internal/server/models"
	"github.com/dmitrijs2005/imghost/internal/server/services"
	"github.com/gin-gonic/gin"
)

// maxUploadBytes bounds one request body; a single store caps at 1 GiB so
// a single file beyond 100 MiB should arrive chunked anyway.
const maxUploadBytes = 100 * 1024 * 1024

// writeError maps the service error taxonomy to HTTP statuses.
func (s *Server) writeError(c *gin.Context, err error) {
	var incomplete *common.IncompleteError
	if errors.As(err, &incomplete) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":    incomplete.Error(),
			"uploaded": incomplete.Uploaded,
			"expected": incomplete.Expected,
		})
		return
	}

	switch {
	case errors.Is(err, common.ErrorValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, common.ErrorSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, common.ErrorNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, common.ErrorConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		s.logger.Error(c.Request.Context(), "request failed",
			"method", c.Request.Method, "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// requireGuestUploads rejects writes while the guest-uploads toggle is off.
func (s *Server) requireGuestUploads() gin.HandlerFunc {
	return func(c *gin.Context) {
		enabled, err := s.settings.GuestUploadsEnabled(c.Request.Context())
		if err != nil {
			s.writeError(c, err)
			c.Abort()
			return
		}
		if !enabled {
			c.JSON(http.StatusForbidden, gin.H{"error": "uploads are disabled"})
			c.Abort()
		}
	}
}

func readFormFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (s *Server) handleUpload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)

	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file field"})
		return
	}
	content, err := readFormFile(fh)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	mimeType := fh.Header.Get("Content-Type")
	if v := c.PostForm("mime_type"); v != "" {
		mimeType = v
	}

	result, err := s.uploads.Upload(c.Request.Context(), &services.UploadRequest{
		FileName:   fh.Filename,
		Content:    content,
		MimeType:   mimeType,
		Folder:     c.PostForm("folder"),
		SkipDeploy: c.PostForm("skip_deploy") == "true",
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (s *Server) handleDeleteImage(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad image id"})
		return
	}
	if err := s.uploads.Delete(c.Request.Context(), id); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleCreateSession(c *gin.Context) {
	var req services.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sess, err := s.sessions.Create(c.Request.Context(), &req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sess)
}

func (s *Server) handleIngestChunk(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad chunk index"})
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	progress, err := s.sessions.IngestChunk(c.Request.Context(), c.Param("id"), index, data)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, progress)
}

func (s *Server) handleCompleteSession(c *gin.Context) {
	result, err := s.uploads.CompleteSession(c.Request.Context(), c.Param("id"),
		c.Query("skip_deploy") == "true")
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (s *Server) handleCancelSession(c *gin.Context) {
	if err := s.sessions.Discard(c.Request.Context(), c.Param("id")); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleCreateFolder(c *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	alloc, err := s.allocator.Allocate(c.Request.Context(), 0)
	if err != nil {
		s.writeError(c, err)
		return
	}

	folder, err := s.folders.Resolve(c.Request.Context(), alloc.Store, req.Name)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"id":    folder.ID,
		"name":  folder.Name,
		"path":  folder.Path,
		"store": alloc.Store.Name,
	})
}

type storeView struct {
	ID           int64              `json:"id"`
	Name         string             `json:"name"`
	Owner        string             `json:"owner"`
	Status       models.StoreStatus `json:"status"`
	SizeEstimate int64              `json:"size_estimate"`
	FileCount    int64              `json:"file_count"`
	Priority     int                `json:"priority"`
	IsDefault    bool               `json:"is_default"`
}

func (s *Server) handleListStores(c *gin.Context) {
	all, err := s.repos.Stores().List(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	views := make([]storeView, 0, len(all))
	for _, st := range all {
		views = append(views, storeView{
			ID:           st.ID,
			Name:         st.Name,
			Owner:        st.Owner,
			Status:       st.Status,
			SizeEstimate: st.SizeEstimate,
			FileCount:    st.FileCount,
			Priority:     st.Priority,
			IsDefault:    st.IsDefault,
		})
	}
	c.JSON(http.StatusOK, gin.H{"stores": views})
}

func (s *Server) handleReconcileAll(c *gin.Context) {
	results, err := s.reconcile.ReconcileAll(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

func (s *Server) handleReconcileOne(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad store id"})
		return
	}
	result, err := s.reconcile.Reconcile(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleDeploy(c *gin.Context) {
	ok, results, err := s.deploys.Trigger(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": ok, "results": results})
}

type settingsView struct {
	SizeThreshold       int64  `json:"size_threshold"`
	NameTemplate        string `json:"name_template"`
	GuestUploadsEnabled bool   `json:"guest_uploads_enabled"`
}

func (s *Server) handleGetSettings(c *gin.Context) {
	ctx := c.Request.Context()

	threshold, err := s.settings.SizeThreshold(ctx)
	if err != nil {
		s.writeError(c, err)
		return
	}
	template, err := s.settings.NameTemplate(ctx)
	if err != nil {
		s.writeError(c, err)
		return
	}
	guests, err := s.settings.GuestUploadsEnabled(ctx)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, settingsView{
		SizeThreshold:       threshold,
		NameTemplate:        template,
		GuestUploadsEnabled: guests,
	})
}

func (s *Server) handlePutSettings(c *gin.Context) {
	var req struct {
		SizeThreshold       *int64  `json:"size_threshold"`
		NameTemplate        *string `json:"name_template"`
		GuestUploadsEnabled *bool   `json:"guest_uploads_enabled"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	if req.SizeThreshold != nil {
		if err := s.settings.SetSizeThreshold(ctx, *req.SizeThreshold); err != nil {
			s.writeError(c, err)
			return
		}
	}
	if req.NameTemplate != nil {
		if err := s.settings.SetNameTemplate(ctx, *req.NameTemplate); err != nil {
			s.writeError(c, err)
			return
		}
	}
	if req.GuestUploadsEnabled != nil {
		if err := s.settings.SetGuestUploadsEnabled(ctx, *req.GuestUploadsEnabled); err != nil {
			s.writeError(c, err)
			return
		}
	}
	s.handleGetSettings(c)
}
