package handlers

import (
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"reportgen/internal/logger"
	"reportgen/internal/models"
	"reportgen/internal/reports"
	"reportgen/internal/storage"
)

// APIHandler serves the name-addressed endpoints used by external clients
// such as chat bots and form front ends.
type APIHandler struct {
	log            *logger.Logger
	reports        *reports.Service
	extractor      reports.Extractor
	blobs          storage.BlobStore
	maxUploadBytes int64
}

func NewAPIHandler(log *logger.Logger, svc *reports.Service, extractor reports.Extractor, blobs storage.BlobStore, maxUploadBytes int64) *APIHandler {
	return &APIHandler{
		log:            log.With("handler", "APIHandler"),
		reports:        svc,
		extractor:      extractor,
		blobs:          blobs,
		maxUploadBytes: maxUploadBytes,
	}
}

type ReportRequest struct {
	ReportName string `json:"report_name" binding:"required"`
}

type ParseRequest struct {
	ReportName string `json:"report_name" binding:"required"`
	Text       string `json:"text" binding:"required"`
}

// GET /api/report-types
func (h *APIHandler) ReportNames(c *gin.Context) {
	rts, err := h.reports.List(c.Request.Context())
	if err != nil {
		respondError(c, h.log, "Failed to list report types", err)
		return
	}
	names := make([]string, 0, len(rts))
	for _, rt := range rts {
		names = append(names, rt.Name)
	}
	c.JSON(http.StatusOK, gin.H{"reports": names})
}

// POST /api/report/fields
func (h *APIHandler) Fields(c *gin.Context) {
	rt, ok := h.byName(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"fields": rt.Fields})
}

// POST /api/report/questions
func (h *APIHandler) Questions(c *gin.Context) {
	rt, ok := h.byName(c)
	if !ok {
		return
	}
	if rt.Mode == models.ModeSmart {
		c.JSON(http.StatusOK, gin.H{"mode": rt.Mode, "prompt": rt.Prompt, "fields": rt.Fields})
		return
	}
	infos, err := h.reports.FieldInfos(c.Request.Context(), rt)
	if err != nil {
		respondError(c, h.log, "Failed to load questions", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"mode": rt.Mode, "questions": infos})
}

// POST /api/report/parse
func (h *APIHandler) Parse(c *gin.Context) {
	var req ParseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	rt, err := h.reports.GetByName(c.Request.Context(), req.ReportName)
	if err != nil {
		respondError(c, h.log, "Failed to load report type", err)
		return
	}
	res, err := h.reports.ParseAndInsert(c.Request.Context(), rt, h.extractor, req.Text)
	if err != nil {
		respondError(c, h.log, "Failed to parse text", err)
		return
	}
	if !res.Inserted {
		c.JSON(http.StatusOK, gin.H{"status": "empty", "data": res.Data})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "id": res.ID, "data": res.Data})
}

// POST /api/report/record
// Multipart: report_name, one value per text field and one file part per
// image or video field. Struct mode only.
func (h *APIHandler) CreateRecord(c *gin.Context) {
	name := c.PostForm("report_name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "report_name required"})
		return
	}
	ctx := c.Request.Context()
	rt, err := h.reports.GetByName(ctx, name)
	if err != nil {
		respondError(c, h.log, "Failed to load report type", err)
		return
	}
	if rt.Mode != models.ModeStruct {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid mode", "details": reports.ErrWrongMode.Error()})
		return
	}
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid multipart form", "details": err.Error()})
		return
	}

	// Check every size before storing anything.
	for i, f := range rt.Fields {
		if !rt.TypeOf(i).IsBlob() {
			continue
		}
		for _, fh := range form.File[f] {
			if fh.Size > h.maxUploadBytes {
				c.JSON(http.StatusRequestEntityTooLarge, gin.H{"message": "file too large", "details": f})
				return
			}
		}
	}

	data := make(map[string]string, len(rt.Fields))
	uploads := make(map[string]*multipart.FileHeader)
	for i, f := range rt.Fields {
		if !rt.TypeOf(i).IsBlob() {
			if vs, ok := form.Value[f]; ok && len(vs) > 0 {
				data[f] = vs[0]
			}
			continue
		}
		if files := form.File[f]; len(files) > 0 && files[0].Filename != "" {
			uploads[f] = files[0]
		}
	}

	keys, err := h.storeAll(ctx, uploads)
	if err != nil {
		respondError(c, h.log, "Failed to store upload", err)
		return
	}
	stored := make([]string, 0, len(keys))
	for f, k := range keys {
		data[f] = k
		stored = append(stored, k)
	}

	id, err := h.reports.InsertRecord(ctx, rt, data)
	if err != nil {
		h.discard(stored)
		respondError(c, h.log, "Failed to insert record", err)
		return
	}
	h.log.Info("Record submitted", "report_type", rt.Name, "record_id", id, "uploads", len(stored))
	c.JSON(http.StatusOK, gin.H{"status": "ok", "id": id})
}

func (h *APIHandler) byName(c *gin.Context) (*models.ReportType, bool) {
	var req ReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return nil, false
	}
	rt, err := h.reports.GetByName(c.Request.Context(), req.ReportName)
	if err != nil {
		respondError(c, h.log, "Failed to load report type", err)
		return nil, false
	}
	return rt, true
}

// storeAll saves every upload concurrently and returns the keys by field.
// On failure the uploads already stored are removed.
func (h *APIHandler) storeAll(ctx context.Context, uploads map[string]*multipart.FileHeader) (map[string]string, error) {
	var (
		mu   sync.Mutex
		keys = make(map[string]string, len(uploads))
	)
	g, gctx := errgroup.WithContext(ctx)
	for field, fh := range uploads {
		field, fh := field, fh
		g.Go(func() error {
			key, err := h.store(gctx, fh)
			if err != nil {
				return fmt.Errorf("field %s: %w", field, err)
			}
			mu.Lock()
			keys[field] = key
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		stored := make([]string, 0, len(keys))
		for _, k := range keys {
			stored = append(stored, k)
		}
		h.discard(stored)
		return nil, err
	}
	return keys, nil
}

func (h *APIHandler) store(ctx context.Context, fh *multipart.FileHeader) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()
	return h.blobs.Put(ctx, fh.Filename, f)
}

// discard removes uploads of a submission that was not stored.
func (h *APIHandler) discard(keys []string) {
	for _, k := range keys {
		if err := h.blobs.Delete(context.Background(), k); err != nil {
			h.log.Warn("Failed to remove orphaned upload", "object", k, "error", err)
		}
	}
}
