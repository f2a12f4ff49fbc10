package handlers

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"reportgen/internal/ingest"
	"reportgen/internal/logger"
	"reportgen/internal/models"
	"reportgen/internal/reports"
)

type ReportTypeHandler struct {
	log            *logger.Logger
	reports        *reports.Service
	maxUploadBytes int64
}

func NewReportTypeHandler(log *logger.Logger, svc *reports.Service, maxUploadBytes int64) *ReportTypeHandler {
	return &ReportTypeHandler{
		log:            log.With("handler", "ReportTypeHandler"),
		reports:        svc,
		maxUploadBytes: maxUploadBytes,
	}
}

type CreateReportTypeRequest struct {
	Name       string   `json:"name" binding:"required"`
	Mode       string   `json:"mode"`
	Fields     []string `json:"fields"`
	FieldTypes []string `json:"field_types"`
	Questions  []string `json:"questions"`
	Prompt     *string  `json:"prompt"`
}

type UpdateFieldsRequest struct {
	Fields []string `json:"fields"`
}

type UpdateQuestionsRequest struct {
	Questions []string `json:"questions"`
}

type UpdatePromptRequest struct {
	Prompt string `json:"prompt"`
}

// GET /report-types
func (h *ReportTypeHandler) List(c *gin.Context) {
	rts, err := h.reports.List(c.Request.Context())
	if err != nil {
		respondError(c, h.log, "Failed to list report types", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"report_types": rts})
}

// POST /report-types
func (h *ReportTypeHandler) Create(c *gin.Context) {
	var req CreateReportTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	rt, err := h.reports.Create(c.Request.Context(), reports.CreateParams{
		Name:       req.Name,
		Mode:       models.Mode(req.Mode),
		Fields:     req.Fields,
		FieldTypes: req.FieldTypes,
		Questions:  req.Questions,
		Prompt:     req.Prompt,
	})
	if err != nil {
		respondError(c, h.log, "Failed to create report type", err)
		return
	}
	c.JSON(http.StatusCreated, rt)
}

// POST /report-types/import
// Multipart: name, file (.xlsx header row or .pdf lines become struct mode fields).
func (h *ReportTypeHandler) Import(c *gin.Context) {
	name := c.PostForm("name")
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "file is required", "details": err.Error()})
		return
	}
	data, err := readFormFile(fh, h.maxUploadBytes)
	if err != nil {
		respondError(c, h.log, "Failed to read upload", err)
		return
	}
	fields, err := ingest.FieldsFromFile(fh.Filename, data)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Failed to read fields from file", "details": err.Error()})
		return
	}

	rt, err := h.reports.Create(c.Request.Context(), reports.CreateParams{
		Name:      name,
		Mode:      models.ModeStruct,
		Fields:    fields,
		Questions: ingest.DefaultQuestions(fields),
	})
	if err != nil {
		respondError(c, h.log, "Failed to create report type", err)
		return
	}
	c.JSON(http.StatusCreated, rt)
}

// GET /report-types/:id
func (h *ReportTypeHandler) Get(c *gin.Context) {
	rt, ok := h.load(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	infos, err := h.reports.FieldInfos(ctx, rt)
	if err != nil {
		respondError(c, h.log, "Failed to load questions", err)
		return
	}
	recs, err := h.reports.Records(ctx, rt)
	if err != nil {
		respondError(c, h.log, "Failed to load records", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"report_type": rt,
		"fields_info": infos,
		"records":     recs,
		"prompt":      rt.Prompt,
	})
}

// DELETE /report-types/:id
func (h *ReportTypeHandler) Delete(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	if err := h.reports.Delete(c.Request.Context(), id); err != nil {
		respondError(c, h.log, "Failed to delete report type", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Report type deleted"})
}

// PUT /report-types/:id/fields
func (h *ReportTypeHandler) UpdateFields(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	var req UpdateFieldsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	rt, err := h.reports.UpdateFields(c.Request.Context(), id, req.Fields)
	if err != nil {
		respondError(c, h.log, "Failed to update fields", err)
		return
	}
	c.JSON(http.StatusOK, rt)
}

// PUT /report-types/:id/questions
func (h *ReportTypeHandler) UpdateQuestions(c *gin.Context) {
	rt, ok := h.load(c)
	if !ok {
		return
	}
	var req UpdateQuestionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	if err := h.reports.SetQuestions(c.Request.Context(), rt, req.Questions); err != nil {
		respondError(c, h.log, "Failed to update questions", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Questions updated"})
}

// PUT /report-types/:id/prompt
func (h *ReportTypeHandler) UpdatePrompt(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	var req UpdatePromptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	rt, err := h.reports.UpdatePrompt(c.Request.Context(), id, req.Prompt)
	if err != nil {
		respondError(c, h.log, "Failed to update prompt", err)
		return
	}
	c.JSON(http.StatusOK, rt)
}

// load resolves the :id path parameter to a report type, answering the
// request itself on failure.
func (h *ReportTypeHandler) load(c *gin.Context) (*models.ReportType, bool) {
	return loadReportType(c, h.log, h.reports)
}

func loadReportType(c *gin.Context, log *logger.Logger, svc *reports.Service) (*models.ReportType, bool) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return nil, false
	}
	rt, err := svc.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, log, "Failed to load report type", err)
		return nil, false
	}
	return rt, true
}

// readFormFile reads an uploaded file, refusing files over limit bytes.
func readFormFile(fh *multipart.FileHeader, limit int64) ([]byte, error) {
	if fh.Size > limit {
		return nil, fmt.Errorf("%w: %s is %d bytes, limit is %d", errFileTooLarge, fh.Filename, fh.Size, limit)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, limit))
}
