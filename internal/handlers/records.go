package handlers

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"reportgen/internal/ingest"
	"reportgen/internal/logger"
	"reportgen/internal/reports"
)

type RecordHandler struct {
	log            *logger.Logger
	reports        *reports.Service
	maxUploadBytes int64
}

func NewRecordHandler(log *logger.Logger, svc *reports.Service, maxUploadBytes int64) *RecordHandler {
	return &RecordHandler{
		log:            log.With("handler", "RecordHandler"),
		reports:        svc,
		maxUploadBytes: maxUploadBytes,
	}
}

type DeleteRecordsRequest struct {
	IDs []int64 `json:"ids" binding:"required"`
}

// GET /report-types/:id/records
func (h *RecordHandler) List(c *gin.Context) {
	rt, ok := loadReportType(c, h.log, h.reports)
	if !ok {
		return
	}
	recs, err := h.reports.Records(c.Request.Context(), rt)
	if err != nil {
		respondError(c, h.log, "Failed to list records", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": recs})
}

// POST /report-types/:id/records
// Body: flat object of field name to value.
func (h *RecordHandler) Create(c *gin.Context) {
	rt, ok := loadReportType(c, h.log, h.reports)
	if !ok {
		return
	}
	var values map[string]string
	if err := c.ShouldBindJSON(&values); err != nil {
		bindError(c, err)
		return
	}
	id, err := h.reports.InsertRecord(c.Request.Context(), rt, values)
	if err != nil {
		respondError(c, h.log, "Failed to insert record", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

// POST /report-types/:id/upload
// Multipart: file (.xlsx). Every data row becomes a record.
func (h *RecordHandler) Upload(c *gin.Context) {
	rt, ok := loadReportType(c, h.log, h.reports)
	if !ok {
		return
	}
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
	sheet, err := ingest.ReadSheet(bytes.NewReader(data))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Failed to read spreadsheet", "details": err.Error()})
		return
	}
	ids, err := h.reports.InsertRecords(c.Request.Context(), rt, sheet.Records(rt.Fields))
	if err != nil {
		respondError(c, h.log, "Failed to insert records", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"inserted": len(ids), "ids": ids})
}

// POST /report-types/:id/records/delete
func (h *RecordHandler) DeleteBatch(c *gin.Context) {
	rt, ok := loadReportType(c, h.log, h.reports)
	if !ok {
		return
	}
	var req DeleteRecordsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	n, err := h.reports.DeleteRecords(c.Request.Context(), rt, req.IDs)
	if err != nil {
		respondError(c, h.log, "Failed to delete records", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": n})
}

// PUT /report-types/:id/records/:rec_id
func (h *RecordHandler) Update(c *gin.Context) {
	rt, ok := loadReportType(c, h.log, h.reports)
	if !ok {
		return
	}
	recID, ok := parseInt64Param(c, "rec_id")
	if !ok {
		return
	}
	var values map[string]string
	if err := c.ShouldBindJSON(&values); err != nil {
		bindError(c, err)
		return
	}
	if err := h.reports.UpdateRecord(c.Request.Context(), rt, recID, values); err != nil {
		respondError(c, h.log, "Failed to update record", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Record updated"})
}

// DELETE /report-types/:id/records/:rec_id
func (h *RecordHandler) Delete(c *gin.Context) {
	rt, ok := loadReportType(c, h.log, h.reports)
	if !ok {
		return
	}
	recID, ok := parseInt64Param(c, "rec_id")
	if !ok {
		return
	}
	n, err := h.reports.DeleteRecords(c.Request.Context(), rt, []int64{recID})
	if err != nil {
		respondError(c, h.log, "Failed to delete record", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": n})
}

// GET /report-types/:id/records/:rec_id/excel
func (h *RecordHandler) Export(c *gin.Context) {
	rt, ok := loadReportType(c, h.log, h.reports)
	if !ok {
		return
	}
	recID, ok := parseInt64Param(c, "rec_id")
	if !ok {
		return
	}
	rec, err := h.reports.Record(c.Request.Context(), rt, recID)
	if err != nil {
		respondError(c, h.log, "Failed to load record", err)
		return
	}
	buf, err := ingest.ExportRecord(rt.Fields, rec.Values)
	if err != nil {
		respondError(c, h.log, "Failed to build spreadsheet", err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=record_%d.xlsx", recID))
	c.Data(http.StatusOK, ingest.XLSXContentType, buf.Bytes())
}
