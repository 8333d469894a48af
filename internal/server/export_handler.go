package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/xeipuuv/gojsonschema"

	"catalog-export/internal/common/errors"
	"catalog-export/internal/common/logger"
	"catalog-export/internal/export"
	"catalog-export/internal/export/jobs"
)

// requestSchema validates the export request body before it reaches the
// pipeline.
var requestSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"filter": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"contentStates": map[string]interface{}{
					"type":  "array",
					"items": map[string]interface{}{"type": "string"},
				},
				"assetTypes": map[string]interface{}{
					"type":  "array",
					"items": map[string]interface{}{"type": "string"},
				},
				"titleContains": map[string]interface{}{"type": "string"},
				"modifiedSince": map[string]interface{}{"type": "string"},
			},
			"additionalProperties": false,
		},
		"columns": map[string]interface{}{
			"type":  "array",
			"items": map[string]interface{}{"type": "string", "minLength": 1},
		},
	},
	"additionalProperties": false,
}

type exportHandler struct {
	exporter *export.Exporter
	jobStore *jobs.Store
	log      logger.Logger
}

func newExportHandler(exporter *export.Exporter, jobStore *jobs.Store, log logger.Logger) *exportHandler {
	return &exportHandler{
		exporter: exporter,
		jobStore: jobStore,
		log:      log.WithFields(map[string]interface{}{"component": "export-handler"}),
	}
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Create runs an export synchronously and returns the artifact as an
// attachment. A job record is kept in Redis when a store is configured.
func (h *exportHandler) Create(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.writeError(w, errors.NewInvalidExportRequestError("unreadable request body"))
		return
	}

	if err := h.validateRequest(body); err != nil {
		h.writeError(w, err)
		return
	}

	// An empty body is a valid full-export request; leave req zero-valued.
	var req export.Request
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			h.writeError(w, errors.NewInvalidExportRequestError(fmt.Sprintf("malformed JSON: %v", err)))
			return
		}
	}

	job := &jobs.Job{
		ID:        uuid.NewString(),
		Status:    jobs.StatusRunning,
		Selective: len(req.Columns) > 0,
		CreatedAt: time.Now().UTC(),
	}
	h.putJob(r.Context(), job)

	result, err := h.exporter.Run(r.Context(), req)
	if err != nil {
		h.log.WithError(err).Error("export failed", map[string]interface{}{"jobId": job.ID})
		job.Status = jobs.StatusFailed
		job.ErrorMsg = err.Error()
		// The request context may already be dead (timeout, client gone);
		// the terminal status still has to land.
		writeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		h.putJob(writeCtx, job)
		cancel()
		h.writeError(w, err)
		return
	}

	job.Status = jobs.StatusCompleted
	job.Artifact = result.Filename
	job.Rows = result.Rows
	job.Files = result.Files
	h.putJob(r.Context(), job)

	w.Header().Set("Content-Type", result.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	w.Header().Set("X-Export-Job-Id", job.ID)
	w.WriteHeader(http.StatusOK)
	w.Write(result.Data)
}

// Status returns the job record for a previous export.
func (h *exportHandler) Status(w http.ResponseWriter, r *http.Request) {
	if h.jobStore == nil {
		http.Error(w, "job tracking is not configured", http.StatusNotFound)
		return
	}

	jobID := chi.URLParam(r, "jobID")
	job, err := h.jobStore.Get(r.Context(), jobID)
	if err != nil {
		if stderrors.Is(err, jobs.ErrNotFound) {
			http.Error(w, "job not found", http.StatusNotFound)
			return
		}
		h.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(job)
}

func (h *exportHandler) validateRequest(body []byte) error {
	if len(body) == 0 {
		// An empty body is a full export with no filter.
		return nil
	}

	schemaLoader := gojsonschema.NewGoLoader(requestSchema)
	documentLoader := gojsonschema.NewBytesLoader(body)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return errors.NewInvalidExportRequestError(fmt.Sprintf("validation error: %v", err))
	}
	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return errors.NewInvalidExportRequestError(fmt.Sprintf("%v", errs))
	}
	return nil
}

func (h *exportHandler) putJob(ctx context.Context, job *jobs.Job) {
	if h.jobStore == nil {
		return
	}
	if err := h.jobStore.Put(ctx, job); err != nil {
		// Job tracking is best-effort; the export itself is unaffected.
		h.log.WithError(err).Warn("job record write failed", map[string]interface{}{"jobId": job.ID})
	}
}

func (h *exportHandler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	resp := errorResponse{Code: "INTERNAL_ERROR", Message: err.Error()}

	var ee *errors.ExportError
	if stderrors.As(err, &ee) {
		resp = errorResponse{Code: string(ee.Code), Message: ee.Message, Details: ee.Details}
		switch ee.Code {
		case errors.ErrCodeInvalidExportRequest:
			status = http.StatusBadRequest
		case errors.ErrCodeCatalogTimeout:
			status = http.StatusGatewayTimeout
		case errors.ErrCodeCatalogCountFailed, errors.ErrCodeCatalogPageFailed:
			status = http.StatusBadGateway
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}
