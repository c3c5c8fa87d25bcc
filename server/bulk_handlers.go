package server

import (
	"net/http"
	"strconv"

	"github.com/team-monumental/monuments-and-memorials-sub000/errors"
	"github.com/team-monumental/monuments-and-memorials-sub000/ixgest/bulk"
	"github.com/team-monumental/monuments-and-memorials-sub000/logger"
)

// createResponse is returned by the create endpoint
type createResponse struct {
	JobID  int64        `json:"job_id"`
	Report *bulk.Report `json:"report"`
}

// HandleBulkValidate handles POST /api/monuments/bulk/validate.
// The report lists every row with its errors and warnings; nothing is saved.
func (s *Server) HandleBulkValidate(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	report, ok := s.validateRequest(w, r)
	if !ok {
		return
	}

	s.logger.Infow("Bulk upload validated",
		logger.FieldTotalCount, report.Len(),
		"valid", len(report.Valid()),
		"invalid", len(report.Invalid()))
	writeJSON(w, http.StatusOK, report)
}

// HandleBulkCreate handles POST /api/monuments/bulk/create.
// Valid rows are submitted for ingestion and the job id is returned at once;
// invalid rows are reported and skipped.
func (s *Server) HandleBulkCreate(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	report, ok := s.validateRequest(w, r)
	if !ok {
		return
	}

	id, err := s.pipeline.Submit(report)
	if err != nil {
		s.logger.Errorw("Failed to submit ingestion job", logger.FieldError, err)
		writeErrorFrom(w, err)
		return
	}

	s.logger.Infow("Bulk ingestion submitted",
		logger.FieldJobID, id,
		logger.FieldCount, len(report.Valid()),
		"skipped", len(report.Invalid()))
	writeJSON(w, http.StatusAccepted, createResponse{JobID: id, Report: report})
}

func (s *Server) validateRequest(w http.ResponseWriter, r *http.Request) (*bulk.Report, bool) {
	up, err := s.parseUpload(w, r)
	if err != nil {
		s.logger.Debugw("Rejected bulk upload", logger.FieldError, err)
		writeErrorFrom(w, err)
		return nil, false
	}

	report, err := s.pipeline.Validate(up)
	if err != nil {
		s.logger.Debugw("Unusable bulk upload", logger.FieldError, err)
		writeErrorFrom(w, err)
		return nil, false
	}
	return report, true
}

// HandleBulkJobs handles GET /api/monuments/bulk/jobs
func (s *Server) HandleBulkJobs(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"jobs": s.pipeline.Registry().List(),
	})
}

// HandleBulkJob handles GET /api/monuments/bulk/jobs/{id}
func (s *Server) HandleBulkJob(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	pathParts := extractPathParts(r.URL.Path, "/api/monuments/bulk/jobs/")
	if len(pathParts) != 1 || pathParts[0] == "" {
		writeError(w, http.StatusBadRequest, "Missing job ID")
		return
	}
	id, err := parseJobID(pathParts[0])
	if err != nil {
		writeErrorFrom(w, err)
		return
	}

	snap, err := s.pipeline.Poll(id)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func parseJobID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.NewInvalidRequestError("invalid job id %q", raw)
	}
	return id, nil
}
