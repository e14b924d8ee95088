package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/YINDEEINDY/KodLaewLong-sub000/pkg/download"
	"github.com/YINDEEINDY/KodLaewLong-sub000/pkg/generate"
	"github.com/YINDEEINDY/KodLaewLong-sub000/pkg/httputil"
	"github.com/YINDEEINDY/KodLaewLong-sub000/pkg/observability"
)

// Error codes that only exist at the HTTP layer
const (
	CodeBadBuildID      = "BAD_BUILD_ID"
	CodeBuildNotFound   = "BUILD_NOT_FOUND"
	CodeArchiveError    = "ARCHIVE_ERROR"
	CodePayloadTooLarge = "PAYLOAD_TOO_LARGE"
)

// GenerateRequest is the body of POST /api/generate
type GenerateRequest struct {
	AppIDs []string `json:"appIds"`
}

// generate handles POST /api/generate
func (s *Server) generate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := httputil.ParseJSON(r, &req); err != nil {
		if errors.Is(err, httputil.ErrBodyTooLarge) {
			httputil.WriteErrorCode(w, http.StatusRequestEntityTooLarge, CodePayloadTooLarge, "request body too large")
			return
		}
		httputil.WriteErrorCode(w, http.StatusBadRequest, string(generate.KindInvalidFormat), err.Error())
		return
	}

	result, err := s.generator.Generate(r.Context(), req.AppIDs)
	if err != nil {
		s.writeGenerateError(w, r, err)
		return
	}

	_ = httputil.WriteSuccess(w, result)
}

func (s *Server) writeGenerateError(w http.ResponseWriter, r *http.Request, err error) {
	var gerr *generate.Error
	if !errors.As(err, &gerr) {
		s.logger.WithError(err).WithField("request_id", observability.GetRequestID(r.Context())).Error("Generate failed")
		httputil.WriteInternalError(w)
		return
	}

	if gerr.IsClientError() {
		httputil.WriteErrorResponse(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error:   gerr.Message,
			Code:    string(gerr.Kind),
			Missing: gerr.Missing,
		})
		return
	}

	s.logger.WithError(err).WithFields(logrus.Fields{
		"kind":       string(gerr.Kind),
		"request_id": observability.GetRequestID(r.Context()),
	}).Error("Generate failed")

	status := http.StatusInternalServerError
	if gerr.Kind == generate.KindCatalog {
		status = http.StatusServiceUnavailable
	}
	httputil.WriteErrorCode(w, status, string(gerr.Kind), gerr.Message)
}

// download handles GET /api/downloads/{buildId}
func (s *Server) download(w http.ResponseWriter, r *http.Request) {
	buildID, err := httputil.ParsePathString(r, "buildId")
	if err != nil {
		s.metrics.RecordDownload("bad_request", 0)
		httputil.WriteErrorCode(w, http.StatusBadRequest, CodeBadBuildID, "invalid build id")
		return
	}

	artifact, err := s.artifacts.Open(buildID)
	switch {
	case errors.Is(err, download.ErrBadBuildID):
		s.metrics.RecordDownload("bad_request", 0)
		httputil.WriteErrorCode(w, http.StatusBadRequest, CodeBadBuildID, "invalid build id")
		return
	case errors.Is(err, download.ErrBuildNotFound):
		s.metrics.RecordDownload("not_found", 0)
		httputil.WriteErrorCode(w, http.StatusNotFound, CodeBuildNotFound, "build not found")
		return
	case err != nil:
		s.metrics.RecordDownload("error", 0)
		s.logger.WithError(err).WithField("build_id", buildID).Error("Failed to open build")
		httputil.WriteErrorCode(w, http.StatusInternalServerError, CodeArchiveError, "failed to prepare download")
		return
	}

	h := w.Header()
	h.Set("Content-Type", artifact.ContentType)
	h.Set("Content-Disposition", `attachment; filename="`+artifact.FileName+`"`)
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("Cache-Control", "no-store")
	if artifact.Size > 0 {
		h.Set("Content-Length", strconv.FormatInt(artifact.Size, 10))
	}
	if r.Method == http.MethodHead {
		w.WriteHeader(http.StatusOK)
		return
	}

	written, err := artifact.WriteTo(w)
	if err != nil {
		s.metrics.RecordDownload("error", written)
		s.logger.WithError(err).WithFields(logrus.Fields{
			"build_id":      buildID,
			"artifact_kind": string(artifact.Kind),
			"bytes":         written,
		}).Error("Failed to stream build")

		if written == 0 {
			h.Del("Content-Disposition")
			h.Del("Content-Length")
			httputil.WriteErrorCode(w, http.StatusInternalServerError, CodeArchiveError, "failed to stream build")
			return
		}
		// The status line is gone; drop the connection so the client sees a
		// truncated transfer instead of a valid looking file.
		panic(http.ErrAbortHandler)
	}

	s.metrics.RecordDownload(string(artifact.Kind), written)
	s.logger.WithFields(logrus.Fields{
		"build_id":      buildID,
		"artifact_kind": string(artifact.Kind),
		"bytes":         written,
	}).Info("Download served")
}
