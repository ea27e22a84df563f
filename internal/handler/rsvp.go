package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/wedding-rsvp/internal/apperror"
	"github.com/sakif/wedding-rsvp/internal/model"
)

// maxRSVPBody caps the request body. A filled-in form is well under 4 KiB.
const maxRSVPBody = 64 << 10

// Submitter is what RSVPHandler needs from service.RSVPService.
type Submitter interface {
	Submit(ctx context.Context, rsvp model.RSVP) error
}

// RSVPHandler accepts guest RSVPs.
type RSVPHandler struct {
	rsvps  Submitter
	logger *slog.Logger
}

// NewRSVPHandler creates an RSVPHandler.
func NewRSVPHandler(rsvps Submitter, logger *slog.Logger) *RSVPHandler {
	return &RSVPHandler{rsvps: rsvps, logger: logger}
}

// HandleSubmit records one RSVP.
//
// HTTP: POST /api/rsvp
// Body: {"name": "...", "attending": true, "guests": "2", "diet": "...", "message": "..."}
// Returns: {"success": true}
func (h *RSVPHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRSVPBody)

	var req model.RSVP
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Request body must be valid JSON",
		})
		return
	}

	if err := h.rsvps.Submit(r.Context(), req); err != nil {
		h.logFailure(r, err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *RSVPHandler) logFailure(r *http.Request, err error) {
	attrs := []any{
		slog.String("requestId", middleware.GetReqID(r.Context())),
		slog.String("error", err.Error()),
	}
	if stage, ok := apperror.StageOf(err); ok {
		attrs = append(attrs, slog.String("stage", string(stage)))
	}

	switch {
	case errors.Is(err, apperror.ErrNotConfigured), errors.Is(err, apperror.ErrValidation):
		h.logger.Warn("rsvp rejected", attrs...)
	default:
		h.logger.Error("rsvp failed", attrs...)
	}
}
