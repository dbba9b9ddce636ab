package fleet

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/skyguard/fleet-backend/internal/errs"
	"github.com/skyguard/fleet-backend/internal/pilot"
)

// retryAfterSeconds is sent with 503 responses when the store is down.
const retryAfterSeconds = "3"

const maxBodyBytes = 64 << 10

// Handler serves the fleet API over a Service.
type Handler struct {
	svc *Service
	log *slog.Logger
}

func NewHandler(svc *Service, lg *slog.Logger) *Handler {
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{svc: svc, log: lg.With("component", "http")}
}

// ListDrones returns the fleet view.
func (h *Handler) ListDrones(w http.ResponseWriter, r *http.Request) {
	entries, err := h.svc.FleetView(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if age, ok := h.svc.ViewAge(); ok {
		w.Header().Set("X-Data-Age", strconv.Itoa(int(age.Seconds())))
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, entries)
}

// AddDrone records a position report.
func (h *Handler) AddDrone(w http.ResponseWriter, r *http.Request) {
	var in DroneInput
	if err := decodeBody(w, r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	sample, err := h.svc.AddDrone(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, sample)
}

// RemoveDrone deletes a drone and its history.
func (h *Handler) RemoveDrone(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.RemoveDrone(r.Context(), chi.URLParam(r, "entity_id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DroneHistory returns one drone's samples, newest first. ?limit=N caps the
// result.
func (h *Handler) DroneHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			h.writeError(w, r, errs.Invalid("limit", "%q is not a non-negative integer", raw))
			return
		}
		limit = n
	}
	history, err := h.svc.DroneHistory(r.Context(), chi.URLParam(r, "entity_id"), limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, history)
}

func (h *Handler) ListPilots(w http.ResponseWriter, r *http.Request) {
	pilots, err := h.svc.PilotOptions(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, pilots)
}

type registerResponse struct {
	ID      uuid.UUID `json:"id"`
	Created bool      `json:"created"`
}

// RegisterPilot answers 201 for a new pilot and 200 when the email was
// already registered.
func (h *Handler) RegisterPilot(w http.ResponseWriter, r *http.Request) {
	var in pilot.Registration
	if err := decodeBody(w, r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	id, created, err := h.svc.RegisterPilot(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSONStatus(w, status, registerResponse{ID: id, Created: created})
}

func (h *Handler) GetPilot(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, errs.Invalid("id", "not a UUID"))
		return
	}
	p, err := h.svc.Pilot(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, p)
}

func (h *Handler) ListZones(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.svc.Zones())
}

// Refresh drops the cached views so the next read hits the stores.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	h.svc.Refresh()
	w.WriteHeader(http.StatusNoContent)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return &errs.ValidationError{Reason: fmt.Sprintf("malformed JSON body: %v", err)}
	}
	return nil
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errs.IsValidation(err):
		writeJSONStatus(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, errs.ErrNotFound):
		writeJSONStatus(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, errs.ErrStoreUnavailable):
		h.log.Warn("store unavailable", "method", r.Method, "path", r.URL.Path, "error", err)
		w.Header().Set("Retry-After", retryAfterSeconds)
		writeJSONStatus(w, http.StatusServiceUnavailable, errorResponse{Error: "store unavailable, retry shortly"})
	default:
		h.log.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeJSONStatus(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
