package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Shivanand-hulikatti/techfest-registration/internal/model"
	"github.com/Shivanand-hulikatti/techfest-registration/internal/registration"
	"github.com/Shivanand-hulikatti/techfest-registration/internal/repository"
	"github.com/Shivanand-hulikatti/techfest-registration/internal/service"
	"github.com/Shivanand-hulikatti/techfest-registration/internal/submit"
)

// CollectorHandler receives and lists registrations.
type CollectorHandler struct {
	svc        *service.CollectorService
	maxReceipt int64
}

// NewCollectorHandler constructs a CollectorHandler accepting receipts of
// up to maxReceipt bytes.
func NewCollectorHandler(svc *service.CollectorService, maxReceipt int64) *CollectorHandler {
	if maxReceipt <= 0 {
		maxReceipt = DefaultMaxReceiptBytes
	}
	return &CollectorHandler{svc: svc, maxReceipt: maxReceipt}
}

// Routes registers the collector endpoints on r.
func (h *CollectorHandler) Routes(r chi.Router) {
	r.Post(submit.Path, h.Submit)
	r.Get("/registrations", h.ListRegistrations)
	r.Get("/events", h.ListEvents)
}

// Submit handles POST /submit
// The body is the multipart form sent by the registration site.
func (h *CollectorHandler) Submit(w http.ResponseWriter, r *http.Request) {
	f, err := readReceipt(w, r, h.maxReceipt)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	reg, err := h.svc.Submit(r.Context(), service.Submission{
		Name:          r.FormValue(string(registration.FieldName)),
		RollNumber:    r.FormValue(string(registration.FieldRollNumber)),
		Program:       r.FormValue(string(registration.FieldProgram)),
		Semester:      r.FormValue(string(registration.FieldSemester)),
		MobileNumber:  r.FormValue(string(registration.FieldMobileNumber)),
		College:       r.FormValue(string(registration.FieldCollege)),
		Email:         r.FormValue(string(registration.FieldEmail)),
		EventType:     r.FormValue(string(registration.FieldEventType)),
		TeamType:      r.FormValue("teamType"),
		TeamName:      r.FormValue(string(registration.FieldTeamName)),
		UPIID:         r.FormValue(string(registration.FieldUPIID)),
		TransactionID: r.FormValue(string(registration.FieldTransactionID)),
		TeamMembers:   r.FormValue(string(registration.FieldTeamMembers)),
		Receipt:       f,
	})
	if err != nil {
		var fieldErrs registration.FieldErrors
		switch {
		case errors.As(err, &fieldErrs):
			writeFieldErrors(w, http.StatusBadRequest, fieldErrs)
		case errors.Is(err, repository.ErrDuplicateTransaction):
			writeError(w, http.StatusConflict, "transaction id already registered")
		case errors.Is(err, repository.ErrNotFound):
			writeError(w, http.StatusNotFound, "event not found")
		default:
			slog.Error("collect registration", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to store registration")
		}
		return
	}

	writeJSON(w, http.StatusCreated, reg)
}

// ListRegistrations handles GET /registrations?event=
func (h *CollectorHandler) ListRegistrations(w http.ResponseWriter, r *http.Request) {
	event := r.URL.Query().Get("event")
	if event == "" {
		writeError(w, http.StatusBadRequest, "event query parameter is required")
		return
	}

	regs, err := h.svc.ListRegistrations(r.Context(), event)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "event not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to list registrations")
		return
	}

	if regs == nil {
		regs = []model.Registration{}
	}
	writeJSON(w, http.StatusOK, regs)
}

// ListEvents handles GET /events
// Returns every event with its registration count.
func (h *CollectorHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.ListEvents(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list events")
		return
	}

	if stats == nil {
		stats = []repository.EventStat{}
	}
	writeJSON(w, http.StatusOK, stats)
}
