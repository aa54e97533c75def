package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"

	"github.com/Shivanand-hulikatti/techfest-registration/internal/catalog"
	"github.com/Shivanand-hulikatti/techfest-registration/internal/countdown"
	"github.com/Shivanand-hulikatti/techfest-registration/internal/model"
	"github.com/Shivanand-hulikatti/techfest-registration/internal/receipt"
	"github.com/Shivanand-hulikatti/techfest-registration/internal/registration"
	"github.com/Shivanand-hulikatti/techfest-registration/internal/service"
)

// DefaultMaxReceiptBytes caps receipt uploads on the site.
const DefaultMaxReceiptBytes = 10 << 20

// SiteHandler serves the catalog and the registration form API.
type SiteHandler struct {
	sessions      *service.SessionService
	festivalStart time.Time
	deadline      time.Time
	maxReceipt    int64
	now           func() time.Time
}

// NewSiteHandler constructs a SiteHandler. A zero deadline keeps
// registration open.
func NewSiteHandler(sessions *service.SessionService, festivalStart, deadline time.Time) *SiteHandler {
	return &SiteHandler{
		sessions:      sessions,
		festivalStart: festivalStart,
		deadline:      deadline,
		maxReceipt:    DefaultMaxReceiptBytes,
		now:           time.Now,
	}
}

// Routes registers the site API on r.
func (h *SiteHandler) Routes(r chi.Router) {
	r.Get("/events", h.ListEvents)
	r.Get("/events/filters", h.ListFilters)
	r.Get("/countdown", h.Countdown)

	r.Route("/registrations", func(r chi.Router) {
		r.Post("/", h.OpenSession)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetSession)
			r.Delete("/", h.CloseSession)
			r.Post("/events/{event}/toggle", h.Toggle)
			r.Post("/select", h.Select)
			r.Post("/team-size", h.ConfirmTeamSize)
			r.Delete("/team-size", h.CancelTeamSize)
			r.Post("/note", h.ConfirmNote)
			r.Delete("/note", h.CancelNote)
			r.Patch("/fields", h.SetFields)
			r.Post("/members", h.AddMember)
			r.Put("/members/{index}", h.UpdateMember)
			r.Delete("/members/{index}", h.RemoveMember)
			r.Put("/receipt", h.AttachReceipt)
			r.Delete("/receipt", h.RemoveReceipt)
			r.Get("/receipt/preview", h.ReceiptPreview)
			r.Post("/submit", h.Submit)
		})
	})
}

// ─── Catalog ──────────────────────────────────────────────────────────────────

// ListEvents handles GET /api/events?category=&mode=
// mode narrows the list to individual or team events.
func (h *SiteHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	cat := h.sessions.Catalog()
	defs := cat.Filter(q.Get("category"))
	if mode := q.Get("mode"); mode != "" {
		inMode := cat.ByMode(catalog.Mode(mode))
		defs = slices.DeleteFunc(defs, func(d catalog.Definition) bool {
			return !slices.ContainsFunc(inMode, func(m catalog.Definition) bool { return m.ID == d.ID })
		})
	}
	if defs == nil {
		defs = []catalog.Definition{}
	}
	writeJSON(w, http.StatusOK, defs)
}

// ListFilters handles GET /api/events/filters
func (h *SiteHandler) ListFilters(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, catalog.Filters())
}

// Countdown handles GET /api/countdown
func (h *SiteHandler) Countdown(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	left := countdown.Until(now, h.festivalStart)
	writeJSON(w, http.StatusOK, model.CountdownResponse{
		Start:            h.festivalStart,
		Days:             left.Days,
		Hours:            left.Hours,
		Minutes:          left.Minutes,
		Seconds:          left.Seconds,
		Over:             left.Over,
		RegistrationOpen: countdown.Open(now, h.deadline),
	})
}

// ─── Sessions ─────────────────────────────────────────────────────────────────

// OpenSession handles POST /api/registrations
func (h *SiteHandler) OpenSession(w http.ResponseWriter, r *http.Request) {
	sess := h.sessions.Open()
	writeJSON(w, http.StatusCreated, sess.View())
}

// GetSession handles GET /api/registrations/{id}
func (h *SiteHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.View())
}

// CloseSession handles DELETE /api/registrations/{id}
func (h *SiteHandler) CloseSession(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Close(chi.URLParam(r, "id")); err != nil {
		writeError(w, http.StatusNotFound, "registration session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// session resolves the {id} URL parameter, writing a 404 when it is unknown.
func (h *SiteHandler) session(w http.ResponseWriter, r *http.Request) (*service.Session, bool) {
	sess, err := h.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "registration session not found")
		return nil, false
	}
	return sess, true
}

// respond writes the session view, or maps err to a status. Validation
// failures still carry the view so the form can show its field errors.
func respond(w http.ResponseWriter, sess *service.Session, err error) {
	if err == nil {
		writeJSON(w, http.StatusOK, sess.View())
		return
	}
	status := statusFor(err)
	if status == http.StatusUnprocessableEntity {
		writeJSON(w, status, sess.View())
		return
	}
	writeError(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, registration.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, registration.ErrUnknownEvent):
		return http.StatusNotFound
	case errors.Is(err, registration.ErrUnknownField),
		errors.Is(err, registration.ErrTeamSizeOutOfRange),
		errors.Is(err, registration.ErrMemberIndex):
		return http.StatusBadRequest
	case errors.Is(err, registration.ErrNoPrompt),
		errors.Is(err, registration.ErrTeamSizeLocked),
		errors.Is(err, registration.ErrTeamSizePending),
		errors.Is(err, registration.ErrTeamFull),
		errors.Is(err, registration.ErrNotTeam),
		errors.Is(err, registration.ErrSubmitInFlight):
		return http.StatusConflict
	case errors.Is(err, registration.ErrRegistrationClosed):
		return http.StatusForbidden
	case errors.Is(err, registration.ErrClosed):
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}

// ─── Event selection ──────────────────────────────────────────────────────────

// Toggle handles POST /api/registrations/{id}/events/{event}/toggle
// The event is named as in the catalog; slugs such as "tech-show" match.
func (h *SiteHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	name, err := url.PathUnescape(chi.URLParam(r, "event"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid event name")
		return
	}
	id, found := h.sessions.Catalog().Match(name)
	if !found {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}
	respond(w, sess, sess.Controller.Toggle(id))
}

// Select handles POST /api/registrations/{id}/select
// It is the entry point used by the catalog's register buttons.
func (h *SiteHandler) Select(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req model.SelectRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	respond(w, sess, sess.Controller.SelectByName(req.Event))
}

// ConfirmTeamSize handles POST /api/registrations/{id}/team-size
func (h *SiteHandler) ConfirmTeamSize(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req model.TeamSizeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	respond(w, sess, sess.Controller.ConfirmTeamSize(req.Size))
}

// CancelTeamSize handles DELETE /api/registrations/{id}/team-size
func (h *SiteHandler) CancelTeamSize(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	respond(w, sess, sess.Controller.CancelTeamSize())
}

// ConfirmNote handles POST /api/registrations/{id}/note
func (h *SiteHandler) ConfirmNote(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	respond(w, sess, sess.Controller.ConfirmNote())
}

// CancelNote handles DELETE /api/registrations/{id}/note
func (h *SiteHandler) CancelNote(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	respond(w, sess, sess.Controller.CancelNote())
}

// ─── Form fields and team members ─────────────────────────────────────────────

// SetFields handles PATCH /api/registrations/{id}/fields
// The body maps field names to raw values. Fields are applied in name order
// and the first unknown field stops the update.
func (h *SiteHandler) SetFields(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var fields map[string]string
	if err := decodeJSON(r, &fields); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	for _, name := range slices.Sorted(maps.Keys(fields)) {
		if err := sess.Controller.SetField(registration.Field(name), fields[name]); err != nil {
			respond(w, sess, err)
			return
		}
	}
	respond(w, sess, nil)
}

// AddMember handles POST /api/registrations/{id}/members
func (h *SiteHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	respond(w, sess, sess.Controller.AddMember())
}

// UpdateMember handles PUT /api/registrations/{id}/members/{index}
func (h *SiteHandler) UpdateMember(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	i, err := memberIndex(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var m model.TeamMember
	if err := decodeJSON(r, &m); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	respond(w, sess, sess.Controller.UpdateMember(i, m))
}

// RemoveMember handles DELETE /api/registrations/{id}/members/{index}
func (h *SiteHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	i, err := memberIndex(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	respond(w, sess, sess.Controller.RemoveMember(i))
}

func memberIndex(r *http.Request) (int, error) {
	i, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		return 0, fmt.Errorf("invalid member index %q", chi.URLParam(r, "index"))
	}
	return i, nil
}

// ─── Receipt ──────────────────────────────────────────────────────────────────

// AttachReceipt handles PUT /api/registrations/{id}/receipt
// The receipt is the multipart file part "paymentReceipt".
func (h *SiteHandler) AttachReceipt(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	f, err := readReceipt(w, r, h.maxReceipt)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if f == nil {
		writeError(w, http.StatusBadRequest, "paymentReceipt file is required")
		return
	}
	if err := sess.Controller.AttachReceipt(*f); err != nil {
		if errors.Is(err, registration.ErrClosed) {
			respond(w, sess, err)
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	respond(w, sess, nil)
}

// RemoveReceipt handles DELETE /api/registrations/{id}/receipt
func (h *SiteHandler) RemoveReceipt(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	sess.Controller.RemoveReceipt()
	respond(w, sess, nil)
}

// ReceiptPreview handles GET /api/registrations/{id}/receipt/preview
func (h *SiteHandler) ReceiptPreview(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	data, found := sess.Controller.Preview()
	if !found {
		writeError(w, http.StatusNotFound, "no receipt preview")
		return
	}
	w.Header().Set("Content-Type", mimetype.Detect(data).String())
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// readReceipt reads the "paymentReceipt" part of a multipart request. It
// returns nil when the part is absent.
func readReceipt(w http.ResponseWriter, r *http.Request, limit int64) (*receipt.File, error) {
	r.Body = http.MaxBytesReader(w, r.Body, limit+(1<<20))
	if err := r.ParseMultipartForm(limit); err != nil {
		return nil, fmt.Errorf("parse multipart form: %w", err)
	}
	file, hdr, err := r.FormFile(string(registration.FieldPaymentReceipt))
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, fmt.Errorf("read receipt: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read receipt: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("receipt exceeds %d bytes", limit)
	}
	f := receipt.NewFile(hdr.Filename, hdr.Header.Get("Content-Type"), data)
	return &f, nil
}

// ─── Submission ───────────────────────────────────────────────────────────────

// Submit handles POST /api/registrations/{id}/submit
// A failed delivery keeps the draft and answers 502 with the view, whose
// notices say whether the backend rejected it or could not be reached.
// The backend call outlives the browser request; only the submit client's
// timeout bounds it.
func (h *SiteHandler) Submit(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	err := sess.Controller.Submit(context.WithoutCancel(r.Context()))
	if err != nil && statusFor(err) == http.StatusInternalServerError {
		writeJSON(w, http.StatusBadGateway, sess.View())
		return
	}
	respond(w, sess, err)
}
