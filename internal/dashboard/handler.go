package dashboard

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/WailSalutem-Health-Care/patient-dashboard/internal/form"
	"github.com/WailSalutem-Health-Care/patient-dashboard/internal/patient"
	"github.com/WailSalutem-Health-Care/patient-dashboard/internal/taxonomy"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Page states.
const (
	StateLoading = "loading"
	StateError   = "error"
	StateReady   = "ready"
)

// Page is the data behind one render of the dashboard. Form and Confirm
// are shown as modals over the list.
type Page struct {
	State   string
	Error   string
	Stats   Stats
	Rows    []Row
	Form    *form.View
	Confirm *Row
	Alert   string
}

// Service is what the dashboard needs to change records.
type Service interface {
	form.Mutator
	DeletePatient(ctx context.Context, id string) error
}

// Handler serves the dashboard pages and the read-only JSON endpoints.
type Handler struct {
	reader  patient.Reader
	service Service
	now     func() time.Time
	logger  zerolog.Logger
}

func NewHandler(reader patient.Reader, service Service, now func() time.Time, logger zerolog.Logger) *Handler {
	if now == nil {
		now = time.Now
	}
	return &Handler{
		reader:  reader,
		service: service,
		now:     now,
		logger:  logger.With().Str("component", "dashboard").Logger(),
	}
}

// RegisterRoutes mounts the pages on r and the JSON endpoints on api.
func (h *Handler) RegisterRoutes(r *mux.Router, api *mux.Router) {
	static, _ := fs.Sub(staticFS, "static")
	r.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(http.FS(static))))

	r.HandleFunc("/", h.Dashboard).Methods(http.MethodGet)
	r.HandleFunc("/patients/new", h.NewPatientForm).Methods(http.MethodGet)
	r.HandleFunc("/patients", h.SubmitForm).Methods(http.MethodPost)
	r.HandleFunc("/patients/{id}/edit", h.EditPatientForm).Methods(http.MethodGet)
	r.HandleFunc("/patients/{id}", h.SubmitForm).Methods(http.MethodPost)
	r.HandleFunc("/patients/{id}/delete", h.ConfirmDelete).Methods(http.MethodGet)
	r.HandleFunc("/patients/{id}/delete", h.DeletePatient).Methods(http.MethodPost)

	api.HandleFunc("/stats", h.GetStats).Methods(http.MethodGet)
	api.HandleFunc("/taxonomy", h.GetTaxonomy).Methods(http.MethodGet)
	api.HandleFunc("/taxonomy/{category}/conditions", h.GetConditions).Methods(http.MethodGet)
}

func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, h.page())
}

func (h *Handler) NewPatientForm(w http.ResponseWriter, r *http.Request) {
	p := h.page()
	v := form.NewController(nil).View(nil)
	p.Form = &v
	h.render(w, http.StatusOK, p)
}

func (h *Handler) EditPatientForm(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.lookup(w, r)
	if !ok {
		return
	}

	p := h.page()
	v := form.NewController(&existing).View(nil)
	p.Form = &v
	h.render(w, http.StatusOK, p)
}

// SubmitForm handles both the create and the update form. A post with
// action=refresh re-renders the form after a select changed.
func (h *Handler) SubmitForm(w http.ResponseWriter, r *http.Request) {
	var editing *patient.Patient
	if _, hasID := mux.Vars(r)["id"]; hasID {
		existing, ok := h.lookup(w, r)
		if !ok {
			return
		}
		editing = &existing
	}

	if err := r.ParseForm(); err != nil {
		h.renderAlert(w, http.StatusBadRequest, "Invalid form submission")
		return
	}

	c, err := form.FromValues(r.PostForm, editing)
	if err != nil {
		h.logger.Warn().Err(err).Msg("rejected form post")
		h.renderAlert(w, http.StatusBadRequest, "Invalid form submission")
		return
	}

	if r.PostForm.Get("action") == "refresh" {
		h.renderForm(w, http.StatusOK, c, nil, "")
		return
	}

	id, err := c.Submit(r.Context(), h.service)
	if err != nil {
		var ferrs form.Errors
		if errors.As(err, &ferrs) {
			h.renderForm(w, http.StatusBadRequest, c, ferrs, "")
			return
		}
		h.renderForm(w, statusFor(err), c, nil, alertFor(err))
		return
	}

	h.logger.Info().Str("patient_id", id).Bool("update", editing != nil).Msg("patient saved")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) ConfirmDelete(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.lookup(w, r)
	if !ok {
		return
	}

	p := h.page()
	row := NewRow(existing)
	p.Confirm = &row
	h.render(w, http.StatusOK, p)
}

func (h *Handler) DeletePatient(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := h.service.DeletePatient(r.Context(), id); err != nil {
		h.renderAlert(w, statusFor(err), alertFor(err))
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	s := h.reader.State()
	switch {
	case s.Err != nil:
		respondError(w, http.StatusServiceUnavailable, "fetch_failed", FetchFailedMessage)
		return
	case s.Loading:
		respondError(w, http.StatusServiceUnavailable, "loading", "Patients are still loading")
		return
	}

	respondJSON(w, http.StatusOK, ComputeStats(s.Patients, h.now()))
}

func (h *Handler) GetTaxonomy(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"categories": taxonomy.Entries(),
		"wards":      taxonomy.Wards(),
	})
}

func (h *Handler) GetConditions(w http.ResponseWriter, r *http.Request) {
	category := mux.Vars(r)["category"]

	conditions, err := taxonomy.Conditions(category)
	if err != nil {
		respondError(w, http.StatusNotFound, "not_found", "Unknown condition category")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"category":   category,
		"conditions": conditions,
	})
}

// page builds the list part of the dashboard from the current mirror.
func (h *Handler) page() Page {
	s := h.reader.State()
	switch {
	case s.Err != nil:
		return Page{State: StateError, Error: FetchFailedMessage}
	case s.Loading:
		return Page{State: StateLoading}
	}
	return Page{
		State: StateReady,
		Stats: ComputeStats(s.Patients, h.now()),
		Rows:  NewRows(s.Patients),
	}
}

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (patient.Patient, bool) {
	p, ok := h.reader.Get(mux.Vars(r)["id"])
	if !ok {
		h.renderAlert(w, http.StatusNotFound, "Patient not found")
	}
	return p, ok
}

func (h *Handler) renderForm(w http.ResponseWriter, status int, c *form.Controller, errs form.Errors, alert string) {
	p := h.page()
	v := c.View(errs)
	p.Form = &v
	p.Alert = alert
	h.render(w, status, p)
}

func (h *Handler) renderAlert(w http.ResponseWriter, status int, alert string) {
	p := h.page()
	p.Alert = alert
	h.render(w, status, p)
}

func (h *Handler) render(w http.ResponseWriter, status int, p Page) {
	var buf bytes.Buffer
	if err := pageTemplate.ExecuteTemplate(&buf, "page", p); err != nil {
		h.logger.Error().Err(err).Msg("failed to render dashboard")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

// alertFor returns the message shown to the user for a failed mutation.
// Store causes stay in the logs.
func alertFor(err error) string {
	var opErr *patient.OperationError
	if errors.As(err, &opErr) {
		return "Failed to " + opErr.Op + " patient"
	}
	var verrs patient.ValidationErrors
	if errors.As(err, &verrs) {
		return "Invalid patient"
	}
	return "Something went wrong"
}

func statusFor(err error) int {
	var verrs patient.ValidationErrors
	switch {
	case errors.As(err, &verrs), errors.Is(err, patient.ErrMissingID):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func respondJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, statusCode int, errorType, message string) {
	respondJSON(w, statusCode, map[string]interface{}{
		"error":   errorType,
		"message": message,
	})
}
