package patient

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/WailSalutem-Health-Care/patient-dashboard/internal/docstore"
)

// Handler serves the JSON patient API.
type Handler struct {
	service ServiceInterface
	reader  Reader
}

func NewHandler(service ServiceInterface, reader Reader) *Handler {
	return &Handler{
		service: service,
		reader:  reader,
	}
}

type PatientSuccessResponse struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Patient *Patient `json:"patient,omitempty"`
}

type PatientListResponse struct {
	Success  bool      `json:"success"`
	Patients []Patient `json:"patients"`
	Total    int       `json:"total"`
}

// RegisterRoutes mounts the API on r.
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/patients", h.ListPatients).Methods(http.MethodGet)
	r.HandleFunc("/patients", h.CreatePatient).Methods(http.MethodPost)
	r.HandleFunc("/patients/{id}", h.GetPatient).Methods(http.MethodGet)
	r.HandleFunc("/patients/{id}", h.UpdatePatient).Methods(http.MethodPut)
	r.HandleFunc("/patients/{id}", h.DeletePatient).Methods(http.MethodDelete)
}

func (h *Handler) ListPatients(w http.ResponseWriter, r *http.Request) {
	state := h.reader.State()
	if !ready(w, state) {
		return
	}

	respondJSON(w, http.StatusOK, PatientListResponse{
		Success:  true,
		Patients: state.Patients,
		Total:    len(state.Patients),
	})
}

func (h *Handler) GetPatient(w http.ResponseWriter, r *http.Request) {
	if !ready(w, h.reader.State()) {
		return
	}

	id := mux.Vars(r)["id"]
	p, ok := h.reader.Get(id)
	if !ok {
		respondError(w, http.StatusNotFound, "not_found", "Patient not found")
		return
	}

	respondJSON(w, http.StatusOK, PatientSuccessResponse{
		Success: true,
		Message: "Patient retrieved successfully",
		Patient: &p,
	})
}

func (h *Handler) CreatePatient(w http.ResponseWriter, r *http.Request) {
	var d Draft
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload: "+err.Error())
		return
	}

	id, err := h.service.CreatePatient(r.Context(), d)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	p := Patient{ID: id, Draft: d.Normalize()}
	respondJSON(w, http.StatusCreated, PatientSuccessResponse{
		Success: true,
		Message: "Patient created successfully",
		Patient: &p,
	})
}

func (h *Handler) UpdatePatient(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if id == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "Patient ID is required")
		return
	}

	var d Draft
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload: "+err.Error())
		return
	}

	if err := h.service.UpdatePatient(r.Context(), id, d); err != nil {
		respondServiceError(w, err)
		return
	}

	p := Patient{ID: id, Draft: d.Normalize()}
	respondJSON(w, http.StatusOK, PatientSuccessResponse{
		Success: true,
		Message: "Patient updated successfully",
		Patient: &p,
	})
}

func (h *Handler) DeletePatient(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if id == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "Patient ID is required")
		return
	}

	if err := h.service.DeletePatient(r.Context(), id); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Patient deleted successfully",
	})
}

// ready writes the loading or failure response when the mirror cannot be
// served yet.
func ready(w http.ResponseWriter, s State) bool {
	switch {
	case s.Err != nil:
		respondError(w, http.StatusServiceUnavailable, "fetch_failed", "Failed to fetch patients")
		return false
	case s.Loading:
		respondError(w, http.StatusServiceUnavailable, "loading", "Patients are still loading")
		return false
	}
	return true
}

func respondServiceError(w http.ResponseWriter, err error) {
	var verrs ValidationErrors
	switch {
	case errors.As(err, &verrs):
		fields := make(map[string]string, len(verrs))
		for f, e := range verrs {
			fields[f] = e.Error()
		}
		respondJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":   "validation_error",
			"message": "Invalid patient",
			"fields":  fields,
		})
	case errors.Is(err, ErrMissingID):
		respondError(w, http.StatusBadRequest, "validation_error", "Patient ID is required")
	case errors.Is(err, docstore.ErrNotFound):
		respondError(w, http.StatusNotFound, "not_found", err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "operation_failed", err.Error())
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
