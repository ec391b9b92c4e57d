package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/schema"

	"github.com/mzansicare/backend/cmd/svc/careapi/internal/audit"
	"github.com/mzansicare/backend/cmd/svc/careapi/internal/dal"
	"github.com/mzansicare/backend/cmd/svc/careapi/internal/models"
	"github.com/mzansicare/backend/libs/errors"
	"github.com/mzansicare/backend/libs/httputil"
	"github.com/mzansicare/backend/libs/validate"
)

var queryDecoder = func() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	return d
}()

type patientsHandler struct {
	dal      dal.DAL
	auditLog *audit.Logger
}

// NewPatients returns the handler for the patient collection.
func NewPatients(dl dal.DAL, auditLog *audit.Logger) http.Handler {
	return httputil.SupportedMethods(&patientsHandler{dal: dl, auditLog: auditLog}, httputil.Get, httputil.Post)
}

type patientRequest struct {
	Name      string     `json:"name"`
	Age       int        `json:"age"`
	Clinic    string     `json:"clinic"`
	LastVisit *time.Time `json:"last_visit"`
	Status    string     `json:"status"`
}

type patientListRequest struct {
	Status string `schema:"status"`
	Query  string `schema:"q"`
}

func (h *patientsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case httputil.Get:
		h.serveGET(w, r)
	case httputil.Post:
		h.servePOST(w, r)
	}
}

func (h *patientsHandler) serveGET(w http.ResponseWriter, r *http.Request) {
	var req patientListRequest
	if err := queryDecoder.Decode(&req, r.URL.Query()); err != nil {
		httputil.JSONBadRequest(w, "Could not parse query parameters")
		return
	}
	query := &dal.PatientQuery{Search: validate.SanitizeText(req.Query, 100)}
	if req.Status != "" {
		status, err := models.ParsePatientStatus(req.Status)
		if err != nil {
			httputil.JSONBadRequest(w, "Unknown patient status")
			return
		}
		query.Status = &status
	}

	patients, err := h.dal.ListPatients(r.Context(), query)
	if err != nil {
		httputil.JSONInternalError(w, err)
		return
	}
	res := make([]*patientResponse, len(patients))
	for i, p := range patients {
		res[i] = transformPatient(p)
	}
	h.auditLog.Record(audit.CategoryPatient, "list", actorID(r), clientAddr(r), "", "")
	httputil.JSONResponse(w, http.StatusOK, map[string]interface{}{"patients": res})
}

func (h *patientsHandler) servePOST(w http.ResponseWriter, r *http.Request) {
	var req patientRequest
	if err := httputil.DecodeRequestData(r, &req); err != nil {
		httputil.JSONBadRequest(w, "Could not parse request body")
		return
	}
	patient, errMsg := patientFromRequest(&req)
	if errMsg != "" {
		httputil.JSONBadRequest(w, errMsg)
		return
	}

	if _, err := h.dal.CreatePatient(r.Context(), patient); err != nil {
		httputil.JSONInternalError(w, err)
		return
	}
	h.auditLog.Record(audit.CategoryPatient, "create", actorID(r), clientAddr(r), patient.ID.String(), "")
	httputil.JSONResponse(w, http.StatusCreated, transformPatient(patient))
}

func patientFromRequest(req *patientRequest) (*models.Patient, string) {
	name := validate.SanitizeName(req.Name)
	if !validate.PersonName(name) {
		return nil, "Patient name must be at least 2 characters"
	}
	if !validate.Age(req.Age) {
		return nil, "Patient age must be between 1 and 120"
	}
	status := models.PatientStatusActive
	if req.Status != "" {
		var err error
		if status, err = models.ParsePatientStatus(req.Status); err != nil {
			return nil, "Unknown patient status"
		}
	}
	return &models.Patient{
		Name:      name,
		Age:       req.Age,
		Clinic:    validate.SanitizeText(req.Clinic, 200),
		LastVisit: req.LastVisit,
		Status:    status,
	}, ""
}

type patientHandler struct {
	dal      dal.DAL
	auditLog *audit.Logger
}

// NewPatient returns the handler for a single patient record.
func NewPatient(dl dal.DAL, auditLog *audit.Logger) http.Handler {
	return httputil.SupportedMethods(&patientHandler{dal: dl, auditLog: auditLog},
		httputil.Get, httputil.Put, httputil.Delete)
}

func (h *patientHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, err := models.ParsePatientID(mux.Vars(r)["id"])
	if err != nil {
		httputil.JSONNotFound(w, "Patient not found")
		return
	}
	switch r.Method {
	case httputil.Get:
		h.serveGET(w, r, id)
	case httputil.Put:
		h.servePUT(w, r, id)
	case httputil.Delete:
		h.serveDELETE(w, r, id)
	}
}

func (h *patientHandler) serveGET(w http.ResponseWriter, r *http.Request, id models.PatientID) {
	patient, err := h.dal.Patient(r.Context(), id)
	if errors.Cause(err) == dal.ErrNotFound {
		httputil.JSONNotFound(w, "Patient not found")
		return
	} else if err != nil {
		httputil.JSONInternalError(w, err)
		return
	}
	h.auditLog.Record(audit.CategoryPatient, "view", actorID(r), clientAddr(r), id.String(), "")
	httputil.JSONResponse(w, http.StatusOK, transformPatient(patient))
}

func (h *patientHandler) servePUT(w http.ResponseWriter, r *http.Request, id models.PatientID) {
	var req patientRequest
	if err := httputil.DecodeRequestData(r, &req); err != nil {
		httputil.JSONBadRequest(w, "Could not parse request body")
		return
	}
	patient, errMsg := patientFromRequest(&req)
	if errMsg != "" {
		httputil.JSONBadRequest(w, errMsg)
		return
	}

	if _, err := h.dal.Patient(r.Context(), id); errors.Cause(err) == dal.ErrNotFound {
		httputil.JSONNotFound(w, "Patient not found")
		return
	} else if err != nil {
		httputil.JSONInternalError(w, err)
		return
	}

	if _, err := h.dal.UpdatePatient(r.Context(), id, &dal.PatientUpdate{
		Name:      &patient.Name,
		Age:       &patient.Age,
		Clinic:    &patient.Clinic,
		LastVisit: patient.LastVisit,
		Status:    &patient.Status,
	}); err != nil {
		httputil.JSONInternalError(w, err)
		return
	}

	updated, err := h.dal.Patient(r.Context(), id)
	if err != nil {
		httputil.JSONInternalError(w, err)
		return
	}
	h.auditLog.Record(audit.CategoryPatient, "update", actorID(r), clientAddr(r), id.String(), "")
	httputil.JSONResponse(w, http.StatusOK, transformPatient(updated))
}

func (h *patientHandler) serveDELETE(w http.ResponseWriter, r *http.Request, id models.PatientID) {
	n, err := h.dal.DeletePatient(r.Context(), id)
	if err != nil {
		httputil.JSONInternalError(w, err)
		return
	}
	if n == 0 {
		httputil.JSONNotFound(w, "Patient not found")
		return
	}
	h.auditLog.Record(audit.CategoryPatient, "delete", actorID(r), clientAddr(r), id.String(), "")
	httputil.JSONSuccess(w)
}

func actorID(r *http.Request) string {
	if account := AccountFromContext(r.Context()); account != nil {
		return account.ID.String()
	}
	return ""
}
