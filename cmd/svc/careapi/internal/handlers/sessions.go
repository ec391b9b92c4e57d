package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/mzansicare/backend/cmd/svc/careapi/internal/audit"
	"github.com/mzansicare/backend/cmd/svc/careapi/internal/dal"
	"github.com/mzansicare/backend/cmd/svc/careapi/internal/models"
	"github.com/mzansicare/backend/libs/clock"
	"github.com/mzansicare/backend/libs/errors"
	"github.com/mzansicare/backend/libs/httputil"
	"github.com/mzansicare/backend/libs/validate"
)

type sessionsHandler struct {
	dal      dal.DAL
	auditLog *audit.Logger
	clk      clock.Clock
}

// NewSessions returns the handler for the telemedicine session collection.
func NewSessions(dl dal.DAL, auditLog *audit.Logger, clk clock.Clock) http.Handler {
	if clk == nil {
		clk = clock.New()
	}
	return httputil.SupportedMethods(&sessionsHandler{dal: dl, auditLog: auditLog, clk: clk},
		httputil.Get, httputil.Post)
}

type sessionRequest struct {
	PatientID        string    `json:"patient_id"`
	Clinician        string    `json:"clinician"`
	ScheduledTime    time.Time `json:"scheduled_time"`
	ConsultationType string    `json:"consultation_type"`
	Priority         string    `json:"priority"`
}

type sessionListRequest struct {
	PatientID string `schema:"patient_id"`
}

func (h *sessionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case httputil.Get:
		h.serveGET(w, r)
	case httputil.Post:
		h.servePOST(w, r)
	}
}

func (h *sessionsHandler) serveGET(w http.ResponseWriter, r *http.Request) {
	var req sessionListRequest
	if err := queryDecoder.Decode(&req, r.URL.Query()); err != nil {
		httputil.JSONBadRequest(w, "Could not parse query parameters")
		return
	}
	var patientID *models.PatientID
	if req.PatientID != "" {
		id, err := models.ParsePatientID(req.PatientID)
		if err != nil {
			httputil.JSONBadRequest(w, "Invalid patient id")
			return
		}
		patientID = &id
	}

	sessions, err := h.dal.ListSessions(r.Context(), patientID)
	if err != nil {
		httputil.JSONInternalError(w, err)
		return
	}
	res := make([]*sessionResponse, len(sessions))
	for i, s := range sessions {
		res[i] = transformSession(s)
	}
	httputil.JSONResponse(w, http.StatusOK, map[string]interface{}{"sessions": res})
}

func (h *sessionsHandler) servePOST(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := httputil.DecodeRequestData(r, &req); err != nil {
		httputil.JSONBadRequest(w, "Could not parse request body")
		return
	}
	patientID, err := models.ParsePatientID(req.PatientID)
	if err != nil {
		httputil.JSONBadRequest(w, "Invalid patient id")
		return
	}
	if req.ScheduledTime.Before(h.clk.Now()) {
		httputil.JSONBadRequest(w, "Scheduled time must be in the future")
		return
	}
	if _, err := h.dal.Patient(r.Context(), patientID); errors.Cause(err) == dal.ErrNotFound {
		httputil.JSONBadRequest(w, "Unknown patient")
		return
	} else if err != nil {
		httputil.JSONInternalError(w, err)
		return
	}

	session := &models.Session{
		PatientID:        patientID,
		Clinician:        validate.SanitizeName(req.Clinician),
		ScheduledTime:    req.ScheduledTime,
		Status:           models.SessionStatusScheduled,
		ConsultationType: validate.SanitizeText(req.ConsultationType, 100),
		Priority:         validate.SanitizeText(req.Priority, 50),
	}
	if _, err := h.dal.CreateSession(r.Context(), session); err != nil {
		httputil.JSONInternalError(w, err)
		return
	}
	h.auditLog.Record(audit.CategorySession, "schedule", actorID(r), clientAddr(r), session.ID.String(), "")
	httputil.JSONResponse(w, http.StatusCreated, transformSession(session))
}

type sessionStatusHandler struct {
	dal      dal.DAL
	auditLog *audit.Logger
}

// NewSessionStatus returns the handler that moves a session through its
// scheduling states.
func NewSessionStatus(dl dal.DAL, auditLog *audit.Logger) http.Handler {
	return httputil.SupportedMethods(&sessionStatusHandler{dal: dl, auditLog: auditLog}, httputil.Post)
}

type sessionStatusRequest struct {
	Status string `json:"status"`
}

func (h *sessionStatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, err := models.ParseSessionID(mux.Vars(r)["id"])
	if err != nil {
		httputil.JSONNotFound(w, "Session not found")
		return
	}
	var req sessionStatusRequest
	if err := httputil.DecodeRequestData(r, &req); err != nil {
		httputil.JSONBadRequest(w, "Could not parse request body")
		return
	}
	next, err := models.ParseSessionStatus(req.Status)
	if err != nil {
		httputil.JSONBadRequest(w, "Unknown session status")
		return
	}

	var updated *models.Session
	err = h.dal.Transact(r.Context(), func(ctx context.Context, dl dal.DAL) error {
		session, err := dl.Session(ctx, id, dal.ForUpdateOpt)
		if err != nil {
			return errors.Trace(err)
		}
		if !session.Status.CanTransitionTo(next) {
			return errors.Trace(errBadTransition{from: session.Status, to: next})
		}
		if _, err := dl.UpdateSession(ctx, id, &dal.SessionUpdate{Status: &next}); err != nil {
			return errors.Trace(err)
		}
		updated, err = dl.Session(ctx, id)
		return errors.Trace(err)
	})
	if errors.Cause(err) == dal.ErrNotFound {
		httputil.JSONNotFound(w, "Session not found")
		return
	} else if bt, ok := errors.Cause(err).(errBadTransition); ok {
		httputil.JSONError(w, http.StatusConflict, bt.Error())
		return
	} else if err != nil {
		httputil.JSONInternalError(w, err)
		return
	}
	h.auditLog.Record(audit.CategorySession, "status_change", actorID(r), clientAddr(r), id.String(), next.String())
	httputil.JSONResponse(w, http.StatusOK, transformSession(updated))
}

type errBadTransition struct {
	from, to models.SessionStatus
}

func (e errBadTransition) Error() string {
	return "Cannot move session from " + e.from.String() + " to " + e.to.String()
}

type sessionRescheduleHandler struct {
	dal      dal.DAL
	auditLog *audit.Logger
	clk      clock.Clock
}

// NewSessionReschedule returns the handler that moves a session to a new time.
func NewSessionReschedule(dl dal.DAL, auditLog *audit.Logger, clk clock.Clock) http.Handler {
	if clk == nil {
		clk = clock.New()
	}
	return httputil.SupportedMethods(&sessionRescheduleHandler{dal: dl, auditLog: auditLog, clk: clk}, httputil.Post)
}

type sessionRescheduleRequest struct {
	ScheduledTime time.Time `json:"scheduled_time"`
}

func (h *sessionRescheduleHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, err := models.ParseSessionID(mux.Vars(r)["id"])
	if err != nil {
		httputil.JSONNotFound(w, "Session not found")
		return
	}
	var req sessionRescheduleRequest
	if err := httputil.DecodeRequestData(r, &req); err != nil {
		httputil.JSONBadRequest(w, "Could not parse request body")
		return
	}
	if req.ScheduledTime.Before(h.clk.Now()) {
		httputil.JSONBadRequest(w, "Scheduled time must be in the future")
		return
	}

	var updated *models.Session
	err = h.dal.Transact(r.Context(), func(ctx context.Context, dl dal.DAL) error {
		session, err := dl.Session(ctx, id, dal.ForUpdateOpt)
		if err != nil {
			return errors.Trace(err)
		}
		if session.Status.Terminal() {
			return errors.Trace(errBadTransition{from: session.Status, to: models.SessionStatusRescheduled})
		}
		status := models.SessionStatusRescheduled
		if _, err := dl.UpdateSession(ctx, id, &dal.SessionUpdate{
			ScheduledTime: &req.ScheduledTime,
			Status:        &status,
		}); err != nil {
			return errors.Trace(err)
		}
		updated, err = dl.Session(ctx, id)
		return errors.Trace(err)
	})
	if errors.Cause(err) == dal.ErrNotFound {
		httputil.JSONNotFound(w, "Session not found")
		return
	} else if bt, ok := errors.Cause(err).(errBadTransition); ok {
		httputil.JSONError(w, http.StatusConflict, bt.Error())
		return
	} else if err != nil {
		httputil.JSONInternalError(w, err)
		return
	}
	h.auditLog.Record(audit.CategorySession, "reschedule", actorID(r), clientAddr(r), id.String(), "")
	httputil.JSONResponse(w, http.StatusOK, transformSession(updated))
}
