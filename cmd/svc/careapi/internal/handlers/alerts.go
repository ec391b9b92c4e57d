package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mzansicare/backend/cmd/svc/careapi/internal/audit"
	"github.com/mzansicare/backend/cmd/svc/careapi/internal/dal"
	"github.com/mzansicare/backend/cmd/svc/careapi/internal/models"
	"github.com/mzansicare/backend/cmd/svc/careapi/internal/notify"
	"github.com/mzansicare/backend/libs/clock"
	"github.com/mzansicare/backend/libs/conc"
	"github.com/mzansicare/backend/libs/errors"
	"github.com/mzansicare/backend/libs/golog"
	"github.com/mzansicare/backend/libs/httputil"
	"github.com/mzansicare/backend/libs/validate"
)

type alertsHandler struct {
	dal       dal.DAL
	publisher *notify.Publisher
	auditLog  *audit.Logger
}

// NewAlerts returns the handler for the alert collection.
func NewAlerts(dl dal.DAL, publisher *notify.Publisher, auditLog *audit.Logger) http.Handler {
	return httputil.SupportedMethods(&alertsHandler{dal: dl, publisher: publisher, auditLog: auditLog},
		httputil.Get, httputil.Post)
}

type alertRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Location    string `json:"location"`
	Severity    string `json:"severity"`
}

type alertListRequest struct {
	Active bool `schema:"active"`
}

func (h *alertsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case httputil.Get:
		h.serveGET(w, r)
	case httputil.Post:
		h.servePOST(w, r)
	}
}

func (h *alertsHandler) serveGET(w http.ResponseWriter, r *http.Request) {
	var req alertListRequest
	if err := queryDecoder.Decode(&req, r.URL.Query()); err != nil {
		httputil.JSONBadRequest(w, "Could not parse query parameters")
		return
	}
	alerts, err := h.dal.ListAlerts(r.Context(), req.Active)
	if err != nil {
		httputil.JSONInternalError(w, err)
		return
	}
	res := make([]*alertResponse, len(alerts))
	for i, a := range alerts {
		res[i] = transformAlert(a)
	}
	httputil.JSONResponse(w, http.StatusOK, map[string]interface{}{"alerts": res})
}

func (h *alertsHandler) servePOST(w http.ResponseWriter, r *http.Request) {
	var req alertRequest
	if err := httputil.DecodeRequestData(r, &req); err != nil {
		httputil.JSONBadRequest(w, "Could not parse request body")
		return
	}
	title := validate.SanitizeText(req.Title, 200)
	if title == "" {
		httputil.JSONBadRequest(w, "Alert title is required")
		return
	}
	severity, err := models.ParseAlertSeverity(req.Severity)
	if err != nil {
		httputil.JSONBadRequest(w, "Severity must be urgent, warning, or info")
		return
	}

	alert := &models.Alert{
		Title:       title,
		Description: validate.SanitizeText(req.Description, 2000),
		Location:    validate.SanitizeText(req.Location, 200),
		Severity:    severity,
		Active:      true,
	}
	if _, err := h.dal.CreateAlert(r.Context(), alert); err != nil {
		httputil.JSONInternalError(w, err)
		return
	}
	h.auditLog.Record(audit.CategoryAlert, "create", actorID(r), clientAddr(r), alert.ID.String(), severity.String())

	// Push delivery is best effort. The alert is already persisted and
	// shows in the alert list either way.
	conc.Go(func() {
		if err := h.publisher.PublishAlert(alert); err != nil {
			golog.Context("alert_id", alert.ID).Errorf("Failed to publish alert: %s", err)
		}
	})

	httputil.JSONResponse(w, http.StatusCreated, transformAlert(alert))
}

type alertAckHandler struct {
	dal      dal.DAL
	auditLog *audit.Logger
	clk      clock.Clock
}

// NewAlertAck returns the handler that acknowledges an alert, deactivating it.
func NewAlertAck(dl dal.DAL, auditLog *audit.Logger, clk clock.Clock) http.Handler {
	if clk == nil {
		clk = clock.New()
	}
	return httputil.SupportedMethods(&alertAckHandler{dal: dl, auditLog: auditLog, clk: clk}, httputil.Post)
}

func (h *alertAckHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, err := models.ParseAlertID(mux.Vars(r)["id"])
	if err != nil {
		httputil.JSONNotFound(w, "Alert not found")
		return
	}
	if _, err := h.dal.Alert(r.Context(), id); errors.Cause(err) == dal.ErrNotFound {
		httputil.JSONNotFound(w, "Alert not found")
		return
	} else if err != nil {
		httputil.JSONInternalError(w, err)
		return
	}

	now := h.clk.Now()
	active := false
	if _, err := h.dal.UpdateAlert(r.Context(), id, &dal.AlertUpdate{
		Active:       &active,
		Acknowledged: &now,
	}); err != nil {
		httputil.JSONInternalError(w, err)
		return
	}
	h.auditLog.Record(audit.CategoryAlert, "acknowledge", actorID(r), clientAddr(r), id.String(), "")
	httputil.JSONSuccess(w)
}
