package handlers

import (
	"net/http"

	"github.com/mzansicare/backend/cmd/svc/careapi/internal/audit"
	"github.com/mzansicare/backend/cmd/svc/careapi/internal/triage"
	"github.com/mzansicare/backend/libs/httputil"
)

type triageHandler struct {
	engine   *triage.Engine
	auditLog *audit.Logger
}

// NewTriage returns the handler for symptom assessment.
func NewTriage(engine *triage.Engine, auditLog *audit.Logger) http.Handler {
	return httputil.SupportedMethods(&triageHandler{engine: engine, auditLog: auditLog}, httputil.Post)
}

type triageRequest struct {
	Symptoms string `json:"symptoms"`
}

func (h *triageHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req triageRequest
	if err := httputil.DecodeRequestData(r, &req); err != nil {
		httputil.JSONBadRequest(w, "Could not parse request body")
		return
	}

	assessment := h.engine.Assess(req.Symptoms)
	// Symptom text itself is never written to the audit trail, only the outcome.
	h.auditLog.Record(audit.CategoryTriage, "assess", actorID(r), clientAddr(r), "", string(assessment.Risk))
	httputil.JSONResponse(w, http.StatusOK, assessment)
}
