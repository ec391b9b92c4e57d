package handlers

import (
	"net/http"

	"github.com/mzansicare/backend/cmd/svc/careapi/internal/audit"
	"github.com/mzansicare/backend/libs/clock"
	"github.com/mzansicare/backend/libs/httputil"
)

type complianceSummaryHandler struct {
	auditDAL audit.DAL
	auditLog *audit.Logger
	clk      clock.Clock
}

// NewComplianceSummary returns the handler for the POPIA compliance dashboard.
func NewComplianceSummary(auditDAL audit.DAL, auditLog *audit.Logger, clk clock.Clock) http.Handler {
	if clk == nil {
		clk = clock.New()
	}
	return httputil.SupportedMethods(&complianceSummaryHandler{
		auditDAL: auditDAL,
		auditLog: auditLog,
		clk:      clk,
	}, httputil.Get)
}

func (h *complianceSummaryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	summary, err := audit.Summarize(h.auditDAL, h.clk)
	if err != nil {
		httputil.JSONInternalError(w, err)
		return
	}
	h.auditLog.Record(audit.CategoryDataExport, "compliance_summary", actorID(r), clientAddr(r), "", "")
	httputil.JSONResponse(w, http.StatusOK, summary)
}
