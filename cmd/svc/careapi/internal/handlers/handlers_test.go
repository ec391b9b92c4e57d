package handlers

import (
	"time"

	"github.com/mzansicare/backend/cmd/svc/careapi/internal/audit"
	"github.com/mzansicare/backend/libs/clock"
	"github.com/mzansicare/backend/libs/conc"
)

func init() {
	conc.Testing = true
}

func newTestAuditLogger() *audit.Logger {
	return audit.NewLogger(audit.NewMemoryDAL(), clock.NewManaged(time.Unix(1e9, 0)))
}
