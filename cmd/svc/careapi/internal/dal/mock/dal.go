package mock

import (
	"context"
	"testing"
	"time"

	"github.com/mzansicare/backend/cmd/svc/careapi/internal/dal"
	"github.com/mzansicare/backend/cmd/svc/careapi/internal/models"
	"github.com/mzansicare/backend/libs/testhelpers/mock"
)

var _ dal.DAL = &mockDAL{}

type mockDAL struct {
	*mock.Expector
}

// New returns a mock DAL that records and verifies expected calls.
func New(t testing.TB) *mockDAL {
	return &mockDAL{
		&mock.Expector{
			T: t,
		},
	}
}

func (m *mockDAL) Transact(ctx context.Context, trans func(ctx context.Context, dl dal.DAL) error) error {
	return trans(ctx, m)
}

func (m *mockDAL) CreateAccount(ctx context.Context, account *models.Account) (models.AccountID, error) {
	rets := m.Record(account)
	if len(rets) == 0 {
		return models.EmptyAccountID(), nil
	}
	return rets[0].(models.AccountID), mock.SafeError(rets[1])
}

func (m *mockDAL) Account(ctx context.Context, id models.AccountID) (*models.Account, error) {
	rets := m.Record(id)
	if len(rets) == 0 {
		return nil, nil
	}
	return rets[0].(*models.Account), mock.SafeError(rets[1])
}

func (m *mockDAL) AccountForEmail(ctx context.Context, email string) (*models.Account, error) {
	rets := m.Record(email)
	if len(rets) == 0 {
		return nil, nil
	}
	return rets[0].(*models.Account), mock.SafeError(rets[1])
}

func (m *mockDAL) UpdateAccountPassword(ctx context.Context, id models.AccountID, password []byte) (int64, error) {
	rets := m.Record(id, password)
	if len(rets) == 0 {
		return 0, nil
	}
	return rets[0].(int64), mock.SafeError(rets[1])
}

func (m *mockDAL) InsertAuthToken(ctx context.Context, token *models.AuthToken) error {
	rets := m.Record(token)
	if len(rets) == 0 {
		return nil
	}
	return mock.SafeError(rets[0])
}

func (m *mockDAL) AuthToken(ctx context.Context, token string, expiresAfter time.Time) (*models.AuthToken, error) {
	rets := m.Record(token, expiresAfter)
	if len(rets) == 0 {
		return nil, nil
	}
	return rets[0].(*models.AuthToken), mock.SafeError(rets[1])
}

func (m *mockDAL) DeleteAuthToken(ctx context.Context, token string) (int64, error) {
	rets := m.Record(token)
	if len(rets) == 0 {
		return 0, nil
	}
	return rets[0].(int64), mock.SafeError(rets[1])
}

func (m *mockDAL) DeleteAuthTokens(ctx context.Context, accountID models.AccountID) (int64, error) {
	rets := m.Record(accountID)
	if len(rets) == 0 {
		return 0, nil
	}
	return rets[0].(int64), mock.SafeError(rets[1])
}

func (m *mockDAL) InsertTempToken(ctx context.Context, tok *models.TempToken) error {
	rets := m.Record(tok)
	if len(rets) == 0 {
		return nil
	}
	return mock.SafeError(rets[0])
}

func (m *mockDAL) TempToken(ctx context.Context, purpose, token string, expiresAfter time.Time) (*models.TempToken, error) {
	rets := m.Record(purpose, token, expiresAfter)
	if len(rets) == 0 {
		return nil, nil
	}
	return rets[0].(*models.TempToken), mock.SafeError(rets[1])
}

func (m *mockDAL) DeleteTempTokens(ctx context.Context, purpose string, accountID models.AccountID) (int64, error) {
	rets := m.Record(purpose, accountID)
	if len(rets) == 0 {
		return 0, nil
	}
	return rets[0].(int64), mock.SafeError(rets[1])
}

func (m *mockDAL) DeleteExpiredTokens(ctx context.Context, before time.Time) (int64, error) {
	rets := m.Record(before)
	if len(rets) == 0 {
		return 0, nil
	}
	return rets[0].(int64), mock.SafeError(rets[1])
}

func (m *mockDAL) CreatePatient(ctx context.Context, patient *models.Patient) (models.PatientID, error) {
	rets := m.Record(patient)
	if len(rets) == 0 {
		return models.EmptyPatientID(), nil
	}
	return rets[0].(models.PatientID), mock.SafeError(rets[1])
}

func (m *mockDAL) Patient(ctx context.Context, id models.PatientID) (*models.Patient, error) {
	rets := m.Record(id)
	if len(rets) == 0 {
		return nil, nil
	}
	return rets[0].(*models.Patient), mock.SafeError(rets[1])
}

func (m *mockDAL) ListPatients(ctx context.Context, query *dal.PatientQuery) ([]*models.Patient, error) {
	rets := m.Record(query)
	if len(rets) == 0 {
		return nil, nil
	}
	return rets[0].([]*models.Patient), mock.SafeError(rets[1])
}

func (m *mockDAL) UpdatePatient(ctx context.Context, id models.PatientID, update *dal.PatientUpdate) (int64, error) {
	rets := m.Record(id, update)
	if len(rets) == 0 {
		return 0, nil
	}
	return rets[0].(int64), mock.SafeError(rets[1])
}

func (m *mockDAL) DeletePatient(ctx context.Context, id models.PatientID) (int64, error) {
	rets := m.Record(id)
	if len(rets) == 0 {
		return 0, nil
	}
	return rets[0].(int64), mock.SafeError(rets[1])
}

func (m *mockDAL) CreateAlert(ctx context.Context, alert *models.Alert) (models.AlertID, error) {
	rets := m.Record(alert)
	if len(rets) == 0 {
		return models.EmptyAlertID(), nil
	}
	return rets[0].(models.AlertID), mock.SafeError(rets[1])
}

func (m *mockDAL) Alert(ctx context.Context, id models.AlertID) (*models.Alert, error) {
	rets := m.Record(id)
	if len(rets) == 0 {
		return nil, nil
	}
	return rets[0].(*models.Alert), mock.SafeError(rets[1])
}

func (m *mockDAL) ListAlerts(ctx context.Context, activeOnly bool) ([]*models.Alert, error) {
	rets := m.Record(activeOnly)
	if len(rets) == 0 {
		return nil, nil
	}
	return rets[0].([]*models.Alert), mock.SafeError(rets[1])
}

func (m *mockDAL) UpdateAlert(ctx context.Context, id models.AlertID, update *dal.AlertUpdate) (int64, error) {
	rets := m.Record(id, update)
	if len(rets) == 0 {
		return 0, nil
	}
	return rets[0].(int64), mock.SafeError(rets[1])
}

func (m *mockDAL) CreateSession(ctx context.Context, session *models.Session) (models.SessionID, error) {
	rets := m.Record(session)
	if len(rets) == 0 {
		return models.EmptySessionID(), nil
	}
	return rets[0].(models.SessionID), mock.SafeError(rets[1])
}

func (m *mockDAL) Session(ctx context.Context, id models.SessionID, opts ...dal.QueryOption) (*models.Session, error) {
	rets := m.Record(id)
	if len(rets) == 0 {
		return nil, nil
	}
	return rets[0].(*models.Session), mock.SafeError(rets[1])
}

func (m *mockDAL) ListSessions(ctx context.Context, patientID *models.PatientID) ([]*models.Session, error) {
	rets := m.Record(patientID)
	if len(rets) == 0 {
		return nil, nil
	}
	return rets[0].([]*models.Session), mock.SafeError(rets[1])
}

func (m *mockDAL) UpdateSession(ctx context.Context, id models.SessionID, update *dal.SessionUpdate) (int64, error) {
	rets := m.Record(id, update)
	if len(rets) == 0 {
		return 0, nil
	}
	return rets[0].(int64), mock.SafeError(rets[1])
}

func (m *mockDAL) InsertPowerReading(ctx context.Context, reading *models.PowerReading) (int64, error) {
	rets := m.Record(reading)
	if len(rets) == 0 {
		return 0, nil
	}
	return rets[0].(int64), mock.SafeError(rets[1])
}

func (m *mockDAL) LatestPowerReading(ctx context.Context) (*models.PowerReading, error) {
	rets := m.Record()
	if len(rets) == 0 {
		return nil, nil
	}
	return rets[0].(*models.PowerReading), mock.SafeError(rets[1])
}

func (m *mockDAL) PowerReadings(ctx context.Context, since time.Time) ([]*models.PowerReading, error) {
	rets := m.Record(since)
	if len(rets) == 0 {
		return nil, nil
	}
	return rets[0].([]*models.PowerReading), mock.SafeError(rets[1])
}
