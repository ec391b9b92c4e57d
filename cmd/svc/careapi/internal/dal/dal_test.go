package dal

import (
	"context"
	"testing"
	"time"

	"github.com/mzansicare/backend/cmd/svc/careapi/internal/models"
	"github.com/mzansicare/backend/libs/errors"
	"github.com/mzansicare/backend/libs/ptr"
	"github.com/mzansicare/backend/libs/test"
	"github.com/mzansicare/backend/libs/testsql"
)

const schemaGlob = "schema/*.sql"

func TestAccounts(t *testing.T) {
	dt := testsql.Setup(t, schemaGlob)
	defer dt.Cleanup(t)

	ctx := context.Background()
	dal := New(dt.DB)

	id, err := dal.CreateAccount(ctx, &models.Account{
		Email:     "thandi@example.com",
		Password:  []byte("hashed"),
		FirstName: "Thandi",
		LastName:  "Nkosi",
	})
	test.OK(t, err)

	acc, err := dal.Account(ctx, id)
	test.OK(t, err)
	test.Equals(t, "thandi@example.com", acc.Email)
	test.Equals(t, []byte("hashed"), acc.Password)
	test.Equals(t, models.AccountStatusActive, acc.Status)

	acc2, err := dal.AccountForEmail(ctx, "thandi@example.com")
	test.OK(t, err)
	test.Equals(t, id, acc2.ID)

	_, err = dal.CreateAccount(ctx, &models.Account{
		Email:     "thandi@example.com",
		Password:  []byte("other"),
		FirstName: "Other",
		LastName:  "Person",
	})
	test.Equals(t, ErrDuplicateEmail, errors.Cause(err))

	_, err = dal.AccountForEmail(ctx, "nobody@example.com")
	test.Equals(t, ErrNotFound, errors.Cause(err))
}

func TestAuthTokens(t *testing.T) {
	dt := testsql.Setup(t, schemaGlob)
	defer dt.Cleanup(t)

	ctx := context.Background()
	dal := New(dt.DB)

	accountID, err := dal.CreateAccount(ctx, &models.Account{
		Email:     "sipho@example.com",
		Password:  []byte("hashed"),
		FirstName: "Sipho",
		LastName:  "Dlamini",
	})
	test.OK(t, err)

	now := time.Now().Truncate(time.Second)
	test.OK(t, dal.InsertAuthToken(ctx, &models.AuthToken{
		Token:     []byte("token1"),
		AccountID: accountID,
		Expires:   now.Add(time.Hour),
	}))

	tok, err := dal.AuthToken(ctx, "token1", now)
	test.OK(t, err)
	test.Equals(t, accountID, tok.AccountID)

	// Expired tokens are not returned.
	_, err = dal.AuthToken(ctx, "token1", now.Add(2*time.Hour))
	test.Equals(t, ErrNotFound, errors.Cause(err))

	n, err := dal.DeleteAuthToken(ctx, "token1")
	test.OK(t, err)
	test.Equals(t, int64(1), n)

	_, err = dal.AuthToken(ctx, "token1", now)
	test.Equals(t, ErrNotFound, errors.Cause(err))
}

func TestTempTokens(t *testing.T) {
	dt := testsql.Setup(t, schemaGlob)
	defer dt.Cleanup(t)

	ctx := context.Background()
	dal := New(dt.DB)

	accountID, err := dal.CreateAccount(ctx, &models.Account{
		Email:     "lerato@example.com",
		Password:  []byte("hashed"),
		FirstName: "Lerato",
		LastName:  "Mokoena",
	})
	test.OK(t, err)

	now := time.Now().Truncate(time.Second)
	test.OK(t, dal.InsertTempToken(ctx, &models.TempToken{
		Purpose:   "verify_account",
		Token:     "123456",
		AccountID: accountID,
		Expires:   now.Add(10 * time.Minute),
	}))

	tok, err := dal.TempToken(ctx, "verify_account", "123456", now)
	test.OK(t, err)
	test.Equals(t, accountID, tok.AccountID)

	n, err := dal.DeleteTempTokens(ctx, "verify_account", accountID)
	test.OK(t, err)
	test.Equals(t, int64(1), n)

	_, err = dal.TempToken(ctx, "verify_account", "123456", now)
	test.Equals(t, ErrNotFound, errors.Cause(err))
}

func TestPatients(t *testing.T) {
	dt := testsql.Setup(t, schemaGlob)
	defer dt.Cleanup(t)

	ctx := context.Background()
	dal := New(dt.DB)

	id, err := dal.CreatePatient(ctx, &models.Patient{
		Name:   "Nomvula Khumalo",
		Age:    34,
		Clinic: "Soweto Community Clinic",
		Status: models.PatientStatusActive,
	})
	test.OK(t, err)

	p, err := dal.Patient(ctx, id)
	test.OK(t, err)
	test.Equals(t, "Nomvula Khumalo", p.Name)
	test.Equals(t, 34, p.Age)
	test.Equals(t, models.PatientStatusActive, p.Status)

	followUp := models.PatientStatusFollowUp
	n, err := dal.UpdatePatient(ctx, id, &PatientUpdate{
		Status: &followUp,
		Age:    ptr.Int(35),
	})
	test.OK(t, err)
	test.Equals(t, int64(1), n)

	p, err = dal.Patient(ctx, id)
	test.OK(t, err)
	test.Equals(t, 35, p.Age)
	test.Equals(t, models.PatientStatusFollowUp, p.Status)

	ps, err := dal.ListPatients(ctx, &PatientQuery{Status: &followUp})
	test.OK(t, err)
	test.Equals(t, 1, len(ps))

	ps, err = dal.ListPatients(ctx, &PatientQuery{Search: "khumalo"})
	test.OK(t, err)
	test.Equals(t, 1, len(ps))

	ps, err = dal.ListPatients(ctx, &PatientQuery{Search: "nobody"})
	test.OK(t, err)
	test.Equals(t, 0, len(ps))

	n, err = dal.DeletePatient(ctx, id)
	test.OK(t, err)
	test.Equals(t, int64(1), n)

	_, err = dal.Patient(ctx, id)
	test.Equals(t, ErrNotFound, errors.Cause(err))
}

func TestAlerts(t *testing.T) {
	dt := testsql.Setup(t, schemaGlob)
	defer dt.Cleanup(t)

	ctx := context.Background()
	dal := New(dt.DB)

	id, err := dal.CreateAlert(ctx, &models.Alert{
		Title:       "Ambulance needed",
		Description: "Patient collapsed at taxi rank",
		Location:    "Khayelitsha",
		Severity:    models.AlertSeverityUrgent,
		Active:      true,
	})
	test.OK(t, err)

	as, err := dal.ListAlerts(ctx, true)
	test.OK(t, err)
	test.Equals(t, 1, len(as))
	test.Equals(t, id, as[0].ID)

	ack := time.Now().Truncate(time.Second)
	n, err := dal.UpdateAlert(ctx, id, &AlertUpdate{
		Active:       ptr.Bool(false),
		Acknowledged: &ack,
	})
	test.OK(t, err)
	test.Equals(t, int64(1), n)

	as, err = dal.ListAlerts(ctx, true)
	test.OK(t, err)
	test.Equals(t, 0, len(as))

	a, err := dal.Alert(ctx, id)
	test.OK(t, err)
	test.Equals(t, false, a.Active)
	test.Assert(t, a.Acknowledged != nil, "expected acknowledged time to be set")
}

func TestSessions(t *testing.T) {
	dt := testsql.Setup(t, schemaGlob)
	defer dt.Cleanup(t)

	ctx := context.Background()
	dal := New(dt.DB)

	patientID, err := dal.CreatePatient(ctx, &models.Patient{
		Name:   "Bongani Zulu",
		Age:    52,
		Clinic: "Umlazi Clinic",
		Status: models.PatientStatusActive,
	})
	test.OK(t, err)

	scheduled := time.Now().Add(24 * time.Hour).Truncate(time.Second)
	id, err := dal.CreateSession(ctx, &models.Session{
		PatientID:        patientID,
		Clinician:        "Dr. Naidoo",
		ScheduledTime:    scheduled,
		Status:           models.SessionStatusScheduled,
		ConsultationType: "general",
		Priority:         "routine",
	})
	test.OK(t, err)

	err = dal.Transact(ctx, func(ctx context.Context, dl DAL) error {
		s, err := dl.Session(ctx, id, ForUpdateOpt)
		if err != nil {
			return err
		}
		status := models.SessionStatusWaiting
		if !s.Status.CanTransitionTo(status) {
			return errors.Errorf("cannot move session from %s to %s", s.Status, status)
		}
		_, err = dl.UpdateSession(ctx, id, &SessionUpdate{Status: &status})
		return err
	})
	test.OK(t, err)

	s, err := dal.Session(ctx, id)
	test.OK(t, err)
	test.Equals(t, models.SessionStatusWaiting, s.Status)

	ss, err := dal.ListSessions(ctx, &patientID)
	test.OK(t, err)
	test.Equals(t, 1, len(ss))
}

func TestPowerReadings(t *testing.T) {
	dt := testsql.Setup(t, schemaGlob)
	defer dt.Cleanup(t)

	ctx := context.Background()
	dal := New(dt.DB)

	_, err := dal.LatestPowerReading(ctx)
	test.Equals(t, ErrNotFound, errors.Cause(err))

	now := time.Now().Truncate(time.Second)
	for i, stage := range []int{2, 4} {
		_, err := dal.InsertPowerReading(ctx, &models.PowerReading{
			Stage:    stage,
			Source:   "eskom",
			Recorded: now.Add(time.Duration(i) * time.Minute),
		})
		test.OK(t, err)
	}

	r, err := dal.LatestPowerReading(ctx)
	test.OK(t, err)
	test.Equals(t, 4, r.Stage)

	rs, err := dal.PowerReadings(ctx, now.Add(-time.Hour))
	test.OK(t, err)
	test.Equals(t, 2, len(rs))
}

func TestDeleteExpiredTokens(t *testing.T) {
	dt := testsql.Setup(t, schemaGlob)
	defer dt.Cleanup(t)

	ctx := context.Background()
	dal := New(dt.DB)

	accountID, err := dal.CreateAccount(ctx, &models.Account{
		Email:     "zanele@example.com",
		Password:  []byte("hashed"),
		FirstName: "Zanele",
		LastName:  "Mthethwa",
	})
	test.OK(t, err)

	now := time.Now().Truncate(time.Second)
	test.OK(t, dal.InsertAuthToken(ctx, &models.AuthToken{
		Token:     []byte("stale"),
		AccountID: accountID,
		Expires:   now.Add(time.Hour),
	}))
	test.OK(t, dal.InsertTempToken(ctx, &models.TempToken{
		Purpose:   "verify_account",
		Token:     "111111",
		AccountID: accountID,
		Expires:   now.Add(time.Minute),
	}))

	n, err := dal.DeleteExpiredTokens(ctx, now.Add(2*time.Hour))
	test.OK(t, err)
	test.Equals(t, int64(2), n)

	_, err = dal.AuthToken(ctx, "stale", now)
	test.Equals(t, ErrNotFound, errors.Cause(err))
}
