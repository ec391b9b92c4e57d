package dal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mzansicare/backend/cmd/svc/careapi/internal/models"
	"github.com/mzansicare/backend/libs/dbutil"
	"github.com/mzansicare/backend/libs/errors"
	"github.com/mzansicare/backend/libs/golog"
	"github.com/mzansicare/backend/libs/transactional/tsql"
)

// ErrNotFound is returned when the requested record does not exist.
var ErrNotFound = errors.New("careapi/dal: not found")

// PatientUpdate describes the mutable fields of a patient record. Nil fields
// are left unchanged.
type PatientUpdate struct {
	Name      *string
	Age       *int
	Clinic    *string
	LastVisit *time.Time
	Status    *models.PatientStatus
}

// SessionUpdate describes the mutable fields of a telemedicine session.
type SessionUpdate struct {
	ScheduledTime *time.Time
	Status        *models.SessionStatus
	Priority      *string
}

// AlertUpdate describes the mutable fields of an alert record.
type AlertUpdate struct {
	Active       *bool
	Acknowledged *time.Time
}

// PatientQuery filters ListPatients.
type PatientQuery struct {
	Status *models.PatientStatus
	Search string
}

// DAL is the data access layer for the care API service.
type DAL interface {
	Transact(ctx context.Context, trans func(ctx context.Context, dal DAL) error) error

	CreateAccount(ctx context.Context, account *models.Account) (models.AccountID, error)
	Account(ctx context.Context, id models.AccountID) (*models.Account, error)
	AccountForEmail(ctx context.Context, email string) (*models.Account, error)
	UpdateAccountPassword(ctx context.Context, id models.AccountID, password []byte) (int64, error)

	InsertAuthToken(ctx context.Context, token *models.AuthToken) error
	AuthToken(ctx context.Context, token string, expiresAfter time.Time) (*models.AuthToken, error)
	DeleteAuthToken(ctx context.Context, token string) (int64, error)
	DeleteAuthTokens(ctx context.Context, accountID models.AccountID) (int64, error)

	InsertTempToken(ctx context.Context, tok *models.TempToken) error
	TempToken(ctx context.Context, purpose, token string, expiresAfter time.Time) (*models.TempToken, error)
	DeleteTempTokens(ctx context.Context, purpose string, accountID models.AccountID) (int64, error)

	DeleteExpiredTokens(ctx context.Context, before time.Time) (int64, error)

	CreatePatient(ctx context.Context, patient *models.Patient) (models.PatientID, error)
	Patient(ctx context.Context, id models.PatientID) (*models.Patient, error)
	ListPatients(ctx context.Context, query *PatientQuery) ([]*models.Patient, error)
	UpdatePatient(ctx context.Context, id models.PatientID, update *PatientUpdate) (int64, error)
	DeletePatient(ctx context.Context, id models.PatientID) (int64, error)

	CreateAlert(ctx context.Context, alert *models.Alert) (models.AlertID, error)
	Alert(ctx context.Context, id models.AlertID) (*models.Alert, error)
	ListAlerts(ctx context.Context, activeOnly bool) ([]*models.Alert, error)
	UpdateAlert(ctx context.Context, id models.AlertID, update *AlertUpdate) (int64, error)

	CreateSession(ctx context.Context, session *models.Session) (models.SessionID, error)
	Session(ctx context.Context, id models.SessionID, opts ...QueryOption) (*models.Session, error)
	ListSessions(ctx context.Context, patientID *models.PatientID) ([]*models.Session, error)
	UpdateSession(ctx context.Context, id models.SessionID, update *SessionUpdate) (int64, error)

	InsertPowerReading(ctx context.Context, reading *models.PowerReading) (int64, error)
	LatestPowerReading(ctx context.Context) (*models.PowerReading, error)
	PowerReadings(ctx context.Context, since time.Time) ([]*models.PowerReading, error)
}

type dal struct {
	db tsql.DB
}

// QueryOption modifies the behavior of a read.
type QueryOption int

const (
	// ForUpdateOpt selects the row for update inside a transaction.
	ForUpdateOpt QueryOption = iota << 1
)

type queryOptions []QueryOption

func (qos queryOptions) Has(opt QueryOption) bool {
	for _, o := range qos {
		if o == opt {
			return true
		}
	}
	return false
}

// New returns a DAL backed by the provided database.
func New(db *sql.DB) DAL {
	return &dal{
		db: tsql.AsDB(db),
	}
}

func (d *dal) Transact(ctx context.Context, trans func(ctx context.Context, dal DAL) error) (err error) {
	tx, err := d.db.Begin()
	if err != nil {
		return errors.Trace(err)
	}
	tdal := &dal{
		db: tsql.AsSafeTx(tx),
	}
	// Recover from any inner panics that happened and close the transaction
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			errString := fmt.Sprintf("Encountered panic during transaction execution: %v", r)
			golog.Errorf(errString)
			err = errors.Trace(errors.New(errString))
		}
	}()
	if err := trans(ctx, tdal); err != nil {
		tx.Rollback()
		return errors.Trace(err)
	}
	return errors.Trace(tx.Commit())
}

func (d *dal) CreateAccount(ctx context.Context, account *models.Account) (models.AccountID, error) {
	id, err := models.NewAccountID()
	if err != nil {
		return models.EmptyAccountID(), errors.Trace(err)
	}

	if account.Status == "" {
		account.Status = models.AccountStatusActive
	}
	_, err = d.db.ExecContext(ctx, `
		INSERT INTO account (id, email, password, first_name, last_name, status)
		VALUES (?,?,?,?,?,?)`,
		id, account.Email, account.Password, account.FirstName, account.LastName, account.Status.String())
	if err != nil {
		if dbutil.IsMySQLError(err, dbutil.MySQLDuplicateEntry) {
			return models.EmptyAccountID(), errors.Trace(ErrDuplicateEmail)
		}
		return models.EmptyAccountID(), errors.Trace(err)
	}

	account.ID = id
	return id, nil
}

// ErrDuplicateEmail is returned when creating an account with an email that
// already exists.
var ErrDuplicateEmail = errors.New("careapi/dal: email in use")

func (d *dal) Account(ctx context.Context, id models.AccountID) (*models.Account, error) {
	account := &models.Account{ID: models.EmptyAccountID()}
	if err := d.db.QueryRowContext(ctx, `
		SELECT id, email, password, first_name, last_name, status, created, modified
		FROM account
		WHERE id = ?`, id).Scan(
		&account.ID,
		&account.Email,
		&account.Password,
		&account.FirstName,
		&account.LastName,
		&account.Status,
		&account.Created,
		&account.Modified); err == sql.ErrNoRows {
		return nil, errors.Trace(ErrNotFound)
	} else if err != nil {
		return nil, errors.Trace(err)
	}
	return account, nil
}

func (d *dal) AccountForEmail(ctx context.Context, email string) (*models.Account, error) {
	account := &models.Account{ID: models.EmptyAccountID()}
	if err := d.db.QueryRowContext(ctx, `
		SELECT id, email, password, first_name, last_name, status, created, modified
		FROM account
		WHERE email = ?`, email).Scan(
		&account.ID,
		&account.Email,
		&account.Password,
		&account.FirstName,
		&account.LastName,
		&account.Status,
		&account.Created,
		&account.Modified); err == sql.ErrNoRows {
		return nil, errors.Trace(ErrNotFound)
	} else if err != nil {
		return nil, errors.Trace(err)
	}
	return account, nil
}

func (d *dal) UpdateAccountPassword(ctx context.Context, id models.AccountID, password []byte) (int64, error) {
	res, err := d.db.ExecContext(ctx, `UPDATE account SET password = ? WHERE id = ?`, password, id)
	if err != nil {
		return 0, errors.Trace(err)
	}
	n, err := res.RowsAffected()
	return n, errors.Trace(err)
}

func (d *dal) InsertAuthToken(ctx context.Context, token *models.AuthToken) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO auth_token (token, account_id, expires)
		VALUES (?,?,?)`, token.Token, token.AccountID, token.Expires)
	return errors.Trace(err)
}

func (d *dal) AuthToken(ctx context.Context, token string, expiresAfter time.Time) (*models.AuthToken, error) {
	authToken := &models.AuthToken{AccountID: models.EmptyAccountID()}
	if err := d.db.QueryRowContext(ctx, `
		SELECT token, account_id, created, expires
		FROM auth_token
		WHERE token = ? AND expires > ?`, token, expiresAfter).Scan(
		&authToken.Token,
		&authToken.AccountID,
		&authToken.Created,
		&authToken.Expires); err == sql.ErrNoRows {
		return nil, errors.Trace(ErrNotFound)
	} else if err != nil {
		return nil, errors.Trace(err)
	}
	return authToken, nil
}

func (d *dal) DeleteAuthToken(ctx context.Context, token string) (int64, error) {
	res, err := d.db.ExecContext(ctx, `DELETE FROM auth_token WHERE token = ?`, token)
	if err != nil {
		return 0, errors.Trace(err)
	}
	n, err := res.RowsAffected()
	return n, errors.Trace(err)
}

func (d *dal) DeleteAuthTokens(ctx context.Context, accountID models.AccountID) (int64, error) {
	res, err := d.db.ExecContext(ctx, `DELETE FROM auth_token WHERE account_id = ?`, accountID)
	if err != nil {
		return 0, errors.Trace(err)
	}
	n, err := res.RowsAffected()
	return n, errors.Trace(err)
}

func (d *dal) InsertTempToken(ctx context.Context, tok *models.TempToken) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO temp_token (purpose, token, account_id, expires)
		VALUES (?,?,?,?)`, tok.Purpose, tok.Token, tok.AccountID, tok.Expires)
	return errors.Trace(err)
}

func (d *dal) TempToken(ctx context.Context, purpose, token string, expiresAfter time.Time) (*models.TempToken, error) {
	tok := &models.TempToken{AccountID: models.EmptyAccountID()}
	if err := d.db.QueryRowContext(ctx, `
		SELECT purpose, token, account_id, created, expires
		FROM temp_token
		WHERE purpose = ? AND token = ? AND expires > ?`, purpose, token, expiresAfter).Scan(
		&tok.Purpose,
		&tok.Token,
		&tok.AccountID,
		&tok.Created,
		&tok.Expires); err == sql.ErrNoRows {
		return nil, errors.Trace(ErrNotFound)
	} else if err != nil {
		return nil, errors.Trace(err)
	}
	return tok, nil
}

func (d *dal) DeleteTempTokens(ctx context.Context, purpose string, accountID models.AccountID) (int64, error) {
	res, err := d.db.ExecContext(ctx, `
		DELETE FROM temp_token WHERE purpose = ? AND account_id = ?`, purpose, accountID)
	if err != nil {
		return 0, errors.Trace(err)
	}
	n, err := res.RowsAffected()
	return n, errors.Trace(err)
}

func (d *dal) DeleteExpiredTokens(ctx context.Context, before time.Time) (int64, error) {
	res, err := d.db.ExecContext(ctx, `DELETE FROM auth_token WHERE expires <= ?`, before)
	if err != nil {
		return 0, errors.Trace(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Trace(err)
	}
	res, err = d.db.ExecContext(ctx, `DELETE FROM temp_token WHERE expires <= ?`, before)
	if err != nil {
		return 0, errors.Trace(err)
	}
	n2, err := res.RowsAffected()
	return n + n2, errors.Trace(err)
}

func (d *dal) CreatePatient(ctx context.Context, patient *models.Patient) (models.PatientID, error) {
	id, err := models.NewPatientID()
	if err != nil {
		return models.EmptyPatientID(), errors.Trace(err)
	}

	_, err = d.db.ExecContext(ctx, `
		INSERT INTO patient (id, name, age, clinic, last_visit, status)
		VALUES (?,?,?,?,?,?)`,
		id, patient.Name, patient.Age, patient.Clinic, patient.LastVisit, patient.Status.String())
	if err != nil {
		return models.EmptyPatientID(), errors.Trace(err)
	}

	patient.ID = id
	return id, nil
}

func (d *dal) Patient(ctx context.Context, id models.PatientID) (*models.Patient, error) {
	patient := &models.Patient{ID: models.EmptyPatientID()}
	if err := d.db.QueryRowContext(ctx, `
		SELECT id, name, age, clinic, last_visit, status, created, modified
		FROM patient
		WHERE id = ?`, id).Scan(
		&patient.ID,
		&patient.Name,
		&patient.Age,
		&patient.Clinic,
		&patient.LastVisit,
		&patient.Status,
		&patient.Created,
		&patient.Modified); err == sql.ErrNoRows {
		return nil, errors.Trace(ErrNotFound)
	} else if err != nil {
		return nil, errors.Trace(err)
	}
	return patient, nil
}

func (d *dal) ListPatients(ctx context.Context, query *PatientQuery) ([]*models.Patient, error) {
	q := `
		SELECT id, name, age, clinic, last_visit, status, created, modified
		FROM patient`
	var where []string
	var vals []interface{}
	if query != nil {
		if query.Status != nil {
			where = append(where, "status = ?")
			vals = append(vals, query.Status.String())
		}
		if query.Search != "" {
			where = append(where, "(name LIKE ? OR clinic LIKE ?)")
			pattern := "%" + query.Search + "%"
			vals = append(vals, pattern, pattern)
		}
	}
	for i, w := range where {
		if i == 0 {
			q += "\n\t\tWHERE " + w
		} else {
			q += " AND " + w
		}
	}
	q += "\n\t\tORDER BY name"

	rows, err := d.db.QueryContext(ctx, q, vals...)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer rows.Close()

	var patients []*models.Patient
	for rows.Next() {
		patient := &models.Patient{ID: models.EmptyPatientID()}
		if err := rows.Scan(
			&patient.ID,
			&patient.Name,
			&patient.Age,
			&patient.Clinic,
			&patient.LastVisit,
			&patient.Status,
			&patient.Created,
			&patient.Modified); err != nil {
			return nil, errors.Trace(err)
		}
		patients = append(patients, patient)
	}
	return patients, errors.Trace(rows.Err())
}

func (d *dal) UpdatePatient(ctx context.Context, id models.PatientID, update *PatientUpdate) (int64, error) {
	args := dbutil.MySQLVarArgs()
	if update.Name != nil {
		args.Append("name", *update.Name)
	}
	if update.Age != nil {
		args.Append("age", *update.Age)
	}
	if update.Clinic != nil {
		args.Append("clinic", *update.Clinic)
	}
	if update.LastVisit != nil {
		args.Append("last_visit", *update.LastVisit)
	}
	if update.Status != nil {
		args.Append("status", update.Status.String())
	}
	if args.IsEmpty() {
		return 0, nil
	}

	res, err := d.db.ExecContext(ctx, `
		UPDATE patient
		SET `+args.ColumnsForUpdate()+`
		WHERE id = ?`, append(args.Values(), id)...)
	if err != nil {
		return 0, errors.Trace(err)
	}
	n, err := res.RowsAffected()
	return n, errors.Trace(err)
}

func (d *dal) DeletePatient(ctx context.Context, id models.PatientID) (int64, error) {
	res, err := d.db.ExecContext(ctx, `DELETE FROM patient WHERE id = ?`, id)
	if err != nil {
		return 0, errors.Trace(err)
	}
	n, err := res.RowsAffected()
	return n, errors.Trace(err)
}

func (d *dal) CreateAlert(ctx context.Context, alert *models.Alert) (models.AlertID, error) {
	id, err := models.NewAlertID()
	if err != nil {
		return models.EmptyAlertID(), errors.Trace(err)
	}

	_, err = d.db.ExecContext(ctx, `
		INSERT INTO alert (id, title, description, location, severity, active)
		VALUES (?,?,?,?,?,?)`,
		id, alert.Title, alert.Description, alert.Location, alert.Severity.String(), alert.Active)
	if err != nil {
		return models.EmptyAlertID(), errors.Trace(err)
	}

	alert.ID = id
	return id, nil
}

func (d *dal) Alert(ctx context.Context, id models.AlertID) (*models.Alert, error) {
	alert := &models.Alert{ID: models.EmptyAlertID()}
	if err := d.db.QueryRowContext(ctx, `
		SELECT id, title, description, location, severity, active, created, acknowledged
		FROM alert
		WHERE id = ?`, id).Scan(
		&alert.ID,
		&alert.Title,
		&alert.Description,
		&alert.Location,
		&alert.Severity,
		&alert.Active,
		&alert.Created,
		&alert.Acknowledged); err == sql.ErrNoRows {
		return nil, errors.Trace(ErrNotFound)
	} else if err != nil {
		return nil, errors.Trace(err)
	}
	return alert, nil
}

func (d *dal) ListAlerts(ctx context.Context, activeOnly bool) ([]*models.Alert, error) {
	q := `
		SELECT id, title, description, location, severity, active, created, acknowledged
		FROM alert`
	if activeOnly {
		q += `
		WHERE active = true`
	}
	q += `
		ORDER BY created DESC`

	rows, err := d.db.QueryContext(ctx, q)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer rows.Close()

	var alerts []*models.Alert
	for rows.Next() {
		alert := &models.Alert{ID: models.EmptyAlertID()}
		if err := rows.Scan(
			&alert.ID,
			&alert.Title,
			&alert.Description,
			&alert.Location,
			&alert.Severity,
			&alert.Active,
			&alert.Created,
			&alert.Acknowledged); err != nil {
			return nil, errors.Trace(err)
		}
		alerts = append(alerts, alert)
	}
	return alerts, errors.Trace(rows.Err())
}

func (d *dal) UpdateAlert(ctx context.Context, id models.AlertID, update *AlertUpdate) (int64, error) {
	args := dbutil.MySQLVarArgs()
	if update.Active != nil {
		args.Append("active", *update.Active)
	}
	if update.Acknowledged != nil {
		args.Append("acknowledged", *update.Acknowledged)
	}
	if args.IsEmpty() {
		return 0, nil
	}

	res, err := d.db.ExecContext(ctx, `
		UPDATE alert
		SET `+args.ColumnsForUpdate()+`
		WHERE id = ?`, append(args.Values(), id)...)
	if err != nil {
		return 0, errors.Trace(err)
	}
	n, err := res.RowsAffected()
	return n, errors.Trace(err)
}

func (d *dal) CreateSession(ctx context.Context, session *models.Session) (models.SessionID, error) {
	id, err := models.NewSessionID()
	if err != nil {
		return models.EmptySessionID(), errors.Trace(err)
	}

	_, err = d.db.ExecContext(ctx, `
		INSERT INTO telemedicine_session (id, patient_id, clinician, scheduled_time, status, consultation_type, priority)
		VALUES (?,?,?,?,?,?,?)`,
		id, session.PatientID, session.Clinician, session.ScheduledTime,
		session.Status.String(), session.ConsultationType, session.Priority)
	if err != nil {
		return models.EmptySessionID(), errors.Trace(err)
	}

	session.ID = id
	return id, nil
}

func (d *dal) Session(ctx context.Context, id models.SessionID, opts ...QueryOption) (*models.Session, error) {
	var forUpdate string
	if queryOptions(opts).Has(ForUpdateOpt) {
		forUpdate = `
		FOR UPDATE`
	}
	session := &models.Session{ID: models.EmptySessionID(), PatientID: models.EmptyPatientID()}
	if err := d.db.QueryRowContext(ctx, `
		SELECT id, patient_id, clinician, scheduled_time, status, consultation_type, priority, created, modified
		FROM telemedicine_session
		WHERE id = ?`+forUpdate, id).Scan(
		&session.ID,
		&session.PatientID,
		&session.Clinician,
		&session.ScheduledTime,
		&session.Status,
		&session.ConsultationType,
		&session.Priority,
		&session.Created,
		&session.Modified); err == sql.ErrNoRows {
		return nil, errors.Trace(ErrNotFound)
	} else if err != nil {
		return nil, errors.Trace(err)
	}
	return session, nil
}

func (d *dal) ListSessions(ctx context.Context, patientID *models.PatientID) ([]*models.Session, error) {
	q := `
		SELECT id, patient_id, clinician, scheduled_time, status, consultation_type, priority, created, modified
		FROM telemedicine_session`
	var vals []interface{}
	if patientID != nil {
		q += `
		WHERE patient_id = ?`
		vals = append(vals, *patientID)
	}
	q += `
		ORDER BY scheduled_time`

	rows, err := d.db.QueryContext(ctx, q, vals...)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer rows.Close()

	var sessions []*models.Session
	for rows.Next() {
		session := &models.Session{ID: models.EmptySessionID(), PatientID: models.EmptyPatientID()}
		if err := rows.Scan(
			&session.ID,
			&session.PatientID,
			&session.Clinician,
			&session.ScheduledTime,
			&session.Status,
			&session.ConsultationType,
			&session.Priority,
			&session.Created,
			&session.Modified); err != nil {
			return nil, errors.Trace(err)
		}
		sessions = append(sessions, session)
	}
	return sessions, errors.Trace(rows.Err())
}

func (d *dal) UpdateSession(ctx context.Context, id models.SessionID, update *SessionUpdate) (int64, error) {
	args := dbutil.MySQLVarArgs()
	if update.ScheduledTime != nil {
		args.Append("scheduled_time", *update.ScheduledTime)
	}
	if update.Status != nil {
		args.Append("status", update.Status.String())
	}
	if update.Priority != nil {
		args.Append("priority", *update.Priority)
	}
	if args.IsEmpty() {
		return 0, nil
	}

	res, err := d.db.ExecContext(ctx, `
		UPDATE telemedicine_session
		SET `+args.ColumnsForUpdate()+`
		WHERE id = ?`, append(args.Values(), id)...)
	if err != nil {
		return 0, errors.Trace(err)
	}
	n, err := res.RowsAffected()
	return n, errors.Trace(err)
}

func (d *dal) InsertPowerReading(ctx context.Context, reading *models.PowerReading) (int64, error) {
	res, err := d.db.ExecContext(ctx, `
		INSERT INTO power_reading (stage, source, recorded)
		VALUES (?,?,?)`, reading.Stage, reading.Source, reading.Recorded)
	if err != nil {
		return 0, errors.Trace(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, errors.Trace(err)
	}
	reading.ID = id
	return id, nil
}

func (d *dal) LatestPowerReading(ctx context.Context) (*models.PowerReading, error) {
	reading := &models.PowerReading{}
	if err := d.db.QueryRowContext(ctx, `
		SELECT id, stage, source, recorded
		FROM power_reading
		ORDER BY recorded DESC
		LIMIT 1`).Scan(
		&reading.ID,
		&reading.Stage,
		&reading.Source,
		&reading.Recorded); err == sql.ErrNoRows {
		return nil, errors.Trace(ErrNotFound)
	} else if err != nil {
		return nil, errors.Trace(err)
	}
	return reading, nil
}

func (d *dal) PowerReadings(ctx context.Context, since time.Time) ([]*models.PowerReading, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, stage, source, recorded
		FROM power_reading
		WHERE recorded >= ?
		ORDER BY recorded`, since)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer rows.Close()

	var readings []*models.PowerReading
	for rows.Next() {
		reading := &models.PowerReading{}
		if err := rows.Scan(
			&reading.ID,
			&reading.Stage,
			&reading.Source,
			&reading.Recorded); err != nil {
			return nil, errors.Trace(err)
		}
		readings = append(readings, reading)
	}
	return readings, errors.Trace(rows.Err())
}
