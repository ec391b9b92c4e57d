// Package models contains the data types for the care API service.
package models

import (
	"strings"
	"time"

	"github.com/mzansicare/backend/libs/errors"
	"github.com/mzansicare/backend/libs/idgen"
	"github.com/mzansicare/backend/libs/model"
)

// ID prefixes for the object types owned by this service.
const (
	AccountIDPrefix = "acct_"
	PatientIDPrefix = "pt_"
	AlertIDPrefix   = "al_"
	SessionIDPrefix = "ts_"
)

// AccountID is the ID for an account.
type AccountID struct{ model.ObjectID }

func NewAccountID() (AccountID, error) {
	id, err := idgen.NewID()
	if err != nil {
		return AccountID{}, errors.Trace(err)
	}
	return AccountID{model.ObjectID{Prefix: AccountIDPrefix, Val: id, IsValid: true}}, nil
}

func ParseAccountID(s string) (AccountID, error) {
	id := EmptyAccountID()
	err := id.UnmarshalText([]byte(s))
	return id, errors.Trace(err)
}

func EmptyAccountID() AccountID {
	return AccountID{model.ObjectID{Prefix: AccountIDPrefix}}
}

// PatientID is the ID for a patient record.
type PatientID struct{ model.ObjectID }

func NewPatientID() (PatientID, error) {
	id, err := idgen.NewID()
	if err != nil {
		return PatientID{}, errors.Trace(err)
	}
	return PatientID{model.ObjectID{Prefix: PatientIDPrefix, Val: id, IsValid: true}}, nil
}

func ParsePatientID(s string) (PatientID, error) {
	id := EmptyPatientID()
	err := id.UnmarshalText([]byte(s))
	return id, errors.Trace(err)
}

func EmptyPatientID() PatientID {
	return PatientID{model.ObjectID{Prefix: PatientIDPrefix}}
}

// AlertID is the ID for an emergency alert.
type AlertID struct{ model.ObjectID }

func NewAlertID() (AlertID, error) {
	id, err := idgen.NewID()
	if err != nil {
		return AlertID{}, errors.Trace(err)
	}
	return AlertID{model.ObjectID{Prefix: AlertIDPrefix, Val: id, IsValid: true}}, nil
}

func ParseAlertID(s string) (AlertID, error) {
	id := EmptyAlertID()
	err := id.UnmarshalText([]byte(s))
	return id, errors.Trace(err)
}

func EmptyAlertID() AlertID {
	return AlertID{model.ObjectID{Prefix: AlertIDPrefix}}
}

// SessionID is the ID for a telemedicine session.
type SessionID struct{ model.ObjectID }

func NewSessionID() (SessionID, error) {
	id, err := idgen.NewID()
	if err != nil {
		return SessionID{}, errors.Trace(err)
	}
	return SessionID{model.ObjectID{Prefix: SessionIDPrefix, Val: id, IsValid: true}}, nil
}

func ParseSessionID(s string) (SessionID, error) {
	id := EmptySessionID()
	err := id.UnmarshalText([]byte(s))
	return id, errors.Trace(err)
}

func EmptySessionID() SessionID {
	return SessionID{model.ObjectID{Prefix: SessionIDPrefix}}
}

// AccountStatus represents the status column of the account table.
type AccountStatus string

const (
	AccountStatusActive    AccountStatus = "ACTIVE"
	AccountStatusSuspended AccountStatus = "SUSPENDED"
	AccountStatusDeleted   AccountStatus = "DELETED"
)

// ParseAccountStatus converts a string into the corresponding enum value.
func ParseAccountStatus(s string) (AccountStatus, error) {
	switch t := AccountStatus(strings.ToUpper(s)); t {
	case AccountStatusActive, AccountStatusSuspended, AccountStatusDeleted:
		return t, nil
	}
	return "", errors.Errorf("unknown account status '%s'", s)
}

func (t AccountStatus) String() string {
	return string(t)
}

// Scan implements sql.Scanner.
func (t *AccountStatus) Scan(src interface{}) error {
	var err error
	switch v := src.(type) {
	case string:
		*t, err = ParseAccountStatus(v)
	case []byte:
		*t, err = ParseAccountStatus(string(v))
	}
	return errors.Trace(err)
}

// PatientStatus is the categorical status label on a patient record.
type PatientStatus string

const (
	PatientStatusActive   PatientStatus = "ACTIVE"
	PatientStatusCritical PatientStatus = "CRITICAL"
	PatientStatusFollowUp PatientStatus = "FOLLOW_UP"
)

// ParsePatientStatus converts a string into the corresponding enum value.
// The mobile client's display labels ("Follow-up") are accepted.
func ParsePatientStatus(s string) (PatientStatus, error) {
	norm := strings.ToUpper(strings.NewReplacer("-", "_", " ", "_").Replace(s))
	switch t := PatientStatus(norm); t {
	case PatientStatusActive, PatientStatusCritical, PatientStatusFollowUp:
		return t, nil
	}
	return "", errors.Errorf("unknown patient status '%s'", s)
}

func (t PatientStatus) String() string {
	return string(t)
}

// Scan implements sql.Scanner.
func (t *PatientStatus) Scan(src interface{}) error {
	var err error
	switch v := src.(type) {
	case string:
		*t, err = ParsePatientStatus(v)
	case []byte:
		*t, err = ParsePatientStatus(string(v))
	}
	return errors.Trace(err)
}

// AlertSeverity is the severity level of an emergency alert.
type AlertSeverity string

const (
	AlertSeverityUrgent  AlertSeverity = "URGENT"
	AlertSeverityWarning AlertSeverity = "WARNING"
	AlertSeverityInfo    AlertSeverity = "INFO"
)

// ParseAlertSeverity converts a string into the corresponding enum value.
func ParseAlertSeverity(s string) (AlertSeverity, error) {
	switch t := AlertSeverity(strings.ToUpper(s)); t {
	case AlertSeverityUrgent, AlertSeverityWarning, AlertSeverityInfo:
		return t, nil
	}
	return "", errors.Errorf("unknown alert severity '%s'", s)
}

func (t AlertSeverity) String() string {
	return string(t)
}

// Scan implements sql.Scanner.
func (t *AlertSeverity) Scan(src interface{}) error {
	var err error
	switch v := src.(type) {
	case string:
		*t, err = ParseAlertSeverity(v)
	case []byte:
		*t, err = ParseAlertSeverity(string(v))
	}
	return errors.Trace(err)
}

// SessionStatus is the scheduling state of a telemedicine session.
type SessionStatus string

const (
	SessionStatusScheduled   SessionStatus = "SCHEDULED"
	SessionStatusWaiting     SessionStatus = "WAITING"
	SessionStatusInProgress  SessionStatus = "IN_PROGRESS"
	SessionStatusCompleted   SessionStatus = "COMPLETED"
	SessionStatusCancelled   SessionStatus = "CANCELLED"
	SessionStatusRescheduled SessionStatus = "RESCHEDULED"
)

// ParseSessionStatus converts a string into the corresponding enum value.
func ParseSessionStatus(s string) (SessionStatus, error) {
	norm := strings.ToUpper(strings.NewReplacer("-", "_", " ", "_").Replace(s))
	switch t := SessionStatus(norm); t {
	case SessionStatusScheduled, SessionStatusWaiting, SessionStatusInProgress,
		SessionStatusCompleted, SessionStatusCancelled, SessionStatusRescheduled:
		return t, nil
	}
	return "", errors.Errorf("unknown session status '%s'", s)
}

func (t SessionStatus) String() string {
	return string(t)
}

// Terminal returns true for states no further transition may leave.
func (t SessionStatus) Terminal() bool {
	return t == SessionStatusCompleted || t == SessionStatusCancelled
}

// CanTransitionTo reports whether a session may move from its current status
// to next. Completed and cancelled sessions never change.
func (t SessionStatus) CanTransitionTo(next SessionStatus) bool {
	if t.Terminal() || t == next {
		return false
	}
	switch t {
	case SessionStatusScheduled, SessionStatusRescheduled:
		switch next {
		case SessionStatusWaiting, SessionStatusInProgress, SessionStatusCancelled, SessionStatusRescheduled:
			return true
		}
	case SessionStatusWaiting:
		switch next {
		case SessionStatusInProgress, SessionStatusCancelled:
			return true
		}
	case SessionStatusInProgress:
		switch next {
		case SessionStatusCompleted, SessionStatusCancelled:
			return true
		}
	}
	return false
}

// Scan implements sql.Scanner.
func (t *SessionStatus) Scan(src interface{}) error {
	var err error
	switch v := src.(type) {
	case string:
		*t, err = ParseSessionStatus(v)
	case []byte:
		*t, err = ParseSessionStatus(string(v))
	}
	return errors.Trace(err)
}

// Account represents an account record.
type Account struct {
	ID        AccountID
	Email     string
	Password  []byte
	FirstName string
	LastName  string
	Status    AccountStatus
	Created   time.Time
	Modified  time.Time
}

// AuthToken represents an auth_token record.
type AuthToken struct {
	Token     []byte
	AccountID AccountID
	Created   time.Time
	Expires   time.Time
}

// TempToken is a short lived token bound to a purpose, used for password
// resets and verification codes.
type TempToken struct {
	Purpose   string
	Token     string
	AccountID AccountID
	Created   time.Time
	Expires   time.Time
}

// Patient represents a patient record.
type Patient struct {
	ID        PatientID
	Name      string
	Age       int
	Clinic    string
	LastVisit *time.Time
	Status    PatientStatus
	Created   time.Time
	Modified  time.Time
}

// Alert represents an emergency alert record.
type Alert struct {
	ID           AlertID
	Title        string
	Description  string
	Location     string
	Severity     AlertSeverity
	Active       bool
	Created      time.Time
	Acknowledged *time.Time
}

// Session represents a telemedicine session record.
type Session struct {
	ID               SessionID
	PatientID        PatientID
	Clinician        string
	ScheduledTime    time.Time
	Status           SessionStatus
	ConsultationType string
	Priority         string
	Created          time.Time
	Modified         time.Time
}

// PowerReading is a single load-shedding status observation.
type PowerReading struct {
	ID       int64
	Stage    int
	Source   string
	Recorded time.Time
}
