package handlers

import (
	"time"

	"github.com/mzansicare/backend/cmd/svc/careapi/internal/models"
	"github.com/mzansicare/backend/cmd/svc/careapi/internal/notify"
)

type accountResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func transformAccount(a *models.Account) *accountResponse {
	return &accountResponse{
		ID:        a.ID.String(),
		Email:     a.Email,
		FirstName: a.FirstName,
		LastName:  a.LastName,
	}
}

type patientResponse struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Age       int        `json:"age"`
	Clinic    string     `json:"clinic,omitempty"`
	LastVisit *time.Time `json:"last_visit,omitempty"`
	Status    string     `json:"status"`
	Created   time.Time  `json:"created"`
	Modified  time.Time  `json:"modified"`
}

func transformPatient(p *models.Patient) *patientResponse {
	return &patientResponse{
		ID:        p.ID.String(),
		Name:      p.Name,
		Age:       p.Age,
		Clinic:    p.Clinic,
		LastVisit: p.LastVisit,
		Status:    p.Status.String(),
		Created:   p.Created,
		Modified:  p.Modified,
	}
}

type alertResponse struct {
	ID           string             `json:"id"`
	Title        string             `json:"title"`
	Description  string             `json:"description,omitempty"`
	Location     string             `json:"location,omitempty"`
	Severity     string             `json:"severity"`
	Active       bool               `json:"active"`
	Created      time.Time          `json:"created"`
	Acknowledged *time.Time         `json:"acknowledged,omitempty"`
	ShareLinks   *notify.ShareLinks `json:"share_links"`
}

func transformAlert(a *models.Alert) *alertResponse {
	return &alertResponse{
		ID:           a.ID.String(),
		Title:        a.Title,
		Description:  a.Description,
		Location:     a.Location,
		Severity:     a.Severity.String(),
		Active:       a.Active,
		Created:      a.Created,
		Acknowledged: a.Acknowledged,
		ShareLinks:   notify.AlertShareLinks(a),
	}
}

type sessionResponse struct {
	ID               string    `json:"id"`
	PatientID        string    `json:"patient_id"`
	Clinician        string    `json:"clinician,omitempty"`
	ScheduledTime    time.Time `json:"scheduled_time"`
	Status           string    `json:"status"`
	ConsultationType string    `json:"consultation_type,omitempty"`
	Priority         string    `json:"priority,omitempty"`
	Created          time.Time `json:"created"`
	Modified         time.Time `json:"modified"`
}

func transformSession(s *models.Session) *sessionResponse {
	return &sessionResponse{
		ID:               s.ID.String(),
		PatientID:        s.PatientID.String(),
		Clinician:        s.Clinician,
		ScheduledTime:    s.ScheduledTime,
		Status:           s.Status.String(),
		ConsultationType: s.ConsultationType,
		Priority:         s.Priority,
		Created:          s.Created,
		Modified:         s.Modified,
	}
}
