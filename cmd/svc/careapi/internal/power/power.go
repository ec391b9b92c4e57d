// Package power tracks national load-shedding status so clinic staff can
// plan around outages. Status comes from an upstream feed polled on an
// interval, with the last known reading served when the feed is down.
package power

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/samuel/go-metrics/metrics"

	"github.com/mzansicare/backend/cmd/svc/careapi/internal/dal"
	"github.com/mzansicare/backend/cmd/svc/careapi/internal/models"
	"github.com/mzansicare/backend/libs/clock"
	"github.com/mzansicare/backend/libs/errors"
	"github.com/mzansicare/backend/libs/golog"
	"github.com/mzansicare/backend/libs/worker"
)

const (
	// MaxStage is the highest load-shedding stage published by the grid operator.
	MaxStage = 8

	defaultPollInterval = 5 * time.Minute
	fetchTimeout        = 15 * time.Second
)

// Status is the current load-shedding view served to clients.
type Status struct {
	Stage     int       `json:"stage"`
	Active    bool      `json:"active"`
	Source    string    `json:"source"`
	UpdatedAt time.Time `json:"updated_at"`
	Stale     bool      `json:"stale"`
}

// stageResponse is the upstream feed payload.
type stageResponse struct {
	Stage int `json:"stage"`
}

// Monitor polls the upstream feed and keeps the latest reading in memory and
// in the database for history.
type Monitor struct {
	dal        dal.DAL
	url        string
	source     string
	httpClient *http.Client
	clk        clock.Clock

	mu     sync.RWMutex
	latest *Status

	statPolls      *metrics.Counter
	statPollErrors *metrics.Counter
	statStage      *metrics.IntegerGauge
}

// NewMonitor returns a monitor polling url. source names the feed in
// readings, e.g. "eskom".
func NewMonitor(dl dal.DAL, url, source string, clk clock.Clock, metricsRegistry metrics.Registry) *Monitor {
	if clk == nil {
		clk = clock.New()
	}
	m := &Monitor{
		dal:        dl,
		url:        url,
		source:     source,
		httpClient: &http.Client{Timeout: fetchTimeout},
		clk:        clk,

		statPolls:      metrics.NewCounter(),
		statPollErrors: metrics.NewCounter(),
		statStage:      metrics.NewIntegerGauge(),
	}
	if metricsRegistry != nil {
		metricsRegistry.Add("polls", m.statPolls)
		metricsRegistry.Add("poll_errors", m.statPollErrors)
		metricsRegistry.Add("stage", m.statStage)
	}
	return m
}

// Worker returns a repeating worker that polls the feed.
func (m *Monitor) Worker(interval time.Duration) worker.Worker {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return worker.NewRepeat(interval, func() {
		if err := m.Poll(context.Background()); err != nil {
			golog.Context("source", m.source).Warningf("Load-shedding poll failed: %s", err)
		}
	})
}

// Poll fetches the current stage from the feed and records it. On failure
// the previous reading is kept and marked stale.
func (m *Monitor) Poll(ctx context.Context) error {
	m.statPolls.Inc(1)
	stage, err := m.fetchStage(ctx)
	if err != nil {
		m.statPollErrors.Inc(1)
		m.mu.Lock()
		if m.latest != nil {
			m.latest.Stale = true
		}
		m.mu.Unlock()
		return errors.Trace(err)
	}

	now := m.clk.Now()
	m.mu.Lock()
	m.latest = &Status{
		Stage:     stage,
		Active:    stage > 0,
		Source:    m.source,
		UpdatedAt: now,
	}
	m.mu.Unlock()
	m.statStage.Set(int64(stage))

	if _, err := m.dal.InsertPowerReading(ctx, &models.PowerReading{
		Stage:    stage,
		Source:   m.source,
		Recorded: now,
	}); err != nil {
		return errors.Trace(err)
	}
	return nil
}

func (m *Monitor) fetchStage(ctx context.Context) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.url, nil)
	if err != nil {
		return 0, errors.Trace(err)
	}
	res, err := m.httpClient.Do(req)
	if err != nil {
		return 0, errors.Trace(err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return 0, errors.Errorf("power: feed returned status %d", res.StatusCode)
	}
	var sr stageResponse
	if err := json.NewDecoder(res.Body).Decode(&sr); err != nil {
		return 0, errors.Trace(err)
	}
	if sr.Stage < 0 || sr.Stage > MaxStage {
		return 0, errors.Errorf("power: stage %d out of range", sr.Stage)
	}
	return sr.Stage, nil
}

// Current returns the most recent reading. When the monitor has not polled
// yet it falls back to the last reading persisted in the database.
func (m *Monitor) Current(ctx context.Context) (*Status, error) {
	m.mu.RLock()
	latest := m.latest
	m.mu.RUnlock()
	if latest != nil {
		s := *latest
		return &s, nil
	}

	reading, err := m.dal.LatestPowerReading(ctx)
	if errors.Cause(err) == dal.ErrNotFound {
		return nil, errors.Trace(ErrNoReading)
	} else if err != nil {
		return nil, errors.Trace(err)
	}
	return &Status{
		Stage:     reading.Stage,
		Active:    reading.Stage > 0,
		Source:    reading.Source,
		UpdatedAt: reading.Recorded,
		Stale:     true,
	}, nil
}

// ErrNoReading is returned when no load-shedding reading has been recorded yet.
var ErrNoReading = errors.New("power: no reading available")

// History returns the readings recorded since the given time.
func (m *Monitor) History(ctx context.Context, since time.Time) ([]*models.PowerReading, error) {
	readings, err := m.dal.PowerReadings(ctx, since)
	return readings, errors.Trace(err)
}
