package alert

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/hazz-dev/pacprobe/internal/probe"
	"github.com/hazz-dev/pacprobe/internal/version"
)

const sendTimeout = 10 * time.Second

// Alerter posts a webhook whenever the outcome for an endpoint flips,
// at most once per cooldown window per endpoint.
type Alerter struct {
	url      string
	cooldown time.Duration
	client   *http.Client
	logger   *slog.Logger

	mu     sync.Mutex
	sentAt map[string]time.Time

	inflight sync.WaitGroup
}

// New creates a new Alerter. Pass nil logger to use the default logger.
func New(webhookURL string, cooldown time.Duration, logger *slog.Logger) *Alerter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Alerter{
		url:      webhookURL,
		cooldown: cooldown,
		client:   &http.Client{Timeout: sendTimeout},
		logger:   logger,
		sentAt:   make(map[string]time.Time),
	}
}

type transition struct {
	Endpoint        string `json:"endpoint"`
	Outcome         string `json:"outcome"`
	PreviousOutcome string `json:"previous_outcome"`
	StatusCode      int    `json:"status_code"`
	Error           string `json:"error"`
	ResponseTimeMs  int64  `json:"response_time_ms"`
	CheckedAt       string `json:"checked_at"`
	Source          string `json:"source"`
}

func newTransition(r probe.Result, previous probe.Outcome) transition {
	return transition{
		Endpoint:        r.Endpoint,
		Outcome:         string(r.Outcome),
		PreviousOutcome: string(previous),
		StatusCode:      r.StatusCode,
		Error:           r.Error,
		ResponseTimeMs:  r.ResponseTime.Milliseconds(),
		CheckedAt:       r.CheckedAt.UTC().Format(time.RFC3339),
		Source:          "pacprobe",
	}
}

// Notify matches the scheduler's result hook. The first result for an
// endpoint (previous == nil) and unchanged outcomes are ignored.
func (a *Alerter) Notify(result probe.Result, previous *probe.Outcome) {
	if previous == nil || result.Outcome == *previous {
		return
	}
	if !a.claim(result.Endpoint, time.Now()) {
		a.logger.Info("alert suppressed by cooldown", "endpoint", result.Endpoint)
		return
	}

	t := newTransition(result, *previous)
	a.inflight.Add(1)
	go func() {
		defer a.inflight.Done()
		if err := a.post(t); err != nil {
			a.logger.Error("sending webhook", "endpoint", t.Endpoint, "url", a.url, "error", err)
		}
	}()
}

// claim reports whether an alert may go out for endpoint at now, and if
// so starts a new cooldown window.
func (a *Alerter) claim(endpoint string, now time.Time) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if last, ok := a.sentAt[endpoint]; ok && now.Sub(last) < a.cooldown {
		return false
	}
	a.sentAt[endpoint] = now
	return true
}

// Wait blocks until in-flight webhooks have finished.
func (a *Alerter) Wait() {
	a.inflight.Wait()
}

func (a *Alerter) post(t transition) error {
	body, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}
	req, err := http.NewRequest(http.MethodPost, a.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "pacprobe/"+version.Version)

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		a.logger.Warn("webhook rejected", "endpoint", t.Endpoint, "status", resp.StatusCode)
	}
	return nil
}
