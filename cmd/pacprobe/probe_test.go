package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hazz-dev/pacprobe/internal/config"
	"github.com/hazz-dev/pacprobe/internal/probe"
)

const testKey = "ABCDEFGHIJKLMNOPQRSTuvwxyz0123456789"

type fakeRecorder struct {
	results []probe.Result
	err     error
}

func (f *fakeRecorder) InsertProbe(_ context.Context, r probe.Result) error {
	f.results = append(f.results, r)
	return f.err
}

func probeAgainst(t *testing.T, status int, body string) (string, error) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	defer srv.Close()

	creds := config.Credentials{BaseURL: srv.URL, APIKey: testKey}
	var buf bytes.Buffer
	err := executeProbe(context.Background(), &buf, creds, probe.New(creds, 5*time.Second), nil)
	return buf.String(), err
}

func TestExecuteProbe_SuccessWithPlants(t *testing.T) {
	blurb := strings.Repeat("b", 80)
	output, err := probeAgainst(t, http.StatusOK, `[{"symbol":"ASSY","blurb":"`+blurb+`"},{"symbol":"ASTU"}]`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, want := range []string{
		"✅ Loaded credentials from .env",
		"API Key: ABCDEFGHIJKLMNOPQRST...0123456789",
		"Endpoint: http://",
		"/Plant/FindByName\n",
		"Method: GET",
		"✅ Authentication successful!",
		"Status Code: 200",
		"Response: 2 plant(s) found",
		"First result: ASSY - " + strings.Repeat("b", 50) + "...\n",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, output)
		}
	}
}

func TestExecuteProbe_SuccessEmptyList(t *testing.T) {
	output, err := probeAgainst(t, http.StatusOK, `[]`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(output, "Response: 0 plant(s) found") {
		t.Errorf("expected zero count, got:\n%s", output)
	}
	if strings.Contains(output, "First result") {
		t.Errorf("expected no first result for an empty list, got:\n%s", output)
	}
}

func TestExecuteProbe_SuccessNonJSON(t *testing.T) {
	body := strings.Repeat("t", 150)
	output, err := probeAgainst(t, http.StatusOK, body)
	if err != nil {
		t.Fatalf("a parse failure must not fail the probe: %v", err)
	}
	if !strings.Contains(output, "Response: "+strings.Repeat("t", 100)+"...\n") {
		t.Errorf("expected 100-char raw preview, got:\n%s", output)
	}
}

func TestExecuteProbe_SuccessArrayOfNonObjects(t *testing.T) {
	output, err := probeAgainst(t, http.StatusOK, `["a","b","c"]`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(output, "3 plant(s) found") {
		t.Errorf("expected element count, got:\n%s", output)
	}
	if !strings.Contains(output, `Response: ["a","b","c"]...`) {
		t.Errorf("expected raw body fallback, got:\n%s", output)
	}
	if strings.Contains(output, "First result:") {
		t.Errorf("unexpected first result line, got:\n%s", output)
	}
}

func TestExecuteProbe_Unauthorized(t *testing.T) {
	body := "Invalid API key. " + strings.Repeat("z", 300)
	output, err := probeAgainst(t, http.StatusUnauthorized, body)
	if !errors.Is(err, errProbeFailed) {
		t.Fatalf("expected errProbeFailed, got %v", err)
	}
	if !strings.Contains(output, "❌ Authentication failed!") {
		t.Errorf("expected failure marker, got:\n%s", output)
	}
	if !strings.Contains(output, "Status Code: 401 (Unauthorized)") {
		t.Errorf("expected 401 line, got:\n%s", output)
	}
	if !strings.Contains(output, "Response: "+body+"\n") {
		t.Errorf("expected full body, got:\n%s", output)
	}
}

func TestExecuteProbe_UnexpectedStatus(t *testing.T) {
	output, err := probeAgainst(t, http.StatusInternalServerError, strings.Repeat("e", 500))
	if !errors.Is(err, errProbeFailed) {
		t.Fatalf("expected errProbeFailed, got %v", err)
	}
	if !strings.Contains(output, "⚠️  Unexpected status code: 500") {
		t.Errorf("expected unexpected status line, got:\n%s", output)
	}
	if !strings.Contains(output, "Response: "+strings.Repeat("e", 200)+"\n") {
		t.Errorf("expected body truncated to 200 chars, got:\n%s", output)
	}
}

func TestExecuteProbe_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	creds := config.Credentials{BaseURL: srv.URL, APIKey: testKey}
	var buf bytes.Buffer
	err := executeProbe(context.Background(), &buf, creds, probe.New(creds, 50*time.Millisecond), nil)
	if !errors.Is(err, errProbeFailed) {
		t.Fatalf("expected errProbeFailed, got %v", err)
	}
	if !strings.Contains(buf.String(), "❌ Request failed: ") {
		t.Errorf("expected network failure message, got:\n%s", buf.String())
	}
}

func TestExecuteProbe_RecordsResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	creds := config.Credentials{BaseURL: srv.URL, APIKey: testKey}
	rec := &fakeRecorder{err: errors.New("disk full")}
	var buf bytes.Buffer
	err := executeProbe(context.Background(), &buf, creds, probe.New(creds, time.Second), rec)
	if !errors.Is(err, errProbeFailed) {
		t.Errorf("expected errProbeFailed, got %v", err)
	}

	if len(rec.results) != 1 {
		t.Fatalf("expected 1 recorded probe, got %d", len(rec.results))
	}
	if rec.results[0].Outcome != probe.OutcomeUnauthorized {
		t.Errorf("expected unauthorized recorded, got %q", rec.results[0].Outcome)
	}
	if !strings.Contains(buf.String(), "Could not record probe: disk full") {
		t.Errorf("expected record failure to be reported, got:\n%s", buf.String())
	}
}

func TestMaskKey(t *testing.T) {
	tests := []struct {
		name string
		key  string
		want string
	}{
		{"long key", testKey, "ABCDEFGHIJKLMNOPQRST...0123456789"},
		{"31 chars", strings.Repeat("a", 20) + "b" + strings.Repeat("c", 10), strings.Repeat("a", 20) + "..." + strings.Repeat("c", 10)},
		{"exactly 30 chars", strings.Repeat("k", 30), strings.Repeat("*", 30) + " (30 chars)"},
		{"short key", "secret", "****** (6 chars)"},
		{"empty", "", " (0 chars)"},
		{"multibyte", strings.Repeat("é", 20) + "-" + strings.Repeat("ü", 10), strings.Repeat("é", 20) + "..." + strings.Repeat("ü", 10)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := maskKey(tt.key); got != tt.want {
				t.Errorf("maskKey(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("expected unchanged, got %q", got)
	}
	if got := truncate("abcdef", 3); got != "abc" {
		t.Errorf("expected 'abc', got %q", got)
	}
	if got := truncate("ééééé", 2); got != "éé" {
		t.Errorf("expected rune-aware cut, got %q", got)
	}
}
