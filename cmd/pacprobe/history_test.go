package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/hazz-dev/pacprobe/internal/storage"
)

type mockHistoryStore struct {
	probes   []storage.Probe
	err      error
	gotLimit int
}

func (m *mockHistoryStore) Recent(_ context.Context, limit int) ([]storage.Probe, error) {
	m.gotLimit = limit
	return m.probes, m.err
}

func newTestCmd(buf *bytes.Buffer) *cobra.Command {
	cmd := &cobra.Command{}
	cmd.SetOut(buf)
	cmd.SetContext(context.Background())
	return cmd
}

func TestExecuteHistory_EmptyDB(t *testing.T) {
	var buf bytes.Buffer
	err := executeHistory(newTestCmd(&buf), &mockHistoryStore{}, 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "No probe history") {
		t.Errorf("expected 'No probe history' message, got:\n%s", buf.String())
	}
}

func TestExecuteHistory_WithProbes(t *testing.T) {
	store := &mockHistoryStore{probes: []storage.Probe{
		{ID: 2, Endpoint: "https://stage/Plant/FindByName", Outcome: "network_error", Error: "connection refused", CheckedAt: time.Now()},
		{ID: 1, Endpoint: "https://stage/Plant/FindByName", Outcome: "success", StatusCode: 200, ResponseMs: 42, CheckedAt: time.Now()},
	}}

	var buf bytes.Buffer
	if err := executeHistory(newTestCmd(&buf), store, 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.gotLimit != 5 {
		t.Errorf("expected limit 5 passed to store, got %d", store.gotLimit)
	}

	output := buf.String()
	for _, want := range []string{"OUTCOME", "success", "network_error", "200", "42ms", "connection refused", "https://stage/Plant/FindByName"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got:\n%s", want, output)
		}
	}
}

func TestExecuteHistory_StoreError(t *testing.T) {
	var buf bytes.Buffer
	err := executeHistory(newTestCmd(&buf), &mockHistoryStore{err: errors.New("locked")}, 5)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}
