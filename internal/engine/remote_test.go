package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/swarmoffice/orchestrator/internal/agents"
	"github.com/swarmoffice/orchestrator/internal/domain"
)

func wireEvent(t *testing.T, ev domain.SwarmEvent) string {
	t.Helper()
	data, err := json.Marshal(ev)
	if err != nil {
		t.Fatal(err)
	}
	return fmt.Sprintf("data: %s\n\n", data)
}

func serveRunStream(t *testing.T, events []domain.SwarmEvent, gotReq *domain.RunRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/ceo/run" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if gotReq != nil {
			if err := json.NewDecoder(r.Body).Decode(gotReq); err != nil {
				t.Errorf("failed to decode run request: %v", err)
			}
		}
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, ev := range events {
			fmt.Fprint(w, wireEvent(t, ev))
			flusher.Flush()
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
		flusher.Flush()
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRunRemoteProjectsServerEvents(t *testing.T) {
	events := []domain.SwarmEvent{
		domain.NewSwarmEvent(domain.EventPhase, agents.OrchestratorActor,
			"Phase A: Strategic Breakdown — decomposing directive",
			map[string]interface{}{"phase": string(domain.PhaseStrategicBreakdown)}),
		domain.NewSwarmEvent(domain.EventAgentMessage, agents.OrchestratorActor, "Task plan created", nil),
		domain.NewSwarmEvent(domain.EventPhase, agents.OrchestratorActor,
			"Phase B: Parallel Execution — dispatching to workers",
			map[string]interface{}{"phase": string(domain.PhaseParallelWork)}),
		domain.NewSwarmEvent(domain.EventAgentMessage, "mac-mini", "mac-mini starting work...", nil),
		domain.NewSwarmEvent(domain.EventAgentMessage, "mac-mini", "mac-mini completed work",
			map[string]interface{}{"outputPreview": "wrote the service layer"}),
		domain.NewSwarmEvent(domain.EventPhase, agents.OrchestratorActor,
			"Phase C: Internal Review — agents cross-review",
			map[string]interface{}{"phase": string(domain.PhaseInternalReview)}),
		domain.NewSwarmEvent(domain.EventPhase, agents.OrchestratorActor,
			"Phase D: Consolidation — producing executive output",
			map[string]interface{}{"phase": string(domain.PhaseConsolidation)}),
		domain.NewSwarmEvent(domain.EventFinal, agents.OrchestratorActor, "Executive output ready",
			map[string]interface{}{"runId": "run_remote01", "finalOutput": "## Executive Summary\ndone"}),
	}
	var gotReq domain.RunRequest
	srv := serveRunStream(t, events, &gotReq)

	eng := New(agents.Default(), &fakeChat{})
	cfg := drainConfig()
	cfg.DeviceID = "device-9"

	final, err := eng.RunRemote(context.Background(), cfg, srv.URL, srv.Client())
	if err != nil {
		t.Fatalf("RunRemote failed: %v", err)
	}

	if gotReq.Goal != cfg.Directive || gotReq.Mode != cfg.Depth {
		t.Fatalf("run request not forwarded: %+v", gotReq)
	}
	if gotReq.Budgets.MaxTokens != cfg.TokenCap || gotReq.DeviceID != "device-9" {
		t.Fatalf("run request not forwarded: %+v", gotReq)
	}

	if final.Phase != domain.PhaseComplete {
		t.Fatalf("phase = %s, want complete", final.Phase)
	}
	if final.RunID != "run_remote01" {
		t.Fatalf("run id = %q", final.RunID)
	}
	if !strings.Contains(final.FinalOutput, "## Executive Summary") {
		t.Fatalf("final output = %q", final.FinalOutput)
	}
	if len(final.SwarmEvents) != len(events) {
		t.Fatalf("recorded %d wire events, want %d", len(final.SwarmEvents), len(events))
	}

	var macTask *Task
	for i := range final.Tasks {
		if final.Tasks[i].AgentID == "mac-mini" {
			macTask = &final.Tasks[i]
		}
	}
	if macTask == nil {
		t.Fatal("mac-mini task missing")
	}
	if macTask.Status != domain.TaskDone || macTask.Output != "wrote the service layer" {
		t.Fatalf("mac-mini task not projected: %+v", macTask)
	}
}

func TestRunRemoteProjectsErrorEvent(t *testing.T) {
	errEv := domain.NewSwarmEvent(domain.EventError, agents.OrchestratorActor,
		"Error: usage limit reached, please add credits to continue", nil)
	errEv.Severity = domain.SeverityError
	srv := serveRunStream(t, []domain.SwarmEvent{errEv}, nil)

	eng := New(agents.Default(), &fakeChat{})
	final, err := eng.RunRemote(context.Background(), drainConfig(), srv.URL, srv.Client())
	if err != nil {
		t.Fatalf("RunRemote returned %v; the failure belongs in the state", err)
	}
	if final.Phase != domain.PhaseAborted {
		t.Fatalf("phase = %s, want aborted", final.Phase)
	}
	if final.Error != "usage limit reached, please add credits to continue" {
		t.Fatalf("error = %q", final.Error)
	}
}

func TestRunRemoteTraceFallbackForPhase(t *testing.T) {
	// Older emitters carry no structured payload on phase events; the trace
	// text still identifies the phase.
	events := []domain.SwarmEvent{
		domain.NewSwarmEvent(domain.EventPhase, agents.OrchestratorActor,
			"Phase C: Internal Review — agents cross-review", nil),
	}
	srv := serveRunStream(t, events, nil)

	eng := New(agents.Default(), &fakeChat{})
	snapshots := eng.Snapshots()
	if _, err := eng.RunRemote(context.Background(), drainConfig(), srv.URL, srv.Client()); err != nil {
		t.Fatalf("RunRemote failed: %v", err)
	}

	sawReview := false
	for {
		select {
		case snap := <-snapshots:
			if snap.Phase == domain.PhaseInternalReview {
				sawReview = true
			}
		default:
			if !sawReview {
				t.Fatal("review phase never projected from trace text")
			}
			return
		}
	}
}

func TestRunRemoteServerRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":"goal is required"}`)
	}))
	t.Cleanup(srv.Close)

	eng := New(agents.Default(), &fakeChat{})
	final, err := eng.RunRemote(context.Background(), drainConfig(), srv.URL, srv.Client())
	if err == nil {
		t.Fatal("expected error for rejected run")
	}
	if !strings.Contains(err.Error(), "400") {
		t.Fatalf("error = %v", err)
	}
	if final.Phase != domain.PhaseAborted {
		t.Fatalf("phase = %s, want aborted", final.Phase)
	}
	if final.Error == "" {
		t.Fatal("rejection should be recorded in state")
	}
}
