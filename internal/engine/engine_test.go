package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/swarmoffice/orchestrator/internal/agents"
	"github.com/swarmoffice/orchestrator/internal/domain"
	"github.com/swarmoffice/orchestrator/internal/llm"
)

// fakeChat is a scripted ChatStreamer. Each call delivers one delta and
// succeeds unless the script says otherwise. afterCall runs once the
// stream's callbacks have fired, before control returns to the engine.
type fakeChat struct {
	mu        sync.Mutex
	calls     []llm.StreamOptions
	onCall    func(n int, opts llm.StreamOptions) (output string, failure string)
	afterCall func(n int)
}

func (f *fakeChat) StreamChat(ctx context.Context, opts llm.StreamOptions) {
	f.mu.Lock()
	n := len(f.calls)
	f.calls = append(f.calls, opts)
	f.mu.Unlock()

	output, failure := fmt.Sprintf("output-%d", n), ""
	if f.onCall != nil {
		output, failure = f.onCall(n, opts)
	}
	switch {
	case failure != "":
		opts.OnError(failure)
	case ctx.Err() != nil:
		if opts.OnDone != nil {
			opts.OnDone()
		}
	default:
		if opts.OnDelta != nil && output != "" {
			opts.OnDelta(output)
		}
		if opts.OnDone != nil {
			opts.OnDone()
		}
	}
	if f.afterCall != nil {
		f.afterCall(n)
	}
}

func (f *fakeChat) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func drainConfig() Config {
	return Config{
		Directive: "ship the beta",
		Depth:     domain.DepthBalanced,
		Model:     "test-model",
		TokenCap:  8192,
	}
}

func TestRunCompletesAllPhases(t *testing.T) {
	chat := &fakeChat{}
	eng := New(agents.Default(), chat)

	final := eng.Run(context.Background(), drainConfig())

	if final.Phase != domain.PhaseComplete {
		t.Fatalf("phase = %s, want complete", final.Phase)
	}
	if final.Error != "" {
		t.Fatalf("unexpected error %q", final.Error)
	}
	// breakdown + 4 agents + review + consolidation
	if got := chat.callCount(); got != 7 {
		t.Fatalf("chat called %d times, want 7", got)
	}
	if len(final.Tasks) != 4 {
		t.Fatalf("got %d tasks", len(final.Tasks))
	}
	for i, task := range final.Tasks {
		if task.Status != domain.TaskDone {
			t.Fatalf("task %d status %s, want done", i, task.Status)
		}
		if task.Output == "" {
			t.Fatalf("task %d has no output", i)
		}
	}
	if final.FinalOutput != "output-6" {
		t.Fatalf("final output = %q", final.FinalOutput)
	}

	var finals int
	for _, ev := range final.SwarmEvents {
		if ev.Type == domain.EventFinal {
			finals++
		}
	}
	if finals != 1 {
		t.Fatalf("got %d final events, want exactly 1", finals)
	}
}

func TestRunUsesConsolidationDoubleBudget(t *testing.T) {
	chat := &fakeChat{}
	eng := New(agents.Default(), chat)
	eng.Run(context.Background(), drainConfig())

	budget := domain.PerCallBudget(8192, 4)
	for n, opts := range chat.calls {
		want := budget
		if n == 6 {
			want = budget * 2
		}
		if opts.MaxTokens != want {
			t.Fatalf("call %d max tokens %d, want %d", n, opts.MaxTokens, want)
		}
	}
}

func TestRunSecondCallRejectedWhileRunning(t *testing.T) {
	started := make(chan struct{})
	block := make(chan struct{})
	chat := &fakeChat{onCall: func(n int, opts llm.StreamOptions) (string, string) {
		if n == 0 {
			close(started)
			<-block
		}
		return fmt.Sprintf("output-%d", n), ""
	}}
	eng := New(agents.Default(), chat)

	done := make(chan RunState, 1)
	go func() { done <- eng.Run(context.Background(), drainConfig()) }()
	<-started

	second := eng.Run(context.Background(), drainConfig())
	if second.Phase != domain.PhaseStrategicBreakdown {
		t.Fatalf("second Run should observe the in-flight state, got %s", second.Phase)
	}

	close(block)
	final := <-done
	if final.Phase != domain.PhaseComplete {
		t.Fatalf("first run ended in %s", final.Phase)
	}
	if got := chat.callCount(); got != 7 {
		t.Fatalf("second Run must not add calls, got %d", got)
	}
}

func TestAbortBeforeAgentWork(t *testing.T) {
	var eng *Engine
	chat := &fakeChat{}
	chat.afterCall = func(n int) {
		if n == 0 {
			eng.Abort()
		}
	}
	eng = New(agents.Default(), chat)

	final := eng.Run(context.Background(), drainConfig())

	if final.Phase != domain.PhaseAborted {
		t.Fatalf("phase = %s, want aborted", final.Phase)
	}
	if final.Error != "" {
		t.Fatalf("user abort must not record an error, got %q", final.Error)
	}
	for i, task := range final.Tasks {
		if task.Status != domain.TaskPending {
			t.Fatalf("task %d status %s, want pending", i, task.Status)
		}
	}
	if got := chat.callCount(); got != 1 {
		t.Fatalf("chat called %d times after abort, want 1", got)
	}
}

func TestAbortDuringAgentWork(t *testing.T) {
	var eng *Engine
	chat := &fakeChat{}
	chat.afterCall = func(n int) {
		// n==2 is the second agent; abort once its stream returns so no
		// further agents start.
		if n == 2 {
			eng.Abort()
		}
	}
	eng = New(agents.Default(), chat)

	final := eng.Run(context.Background(), drainConfig())

	if final.Phase != domain.PhaseAborted {
		t.Fatalf("phase = %s, want aborted", final.Phase)
	}
	if got := chat.callCount(); got != 3 {
		t.Fatalf("chat called %d times after abort, want 3", got)
	}
	if final.Tasks[0].Status != domain.TaskDone {
		t.Fatalf("first agent should have finished, got %s", final.Tasks[0].Status)
	}
	// The interrupted agent keeps its partial output.
	if final.Tasks[1].Output != "output-2" {
		t.Fatalf("second agent lost its partial output: %q", final.Tasks[1].Output)
	}
	for i := 2; i < len(final.Tasks); i++ {
		if final.Tasks[i].Status != domain.TaskPending {
			t.Fatalf("task %d status %s, want pending", i, final.Tasks[i].Status)
		}
	}
}

func TestAbortIsIdempotentAndFinal(t *testing.T) {
	chat := &fakeChat{}
	eng := New(agents.Default(), chat)

	final := eng.Run(context.Background(), drainConfig())
	if final.Phase != domain.PhaseComplete {
		t.Fatalf("run ended in %s", final.Phase)
	}

	eng.Abort()
	eng.Abort()

	st := eng.State()
	if st.Phase != domain.PhaseComplete {
		t.Fatalf("abort after completion changed phase to %s", st.Phase)
	}
	if st.FinalOutput != final.FinalOutput {
		t.Fatal("abort after completion clobbered the final output")
	}
}

func TestStreamFailureAbortsWithError(t *testing.T) {
	chat := &fakeChat{onCall: func(n int, opts llm.StreamOptions) (string, string) {
		return "", "rate limit exceeded, please wait and try again"
	}}
	eng := New(agents.Default(), chat)

	final := eng.Run(context.Background(), drainConfig())

	if final.Phase != domain.PhaseAborted {
		t.Fatalf("phase = %s, want aborted", final.Phase)
	}
	if !strings.Contains(final.Error, "rate limit exceeded") {
		t.Fatalf("error = %q", final.Error)
	}
	for i, task := range final.Tasks {
		if task.Status != domain.TaskPending {
			t.Fatalf("task %d status %s, want pending", i, task.Status)
		}
	}
}

func TestPauseAndResume(t *testing.T) {
	var eng *Engine
	chat := &fakeChat{}
	chat.afterCall = func(n int) {
		if n == 0 {
			eng.Pause()
		}
	}
	eng = New(agents.Default(), chat)

	done := make(chan RunState, 1)
	go func() { done <- eng.Run(context.Background(), drainConfig()) }()

	deadline := time.After(2 * time.Second)
	for eng.State().Phase != domain.PhasePaused {
		select {
		case <-deadline:
			t.Fatal("run never paused")
		case <-time.After(5 * time.Millisecond):
		}
	}
	if got := chat.callCount(); got != 1 {
		t.Fatalf("paused run made %d calls, want 1", got)
	}

	eng.Resume()
	final := <-done
	if final.Phase != domain.PhaseComplete {
		t.Fatalf("run ended in %s after resume", final.Phase)
	}
	if got := chat.callCount(); got != 7 {
		t.Fatalf("chat called %d times, want 7", got)
	}
}

func TestResumeWithoutPauseIsNoop(t *testing.T) {
	eng := New(agents.Default(), &fakeChat{})
	eng.Resume()
	if st := eng.State(); st.Phase != domain.PhaseIdle {
		t.Fatalf("resume on idle engine moved phase to %s", st.Phase)
	}
}

func TestHintsDecayToIdleAfterSuccess(t *testing.T) {
	old := successDecay
	successDecay = 10 * time.Millisecond
	defer func() { successDecay = old }()

	chat := &fakeChat{}
	eng := New(agents.Default(), chat)
	eng.Run(context.Background(), drainConfig())

	var hints []domain.ActivityHint
	timeout := time.After(2 * time.Second)
	for {
		select {
		case h := <-eng.Hints():
			hints = append(hints, h)
			if h == domain.ActivityIdle {
				if len(hints) < 2 || hints[len(hints)-2] != domain.ActivitySuccess {
					t.Fatalf("idle not preceded by success: %v", hints)
				}
				return
			}
		case <-timeout:
			t.Fatalf("hints never decayed to idle: %v", hints)
		}
	}
}

func TestSnapshotsAreIsolatedCopies(t *testing.T) {
	chat := &fakeChat{}
	eng := New(agents.Default(), chat)
	eng.Run(context.Background(), drainConfig())

	select {
	case snap := <-eng.Snapshots():
		if len(snap.Tasks) > 0 {
			snap.Tasks[0].Output = "tampered"
		}
		snap.SwarmEvents = nil
		if st := eng.State(); len(st.Tasks) > 0 && st.Tasks[0].Output == "tampered" {
			t.Fatal("snapshot shares task storage with engine state")
		}
	default:
		t.Fatal("no snapshots delivered")
	}
}
