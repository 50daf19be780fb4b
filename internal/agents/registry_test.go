package agents

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultRoster(t *testing.T) {
	r := Default()

	wantIDs := []string{"kimi-cli", "openclaw", "mac-mini", "raspberry-pi"}
	ids := r.IDs()
	if len(ids) != len(wantIDs) {
		t.Fatalf("got %d agents, want %d", len(ids), len(wantIDs))
	}
	for i, id := range wantIDs {
		if ids[i] != id {
			t.Fatalf("agent %d = %q, want %q", i, ids[i], id)
		}
	}

	for i, p := range r.All() {
		if p.DeskIndex != i {
			t.Errorf("agent %s desk index %d, want %d", p.ID, p.DeskIndex, i)
		}
		if p.SystemPrompt == "" {
			t.Errorf("agent %s has no system prompt", p.ID)
		}
		if p.Color == "" {
			t.Errorf("agent %s has no color", p.ID)
		}
	}
}

func TestResolveActor(t *testing.T) {
	r := Default()

	if got := r.ResolveActor(OrchestratorActor); got != "kimi-cli" {
		t.Fatalf("orchestrator resolves to %q, want kimi-cli", got)
	}
	if got := r.ResolveActor("mac-mini"); got != "mac-mini" {
		t.Fatalf("agent id resolves to %q", got)
	}
	if got := r.ResolveActor("somebody-new"); got != "kimi-cli" {
		t.Fatalf("unknown actor resolves to %q, want first agent", got)
	}
}

func TestSystemPromptFallback(t *testing.T) {
	r := Default()
	if r.SystemPrompt("no-such-agent") != r.SystemPrompt("kimi-cli") {
		t.Fatal("unknown agent should fall back to the first agent's prompt")
	}
}

func TestNewRegistryValidation(t *testing.T) {
	if _, err := NewRegistry(nil, nil); err == nil {
		t.Fatal("expected error for empty roster")
	}

	dup := []Profile{{ID: "a"}, {ID: "a"}}
	if _, err := NewRegistry(dup, nil); err == nil {
		t.Fatal("expected error for duplicate id")
	}

	profiles := []Profile{{ID: "a"}}
	if _, err := NewRegistry(profiles, map[string]string{"Boss": "ghost"}); err == nil {
		t.Fatal("expected error for alias targeting unknown agent")
	}

	r, err := NewRegistry(profiles, map[string]string{"Boss": "a"})
	if err != nil {
		t.Fatalf("valid registry rejected: %v", err)
	}
	if r.ResolveActor("Boss") != "a" {
		t.Fatal("alias lookup failed")
	}
}

func TestLoadRoster(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agents.yaml")
	roster := `agents:
  - id: scout
    name: Scout
    role: Researcher
    color: "#112233"
    deskIndex: 0
    systemPrompt: You research things.
  - id: scribe
    name: Scribe
    role: Writer
    color: "#445566"
    deskIndex: 1
    systemPrompt: You write things.
`
	if err := os.WriteFile(path, []byte(roster), 0o644); err != nil {
		t.Fatal(err)
	}

	profiles, err := LoadRoster(path)
	if err != nil {
		t.Fatalf("LoadRoster failed: %v", err)
	}
	if len(profiles) != 2 {
		t.Fatalf("got %d profiles, want 2", len(profiles))
	}
	if profiles[0].ID != "scout" || profiles[0].SystemPrompt != "You research things." {
		t.Fatalf("unexpected first profile: %+v", profiles[0])
	}
	if profiles[1].DeskIndex != 1 {
		t.Fatalf("desk index not decoded: %+v", profiles[1])
	}
}

func TestLoadRosterMissingFile(t *testing.T) {
	if _, err := LoadRoster(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadRosterEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.yaml")
	if err := os.WriteFile(path, []byte("agents: []\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadRoster(path); err == nil {
		t.Fatal("expected error for empty roster")
	}
}
