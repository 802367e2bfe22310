package scriptengine

import "testing"

func TestAgentProvider(t *testing.T) {
	provider := AgentProvider("agent-1", "triage-bot", "/home/triage-bot")
	vars := provider()
	if got := vars["agent.name"]; got != "triage-bot" {
		t.Fatalf("agent.name = %q, want %q", got, "triage-bot")
	}
	if got := vars["agent.workspace"]; got != "/home/triage-bot" {
		t.Fatalf("agent.workspace = %q, want %q", got, "/home/triage-bot")
	}
}

func TestCycleProvider_ReadsLazily(t *testing.T) {
	cycle := 0
	provider := CycleProvider(func() int { return cycle })
	cycle = 5
	vars := provider()
	if got := vars["agent.cycle"]; got != "5" {
		t.Fatalf("agent.cycle = %q, want %q", got, "5")
	}
}

func TestEnvProvider(t *testing.T) {
	provider := EnvProvider(map[string]string{"GITHUB_TOKEN": "secret"})
	vars := provider()
	if got := vars["env.GITHUB_TOKEN"]; got != "secret" {
		t.Fatalf("env.GITHUB_TOKEN = %q, want %q", got, "secret")
	}
}
