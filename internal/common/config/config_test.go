package config

import "testing"

func TestLoadSecurityConfig_FlatDocument(t *testing.T) {
	doc := []byte(`
enabled: true
agentAdmins: ["alice"]
rateLimitWindowSeconds: 60
rateLimitMaxRequests: 5
`)
	cfg, err := LoadSecurityConfig(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.Enabled || len(cfg.AgentAdmins) != 1 || cfg.AgentAdmins[0] != "alice" {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestLoadSecurityConfig_WrapperDocument(t *testing.T) {
	doc := []byte(`
security:
  enabled: true
  agentAdmins: ["bob"]
  rateLimitWindowSeconds: 30
  rateLimitMaxRequests: 3
`)
	cfg, err := LoadSecurityConfig(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.Enabled || len(cfg.AgentAdmins) != 1 || cfg.AgentAdmins[0] != "bob" {
		t.Fatalf("cfg = %+v", cfg)
	}
}

// TestLoadSecurityConfig_MalformedWrapperIsFatal covers spec scenario 6: a
// top-level `security:` key whose body fails schema validation must return a
// hard error, never silently fall back to defaults.
func TestLoadSecurityConfig_MalformedWrapperIsFatal(t *testing.T) {
	doc := []byte(`
security:
  enabled: "not-a-bool"
`)
	_, err := LoadSecurityConfig(doc)
	if err == nil {
		t.Fatalf("expected error for malformed security wrapper")
	}
}

func TestLoadSecurityConfig_InvalidYAMLIsFatal(t *testing.T) {
	_, err := LoadSecurityConfig([]byte("not: [valid: yaml"))
	if err == nil {
		t.Fatalf("expected error for invalid yaml")
	}
}
