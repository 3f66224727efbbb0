package utils

import (
	"testing"
)

func TestJWT(t *testing.T) {
	secret := "test-secret-key-12345"

	token, err := GenerateAgentToken("agent-1", "invoice-orchestrator", secret)
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}
	if token == "" {
		t.Fatal("Token should not be empty")
	}

	// Validation (Success)
	claims, err := ValidateToken(token, secret)
	if err != nil {
		t.Fatalf("Failed to validate token: %v", err)
	}
	if claims["agent_id"] != "agent-1" {
		t.Errorf("agent_id mismatch: got %v, want agent-1", claims["agent_id"])
	}
	if claims["type"] != "agent" {
		t.Errorf("type mismatch: got %v, want agent", claims["type"])
	}

	// Validation (Wrong Secret)
	if _, err := ValidateToken(token, "wrong-secret"); err == nil {
		t.Error("Token signed with another secret should not validate")
	}

	// Validation (Garbage)
	if _, err := ValidateToken("not-a-token", secret); err == nil {
		t.Error("Garbage token should not validate")
	}
}
