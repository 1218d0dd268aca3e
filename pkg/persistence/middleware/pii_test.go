package middleware_test

import (
	"context"
	"testing"

	"github.com/aretw0/sessiontable/pkg/domain"
	"github.com/aretw0/sessiontable/pkg/persistence/middleware"
)

func TestPIIMiddleware_Masking(t *testing.T) {
	underlyingStore := NewMockStore()
	// Mask keys containing "password" or "ssn"
	mw, err := middleware.NewPIIMiddleware([]string{"password", "ssn"})
	if err != nil {
		t.Fatal(err)
	}
	secureStore := mw(underlyingStore)

	ctx := context.Background()
	sessionID := "pii-session"
	payload := domain.Payload{
		"username":      "jdoe",
		"user_password": "secret123",
		"details": map[string]any{
			"address":    "123 St",
			"ssn_number": "999-99-9999",
		},
		"contacts": []any{
			map[string]any{"ssn": "111-11-1111"},
		},
		"safe_data": "public",
		"cookie":    map[string]any{"maxAge": 1000},
	}

	if err := secureStore.Set(ctx, sessionID, payload); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	// Verify the caller's payload is NOT MODIFIED
	if payload["user_password"] != "secret123" {
		t.Error("Middleware modified original payload in memory!")
	}
	if payload["details"].(map[string]any)["ssn_number"] != "999-99-9999" {
		t.Error("Middleware modified nested original payload!")
	}

	stored, err := underlyingStore.Get(ctx, sessionID)
	if err != nil {
		t.Fatalf("Underlying get failed: %v", err)
	}

	if stored["username"] != "jdoe" {
		t.Error("Username shouldn't be masked")
	}
	if stored["user_password"] != middleware.Mask {
		t.Errorf("Password should be masked, got: %v", stored["user_password"])
	}

	details := stored["details"].(map[string]any)
	if details["ssn_number"] != middleware.Mask {
		t.Errorf("Nested SSN should be masked, got: %v", details["ssn_number"])
	}
	if details["address"] != "123 St" {
		t.Errorf("Address shouldn't be masked, got: %v", details["address"])
	}

	contact := stored["contacts"].([]any)[0].(map[string]any)
	if contact["ssn"] != middleware.Mask {
		t.Errorf("SSN inside a list should be masked, got: %v", contact["ssn"])
	}

	cookie := stored["cookie"].(map[string]any)
	if cookie["maxAge"] != 1000 {
		t.Errorf("Expiry hint must survive masking, got: %v", cookie["maxAge"])
	}
}

func TestPIIMiddleware_CookieKeepsShape(t *testing.T) {
	underlyingStore := NewMockStore()
	// "cookie" itself matches, which must not wipe the expiry hint
	mw, err := middleware.NewPIIMiddleware([]string{"cookie", "domain"})
	if err != nil {
		t.Fatal(err)
	}
	secureStore := mw(underlyingStore)

	ctx := context.Background()
	payload := domain.Payload{
		"cookie":      map[string]any{"maxAge": 60000, "domain": "example.com"},
		"cookie_jar":  "tracking-id",
		"cookieNotes": map[string]any{"raw": "x"},
	}
	if err := secureStore.Set(ctx, "cookie-session", payload); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	stored, err := underlyingStore.Get(ctx, "cookie-session")
	if err != nil {
		t.Fatalf("Underlying get failed: %v", err)
	}

	cookie, ok := stored["cookie"].(map[string]any)
	if !ok {
		t.Fatalf("Cookie should stay a map, got: %v", stored["cookie"])
	}
	if cookie["maxAge"] != 60000 {
		t.Errorf("Cookie maxAge must survive masking, got: %v", cookie["maxAge"])
	}
	if cookie["domain"] != middleware.Mask {
		t.Errorf("Matching cookie fields should still be masked, got: %v", cookie["domain"])
	}
	if stored["cookie_jar"] != middleware.Mask {
		t.Errorf("Other matching keys should be masked, got: %v", stored["cookie_jar"])
	}
	if stored["cookieNotes"] != middleware.Mask {
		t.Errorf("Only the cookie key itself keeps its shape, got: %v", stored["cookieNotes"])
	}

	ms, ok, err := stored.MaxAge()
	if err != nil || !ok || ms != 60000 {
		t.Errorf("Expiry hint lost: ms=%d ok=%v err=%v", ms, ok, err)
	}
}

func TestPIIMiddleware_InvalidPattern(t *testing.T) {
	if _, err := middleware.NewPIIMiddleware([]string{"("}); err == nil {
		t.Error("Expected error for invalid regexp")
	}
}
