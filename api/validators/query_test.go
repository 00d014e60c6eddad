package validators

import (
	"net/http/httptest"
	"testing"

	pkgerrors "github.com/thecolognehub/colognehub-backend/pkg/errors"
)

func TestParseQueryInt(t *testing.T) {
	req := httptest.NewRequest("GET", "/products?limit=25&page=abc&offset=999", nil)

	value, err := ParseQueryInt(req, "limit", 20, 1, 100)
	if err != nil {
		t.Fatalf("limit: %v", err)
	}
	if value != 25 {
		t.Fatalf("expected 25, got %d", value)
	}

	// Absent parameter falls back to the default.
	value, err = ParseQueryInt(req, "missing", 20, 1, 100)
	if err != nil {
		t.Fatalf("missing: %v", err)
	}
	if value != 20 {
		t.Fatalf("expected default 20, got %d", value)
	}

	if _, err := ParseQueryInt(req, "page", 1, 1, 100); err == nil {
		t.Fatal("expected error for non-numeric value")
	} else if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}

	if _, err := ParseQueryInt(req, "offset", 0, 0, 100); err == nil {
		t.Fatal("expected error for out-of-range value")
	}
}

func TestParseQueryBool(t *testing.T) {
	req := httptest.NewRequest("GET", "/products?active=true&featured=banana", nil)

	value, err := ParseQueryBool(req, "active")
	if err != nil {
		t.Fatalf("active: %v", err)
	}
	if !value {
		t.Fatal("expected true")
	}

	value, err = ParseQueryBool(req, "missing")
	if err != nil {
		t.Fatalf("missing: %v", err)
	}
	if value {
		t.Fatal("expected false for absent parameter")
	}

	if _, err := ParseQueryBool(req, "featured"); err == nil {
		t.Fatal("expected error for non-boolean value")
	} else if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
