package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	pkgerrors "github.com/angelmondragon/watchlist-backend/pkg/errors"
)

type sampleBody struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
}

func TestDecodeJSONBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@b.com","code":"123456"}`))
	var body sampleBody
	if err := DecodeJSONBody(req, &body); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body.Code != "123456" {
		t.Fatalf("unexpected body %+v", body)
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"nope","code":"12a"}`))
	err := DecodeJSONBody(req, &sampleBody{})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	details, ok := typed.Details().(map[string]string)
	if !ok || details["email"] == "" || details["code"] == "" {
		t.Fatalf("expected per-field details, got %#v", typed.Details())
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@b.com","code":"123456","extra":1}`))
	if err := DecodeJSONBody(req, &sampleBody{}); !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("unknown fields should be rejected, got %v", err)
	}
}

func TestQueryParsers(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?page=2&limit=500&year=2008&watched=TRUE&min_rating=7.5&bad=x", nil)

	page, err := ParseQueryInt(req, "page", 1, 1, 1000)
	if err != nil || page != 2 {
		t.Fatalf("page: %d %v", page, err)
	}
	if _, err := ParseQueryInt(req, "limit", 10, 1, 100); err == nil {
		t.Fatal("expected out of range limit to fail")
	}
	if v, _ := ParseQueryInt(req, "missing", 10, 1, 100); v != 10 {
		t.Fatalf("expected default, got %d", v)
	}

	year, err := ParseOptionalQueryInt(req, "year")
	if err != nil || year == nil || *year != 2008 {
		t.Fatalf("year: %v %v", year, err)
	}
	if v, err := ParseOptionalQueryInt(req, "missing"); v != nil || err != nil {
		t.Fatalf("expected nil for missing key")
	}

	watched, err := ParseOptionalQueryBool(req, "watched")
	if err != nil || watched == nil || !*watched {
		t.Fatalf("watched: %v %v", watched, err)
	}
	if _, err := ParseOptionalQueryBool(req, "bad"); err == nil {
		t.Fatal("expected invalid bool to fail")
	}

	rating, err := ParseOptionalQueryFloat(req, "min_rating", 0, 10)
	if err != nil || rating == nil || *rating != 7.5 {
		t.Fatalf("rating: %v %v", rating, err)
	}
	if _, err := ParseOptionalQueryFloat(req, "page", 0, 1); err == nil {
		t.Fatal("expected out of range float to fail")
	}
}

func TestBearerToken(t *testing.T) {
	cases := map[string]string{
		"Bearer abc.def.ghi": "abc.def.ghi",
		"bearer   xyz":       "xyz",
		"raw-token":          "raw-token",
	}
	for in, want := range cases {
		got, err := BearerToken(in)
		if err != nil || got != want {
			t.Fatalf("%q: got %q %v", in, got, err)
		}
	}
	for _, bad := range []string{"", "Bearer ", "Bearer a b"} {
		if _, err := BearerToken(bad); err == nil {
			t.Fatalf("%q: expected error", bad)
		}
	}
}

func TestSanitizeString(t *testing.T) {
	if got := SanitizeString("  hello world ", 5); got != "hello" {
		t.Fatalf("unexpected %q", got)
	}
}
