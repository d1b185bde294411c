package sanitize_test

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/paperlens/paperlens/domain/sanitize"
)

func TestCleanURL_Valid(t *testing.T) {
	got, err := sanitize.Clean(sanitize.TypeURL, "https://example.com/paper.pdf")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "https://example.com/paper.pdf" {
		t.Errorf("got %q", got)
	}
}

func TestCleanURL_RequiresScheme(t *testing.T) {
	cases := []string{
		"example.com/paper",
		"ftp://example.com/paper",
		"//example.com/paper",
	}
	for _, c := range cases {
		if _, err := sanitize.Clean(sanitize.TypeURL, c); err == nil {
			t.Errorf("Clean(%q) succeeded, want error", c)
		}
	}
}

func TestCleanURL_StripsDangerousPatterns(t *testing.T) {
	got, err := sanitize.Clean(sanitize.TypeURL, "https://example.com/<script>?q=javascript:alert(1)")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(got, "<") || strings.Contains(got, ">") {
		t.Errorf("angle brackets not stripped: %q", got)
	}
	if strings.Contains(strings.ToLower(got), "javascript:") {
		t.Errorf("javascript: prefix not stripped: %q", got)
	}
}

func TestCleanURL_StripsEventHandlers(t *testing.T) {
	got, err := sanitize.Clean(sanitize.TypeURL, "https://example.com/a?onload=evil")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(strings.ToLower(got), "onload=") {
		t.Errorf("event handler pattern not stripped: %q", got)
	}
}

func TestCleanURL_TooLong(t *testing.T) {
	long := "https://example.com/" + strings.Repeat("a", sanitize.MaxURLBytes)
	if _, err := sanitize.Clean(sanitize.TypeURL, long); err == nil {
		t.Error("expected error for oversized url")
	}
}

func TestCleanText_LengthBoundary(t *testing.T) {
	if _, err := sanitize.Clean(sanitize.TypeText, strings.Repeat("x", 99)); err == nil {
		t.Error("99 characters should be rejected")
	}
	got, err := sanitize.Clean(sanitize.TypeText, strings.Repeat("x", 100))
	if err != nil {
		t.Fatalf("100 characters should be accepted: %v", err)
	}
	if got != strings.Repeat("x", 100) {
		t.Errorf("plain text altered: %q", got)
	}
}

func TestCleanText_StripsMarkup(t *testing.T) {
	in := "Deep learning " + strings.Repeat("is very useful ", 10) + "<b>in practice</b> &amp; beyond"
	got, err := sanitize.Clean(sanitize.TypeText, in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(got, "<b>") || strings.Contains(got, "&amp;") {
		t.Errorf("markup survived: %q", got)
	}
	if !strings.Contains(got, "in practice") {
		t.Errorf("plain text not preserved: %q", got)
	}
}

func TestCleanText_Idempotent(t *testing.T) {
	in := "A <i>study</i> of transformers &nbsp; " + strings.Repeat("with long context windows ", 8)
	once, err := sanitize.Clean(sanitize.TypeText, in)
	if err != nil {
		t.Fatalf("first pass: %v", err)
	}
	twice, err := sanitize.Clean(sanitize.TypeText, once)
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if once != twice {
		t.Errorf("sanitization not idempotent:\n once: %q\ntwice: %q", once, twice)
	}
}

func TestCleanDOI(t *testing.T) {
	cases := []struct {
		in string
		ok bool
	}{
		{"10.1000/xyz123", true},
		{"10.48550/arXiv.2301.00001", true},
		{"10.1/xyz", false}, // fewer than 4 digits after "10."
		{"10.1000/", false}, // empty suffix
		{"11.1000/xyz", false},
		{"", false},
	}
	for _, c := range cases {
		_, err := sanitize.Clean(sanitize.TypeDOI, c.in)
		if c.ok && err != nil {
			t.Errorf("Clean(%q) = %v, want ok", c.in, err)
		}
		if !c.ok && err == nil {
			t.Errorf("Clean(%q) succeeded, want error", c.in)
		}
	}
}

func TestCleanPDF_RoundTrip(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString([]byte("%PDF-1.7 fake body"))
	got, err := sanitize.Clean(sanitize.TypePDF, payload)
	if err != nil {
		t.Fatalf("valid pdf rejected: %v", err)
	}
	if got != payload {
		t.Errorf("pdf payload modified: got %q want %q", got, payload)
	}
}

func TestCleanPDF_MissingMagic(t *testing.T) {
	// Same body with the %PDF marker truncated.
	payload := base64.StdEncoding.EncodeToString([]byte("-1.7 fake body"))
	if _, err := sanitize.Clean(sanitize.TypePDF, payload); err == nil {
		t.Error("payload without PDF marker should be rejected")
	}
}

func TestCleanPDF_Empty(t *testing.T) {
	if _, err := sanitize.Clean(sanitize.TypePDF, ""); err == nil {
		t.Error("empty payload should be rejected")
	}
}

func TestCleanPDF_NotBase64(t *testing.T) {
	if _, err := sanitize.Clean(sanitize.TypePDF, "not!!base64@@"); err == nil {
		t.Error("invalid base64 should be rejected")
	}
}

func TestKnownType(t *testing.T) {
	for _, typ := range []sanitize.InputType{sanitize.TypeURL, sanitize.TypeText, sanitize.TypeDOI, sanitize.TypePDF} {
		if !sanitize.KnownType(typ) {
			t.Errorf("KnownType(%q) = false", typ)
		}
	}
	if sanitize.KnownType("docx") {
		t.Error(`KnownType("docx") = true`)
	}
}
