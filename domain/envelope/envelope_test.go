package envelope_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/paperlens/paperlens/domain/envelope"
	"github.com/paperlens/paperlens/domain/fault"
	"github.com/paperlens/paperlens/domain/sanitize"
)

func body(inputType, content string) []byte {
	return []byte(fmt.Sprintf(`{"inputType":%q,"content":%q}`, inputType, content))
}

func TestValidate_URL(t *testing.T) {
	env, err := envelope.Validate(body("url", "https://example.com/paper"), 64)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if env.Type != sanitize.TypeURL {
		t.Errorf("type = %q, want url", env.Type)
	}
	if env.Content != "https://example.com/paper" {
		t.Errorf("content = %q", env.Content)
	}
}

func TestValidate_DeclaredSizeCheckedFirst(t *testing.T) {
	// Declared size over the ceiling must reject before parsing; the body
	// here is deliberately invalid JSON.
	_, err := envelope.Validate([]byte("{not json"), envelope.MaxBodyBytes+1)
	kind, ok := fault.KindOf(err)
	if !ok || kind != fault.PayloadTooLarge {
		t.Errorf("kind = %v, want payload_too_large", kind)
	}
}

func TestValidate_MalformedJSON(t *testing.T) {
	_, err := envelope.Validate([]byte("{not json"), 16)
	kind, _ := fault.KindOf(err)
	if kind != fault.ValidationFailed {
		t.Errorf("kind = %v, want validation_failed", kind)
	}
}

func TestValidate_UnknownInputType(t *testing.T) {
	_, err := envelope.Validate(body("docx", "whatever"), 64)
	kind, _ := fault.KindOf(err)
	if kind != fault.ValidationFailed {
		t.Errorf("kind = %v, want validation_failed", kind)
	}
	if !strings.Contains(err.Error(), "inputType") {
		t.Errorf("error should name the failing field: %v", err)
	}
}

func TestValidate_EmptyContent(t *testing.T) {
	_, err := envelope.Validate(body("url", ""), 64)
	kind, _ := fault.KindOf(err)
	if kind != fault.ValidationFailed {
		t.Errorf("kind = %v, want validation_failed", kind)
	}
}

func TestValidate_SanitizerRejectionSurfaces(t *testing.T) {
	_, err := envelope.Validate(body("doi", "10.1/xyz"), 64)
	kind, _ := fault.KindOf(err)
	if kind != fault.ValidationFailed {
		t.Errorf("kind = %v, want validation_failed", kind)
	}
	if !strings.Contains(err.Error(), "10.") {
		t.Errorf("sanitizer reason should surface: %v", err)
	}
}

func TestValidate_TextSanitized(t *testing.T) {
	text := "An <em>important</em> result " + strings.Repeat("that holds broadly ", 8)
	env, err := envelope.Validate(body("text", text), int64(len(text)+64))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(env.Content, "<em>") {
		t.Errorf("markup survived validation: %q", env.Content)
	}
}
