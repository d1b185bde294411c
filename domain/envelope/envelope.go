// Package envelope validates the request envelope for one admission
// attempt: schema and size-bound checks, then per-type sanitization.
// Validation is pure given its inputs.
package envelope

import (
	"encoding/json"
	"fmt"

	"github.com/paperlens/paperlens/domain/fault"
	"github.com/paperlens/paperlens/domain/sanitize"
)

// MaxBodyBytes is the global ceiling on the declared request size. It is
// checked before the body is parsed.
const MaxBodyBytes = 15 << 20 // 15 MiB

// Envelope is one validated and sanitized admission attempt. It is
// transient and owned by a single pipeline invocation.
type Envelope struct {
	Type    sanitize.InputType
	Content string
}

// wire is the raw request body shape.
type wire struct {
	InputType string `json:"inputType"`
	Content   string `json:"content"`
}

// Validate checks the declared size, parses and schema-checks the raw
// body, and delegates to the sanitizer. Errors are tagged
// fault.PayloadTooLarge or fault.ValidationFailed; sanitizer rejections
// surface verbatim as validation failures.
func Validate(raw []byte, declaredSize int64) (Envelope, error) {
	if declaredSize > MaxBodyBytes || int64(len(raw)) > MaxBodyBytes {
		return Envelope{}, fault.New(fault.PayloadTooLarge,
			fmt.Sprintf("request body exceeds %d bytes", MaxBodyBytes))
	}

	var w wire
	if err := json.Unmarshal(raw, &w); err != nil {
		return Envelope{}, fault.Wrap(fault.ValidationFailed, "request body is not valid JSON", err)
	}

	t := sanitize.InputType(w.InputType)
	if !sanitize.KnownType(t) {
		return Envelope{}, fault.New(fault.ValidationFailed,
			fmt.Sprintf("inputType must be one of url, text, doi, pdf; got %q", w.InputType))
	}
	if w.Content == "" {
		return Envelope{}, fault.New(fault.ValidationFailed, "content must be a non-empty string")
	}

	cleaned, err := sanitize.Clean(t, w.Content)
	if err != nil {
		return Envelope{}, fault.Wrap(fault.ValidationFailed, "content rejected", err)
	}

	return Envelope{Type: t, Content: cleaned}, nil
}
