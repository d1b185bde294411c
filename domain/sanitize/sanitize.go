// Package sanitize provides per-input-type content normalization and
// dangerous-pattern stripping. All functions are pure - same input always
// produces the same output, and cleaning is idempotent.
package sanitize

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"
)

// InputType identifies the kind of content being submitted for analysis.
type InputType string

const (
	TypeURL  InputType = "url"
	TypeText InputType = "text"
	TypeDOI  InputType = "doi"
	TypePDF  InputType = "pdf"
)

// Per-type size ceilings. PDF is measured after base64 decoding.
const (
	MaxURLBytes  = 2 << 10  // 2 KiB
	MaxTextBytes = 500_000  // ~500 KB
	MaxDOIBytes  = 256      // 256 B
	MaxPDFBytes  = 10 << 20 // 10 MiB decoded
	MinTextRunes = 100
)

// pdfMagic is the four-byte marker every PDF file starts with.
var pdfMagic = []byte("%PDF")

var (
	jsPrefixRe  = regexp.MustCompile(`(?i)javascript:`)
	onHandlerRe = regexp.MustCompile(`(?i)\bon\w+\s*=`)
	markupTagRe = regexp.MustCompile(`<[^>]*>`)
	htmlEntRe   = regexp.MustCompile(`&#?[a-zA-Z0-9]+;`)
	doiRe       = regexp.MustCompile(`^10\.\d{4,}/\S+$`)
)

// KnownType reports whether t is one of the recognized input types.
func KnownType(t InputType) bool {
	switch t {
	case TypeURL, TypeText, TypeDOI, TypePDF:
		return true
	}
	return false
}

// Clean applies the rule for the given input type and returns the
// normalized content. A non-nil error carries a human-readable reason and
// means the content must be rejected; no partial value is returned.
func Clean(t InputType, content string) (string, error) {
	switch t {
	case TypeURL:
		return cleanURL(content)
	case TypeText:
		return cleanText(content)
	case TypeDOI:
		return cleanDOI(content)
	case TypePDF:
		return cleanPDF(content)
	default:
		return "", fmt.Errorf("unsupported input type %q", t)
	}
}

// stripDangerous removes angle brackets, javascript: prefixes, and inline
// event-handler patterns. Removal is idempotent: nothing it emits matches
// any of the patterns it strips.
func stripDangerous(s string) string {
	s = strings.ReplaceAll(s, "<", "")
	s = strings.ReplaceAll(s, ">", "")
	s = jsPrefixRe.ReplaceAllString(s, "")
	s = onHandlerRe.ReplaceAllString(s, "")
	return s
}

func cleanURL(content string) (string, error) {
	trimmed := strings.TrimSpace(content)
	if len(trimmed) > MaxURLBytes {
		return "", fmt.Errorf("url exceeds maximum length of %d bytes", MaxURLBytes)
	}
	cleaned := stripDangerous(trimmed)
	if cleaned == "" {
		return "", fmt.Errorf("url is empty after sanitization")
	}

	parsed, err := url.Parse(cleaned)
	if err != nil {
		return "", fmt.Errorf("url is not well-formed: %v", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("url must use an explicit http or https scheme")
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("url is missing a host")
	}
	return cleaned, nil
}

func cleanText(content string) (string, error) {
	trimmed := strings.TrimSpace(content)
	if len(trimmed) > MaxTextBytes {
		return "", fmt.Errorf("text exceeds maximum length of %d bytes", MaxTextBytes)
	}
	if utf8.RuneCountInString(trimmed) < MinTextRunes {
		return "", fmt.Errorf("text is too short: minimum %d characters", MinTextRunes)
	}

	// Strip markup but keep the surrounding plain text.
	cleaned := markupTagRe.ReplaceAllString(trimmed, "")
	cleaned = htmlEntRe.ReplaceAllString(cleaned, "")
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return "", fmt.Errorf("text is empty after sanitization")
	}
	return cleaned, nil
}

func cleanDOI(content string) (string, error) {
	trimmed := strings.TrimSpace(content)
	if len(trimmed) > MaxDOIBytes {
		return "", fmt.Errorf("doi exceeds maximum length of %d bytes", MaxDOIBytes)
	}
	cleaned := stripDangerous(trimmed)
	if !doiRe.MatchString(cleaned) {
		return "", fmt.Errorf("doi must match the form 10.NNNN/suffix")
	}
	return cleaned, nil
}

// cleanPDF validates a base64-encoded PDF payload. The binary content is
// not string-sanitized; on success the original base64 is returned
// untouched so the decoded bytes stay byte-identical.
func cleanPDF(content string) (string, error) {
	trimmed := strings.TrimSpace(content)
	decoded, err := base64.StdEncoding.DecodeString(trimmed)
	if err != nil {
		return "", fmt.Errorf("pdf payload is not valid base64: %v", err)
	}
	if len(decoded) == 0 {
		return "", fmt.Errorf("pdf payload is empty")
	}
	if len(decoded) > MaxPDFBytes {
		return "", fmt.Errorf("pdf exceeds maximum decoded size of %d bytes", MaxPDFBytes)
	}
	if len(decoded) < len(pdfMagic) || string(decoded[:len(pdfMagic)]) != string(pdfMagic) {
		return "", fmt.Errorf("payload does not start with the PDF format marker")
	}
	return trimmed, nil
}
