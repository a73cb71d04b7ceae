// Package ndc normalizes National Drug Codes to the 11-digit 5-4-2 form.
package ndc

import (
	"regexp"
	"strings"
)

var canonicalRegex = regexp.MustCompile(`^\d{5}-\d{4}-\d{2}$`)

// Normalize converts a raw NDC to the canonical hyphenated 5-4-2 form.
//
// Unhyphenated codes are 11 digits, or 12 with a leading check digit that is
// dropped. Hyphenated 10-digit codes (4-4-2, 5-3-2, 5-4-1) get a zero padded into
// the short segment. Anything else is returned unchanged.
func Normalize(raw string) string {
	code := strings.TrimSpace(raw)

	if !strings.Contains(code, "-") {
		if len(code) == 12 {
			code = code[1:]
		}
		if len(code) < 10 {
			return code
		}
		return code[:5] + "-" + code[5:9] + "-" + code[9:]
	}

	if len(code) == 13 || len(code) < 10 {
		return code
	}

	switch {
	case code[5] != '-':
		return "0" + code
	case code[9] == '-':
		return code[:6] + "0" + code[6:]
	case len(code) >= 11:
		return code[:11] + "0" + code[11:]
	}
	return code
}

// IsCanonical reports whether code is in the 5-4-2 form.
func IsCanonical(code string) bool {
	return canonicalRegex.MatchString(code)
}

// CleanRxCUI drops a decimal suffix left on identifiers stored as floats.
func CleanRxCUI(raw string) string {
	raw = strings.TrimSpace(raw)
	if i := strings.IndexByte(raw, '.'); i >= 0 {
		return raw[:i]
	}
	return raw
}
