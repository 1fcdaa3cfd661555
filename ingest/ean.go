package ingest

import (
	"fmt"
	"strings"
)

const eanLength = 13

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// NormalizeProductId canonicalizes a vendor product code into the id the
// fact table stores. Numeric codes become EAN-13 (shorter codes are
// zero-padded: 8-digit EAN-8s in particular). Non-numeric codes pass
// through only for vendors whose profile allows internal ids.
func NormalizeProductId(code string, allowNonNumeric bool) (string, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", fmt.Errorf("empty product code")
	}
	if isAllDigits(code) {
		if len(code) > eanLength {
			return "", fmt.Errorf("product code %q exceeds %d digits", code, eanLength)
		}
		return strings.Repeat("0", eanLength-len(code)) + code, nil
	}
	if !allowNonNumeric {
		return "", fmt.Errorf("non-numeric product code %q not allowed for this vendor", code)
	}
	return code, nil
}

// IsValidEAN reports whether id is exactly 13 numeric digits.
func IsValidEAN(id string) bool {
	return len(id) == eanLength && isAllDigits(id)
}
