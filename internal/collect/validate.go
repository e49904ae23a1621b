// Package collect runs the field-by-field booking dialogue: it asks for
// name, phone, email, date and time in order, validates each answer, and
// commits the finished profile through the ledger.
package collect

import (
	"regexp"
	"strings"

	"github.com/sajilotech/frontdesk/internal/domain"
)

var (
	nameRe  = regexp.MustCompile(`^[a-zA-Zà-üÀ-Ü'\- ]+$`)
	emailRe = regexp.MustCompile(`^[a-zA-Z0-9_.+-]+@[a-zA-Z0-9-]+\.[a-zA-Z0-9-.]+$`)
)

// ValidName requires at least three characters, at least two words, and
// letters only (apostrophes and hyphens allowed).
func ValidName(name string) bool {
	name = strings.TrimSpace(name)
	if len(name) < 3 {
		return false
	}
	if len(strings.Fields(name)) < 2 {
		return false
	}
	return nameRe.MatchString(name)
}

// ValidEmail accepts the usual local@domain.tld shape.
func ValidEmail(email string) bool {
	return emailRe.MatchString(strings.TrimSpace(email))
}

// countryDigits maps a dialing code to the digit range its national
// numbers span, excluding the code itself.
var countryDigits = map[string][2]int{
	"1":  {10, 11},
	"44": {9, 10},
	"61": {8, 9},
	"49": {9, 11},
	"33": {8, 9},
	"81": {9, 10},
	"91": {10, 10},
}

// ValidPhone accepts Nepali mobiles (10 digits starting 97 or 98, with or
// without the 977 country code) and international numbers with a known
// country code, falling back to an 8-15 digit rule for other + prefixed
// numbers.
func ValidPhone(phone string) bool {
	cleaned := domain.NormalizePhone(phone)
	if cleaned == "" {
		return false
	}

	digits := strings.TrimPrefix(cleaned, "+")
	if !allDigits(digits) {
		return false
	}

	// Nepali forms: bare 98XXXXXXXX, or 977-prefixed. A 977 prefix commits
	// the number to the Nepali rule; it never falls through to the
	// international table.
	if strings.HasPrefix(digits, "977") && len(digits) == 13 {
		return nepaliMobile(digits[3:])
	}
	if !strings.HasPrefix(cleaned, "+") {
		return nepaliMobile(digits)
	}

	// No code in the table is a prefix of another, so first match decides.
	for code, span := range countryDigits {
		if strings.HasPrefix(digits, code) {
			rest := len(digits) - len(code)
			return rest >= span[0] && rest <= span[1]
		}
	}

	// Unknown country code: accept plausible international lengths.
	return len(digits) >= 8 && len(digits) <= 15
}

func nepaliMobile(digits string) bool {
	return len(digits) == 10 && (strings.HasPrefix(digits, "97") || strings.HasPrefix(digits, "98"))
}

func allDigits(s string) bool {
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
