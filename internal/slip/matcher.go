// Package slip provides best-effort verification of payment slips: an OCR
// client for the external recognition endpoint, and a heuristic matcher that
// extracts an amount from recognized text and compares it to the expected
// share amount.
//
// The matcher is advisory by construction. Its result carries no way to
// transition a payment; approval always remains a human decision, with the
// extracted value recorded for audit.
package slip

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Tolerance is the inclusive matching window: a slip amount within 1.00
// currency unit of the expected amount counts as matched.
const Tolerance = 1.0

// MatchStatus is the advisory outcome of a slip check.
type MatchStatus string

const (
	// StatusMatched: extracted amount within Tolerance of expected.
	StatusMatched MatchStatus = "matched"
	// StatusMismatch: an amount was extracted but differs by more than
	// Tolerance.
	StatusMismatch MatchStatus = "mismatch"
	// StatusError: no amount could be extracted. Never treated as matched.
	StatusError MatchStatus = "error"
)

// Verification is the advisory annotation attached to a payment proof.
type Verification struct {
	Status    MatchStatus
	Expected  float64
	Extracted float64
	// Found is false when no number could be extracted at all.
	Found bool
}

const number = `\d+(?:\.\d{1,2})?`

var (
	// Amount keywords across the language variants the OCR endpoint
	// returns: English first, then the Thai labels bank slips use.
	keywordBefore = regexp.MustCompile(`(?i)(?:amount|total|paid|thb|฿|จำนวนเงิน|ยอดเงิน|ยอดชำระ|จำนวน)\s*:?\s*(` + number + `)`)
	keywordAfter  = regexp.MustCompile(`(` + number + `)\s*(?:บาท|baht|thb)`)

	// Bank-slip specific labels, tried last.
	slipLabel = regexp.MustCompile(`(?i)(?:โอนเงิน|ชำระเงิน|transfer(?:red)?|pay(?:ment)?)\D{0,12}(` + number + `)`)

	// The generic fallback only considers numbers written with a decimal
	// point; bare integers in slip text are usually reference numbers or
	// dates, and are only trusted next to a bank-slip label.
	decimalNumber  = regexp.MustCompile(`\d+\.\d{1,2}`)
	thousandsComma = regexp.MustCompile(`(\d),(\d)`)
	whitespace     = regexp.MustCompile(`\s+`)
)

// Verify extracts an amount from recognized slip text and compares it to
// expected. A difference of exactly Tolerance is within tolerance.
func Verify(text string, expected float64) Verification {
	v := Verification{Expected: expected, Status: StatusError}
	amount, ok := ExtractAmount(text)
	if !ok {
		return v
	}
	v.Found = true
	v.Extracted = amount
	if math.Abs(amount-expected) <= Tolerance {
		v.Status = StatusMatched
	} else {
		v.Status = StatusMismatch
	}
	return v
}

// ExtractAmount finds the most plausible payment amount in free-form
// recognized text. The search order is: number adjacent to an amount keyword,
// then the largest boundary-delimited decimal, then bank-slip label patterns.
// First hit wins. Returns false when nothing numeric can be found.
func ExtractAmount(text string) (float64, bool) {
	text = normalize(text)
	if text == "" {
		return 0, false
	}

	for _, re := range []*regexp.Regexp{keywordBefore, keywordAfter} {
		if m := re.FindStringSubmatch(text); m != nil {
			if f, err := strconv.ParseFloat(m[1], 64); err == nil {
				return f, true
			}
		}
	}

	if f, ok := largestNumber(text); ok {
		return f, true
	}

	if m := slipLabel.FindStringSubmatch(text); m != nil {
		if f, err := strconv.ParseFloat(m[1], 64); err == nil {
			return f, true
		}
	}

	return 0, false
}

func largestNumber(text string) (float64, bool) {
	var best float64
	found := false
	for _, m := range decimalNumber.FindAllString(text, -1) {
		f, err := strconv.ParseFloat(m, 64)
		if err != nil {
			continue
		}
		if !found || f > best {
			best = f
			found = true
		}
	}
	return best, found
}

// normalize collapses whitespace and strips thousands separators so
// "1,234.50" parses as one number.
func normalize(text string) string {
	text = thousandsComma.ReplaceAllString(text, "$1$2")
	text = whitespace.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
