package domain

import "strings"

// CardDetails carries cardholder data supplied at authorisation time. Only
// the sanitised form is ever persisted.
type CardDetails struct {
	CardNumber     string
	CVC            string
	CardholderName string
	ExpiryMonth    int
	ExpiryYear     int
	AddressLine1   string
	AddressLine2   string
	City           string
	Postcode       string
	Country        string
}

// maskThreshold is the digit count above which a field is treated as
// PAN-like and masked.
const maskThreshold = 10

// Sanitise returns a copy safe for storage. Any attribute containing more
// than ten digits is masked digit by digit; the card number keeps its first
// six and last four digits for card-scheme identification.
func (d CardDetails) Sanitise() CardDetails {
	out := d
	out.CardNumber = maskCardNumber(d.CardNumber)
	out.CVC = maskDigits(d.CVC)
	out.CardholderName = maskDigits(d.CardholderName)
	out.AddressLine1 = maskDigits(d.AddressLine1)
	out.AddressLine2 = maskDigits(d.AddressLine2)
	out.City = maskDigits(d.City)
	out.Postcode = maskDigits(d.Postcode)
	out.Country = maskDigits(d.Country)
	return out
}

// FirstSix returns the issuer identification digits of the card number.
func (d CardDetails) FirstSix() string {
	digits := onlyDigits(d.CardNumber)
	if len(digits) < 6 {
		return digits
	}
	return digits[:6]
}

// LastFour returns the trailing card number digits.
func (d CardDetails) LastFour() string {
	digits := onlyDigits(d.CardNumber)
	if len(digits) < 4 {
		return digits
	}
	return digits[len(digits)-4:]
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}

func onlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// maskDigits replaces every digit with '*' when the value holds more than
// maskThreshold digits. Values at or under the threshold pass unchanged.
func maskDigits(s string) string {
	if countDigits(s) <= maskThreshold {
		return s
	}
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune('*')
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// maskCardNumber masks the PAN, retaining the first six and last four
// digits unmasked.
func maskCardNumber(s string) string {
	if countDigits(s) <= maskThreshold {
		return s
	}
	total := countDigits(s)
	var b strings.Builder
	seen := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			seen++
			if seen <= 6 || seen > total-4 {
				b.WriteRune(r)
			} else {
				b.WriteRune('*')
			}
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}
