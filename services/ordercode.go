package services

import (
	"errors"
	"math/rand"
	"regexp"
	"strings"
)

// Visually ambiguous letters (I, O, Q) are excluded so codes survive being
// read over the phone and typed back.
const codeLetters = "ABCDEFGHJKLMNPRSTUVWXYZ"

const maxCodeAttempts = 20

// OrderCodePattern is the accepted shape for status-query input.
var OrderCodePattern = regexp.MustCompile(`^[A-Z]{3}-\d{3}$`)

// ErrCodeSpaceExhausted is returned when no free code is found within the
// attempt bound. Callers surface it as a retryable internal error.
var ErrCodeSpaceExhausted = errors.New("no unique order code after max attempts")

// GenerateOrderCode produces a "LLL-DDD" code absent from existing.
func GenerateOrderCode(existing map[string]struct{}) (string, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		b := make([]byte, 0, 7)
		for i := 0; i < 3; i++ {
			b = append(b, codeLetters[rand.Intn(len(codeLetters))])
		}
		b = append(b, '-')
		for i := 0; i < 3; i++ {
			b = append(b, byte('0'+rand.Intn(10)))
		}
		code := string(b)
		if _, taken := existing[code]; !taken {
			return code, nil
		}
	}
	return "", ErrCodeSpaceExhausted
}

var dashlessCodePattern = regexp.MustCompile(`^[A-Z]{3}\d{3}$`)

// NormalizeOrderCode uppercases input, strips whitespace, and restores the
// dash when the customer typed the six characters without it, so
// "kfr 204", "KFR204", and "KFR-204 " all match the same stored code.
func NormalizeOrderCode(s string) string {
	c := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), " ", ""))
	if dashlessCodePattern.MatchString(c) {
		c = c[:3] + "-" + c[3:]
	}
	return c
}
