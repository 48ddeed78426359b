// Package util provides utility functions shared across SurveyPipe components.
package util

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"
)

// ResponseIDPrefix is the identifier prefix for participant response records.
const ResponseIDPrefix = "CTR"

// responseIDSuffixLength is the number of random characters appended to a response ID.
const responseIDSuffixLength = 6

// GenerateRandomAlphaNumeric generates a random uppercase alphanumeric string
// of the specified length. Uses math/rand/v2; not for cryptographic purposes.
func GenerateRandomAlphaNumeric(length int) string {
	if length <= 0 {
		return ""
	}

	const chars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	var builder strings.Builder
	builder.Grow(length)

	for i := 0; i < length; i++ {
		builder.WriteByte(chars[rand.IntN(len(chars))])
	}

	return builder.String()
}

// GenerateResponseID generates a unique response ID in the form
// "CTR-YYYYMMDD-XXXXXX". The embedded date keeps identifiers sortable and
// lets a researcher eyeball record age without a join.
func GenerateResponseID(now time.Time) string {
	return fmt.Sprintf("%s-%s-%s", ResponseIDPrefix, now.Format("20060102"), GenerateRandomAlphaNumeric(responseIDSuffixLength))
}
