package model

import (
	"math"
	"time"
)

// Expiration describes how close a document is to its expiry date.
type Expiration string

const (
	ExpirationExpired  Expiration = "expired"
	ExpirationCritical Expiration = "critical"
	ExpirationWarning  Expiration = "warning"
	ExpirationNormal   Expiration = "normal"
	ExpirationNone     Expiration = "none"
)

const (
	criticalDays = 7
	warningDays  = 30
	day          = 24 * time.Hour
)

// DaysUntilExpiration returns the number of days left before expiresAt,
// rounded up. ok is false when there is no expiry date.
func DaysUntilExpiration(expiresAt *time.Time, now time.Time) (days int, ok bool) {
	if expiresAt == nil {
		return 0, false
	}

	return int(math.Ceil(float64(expiresAt.Sub(now)) / float64(day))), true
}

// ExpirationStatus classifies expiresAt relative to now.
func ExpirationStatus(expiresAt *time.Time, now time.Time) Expiration {
	days, ok := DaysUntilExpiration(expiresAt, now)

	switch {
	case !ok:
		return ExpirationNone
	case days < 0:
		return ExpirationExpired
	case days <= criticalDays:
		return ExpirationCritical
	case days <= warningDays:
		return ExpirationWarning
	default:
		return ExpirationNormal
	}
}
