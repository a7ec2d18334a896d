package lifecycle

import (
	"time"

	"github.com/angelmondragon/portfolios-backend/pkg/db/models"
)

// WindowClosesAt returns the end of the purchase window opened by firstPurchase.
// A first purchase on the 1st closes at the end of that month; any other day
// closes at the end of the following month. Month ends are resolved in loc and
// returned in UTC.
func WindowClosesAt(firstPurchase time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := firstPurchase.In(loc)
	year, month, day := local.Date()
	if day != 1 {
		month++
	}
	return endOfMonth(year, month, loc).UTC()
}

// endOfMonth returns the last microsecond of the month, the finest instant a
// timestamptz column keeps. Month overflow normalizes, so month 13 lands in
// January of year+1.
func endOfMonth(year int, month time.Month, loc *time.Location) time.Time {
	return time.Date(year, month+1, 1, 0, 0, 0, 0, loc).Add(-time.Microsecond)
}

// IsExpired reports whether an active record's purchase window closed before now.
func IsExpired(record models.UserPortfolio, now time.Time) bool {
	if !record.IsActive || record.WindowClosesAt == nil {
		return false
	}
	return WindowExpired(*record.WindowClosesAt, now)
}

// WindowExpired reports whether a window closing at closesAt is over at now.
// A window closing exactly at now is still open.
func WindowExpired(closesAt, now time.Time) bool {
	return closesAt.Before(now)
}

// WindowFor returns the purchase fields for a first purchase, both nil when firstPurchase is nil.
func WindowFor(firstPurchase *time.Time, loc *time.Location) (*time.Time, *time.Time) {
	if firstPurchase == nil {
		return nil, nil
	}
	first := firstPurchase.UTC()
	closes := WindowClosesAt(first, loc)
	return &first, &closes
}
