package utils

import (
	"fmt"
	"time"

	"github.com/username/priceboard/backend/src/logger"
)

// CanonicalDateFormat is the layout of CanonicalItem.Date.
const CanonicalDateFormat = "2006-01-02"

const displayDateFormat = "Jan 2, 2006"

// FormatDisplayDate renders a canonical date as "Nov 14, 2023". A value that
// does not parse is returned unchanged.
func FormatDisplayDate(dateStr string) string {
	t, err := time.Parse(CanonicalDateFormat, dateStr)
	if err != nil {
		logger.L.Debug("Date parse failure, displaying raw value", "date", dateStr, "error", err)
		return dateStr
	}
	return t.Format(displayDateFormat)
}

// TimeAgo renders the age of a canonical date relative to now as "Nm ago",
// "Nh ago" or "Nd ago". Dates in the future count as "0m ago". A value that
// does not parse is returned unchanged.
func TimeAgo(dateStr string, now time.Time) string {
	t, err := time.Parse(CanonicalDateFormat, dateStr)
	if err != nil {
		logger.L.Debug("Date parse failure, displaying raw value", "date", dateStr, "error", err)
		return dateStr
	}

	diff := now.Sub(t)
	if diff < 0 {
		diff = 0
	}
	switch {
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff/time.Minute))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff/time.Hour))
	default:
		return fmt.Sprintf("%dd ago", int(diff/(24*time.Hour)))
	}
}
