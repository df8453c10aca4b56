package services

import "time"

// DeliveryMinutes estimates delivery time by local hour: lunch rush gets
// the short estimate, everything else the long one.
func DeliveryMinutes(t time.Time) int {
	h := t.Hour()
	if h >= 11 && h < 16 {
		return 20
	}
	return 40
}

// IsSunday reports whether t (already in the restaurant timezone) falls on
// the day the special menu is offered.
func IsSunday(t time.Time) bool {
	return t.Weekday() == time.Sunday
}

// DateAndTime renders the order-log date and time columns.
func DateAndTime(t time.Time) (date string, clock string) {
	return t.Format("02/01/2006"), t.Format("15:04")
}
