package utils

import (
	"fmt"
	"math"
	"time"
)

// BookingIDPrefix starts every human readable booking id.
const BookingIDPrefix = "ACDOCBK"

// SequenceKey names the counter behind booking sequence numbers. The counter
// never resets; the date only decorates the id.
const SequenceKey = "booking"

// FormatBookingID renders ACDOCBK<DDMMYYYY>-<seq>.
func FormatBookingID(t time.Time, seq int64) string {
	return fmt.Sprintf("%s%s-%d", BookingIDPrefix, t.Format("02012006"), seq)
}

// Round2 rounds a monetary amount to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
