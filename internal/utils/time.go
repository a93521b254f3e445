package utils

import (
	"fmt"
	"time"
)

// FormatClock renders seconds as mm:ss, or h:mm:ss from an hour up.
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h, m, s := seconds/3600, seconds/60%60, seconds%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

// FormatDuration renders a duration rounded to the second as mm:ss.
func FormatDuration(d time.Duration) string {
	return FormatClock(int(d.Round(time.Second) / time.Second))
}

// FormatLocal returns the provided time formatted in local time.
func FormatLocal(t time.Time) string {
	return t.In(time.Local).Format("2006-01-02 15:04")
}
