package pacs

import (
	"fmt"
	"time"
)

// Window is a half-open [Start, End) slice of the requested range. Queries
// are constrained to one window at a time so a single C-FIND stays under the
// result ceiling busy servers impose.
type Window struct {
	Start time.Time
	End   time.Time
}

// Duration returns the window length.
func (w Window) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

func (w Window) String() string {
	return fmt.Sprintf("[%s, %s)", w.Start.Format("20060102T150405"), w.End.Format("20060102T150405"))
}

// SplitWindows slices [start, end) into consecutive windows no longer than
// max, in chronological order with no gaps or overlaps. An empty slice is
// returned when end <= start. Windows are additionally clamped at calendar
// day boundaries: DICOM range matching constrains sub-day windows via a
// StudyTime range under a single StudyDate, which cannot express a span
// crossing midnight. Narrow windows reduce, but cannot eliminate,
// server-side truncation: a window that still exceeds the server's cap is
// truncated silently by the remote.
func SplitWindows(start, end time.Time, max time.Duration) []Window {
	if !end.After(start) || max <= 0 {
		return nil
	}
	var windows []Window
	for cur := start; cur.Before(end); {
		next := cur.Add(max)
		if midnight := nextMidnight(cur); midnight.Before(next) {
			next = midnight
		}
		if next.After(end) {
			next = end
		}
		windows = append(windows, Window{Start: cur, End: next})
		cur = next
	}
	return windows
}

func nextMidnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, t.Location())
}
