// internal/maintenance/recurrence.go

// Package maintenance evaluates one-shot and recurring maintenance windows
// without enumerating past occurrences.
package maintenance

import (
	"fmt"
	"time"

	"github.com/John-MustangGT/vantage/internal/database"
)

// Occurrence is one concrete instance of a window.
type Occurrence struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func repeatOf(w database.MaintenanceWindow) time.Duration {
	return time.Duration(w.Repeat) * time.Millisecond
}

// cycle returns the occurrence that governs now: the one in progress, or
// else the next one to start. ok is false when no occurrence remains.
func cycle(w database.MaintenanceWindow, now time.Time) (occ Occurrence, inside bool, ok bool) {
	length := w.End.Sub(w.Start)
	repeat := repeatOf(w)

	if repeat <= 0 || now.Before(w.Start) {
		occ = Occurrence{Start: w.Start, End: w.End}
		if now.After(w.End) {
			return occ, false, false
		}
		return occ, !now.Before(w.Start), true
	}

	elapsed := now.Sub(w.Start)
	k := elapsed / repeat
	start := w.Start.Add(k * repeat)
	if elapsed%repeat <= length {
		return Occurrence{Start: start, End: start.Add(length)}, true, true
	}

	start = start.Add(repeat)
	return Occurrence{Start: start, End: start.Add(length)}, false, true
}

// Covers reports whether now falls inside an occurrence of w.
func Covers(w database.MaintenanceWindow, now time.Time) bool {
	if !w.Active {
		return false
	}
	_, inside, _ := cycle(w, now)
	return inside
}

// CoversAny reports whether any window in windows covers now.
func CoversAny(windows []database.MaintenanceWindow, now time.Time) bool {
	for _, w := range windows {
		if Covers(w, now) {
			return true
		}
	}
	return false
}

// NextOccurrence returns the first occurrence of w whose end is not before
// now, and whether now is inside it.
func NextOccurrence(w database.MaintenanceWindow, now time.Time) (Occurrence, bool, bool) {
	return cycle(w, now)
}

// Describe renders the window's state relative to now for display.
func Describe(w database.MaintenanceWindow, now time.Time) string {
	if !w.Active {
		return "Window inactive"
	}
	occ, inside, ok := cycle(w, now)
	switch {
	case !ok:
		return "No upcoming window"
	case inside:
		return fmt.Sprintf("In maintenance window (ends in %s)", FormatDuration(occ.End.Sub(now)))
	default:
		return fmt.Sprintf("Next window in %s", FormatDuration(occ.Start.Sub(now)))
	}
}

// FormatDuration renders d compactly, e.g. "45s", "12m", "3h 5m", "2d 4h".
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	} else if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	} else if d < 24*time.Hour {
		hours := int(d.Hours())
		minutes := int(d.Minutes()) % 60
		if minutes > 0 {
			return fmt.Sprintf("%dh %dm", hours, minutes)
		}
		return fmt.Sprintf("%dh", hours)
	}

	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	if hours > 0 {
		return fmt.Sprintf("%dd %dh", days, hours)
	}
	return fmt.Sprintf("%dd", days)
}

// Status is a window evaluated at a point in time.
type Status struct {
	database.MaintenanceWindow
	InWindow    bool        `json:"in_window"`
	Next        *Occurrence `json:"next,omitempty"`
	Description string      `json:"description"`
}

// Evaluate annotates each window with its state at now.
func Evaluate(windows []database.MaintenanceWindow, now time.Time) []Status {
	out := make([]Status, 0, len(windows))
	for _, w := range windows {
		s := Status{MaintenanceWindow: w, Description: Describe(w, now)}
		if w.Active {
			if occ, inside, ok := cycle(w, now); ok {
				s.InWindow = inside
				s.Next = &occ
			}
		}
		out = append(out, s)
	}
	return out
}
