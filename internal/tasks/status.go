package tasks

import "strings"

// Status is a task's lifecycle state: pending -> in_progress -> completed.
// There is no transition back to pending here; reopening is an external
// capability.
type Status string

// Task states.
const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// ParseStatus maps a raw marker value to a Status. Absent or unrecognized
// values degrade to pending; raw text never leaks past this boundary.
func ParseStatus(raw string) Status {
	switch strings.TrimSpace(raw) {
	case string(StatusInProgress):
		return StatusInProgress
	case string(StatusCompleted):
		return StatusCompleted
	default:
		return StatusPending
	}
}

// Actionable reports whether a task in this state can still be worked.
func (s Status) Actionable() bool {
	return s == StatusPending || s == StatusInProgress
}

// Marker line keys recognized inside a task body.
const (
	markerStatus    = "Status"
	markerCompleted = "Completed"
	markerNote      = "Note"
	markerPhase     = "Phase"
)

// markerValue parses a "- Key: value" body line. ok is false for any other
// line shape.
func markerValue(line, key string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	prefix := "- " + key + ":"
	if !strings.HasPrefix(trimmed, prefix) {
		return "", false
	}
	return strings.TrimSpace(trimmed[len(prefix):]), true
}

// bodyMarkers extracts all recognized markers from a task body.
func bodyMarkers(body string) map[string]string {
	out := make(map[string]string, 4)
	for _, line := range strings.Split(body, "\n") {
		for _, key := range []string{markerStatus, markerCompleted, markerNote, markerPhase} {
			if v, ok := markerValue(line, key); ok {
				if _, seen := out[key]; !seen {
					out[key] = v
				}
			}
		}
	}
	return out
}

// markCompleted rewrites a task body for completion: the status marker is set
// in place (or prepended when absent) and the completion date plus note are
// appended as additional lines.
func markCompleted(body, date, note string) string {
	lines := strings.Split(body, "\n")
	replaced := false
	for i, line := range lines {
		if _, ok := markerValue(line, markerStatus); ok {
			lines[i] = "- Status: " + string(StatusCompleted)
			replaced = true
			break
		}
	}
	out := strings.TrimSpace(strings.Join(lines, "\n"))
	if !replaced {
		if out == "" {
			out = "- Status: " + string(StatusCompleted)
		} else {
			out = "- Status: " + string(StatusCompleted) + "\n" + out
		}
	}
	out += "\n- Completed: " + date
	if note != "" {
		out += "\n- Note: " + note
	}
	return out
}
