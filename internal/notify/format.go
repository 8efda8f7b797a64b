package notify

import (
	"fmt"
	"strings"

	"github.com/zulandar/bomsync/internal/models"
	"github.com/zulandar/bomsync/internal/rack"
)

// Color constants for event severity.
const (
	ColorSuccess = "#36a64f"
	ColorInfo    = "#2196f3"
	ColorWarning = "#ff9800"
	ColorError   = "#e53935"
)

// severityColor maps a severity string to a sidebar color.
func severityColor(severity string) string {
	switch severity {
	case "success":
		return ColorSuccess
	case "info":
		return ColorInfo
	case "warning":
		return ColorWarning
	case "error":
		return ColorError
	default:
		return ColorInfo
	}
}

// eventSeverity returns the severity for a reconciliation event type.
func eventSeverity(eventType string) string {
	switch eventType {
	case rack.EventPull, rack.EventRefreshAccepted, rack.EventPush:
		return "success"
	case rack.EventRefreshDeclined:
		return "warning"
	case rack.EventError:
		return "error"
	default:
		return "info"
	}
}

// eventVerb returns a human-friendly verb phrase for an event type.
func eventVerb(eventType string) string {
	switch eventType {
	case rack.EventPull:
		return "pulled from Arena"
	case rack.EventRefreshNoChange:
		return "refreshed"
	case rack.EventRefreshAccepted:
		return "updated from Arena"
	case rack.EventRefreshDeclined:
		return "declined Arena changes"
	case rack.EventPush:
		return "pushed to Arena"
	case rack.EventLocalEdit:
		return "edited locally"
	case rack.EventError:
		return "failed"
	default:
		return eventType
	}
}

// FormatEvent formats a history ledger event for delivery.
func FormatEvent(ev models.HistoryEvent) FormattedEvent {
	severity := eventSeverity(ev.EventType)
	title := fmt.Sprintf("Rack %s %s", ev.RackItemNumber, eventVerb(ev.EventType))

	var bodyParts []string
	if ev.Summary != "" {
		bodyParts = append(bodyParts, ev.Summary)
	}
	if ev.StatusBefore != ev.StatusAfter {
		bodyParts = append(bodyParts, fmt.Sprintf("%s → %s", ev.StatusBefore, ev.StatusAfter))
	}
	body := strings.Join(bodyParts, "\n")

	fields := []Field{
		{Name: "Rack", Value: ev.RackItemNumber, Short: true},
		{Name: "Status", Value: ev.StatusAfter, Short: true},
		{Name: "Event", Value: ev.EventType, Short: true},
	}

	return FormattedEvent{
		Title:    title,
		Body:     body,
		Severity: severity,
		Color:    severityColor(severity),
		Fields:   fields,
	}
}
