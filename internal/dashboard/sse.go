package dashboard

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/bomsync/internal/ledger"
	"gorm.io/gorm"
)

// ledgerSSEEvent is the payload of one "history" SSE event.
type ledgerSSEEvent struct {
	ID        uint      `json:"id"`
	Rack      string    `json:"rack"`
	EventType string    `json:"event_type"`
	Status    string    `json:"status"`
	Summary   string    `json:"summary"`
	CreatedAt time.Time `json:"created_at"`
}

// handleSSE streams history events appended after the client connected,
// polling the ledger and heartbeating between polls.
func handleSSE(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Header("X-Accel-Buffering", "no")

		// Take the cursor before announcing the connection, so an event
		// appended right after the client sees "connected" is never skipped.
		lastID, err := ledger.LastID(db)
		if err != nil {
			c.Status(http.StatusInternalServerError)
			return
		}

		writeSSE(c.Writer, "connected", map[string]string{"type": "connected"})
		c.Writer.Flush()

		ctx := c.Request.Context()
		ticker := time.NewTicker(3 * time.Second)
		heartbeat := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		defer heartbeat.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-heartbeat.C:
				writeSSE(c.Writer, "heartbeat", map[string]string{
					"timestamp": time.Now().UTC().Format(time.RFC3339),
				})
				c.Writer.Flush()
			case <-ticker.C:
				events, err := ledger.After(db, lastID)
				if err != nil || len(events) == 0 {
					continue
				}
				lastID = events[len(events)-1].ID

				for _, ev := range events {
					writeSSE(c.Writer, "history", ledgerSSEEvent{
						ID:        ev.ID,
						Rack:      ev.RackItemNumber,
						EventType: ev.EventType,
						Status:    ev.StatusAfter,
						Summary:   ev.Summary,
						CreatedAt: ev.CreatedAt,
					})
				}
				c.Writer.Flush()
			}
		}
	}
}

// writeSSE writes a single SSE event to the writer.
func writeSSE(w io.Writer, event string, data any) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, jsonData)
}
