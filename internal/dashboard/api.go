package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/bomsync/internal/bom"
	"github.com/zulandar/bomsync/internal/ledger"
	"github.com/zulandar/bomsync/internal/models"
	"github.com/zulandar/bomsync/internal/rack"
	"github.com/zulandar/bomsync/internal/reconcile"
	"gorm.io/gorm"
)

// rackJSON is the API shape of one rack record.
type rackJSON struct {
	ItemNumber      string     `json:"item_number"`
	Name            string     `json:"name,omitempty"`
	Status          string     `json:"status"`
	RemoteID        string     `json:"remote_id,omitempty"`
	LastRefreshedAt *time.Time `json:"last_refreshed_at,omitempty"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func toRackJSON(r models.Rack) rackJSON {
	out := rackJSON{
		ItemNumber:      r.ItemNumber,
		Name:            r.Name,
		Status:          r.Status,
		LastRefreshedAt: r.LastRefreshedAt,
		UpdatedAt:       r.UpdatedAt,
	}
	if r.RemoteID != nil {
		out.RemoteID = *r.RemoteID
	}
	return out
}

// eventJSON is the API shape of one history event. Details passes the stored
// JSON through untouched.
type eventJSON struct {
	ID           uint            `json:"id"`
	Rack         string          `json:"rack"`
	EventType    string          `json:"event_type"`
	StatusBefore string          `json:"status_before,omitempty"`
	StatusAfter  string          `json:"status_after,omitempty"`
	Summary      string          `json:"summary,omitempty"`
	Details      json.RawMessage `json:"details,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

func toEventJSON(ev models.HistoryEvent) eventJSON {
	out := eventJSON{
		ID:           ev.ID,
		Rack:         ev.RackItemNumber,
		EventType:    ev.EventType,
		StatusBefore: ev.StatusBefore,
		StatusAfter:  ev.StatusAfter,
		Summary:      ev.Summary,
		CreatedAt:    ev.CreatedAt,
	}
	if ev.Details != "" {
		out.Details = json.RawMessage(ev.Details)
	}
	return out
}

// resultJSON is the API shape of an engine operation outcome.
type resultJSON struct {
	Success bool       `json:"success"`
	Message string     `json:"message"`
	Status  string     `json:"status"`
	Delta   *deltaJSON `json:"delta,omitempty"`
}

type deltaJSON struct {
	Modified int `json:"modified"`
	Added    int `json:"added"`
	Removed  int `json:"removed"`
}

func toResultJSON(res *reconcile.Result) resultJSON {
	out := resultJSON{Success: res.Success, Message: res.Message, Status: res.Status}
	if res.Delta != nil {
		out.Delta = &deltaJSON{
			Modified: len(res.Delta.Modified),
			Added:    len(res.Delta.Added),
			Removed:  len(res.Delta.Removed),
		}
	}
	return out
}

// writeEngineError maps an engine error onto an HTTP status.
func writeEngineError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, reconcile.ErrBusy):
		status = http.StatusConflict
	case errors.Is(err, rack.ErrNotFound):
		status = http.StatusNotFound
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func handleListRacks(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		racks, err := rack.List(db, rack.ListFilters{Status: c.Query("status")})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		out := make([]rackJSON, len(racks))
		for i, r := range racks {
			out[i] = toRackJSON(r)
		}
		c.JSON(http.StatusOK, gin.H{"racks": out})
	}
}

func handleGetRack(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		r, err := rack.Get(db, c.Param("id"))
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, rack.ErrNotFound) {
				status = http.StatusNotFound
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, toRackJSON(*r))
	}
}

// refreshRequest is the body of POST /api/racks/:id/refresh. An absent body
// means apply=false: the delta is computed and declined, flagging the rack
// for review.
type refreshRequest struct {
	Apply bool `json:"apply"`
}

// handleRefresh runs a refresh with the apply decision taken from the request
// body. There is no interactive confirmation over HTTP.
func handleRefresh(engine Reconciler) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req refreshRequest
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		opts := reconcile.RefreshOpts{}
		if req.Apply {
			opts.Approve = func(context.Context, string, bom.Delta) bool { return true }
		}
		res, err := engine.Refresh(c.Request.Context(), c.Param("id"), opts)
		if err != nil {
			writeEngineError(c, err)
			return
		}
		c.JSON(http.StatusOK, toResultJSON(res))
	}
}

// pushRequest is the body of POST /api/racks/:id/push. Force only bypasses
// the local_modified gate; the position quantity policy still applies.
type pushRequest struct {
	Force bool `json:"force"`
}

func handlePush(engine Reconciler) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req pushRequest
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		res, err := engine.Push(c.Request.Context(), c.Param("id"), reconcile.PushOpts{Force: req.Force})
		if err != nil {
			writeEngineError(c, err)
			return
		}
		c.JSON(http.StatusOK, toResultJSON(res))
	}
}

// editsRequest is the body of POST /api/racks/:id/edits, reported by the
// host spreadsheet's change-detection hook.
type editsRequest struct {
	StartRow int `json:"start_row"`
	EndRow   int `json:"end_row"`
}

func handleRecordEdit(engine Reconciler) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req editsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if req.StartRow < 1 || req.EndRow < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "start_row and end_row must be positive"})
			return
		}
		res, err := engine.RecordEdit(c.Param("id"), req.StartRow, req.EndRow)
		if err != nil {
			writeEngineError(c, err)
			return
		}
		c.JSON(http.StatusOK, toResultJSON(res))
	}
}

func handleHistory(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := 50
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
				return
			}
			limit = n
		}
		events, err := ledger.List(db, ledger.Filter{
			Rack:      c.Query("rack"),
			EventType: c.Query("type"),
			Limit:     limit,
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		out := make([]eventJSON, len(events))
		for i, ev := range events {
			out[i] = toEventJSON(ev)
		}
		c.JSON(http.StatusOK, gin.H{"events": out})
	}
}
