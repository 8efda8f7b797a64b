// Package reconcile implements the synchronization engine between rack
// worksheets and the remote BOM source. Every operation runs synchronously
// end-to-end, holds the rack's lock for its whole duration, and records its
// outcome as a lifecycle transition plus a history entry in one transaction.
package reconcile

import (
	"context"
	"fmt"
	"sync"

	"github.com/zulandar/bomsync/internal/bom"
	"github.com/zulandar/bomsync/internal/config"
	"github.com/zulandar/bomsync/internal/ledger"
	"github.com/zulandar/bomsync/internal/merge"
	"github.com/zulandar/bomsync/internal/models"
	"github.com/zulandar/bomsync/internal/positions"
	"github.com/zulandar/bomsync/internal/rack"
	"github.com/zulandar/bomsync/internal/workbook"
	"gorm.io/gorm"
)

// RemoteSource is the remote BOM system the engine reconciles against.
// *arena.Client satisfies it; tests substitute a fake.
type RemoteSource interface {
	FindItem(ctx context.Context, itemNumber string) (string, error)
	FetchBOM(ctx context.Context, remoteID string) (*bom.Snapshot, error)
	PushBOM(ctx context.Context, remoteID string, lines []bom.Line) error
}

// Confirmer is the pre-flight prompt shown before a blocking remote call.
// Returning false cancels the operation before anything happens.
type Confirmer func(itemNumber string) bool

// Approver decides whether a fetched delta is applied to the worksheet. It
// may block on user input; when ctx expires first the delta is declined.
type Approver func(ctx context.Context, itemNumber string, delta bom.Delta) bool

// RefreshOpts controls one refresh run.
type RefreshOpts struct {
	// Confirm runs before the blocking remote fetch. Nil proceeds.
	Confirm Confirmer
	// Approve decides on a non-empty delta. Nil declines: a merge never
	// happens without an explicit yes.
	Approve Approver
}

// PushOpts controls one push run.
type PushOpts struct {
	// Force pushes even when the rack is not in the local_modified state.
	// The position quantity policy is never bypassed.
	Force bool
	// Confirm runs before the blocking remote write. Nil proceeds.
	Confirm Confirmer
}

// Result is the caller-facing outcome of one engine operation. Message is a
// generic one-liner; full diagnostics live only in the history ledger.
type Result struct {
	Success bool
	Message string
	Status  string     // rack status after the operation
	Delta   *bom.Delta // refresh: the computed difference, nil when none was computed
}

// Engine runs reconciliation operations, one per rack at a time.
type Engine struct {
	db     *gorm.DB
	store  workbook.Store
	remote RemoteSource
	cfg    *config.Config

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New builds an engine over its collaborators.
func New(db *gorm.DB, store workbook.Store, remote RemoteSource, cfg *config.Config) *Engine {
	return &Engine{
		db:     db,
		store:  store,
		remote: remote,
		cfg:    cfg,
		locks:  make(map[string]*sync.Mutex),
	}
}

// Refresh fetches the remote BOM for one rack, diffs it against the
// worksheet, and applies the delta when approved. Placeholder racks take the
// pull path instead: the fetched BOM seeds the worksheet without an approval
// step, since there is no reviewed local state to protect yet.
func (e *Engine) Refresh(ctx context.Context, itemNumber string, opts RefreshOpts) (*Result, error) {
	unlock, err := e.lock(itemNumber)
	if err != nil {
		return nil, err
	}
	defer unlock()

	r, err := rack.Get(e.db, itemNumber)
	if err != nil {
		return nil, err
	}

	if opts.Confirm != nil && !opts.Confirm(itemNumber) {
		return &Result{Success: false, Message: "refresh cancelled", Status: r.Status}, nil
	}

	remoteID, err := e.resolveRemoteID(ctx, r)
	if err != nil {
		return e.fail(itemNumber, "refresh", err, nil)
	}

	fetched, err := e.remote.FetchBOM(ctx, remoteID)
	if err != nil {
		return e.fail(itemNumber, "refresh", err, nil)
	}

	local, err := e.store.ReadBOM(itemNumber)
	if err != nil {
		return e.fail(itemNumber, "refresh", err, nil)
	}

	if r.Status == rack.StatusPlaceholder {
		return e.pull(r, remoteID, local, fetched)
	}

	tOpts := rack.TransitionOpts{TouchRefresh: true}
	if r.RemoteID == nil || *r.RemoteID == "" {
		tOpts.RemoteID = &remoteID
	}

	delta := bom.Diff(local, fetched, e.cfg.Workbook.AttributeColumns)
	if delta.Empty() {
		res, err := e.record(itemNumber, rack.EventRefreshNoChange, tOpts,
			"no changes", map[string]interface{}{"lines": len(local.Lines)})
		if err != nil {
			return nil, err
		}
		return &Result{Success: true, Message: "no changes", Status: res.After}, nil
	}

	if !awaitApproval(ctx, opts.Approve, itemNumber, delta) {
		summary := fmt.Sprintf("declined %d remote change%s", delta.Count(), plural(delta.Count()))
		res, err := e.record(itemNumber, rack.EventRefreshDeclined, tOpts, summary, deltaDetails(delta))
		if err != nil {
			return nil, err
		}
		return &Result{Success: true, Message: summary, Status: res.After, Delta: &delta}, nil
	}

	_, mres, err := merge.Apply(e.store, itemNumber, delta, e.cfg.Workbook.CategoryColors)
	if err != nil {
		details := deltaDetails(delta)
		details["applied"] = mres.Total()
		return e.fail(itemNumber, "refresh", err, details)
	}

	details := deltaDetails(delta)
	details["applied"] = mres.Total()
	res, err := e.record(itemNumber, rack.EventRefreshAccepted, tOpts,
		fmt.Sprintf("applied %d remote change%s", mres.Total(), plural(mres.Total())), details)
	if err != nil {
		return nil, err
	}
	return &Result{Success: true, Message: mres.Summary(), Status: res.After, Delta: &delta}, nil
}

// pull seeds a placeholder rack from the fetched remote BOM and records the
// remote reference in both the worksheet header and the tracking record. An
// empty remote BOM leaves the placeholder in place.
func (e *Engine) pull(r *models.Rack, remoteID string, local, fetched *bom.Snapshot) (*Result, error) {
	if fetched.Empty() {
		return &Result{
			Success: false,
			Message: "arena item has no BOM lines; rack left as placeholder",
			Status:  r.Status,
		}, nil
	}

	delta := bom.Diff(local, fetched, e.cfg.Workbook.AttributeColumns)
	applied, mres, err := merge.Apply(e.store, r.ItemNumber, delta, e.cfg.Workbook.CategoryColors)
	if err != nil {
		details := deltaDetails(delta)
		details["applied"] = mres.Total()
		return e.fail(r.ItemNumber, "pull", err, details)
	}

	meta, err := e.store.Meta(r.ItemNumber)
	if err != nil {
		return e.fail(r.ItemNumber, "pull", err, nil)
	}
	meta.RemoteID = remoteID
	if err := e.store.WriteMeta(r.ItemNumber, meta); err != nil {
		return e.fail(r.ItemNumber, "pull", err, nil)
	}

	summary := fmt.Sprintf("pulled %d line%s", len(applied.Lines), plural(len(applied.Lines)))
	res, err := e.record(r.ItemNumber, rack.EventPull,
		rack.TransitionOpts{RemoteID: &remoteID, TouchRefresh: true},
		summary, map[string]interface{}{"lines": len(applied.Lines), "remote_id": remoteID})
	if err != nil {
		return nil, err
	}
	return &Result{Success: true, Message: summary, Status: res.After, Delta: &delta}, nil
}

// Push uploads the rack's local BOM to the remote source, replacing the
// remote BOM wholesale. Lines named by installation positions carry the
// formatted position attribute; their quantity must agree with the implied
// position count per the configured policy.
func (e *Engine) Push(ctx context.Context, itemNumber string, opts PushOpts) (*Result, error) {
	unlock, err := e.lock(itemNumber)
	if err != nil {
		return nil, err
	}
	defer unlock()

	r, err := rack.Get(e.db, itemNumber)
	if err != nil {
		return nil, err
	}
	if r.Status == rack.StatusPlaceholder || r.RemoteID == nil || *r.RemoteID == "" {
		return &Result{
			Success: false,
			Message: "rack has never been pulled; run refresh first",
			Status:  r.Status,
		}, nil
	}
	if r.Status != rack.StatusLocalModified && !opts.Force {
		return &Result{
			Success: false,
			Message: fmt.Sprintf("rack is %s, not local_modified; use --force to push anyway", r.Status),
			Status:  r.Status,
		}, nil
	}

	local, err := e.store.ReadBOM(itemNumber)
	if err != nil {
		return e.fail(itemNumber, "push", err, nil)
	}
	if local.Empty() {
		return &Result{Success: false, Message: "local BOM is empty; nothing to push", Status: r.Status}, nil
	}

	grid, err := e.store.OverviewGrid()
	if err != nil {
		return e.fail(itemNumber, "push", err, nil)
	}
	posMap, err := positions.Collect(grid, e.cfg.Workbook.PositionPrefix)
	if err != nil {
		return e.fail(itemNumber, "push", err, nil)
	}

	lines, placed, err := e.payload(itemNumber, local, posMap)
	if err != nil {
		return e.fail(itemNumber, "push", err, nil)
	}

	if opts.Confirm != nil && !opts.Confirm(itemNumber) {
		return &Result{Success: false, Message: "push cancelled", Status: r.Status}, nil
	}

	if err := e.remote.PushBOM(ctx, *r.RemoteID, lines); err != nil {
		return e.fail(itemNumber, "push", err, nil)
	}

	summary := fmt.Sprintf("pushed %d line%s", len(lines), plural(len(lines)))
	res, err := e.record(itemNumber, rack.EventPush, rack.TransitionOpts{},
		summary, map[string]interface{}{
			"lines":     len(lines),
			"positions": placed,
			"remote_id": *r.RemoteID,
		})
	if err != nil {
		return nil, err
	}
	return &Result{Success: true, Message: summary, Status: res.After}, nil
}

// payload builds the remote write for a push: position-mapped lines get the
// formatted position attribute, and disagreement between BOM quantity and
// implied position count is resolved per the configured policy. Returns the
// lines and how many carried positions.
func (e *Engine) payload(itemNumber string, local *bom.Snapshot, posMap positions.Map) ([]bom.Line, int, error) {
	lines := make([]bom.Line, 0, len(local.Lines))
	placed := 0
	for _, ln := range local.Lines {
		labels := posMap.Labels(ln.ItemNumber)
		if len(labels) > 0 {
			if implied := len(labels); ln.Quantity != implied {
				if e.cfg.Push.PositionQuantity != config.QuantityOverride {
					return nil, 0, &ConsistencyError{
						RackItemNumber: itemNumber,
						LineItemNumber: ln.ItemNumber,
						BOMQuantity:    ln.Quantity,
						PositionCount:  implied,
						Positions:      labels,
					}
				}
				ln.Quantity = implied
			}
			attrs := make(map[string]string, len(ln.Attributes)+1)
			for k, v := range ln.Attributes {
				attrs[k] = v
			}
			attrs[e.cfg.Arena.PositionAttribute] = positions.Format(labels)
			ln.Attributes = attrs
			placed++
		}
		lines = append(lines, ln)
	}
	return lines, placed, nil
}

// RecordEdit handles an edited-rows notification from the host spreadsheet
// hook. Edits outside the rack's BOM data region are ignored.
func (e *Engine) RecordEdit(itemNumber string, startRow, endRow int) (*Result, error) {
	if startRow > endRow {
		startRow, endRow = endRow, startRow
	}
	if startRow < 1 {
		return nil, fmt.Errorf("reconcile: invalid row range %d-%d", startRow, endRow)
	}

	unlock, err := e.lock(itemNumber)
	if err != nil {
		return nil, err
	}
	defer unlock()

	r, err := rack.Get(e.db, itemNumber)
	if err != nil {
		return nil, err
	}

	first := e.cfg.Workbook.DataStartRow
	last, err := e.store.LastDataRow(itemNumber)
	if err != nil {
		return e.fail(itemNumber, "edit", err, nil)
	}
	if last < first {
		// An empty region still accepts edits on its first row: deleting
		// the final line is a local modification too.
		last = first
	}
	if endRow < first || startRow > last {
		return &Result{Success: true, Message: "rows outside the BOM data region; ignored", Status: r.Status}, nil
	}

	res, err := e.record(itemNumber, rack.EventLocalEdit, rack.TransitionOpts{},
		fmt.Sprintf("local edit rows %d-%d", startRow, endRow),
		map[string]interface{}{"start_row": startRow, "end_row": endRow})
	if err != nil {
		return nil, err
	}
	msg := "rack marked locally modified"
	if !res.Changed {
		msg = "no status change"
	}
	return &Result{Success: true, Message: msg, Status: res.After}, nil
}

// GetStatus returns the tracking record for one rack.
func (e *Engine) GetStatus(itemNumber string) (*models.Rack, error) {
	return rack.Get(e.db, itemNumber)
}

// resolveRemoteID returns the stored remote reference, looking it up by item
// number on first contact.
func (e *Engine) resolveRemoteID(ctx context.Context, r *models.Rack) (string, error) {
	if r.RemoteID != nil && *r.RemoteID != "" {
		return *r.RemoteID, nil
	}
	return e.remote.FindItem(ctx, r.ItemNumber)
}

// lock acquires the rack's operation lock without blocking.
func (e *Engine) lock(itemNumber string) (func(), error) {
	e.mu.Lock()
	m, ok := e.locks[itemNumber]
	if !ok {
		m = &sync.Mutex{}
		e.locks[itemNumber] = m
	}
	e.mu.Unlock()

	if !m.TryLock() {
		return nil, ErrBusy
	}
	return m.Unlock, nil
}

// record applies a lifecycle event and its matching history entry in one
// transaction. The entry is skipped for unchanged, not-always-logged events.
func (e *Engine) record(itemNumber, event string, tOpts rack.TransitionOpts, summary string, details map[string]interface{}) (*rack.TransitionResult, error) {
	var res *rack.TransitionResult
	err := e.db.Transaction(func(tx *gorm.DB) error {
		r, err := rack.Transition(tx, itemNumber, event, tOpts)
		if err != nil {
			return err
		}
		res = r
		if !r.Changed && !rack.AlwaysLogged(event) {
			return nil
		}
		_, err = ledger.Append(tx, ledger.AppendOpts{
			RackItemNumber: itemNumber,
			EventType:      event,
			StatusBefore:   r.Before,
			StatusAfter:    r.After,
			Summary:        summary,
			Details:        details,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// fail records the error transition carrying the triggering message, then
// returns the generic result. The detailed cause lives only in the ledger.
func (e *Engine) fail(itemNumber, op string, cause error, details map[string]interface{}) (*Result, error) {
	if details == nil {
		details = map[string]interface{}{}
	}
	details["error"] = cause.Error()

	res, err := e.record(itemNumber, rack.EventError, rack.TransitionOpts{}, op+" failed", details)
	if err != nil {
		return nil, fmt.Errorf("reconcile: %s %s failed (%v); recording the failure also failed: %w",
			op, itemNumber, cause, err)
	}
	return &Result{
		Success: false,
		Message: op + " failed; see history for details",
		Status:  res.After,
	}, nil
}

// awaitApproval runs the approval hook and treats context expiry as a
// decline, even while the hook is still blocked on input.
func awaitApproval(ctx context.Context, approve Approver, itemNumber string, delta bom.Delta) bool {
	if approve == nil {
		return false
	}
	done := make(chan bool, 1)
	go func() { done <- approve(ctx, itemNumber, delta) }()
	select {
	case ok := <-done:
		return ok
	case <-ctx.Done():
		return false
	}
}

func deltaDetails(d bom.Delta) map[string]interface{} {
	return map[string]interface{}{
		"modified": len(d.Modified),
		"added":    len(d.Added),
		"removed":  len(d.Removed),
	}
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
