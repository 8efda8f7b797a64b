package reconcile

import (
	"testing"

	"github.com/zulandar/bomsync/internal/bom"
	"github.com/zulandar/bomsync/internal/ledger"
	"github.com/zulandar/bomsync/internal/rack"
	"github.com/zulandar/bomsync/internal/workbook"
)

func TestScan_RegistersNewRacks(t *testing.T) {
	e, store, db := newTestEngine(t, &fakeRemote{}, nil)
	store.AddRack(workbook.Meta{ItemNumber: "RACK-0001", Name: "Compute Rack A"}, nil)
	store.AddRack(workbook.Meta{ItemNumber: "RACK-0002", Name: "Storage Rack B"}, []bom.Line{
		line("SRV-100", "Server", 2),
	})

	res, err := e.Scan(ScanOpts{})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if res.Sheets != 2 {
		t.Errorf("Sheets = %d, want 2", res.Sheets)
	}
	if len(res.Created) != 2 || res.Created[0] != "RACK-0001" || res.Created[1] != "RACK-0002" {
		t.Errorf("Created = %v, want [RACK-0001 RACK-0002]", res.Created)
	}

	for _, item := range []string{"RACK-0001", "RACK-0002"} {
		r := mustGetRack(t, db, item)
		if r.Status != rack.StatusPlaceholder {
			t.Errorf("%s status = %q, want placeholder", item, r.Status)
		}
	}
	if got := mustGetRack(t, db, "RACK-0001").Name; got != "Compute Rack A" {
		t.Errorf("name = %q, want from sheet header", got)
	}

	// Rescanning discovers nothing new.
	res, err = e.Scan(ScanOpts{})
	if err != nil {
		t.Fatalf("rescan: %v", err)
	}
	if len(res.Created) != 0 {
		t.Errorf("rescan Created = %v, want empty", res.Created)
	}
}

func TestScan_RefreshesName(t *testing.T) {
	e, store, db := newTestEngine(t, &fakeRemote{}, nil)
	seedRack(t, db, store, "RACK-0001", rack.StatusSynced, "guid-1", nil)

	meta, err := store.Meta("RACK-0001")
	if err != nil {
		t.Fatalf("Meta: %v", err)
	}
	meta.Name = "Renamed Rack"
	if err := store.WriteMeta("RACK-0001", meta); err != nil {
		t.Fatalf("WriteMeta: %v", err)
	}

	res, err := e.Scan(ScanOpts{})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(res.Created) != 0 {
		t.Errorf("Created = %v, want empty for an existing rack", res.Created)
	}
	if got := mustGetRack(t, db, "RACK-0001").Name; got != "Renamed Rack" {
		t.Errorf("name = %q, want %q", got, "Renamed Rack")
	}
	if got := mustGetRack(t, db, "RACK-0001").Status; got != rack.StatusSynced {
		t.Errorf("status = %q, want synced left alone", got)
	}
}

func TestScan_PruneRemovesOrphans(t *testing.T) {
	e, store, db := newTestEngine(t, &fakeRemote{}, nil)
	seedRack(t, db, store, "RACK-0001", rack.StatusSynced, "guid-1", nil)

	// RACK-0009's worksheet is gone but its record and history remain.
	if _, _, err := rack.Register(db, "RACK-0009", "Torn down"); err != nil {
		t.Fatalf("register orphan: %v", err)
	}
	if _, err := ledger.Append(db, ledger.AppendOpts{
		RackItemNumber: "RACK-0009",
		EventType:      rack.EventPull,
		StatusBefore:   rack.StatusPlaceholder,
		StatusAfter:    rack.StatusSynced,
		Summary:        "pulled 3 lines",
	}); err != nil {
		t.Fatalf("append orphan event: %v", err)
	}

	res, err := e.Scan(ScanOpts{Prune: true})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(res.Pruned) != 1 || res.Pruned[0] != "RACK-0009" {
		t.Errorf("Pruned = %v, want [RACK-0009]", res.Pruned)
	}

	if _, err := rack.Get(db, "RACK-0009"); err == nil {
		t.Error("orphan record still present after prune")
	}
	if _, err := rack.Get(db, "RACK-0001"); err != nil {
		t.Errorf("live record pruned: %v", err)
	}

	// The audit trail outlives the tracking record.
	events, err := ledger.List(db, ledger.Filter{Rack: "RACK-0009"})
	if err != nil {
		t.Fatalf("list orphan events: %v", err)
	}
	if len(events) != 1 {
		t.Errorf("got %d orphan events, want history kept", len(events))
	}
}

func TestScan_WithoutPruneKeepsOrphans(t *testing.T) {
	e, store, db := newTestEngine(t, &fakeRemote{}, nil)
	seedRack(t, db, store, "RACK-0001", rack.StatusSynced, "guid-1", nil)
	if _, _, err := rack.Register(db, "RACK-0009", "Torn down"); err != nil {
		t.Fatalf("register orphan: %v", err)
	}

	res, err := e.Scan(ScanOpts{})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(res.Pruned) != 0 {
		t.Errorf("Pruned = %v, want empty without --prune", res.Pruned)
	}
	if _, err := rack.Get(db, "RACK-0009"); err != nil {
		t.Errorf("orphan removed without prune: %v", err)
	}
}
