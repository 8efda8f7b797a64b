package reconcile

import (
	"fmt"

	"github.com/zulandar/bomsync/internal/rack"
)

// ScanOpts controls worksheet discovery.
type ScanOpts struct {
	// Prune removes tracking records whose worksheet no longer exists.
	Prune bool
}

// ScanResult reports what a scan changed.
type ScanResult struct {
	Sheets  int      // rack worksheets seen
	Created []string // item numbers newly registered as placeholders
	Pruned  []string // records removed because their worksheet is gone
}

// Scan discovers rack worksheets in the workbook and materializes placeholder
// records for new ones. Existing records get their display name refreshed
// from the sheet header. With Prune, records for deleted worksheets are
// removed; their history entries stay.
func (e *Engine) Scan(opts ScanOpts) (*ScanResult, error) {
	metas, err := e.store.RackSheets()
	if err != nil {
		return nil, fmt.Errorf("reconcile: scan: %w", err)
	}

	out := &ScanResult{Sheets: len(metas)}
	present := make(map[string]bool, len(metas))
	for _, m := range metas {
		present[m.ItemNumber] = true
		r, created, err := rack.Register(e.db, m.ItemNumber, m.Name)
		if err != nil {
			return nil, err
		}
		if created {
			out.Created = append(out.Created, r.ItemNumber)
		}
	}

	if !opts.Prune {
		return out, nil
	}

	all, err := rack.List(e.db, rack.ListFilters{})
	if err != nil {
		return nil, err
	}
	for _, r := range all {
		if present[r.ItemNumber] {
			continue
		}
		if err := rack.Delete(e.db, r.ItemNumber); err != nil {
			return nil, err
		}
		out.Pruned = append(out.Pruned, r.ItemNumber)
	}
	return out, nil
}
