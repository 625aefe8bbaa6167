package domain

import "time"

// Page is one decoded upstream page.
type Page struct {
	// Index is the page number requested (offset mode still counts pages).
	Index int

	// Items are the extracted records. Empty when no container shape matched.
	Items []map[string]any

	// Total is the item count the source states for the whole result set, -1 if unknown.
	Total int

	// Shape names the container shape items were extracted from.
	Shape string
}

// IsEmpty reports whether the page yielded no items.
func (p *Page) IsEmpty() bool {
	return len(p.Items) == 0
}

// PaginationCursor is the private state of one page walk.
// It lives only as long as the walker that owns it.
type PaginationCursor struct {
	// Page is the next page index to request.
	Page int

	// Fetched counts fetches performed, empty pages included.
	Fetched int

	// ConsecutiveEmpty counts empty pages since the last non-empty one.
	ConsecutiveEmpty int

	// ItemsSeen counts items across all fetched pages.
	ItemsSeen int
}

// StopReason explains why a walk ended.
type StopReason string

// Walk stop reasons.
const (
	StopNone         StopReason = ""
	StopMaxPages     StopReason = "max_pages"
	StopEmptyPages   StopReason = "empty_pages"
	StopTotalReached StopReason = "total_reached"
	StopFailed       StopReason = "failed"
	StopCancelled    StopReason = "cancelled"
)

// CycleSummary is emitted once per harvest cycle.
type CycleSummary struct {
	CycleID         string     `json:"cycle_id"`
	RawSaved        int        `json:"raw_saved"`
	CatalogUpserted int        `json:"catalog_upserted"`
	PagesProcessed  int        `json:"pages_processed"`
	PagesFetched    int        `json:"pages_fetched"`
	ItemsSeen       int        `json:"items_seen"`
	RawCreated      int        `json:"raw_created"`
	CatalogCreated  int        `json:"catalog_created"`
	RecordErrors    int        `json:"record_errors"`
	StopReason      StopReason `json:"stop_reason"`
	StartedAt       time.Time  `json:"started_at"`
	EndedAt         time.Time  `json:"ended_at"`
	Error           string     `json:"error,omitempty"`
}

// Duration returns how long the cycle ran.
func (s *CycleSummary) Duration() time.Duration {
	if s.EndedAt.IsZero() {
		return 0
	}
	return s.EndedAt.Sub(s.StartedAt)
}

// Failed reports whether the cycle ended with a fatal error.
func (s *CycleSummary) Failed() bool {
	return s.Error != ""
}

// CycleStatus tracks a running harvest cycle.
type CycleStatus struct {
	CycleID        string
	Running        bool
	StartedAt      time.Time
	PagesProcessed int
	ItemsSeen      int
}
