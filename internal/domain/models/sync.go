package models

import "time"

// MissingSymbol is a (ticker, asset class) pair present in raw market
// data but absent from the registry.
type MissingSymbol struct {
	Ticker     string    `json:"ticker"`
	AssetClass string    `json:"asset_class"`
	Records    int64     `json:"records"`
	FirstSeen  time.Time `json:"first_seen"`
	LastSeen   time.Time `json:"last_seen"`
}

// SyncBatchResult accumulates the outcome of one synchronization batch.
type SyncBatchResult struct {
	Batch    int      `json:"batch"`
	Added    int      `json:"added"`
	Updated  int      `json:"updated"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// SymbolSyncResult aggregates a full synchronization run. Success is true
// only when zero errors accumulated across all batches.
type SymbolSyncResult struct {
	StartedAt         time.Time       `json:"started_at"`
	FinishedAt        time.Time       `json:"finished_at"`
	SymbolsDiscovered int             `json:"symbols_discovered"`
	SymbolsAdded      int             `json:"symbols_added"`
	SymbolsUpdated    int             `json:"symbols_updated"`
	SymbolsSkipped    int             `json:"symbols_skipped"`
	Batches           []SyncBatchResult `json:"batches,omitempty"`
	Errors            []string        `json:"errors,omitempty"`
	Warnings          []string        `json:"warnings,omitempty"`
	AssetClassCounts  map[string]int  `json:"asset_class_counts"`
	Success           bool            `json:"success"`
	Message           string          `json:"message,omitempty"`
}

// SyncStatus reports the current synchronization state plus two leading
// indicators of data-quality problems: raw records with no registry row,
// and tracked symbols with no raw records.
type SyncStatus struct {
	Running             bool       `json:"running"`
	LastSyncAt          *time.Time `json:"last_sync_at,omitempty"`
	TotalSymbols        int        `json:"total_symbols"`
	ActiveSymbols       int        `json:"active_symbols"`
	TrackedSymbols      int        `json:"tracked_symbols"`
	UnregisteredRecords int64      `json:"unregistered_records"`
	TrackedWithoutData  int        `json:"tracked_without_data"`
}

// SymbolValidationReport summarizes a validate-and-clean pass over the
// registry.
type SymbolValidationReport struct {
	Validated  int      `json:"validated"`
	WithIssues int      `json:"with_issues"`
	Fixed      int      `json:"fixed"`
	Issues     []string `json:"issues,omitempty"`
}
