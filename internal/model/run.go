package model

import "time"

// RunKind identifies what a run did.
type RunKind string

const (
	RunKindImport RunKind = "import"
	RunKindRecalc RunKind = "recalc"
	RunKindEdit   RunKind = "edit" // single asset saved through the API
)

// RunStatus represents the current state of an import or recalculation run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run records one import or score recalculation over the asset table.
type Run struct {
	ID           string    `json:"id"`
	Kind         RunKind   `json:"kind"`
	Source       string    `json:"source,omitempty"`
	Status       RunStatus `json:"status"`
	AssetsTotal  int       `json:"assets_total"`
	AssetsScored int       `json:"assets_scored"`
	AssetsNA     int       `json:"assets_na"`
	ConfigHash   string    `json:"config_hash,omitempty"`
	Error        string    `json:"error,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
