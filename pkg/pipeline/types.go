package pipeline

// RunRequest asks for one media filter task to be run over one item
type RunRequest struct {
	ItemID string `json:"item_id"`
	Task   string `json:"task"` // scaleimage, extracttext
}

// RunResponse reports the outcome of a task run over one item
type RunResponse struct {
	RunID   string   `json:"run_id"`
	ItemID  string   `json:"item_id"`
	Task    string   `json:"task"`
	Status  Status   `json:"status"`
	Summary string   `json:"summary"`
	Report  []string `json:"report,omitempty"`

	Eligible int `json:"eligible"`
	Filtered int `json:"filtered"`

	// SeenCount is the number of runs recorded for this item and task,
	// including this one. Zero when no ledger is configured.
	SeenCount int `json:"seen_count,omitempty"`
}

// Status is the aggregate outcome of a task run
type Status string

// Status constants
const (
	// StatusSuccess means every eligible asset produced a derivative
	StatusSuccess Status = "success"
	// StatusFail means at least one eligible asset produced no derivative
	StatusFail Status = "fail"
	// StatusSkip means no asset was eligible, or the object was not an item
	StatusSkip Status = "skip"
	// StatusError means a collaborator failed and the run was aborted
	StatusError Status = "error"
)

// Task constants
const (
	TaskScaleImage  = "scaleimage"
	TaskExtractText = "extracttext"
)

// Container name constants (match repository conventions)
const (
	ContainerOriginal  = "ORIGINAL"
	ContainerThumbnail = "THUMBNAIL"
	ContainerText      = "TEXT"
)
