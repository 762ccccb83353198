package types

import "time"

// ListingItem is one unit of promotional work: a property listing to publish.
// Items are immutable once a run starts.
type ListingItem struct {
	ID         string   `json:"id"`
	Address    string   `json:"address"`
	Price      string   `json:"price"`
	Bedrooms   int      `json:"bedrooms"`
	Bathrooms  float64  `json:"bathrooms"`
	SquareFeet int      `json:"square_feet"`
	Features   []string `json:"features,omitempty"`
	// MediaPaths are local image paths; optional, absence never fails a run.
	MediaPaths []string `json:"media_paths,omitempty"`
}

// ContentDraft is the post copy produced by the content generator for one item.
// Never mutated after creation, only consumed by the publisher.
type ContentDraft struct {
	ItemID    string    `json:"item_id"`
	Text      string    `json:"text"`
	Model     string    `json:"model,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// MediaAsset references one hosted or local media file attached to a post.
type MediaAsset struct {
	LocalPath string `json:"local_path"`
	HostedURL string `json:"hosted_url,omitempty"`
	Width     int    `json:"width,omitempty"`
	Height    int    `json:"height,omitempty"`
}

// Stage identifies one discrete step in the per-item pipeline.
type Stage string

const (
	StageDraft   Stage = "draft"
	StageMedia   Stage = "media"
	StagePublish Stage = "publish"
	StageLog     Stage = "log"
)

// StageOutcome records the result of one pipeline stage for one item.
// Fatal distinguishes "this item failed" from "this run must stop".
type StageOutcome struct {
	Stage     Stage  `json:"stage"`
	Succeeded bool   `json:"succeeded"`
	Detail    string `json:"detail,omitempty"`
	Fatal     bool   `json:"fatal,omitempty"`
	// Unconfirmed marks a submission whose confirmation indicator never
	// appeared. Not safely known to be published; never a success.
	Unconfirmed bool `json:"unconfirmed,omitempty"`
	// PostRef is the resulting post URL or identifier, set only on a
	// confirmed publish.
	PostRef    string    `json:"post_ref,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

// ItemStatus is the final disposition of one item within a run.
type ItemStatus string

const (
	ItemPublished    ItemStatus = "published"
	ItemFailed       ItemStatus = "failed"
	ItemUnconfirmed  ItemStatus = "unconfirmed"
	ItemNotAttempted ItemStatus = "not_attempted"
	ItemCancelled    ItemStatus = "cancelled"
)

// ItemResult is the per-item slice of a RunReport.
type ItemResult struct {
	Item    ListingItem    `json:"item"`
	Status  ItemStatus     `json:"status"`
	Stages  []StageOutcome `json:"stages,omitempty"`
	PostRef string         `json:"post_ref,omitempty"`
}

// RunReport is the aggregate produced at run end. It is created empty at run
// start, appended to only by the orchestrator, and immutable once finalized.
type RunReport struct {
	RunID      string       `json:"run_id"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Items      []ItemResult `json:"items"`

	Published    int `json:"published"`
	Failed       int `json:"failed"`
	Unconfirmed  int `json:"unconfirmed"`
	NotAttempted int `json:"not_attempted"`
	Cancelled    int `json:"cancelled"`
}

// Span returns the wall-clock duration of the run.
func (r *RunReport) Span() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Clean reports whether every item ended safely known as published. An
// unconfirmed submission counts as not clean: it is not safely known to be
// published.
func (r *RunReport) Clean() bool {
	return r.Failed == 0 && r.Unconfirmed == 0 && r.NotAttempted == 0 && r.Cancelled == 0
}
