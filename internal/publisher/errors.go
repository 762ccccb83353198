package publisher

import (
	"errors"
	"fmt"

	"github.com/propline/promopost/internal/types"
)

// ErrAuthenticationRequired means the session cannot publish because it is
// not (or no longer) authenticated. Run-fatal.
var ErrAuthenticationRequired = errors.New("authentication required")

// ErrComposerUnavailable means the content-entry surface could not be
// reached. Fails the item, not the run.
var ErrComposerUnavailable = errors.New("composer unavailable")

// ErrSubmissionUnconfirmed means no confirmation indicator appeared after
// submitting. Treated as a failure even if the underlying action likely
// succeeded: false negatives are preferred over false positives in a ledger
// that drives business reporting.
var ErrSubmissionUnconfirmed = errors.New("submission not confirmed")

// MediaAttachError records a per-asset attach failure. Absorbed and logged;
// never aborts the post.
type MediaAttachError struct {
	Asset types.MediaAsset
	Err   error
}

func (e *MediaAttachError) Error() string {
	return fmt.Sprintf("failed to attach %s: %v", e.Asset.LocalPath, e.Err)
}

func (e *MediaAttachError) Unwrap() error { return e.Err }
