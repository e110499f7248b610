package workflows

import (
	"errors"

	"github.com/tendant/simple-content-mediafilter/internal/raster"
)

var (
	// ErrWorkflowNotFound is returned when no workflow is registered for a task
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrInvalidRequest is returned when the request is invalid
	ErrInvalidRequest = errors.New("invalid workflow request")

	// ErrTransform marks a failure confined to one asset. The asset counts as
	// eligible but not filtered and the run continues.
	ErrTransform = errors.New("derivative transform failed")

	// ErrNoProvider is returned when no extraction provider handles a media type
	ErrNoProvider = errors.New("no extraction provider for media type")

	// ErrDecode and ErrEncode are the raster codec failures
	ErrDecode = raster.ErrDecode
	ErrEncode = raster.ErrEncode
)

// streamError tags a read error of a derivative stream so that a repository
// failing on it is not mistaken for a storage failure
type streamError struct {
	err error
}

func (e *streamError) Error() string {
	return e.err.Error()
}

func (e *streamError) Unwrap() error {
	return e.err
}
