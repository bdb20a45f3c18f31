package report

import (
	"errors"
	"fmt"

	"github.com/xkilldash9x/scalpel-report/internal/narrative"
	"github.com/xkilldash9x/scalpel-report/internal/reporting/style"
)

// Status is the user-visible outcome of a report request.
type Status string

const (
	StatusSuccess Status = "success"
	// StatusPartial means the document was produced but some chunks failed
	// or were not processed.
	StatusPartial Status = "partial"
	// StatusEmpty means no finding survived the severity filter. It is not
	// an error and produces no document.
	StatusEmpty   Status = "empty"
	StatusFailure Status = "failure"
)

var (
	// ErrTotalFailure is returned when every chunk's generation call failed.
	ErrTotalFailure = narrative.ErrTotalFailure
	// ErrRender is wrapped by every RenderError.
	ErrRender = errors.New("report rendering failed")
	// ErrNoFindings is the reason attached to an empty result. It is never
	// returned as an error.
	ErrNoFindings = errors.New("no findings match the severity filter")
	// ErrUnknownStyle is returned for a style the catalog does not define.
	ErrUnknownStyle = style.ErrUnknownStyle
)

// RenderError reports that the rendering collaborator could not finalize
// the artifact. It matches both ErrRender and the underlying cause.
type RenderError struct {
	Err error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("%v: %v", ErrRender, e.Err)
}

func (e *RenderError) Unwrap() []error {
	return []error{ErrRender, e.Err}
}
