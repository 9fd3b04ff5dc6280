package flow

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is.
var (
	ErrEdgeResolution          = errors.New("edge resolution failed")
	ErrInvalidStyle            = errors.New("invalid packet style")
	ErrRenderTargetUnavailable = errors.New("render target unavailable")
)

// EdgeResolutionError reports an edge whose endpoint is not in the node set.
type EdgeResolutionError struct {
	EdgeID string
	NodeID string
	End    string // "source" or "target"
}

func (e *EdgeResolutionError) Error() string {
	return fmt.Sprintf("edge %q: %s node %q not found", e.EdgeID, e.End, e.NodeID)
}

// Is matches ErrEdgeResolution.
func (e *EdgeResolutionError) Is(target error) bool { return target == ErrEdgeResolution }

// InvalidStyleError reports a malformed packet style.
type InvalidStyleError struct {
	Field  string
	Reason string
}

func (e *InvalidStyleError) Error() string {
	return fmt.Sprintf("invalid packet style: %s %s", e.Field, e.Reason)
}

// Is matches ErrInvalidStyle.
func (e *InvalidStyleError) Is(target error) bool { return target == ErrInvalidStyle }

// RenderTargetUnavailableError reports a start attempt while nothing is
// mounted to draw on. Callers normally ignore it.
type RenderTargetUnavailableError struct {
	EdgeID string
}

func (e *RenderTargetUnavailableError) Error() string {
	return fmt.Sprintf("edge %q: no render target mounted", e.EdgeID)
}

// Is matches ErrRenderTargetUnavailable.
func (e *RenderTargetUnavailableError) Is(target error) bool {
	return target == ErrRenderTargetUnavailable
}
