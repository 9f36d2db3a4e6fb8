package editor

import (
	"errors"
	"fmt"

	"github.com/dukex/flowdesk/pkg/models"
)

var (
	ErrNodeNotFound       = errors.New("node not found")
	ErrEdgeNotFound       = errors.New("edge not found")
	ErrUnknownNodeType    = models.ErrUnknownNodeType
	ErrInvalidConfigPatch = models.ErrInvalidConfigPatch
	ErrEdgeRejected       = errors.New("edge rejected by policy")
	ErrUnknownPolicy      = errors.New("unknown edge policy")

	// Load errors, returned only under LoadStrict.
	ErrDanglingEdge    = errors.New("edge references a missing node")
	ErrDuplicateNodeID = errors.New("duplicate node id")
	ErrDuplicateEdgeID = errors.New("duplicate edge id")
	ErrConfigMismatch  = errors.New("node config does not match node type")

	// Property panel errors.
	ErrNothingSelected   = errors.New("nothing selected")
	ErrUnknownField      = errors.New("unknown field")
	ErrInvalidFieldValue = errors.New("invalid field value")
)

// OpError wraps an editor error with the operation and entity it concerns.
type OpError struct {
	Op  string // Operation name, e.g. "DeleteNode"
	ID  string // Node or edge ID if applicable
	Err error
}

func (e *OpError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}

	return fmt.Sprintf("%s %s: %v", e.Op, e.ID, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

func opError(op, id string, err error) error {
	return &OpError{Op: op, ID: id, Err: err}
}

// IsNotFound reports whether err means a node or edge does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNodeNotFound) || errors.Is(err, ErrEdgeNotFound)
}

// IsInvalidInput reports whether err was caused by caller input rather than editor state.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrUnknownNodeType) ||
		errors.Is(err, ErrInvalidConfigPatch) ||
		errors.Is(err, ErrEdgeRejected) ||
		errors.Is(err, ErrUnknownPolicy) ||
		errors.Is(err, ErrDanglingEdge) ||
		errors.Is(err, ErrDuplicateNodeID) ||
		errors.Is(err, ErrDuplicateEdgeID) ||
		errors.Is(err, ErrConfigMismatch) ||
		errors.Is(err, ErrNothingSelected) ||
		errors.Is(err, ErrUnknownField) ||
		errors.Is(err, ErrInvalidFieldValue)
}
