package field

import (
	"errors"

	"github.com/vk/fieldengine/internal/mesh"
)

var (
	// ErrArgument reports nil handles, out-of-range indexes, mismatched
	// component counts and other invalid inputs.
	ErrArgument = errors.New("invalid argument")
	// ErrNotDefined reports that a field has no value at the cache location.
	// It is expected and non-fatal.
	ErrNotDefined = errors.New("not defined at location")
	// ErrGeneral reports any other failure.
	ErrGeneral = errors.New("field operation failed")
)

// Status is the integer result code of an engine entry point.
type Status int

const (
	StatusOK Status = iota
	StatusErrorGeneral
	StatusErrorArgument
	StatusErrorNotDefined
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusErrorArgument:
		return "ERROR_ARGUMENT"
	case StatusErrorNotDefined:
		return "ERROR_NOT_DEFINED"
	default:
		return "ERROR_GENERAL"
	}
}

// StatusOf maps an error returned by this package to its status code.
func StatusOf(err error) Status {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, ErrNotDefined):
		return StatusErrorNotDefined
	case errors.Is(err, ErrArgument), errors.Is(err, mesh.ErrArgument):
		return StatusErrorArgument
	default:
		return StatusErrorGeneral
	}
}

// AssignResult says how far an assignment reached. Values are ordered from
// weakest to strongest.
type AssignResult int

const (
	// AssignFail means nothing was assigned.
	AssignFail AssignResult = iota
	// AssignPartial means some values were only set in the cache.
	AssignPartial
	// AssignAll means every value reached its underlying storage, or the
	// cache when assigning in cache only.
	AssignAll
)

func (r AssignResult) String() string {
	switch r {
	case AssignAll:
		return "all"
	case AssignPartial:
		return "partial"
	default:
		return "fail"
	}
}

// Weakest combines two results of a multi-part assignment.
func Weakest(a, b AssignResult) AssignResult {
	return min(a, b)
}
