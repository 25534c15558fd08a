package attendance

import (
	"github.com/pkg/errors"

	"github.com/trezcool/juku/core"
)

// Reason classifies the outcome of an edit.
type Reason string

const (
	ReasonNone             Reason = ""
	ReasonInvalid          Reason = "invalid"
	ReasonNoActiveEdit     Reason = "no_active_edit"
	ReasonUnknownListType  Reason = "unknown_list_type"
	ReasonMissingOriginal  Reason = "missing_original"
	ReasonNoChange         Reason = "no_change"
	ReasonUnknownPeriod    Reason = "unknown_period"
	ReasonDuplicateSlot    Reason = "duplicate_slot"
	ReasonCapacityExceeded Reason = "capacity_exceeded"
	ReasonStoreError       Reason = "store_error"
)

var reasonMessages = map[Reason]string{
	ReasonInvalid:          "invalid edit request",
	ReasonNoActiveEdit:     "no entry is being edited in this list",
	ReasonUnknownListType:  "unknown list type",
	ReasonMissingOriginal:  "the entry being edited does not exist",
	ReasonNoChange:         "nothing to change",
	ReasonUnknownPeriod:    "unknown period label",
	ReasonDuplicateSlot:    "the student already has a lesson in this period",
	ReasonCapacityExceeded: "the class type or capacity limit does not allow this student",
	ReasonStoreError:       "saving the schedule failed",
}

func (r Reason) Message() string {
	if msg, ok := reasonMessages[r]; ok {
		return msg
	}
	return "saved"
}

// Rejected reports whether the reason is a validation failure detected before any write.
func (r Reason) Rejected() bool {
	return r != ReasonNone && r != ReasonStoreError
}

// EditError is returned by every failed edit.
type EditError struct {
	Reason Reason
	Err    error
}

func newEditError(reason Reason, err ...error) *EditError {
	ee := &EditError{Reason: reason}
	if len(err) > 0 {
		ee.Err = err[0]
	}
	return ee
}

func (e *EditError) Error() string {
	if e.Err != nil {
		return e.Reason.Message() + ": " + e.Err.Error()
	}
	return e.Reason.Message()
}

func (e *EditError) Unwrap() error {
	return e.Err
}

// ReasonOf classifies err; nil is ReasonNone and unclassified errors are store errors.
func ReasonOf(err error) Reason {
	if err == nil {
		return ReasonNone
	}
	switch e := errors.Cause(err).(type) {
	case *EditError:
		return e.Reason
	case *core.ValidationError, *core.ArgumentError:
		return ReasonInvalid
	}
	return ReasonStoreError
}
