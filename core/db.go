package core

import (
	"context"
	"database/sql"
	"errors"
)

// Logical collections of the document store.
const (
	DailySchedules  = "dailySchedules"
	WeeklySchedules = "weeklySchedules"
	PeriodLabels    = "periodLabels"
	Teachers        = "teachers"
)

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrLockTimeout      = errors.New("timed out waiting for document lock")
)

// MakeupLessonsCollection is the per-student side-store collection of make-up lessons.
func MakeupLessonsCollection(studentID string) string {
	return "students/" + studentID + "/makeupLessons"
}

// MakeupArchiveCollection is the per-student archive of lessons that left make-up status.
func MakeupArchiveCollection(studentID string) string {
	return "students/" + studentID + "/makeupLessonsArchive"
}

type (
	SetOptions struct {
		// Merge overlays the top-level fields of the new document onto the stored one
		// instead of replacing it.
		Merge bool
	}

	// DocStore is a key-value document store. Documents are JSON objects.
	DocStore interface {
		// GetDocument returns ErrDocumentNotFound if the document does not exist.
		GetDocument(ctx context.Context, collection, id string) ([]byte, error)
		SetDocument(ctx context.Context, collection, id string, data []byte, opts SetOptions) error
		// DeleteDocument is a no-op for absent documents.
		DeleteDocument(ctx context.Context, collection, id string) error
		// ListDocumentIDs returns the sorted ids of a collection starting with idPrefix.
		ListDocumentIDs(ctx context.Context, collection, idPrefix string) ([]string, error)
	}

	// Locker serializes edits touching the same documents.
	Locker interface {
		// Lock acquires all keys (in sorted order) or none; it gives up with ErrLockTimeout.
		Lock(ctx context.Context, keys ...string) (unlock func(), err error)
	}

	DBExecutor interface {
		ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
		QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
		QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	}
)
