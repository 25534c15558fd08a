package makeup

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/juku/core"
	"github.com/trezcool/juku/core/schedule"
)

type (
	// Lesson is a make-up lesson tracked outside the period grid.
	Lesson struct {
		StudentID   string            `json:"studentId"`
		Name        string            `json:"name"`
		Grade       string            `json:"grade"`
		Seat        string            `json:"seat"`
		Subject     string            `json:"subject"`
		ClassType   string            `json:"classType"`
		Duration    string            `json:"duration"`
		Status      schedule.Status   `json:"status"`
		Date        string            `json:"date"`
		PeriodLabel string            `json:"periodLabel"`
		PeriodKey   string            `json:"periodKey"`
		Period      int               `json:"period"`
		Teacher     *schedule.Teacher `json:"teacher,omitempty"`
	}

	record struct {
		Lessons []Lesson `json:"lessons"`
	}

	// Store is the per-student make-up lesson side-store and its archive.
	// Records are keyed by the daily schedule id they belong to.
	Store struct {
		store core.DocStore
		log   core.Logger
	}
)

func NewStore(store core.DocStore, log core.Logger) *Store {
	return &Store{store: store, log: log}
}

func (l Lesson) matches(studentID, periodLabel string) bool {
	return strings.TrimSpace(l.StudentID) == strings.TrimSpace(studentID) && l.PeriodLabel == periodLabel
}

func (s *Store) read(ctx context.Context, collection, docID string) (*record, error) {
	data, err := s.store.GetDocument(ctx, collection, docID)
	if err != nil {
		if errors.Cause(err) == core.ErrDocumentNotFound {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "fetching %s/%s", collection, docID)
	}
	rec := new(record)
	if err = json.Unmarshal(data, rec); err != nil {
		return nil, errors.Wrapf(err, "decoding %s/%s", collection, docID)
	}
	return rec, nil
}

func (s *Store) write(ctx context.Context, collection, docID string, rec record, merge bool) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrapf(err, "encoding %s/%s", collection, docID)
	}
	if err = s.store.SetDocument(ctx, collection, docID, data, core.SetOptions{Merge: merge}); err != nil {
		return errors.Wrapf(err, "saving %s/%s", collection, docID)
	}
	return nil
}

// Lessons returns the student's make-up lessons of a daily schedule.
func (s *Store) Lessons(ctx context.Context, studentID, dailyDocID string) ([]Lesson, error) {
	rec, err := s.read(ctx, core.MakeupLessonsCollection(studentID), dailyDocID)
	if err != nil || rec == nil {
		return nil, err
	}
	return rec.Lessons, nil
}

// Save adds lesson to the student's record of dailyDocID, replacing any lesson
// already booked for the same period.
func (s *Store) Save(ctx context.Context, studentID, dailyDocID string, lesson Lesson) error {
	collection := core.MakeupLessonsCollection(studentID)
	rec, err := s.read(ctx, collection, dailyDocID)
	if err != nil {
		return err
	}
	if rec == nil {
		rec = new(record)
	}

	lessons := make([]Lesson, 0, len(rec.Lessons)+1)
	for _, l := range rec.Lessons {
		if !l.matches(lesson.StudentID, lesson.PeriodLabel) {
			lessons = append(lessons, l)
		}
	}
	lessons = append(lessons, lesson)
	return s.write(ctx, collection, dailyDocID, record{Lessons: lessons}, true /* merge */)
}

// Remove filters the student's lesson of periodLabel out of the record of dailyDocID.
// An emptied record is deleted; otherwise it is fully replaced.
// It returns the removed lessons.
func (s *Store) Remove(ctx context.Context, studentID, dailyDocID, periodLabel string) ([]Lesson, error) {
	collection := core.MakeupLessonsCollection(studentID)
	rec, err := s.read(ctx, collection, dailyDocID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		s.log.Debug("make-up record not found", map[string]interface{}{"studentId": studentID, "docId": dailyDocID})
		return nil, nil
	}

	var kept, removed []Lesson
	for _, l := range rec.Lessons {
		if l.matches(studentID, periodLabel) {
			removed = append(removed, l)
			continue
		}
		kept = append(kept, l)
	}

	if len(kept) == 0 {
		if err = s.store.DeleteDocument(ctx, collection, dailyDocID); err != nil {
			return nil, errors.Wrapf(err, "deleting %s/%s", collection, dailyDocID)
		}
		return removed, nil
	}
	if len(removed) == 0 {
		return nil, nil
	}
	return removed, s.write(ctx, collection, dailyDocID, record{Lessons: kept}, false)
}

// Archive copies a lesson that left make-up status to the student's archive.
// Failures are logged and never returned.
func (s *Store) Archive(ctx context.Context, studentID, dailyDocID string, lesson Lesson) {
	err := s.write(ctx, core.MakeupArchiveCollection(studentID), dailyDocID, record{Lessons: []Lesson{lesson}}, false)
	if err != nil {
		s.log.Warn("archiving make-up lesson failed", err, map[string]interface{}{
			"studentId": studentID,
			"docId":     dailyDocID,
		})
	}
}

// ForMonth returns the student's make-up lessons of a classroom month ("YYYY-MM"),
// ordered by daily schedule id.
func (s *Store) ForMonth(ctx context.Context, studentID, classroomCode, month string) ([]Lesson, error) {
	collection := core.MakeupLessonsCollection(studentID)
	ids, err := s.store.ListDocumentIDs(ctx, collection, classroomCode+"_"+month)
	if err != nil {
		return nil, errors.Wrap(err, "listing make-up lessons")
	}
	sort.Strings(ids)

	var lessons []Lesson
	for _, id := range ids {
		rec, err := s.read(ctx, collection, id)
		if err != nil {
			return nil, err
		}
		if rec == nil {
			continue
		}
		for _, l := range rec.Lessons {
			if l.Date == "" {
				l.Date = dateOf(id)
			}
			lessons = append(lessons, l)
		}
	}
	return lessons, nil
}

// dateOf extracts the date of a daily schedule id ({classroom}_{date}_{weekday}).
func dateOf(dailyDocID string) string {
	parts := strings.Split(dailyDocID, "_")
	if len(parts) < 3 {
		return ""
	}
	return parts[len(parts)-2]
}
