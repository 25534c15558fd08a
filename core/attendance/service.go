package attendance

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/juku/core"
	"github.com/trezcool/juku/core/makeup"
	"github.com/trezcool/juku/core/schedule"
)

type Service struct {
	schedules *schedule.Accessor
	makeups   *makeup.Store
	locker    core.Locker
	log       core.Logger
}

func NewService(store core.DocStore, locker core.Locker, log core.Logger) *Service {
	return &Service{
		schedules: schedule.NewAccessor(store),
		makeups:   makeup.NewStore(store, log),
		locker:    locker,
		log:       log,
	}
}

func (svc *Service) Schedules() *schedule.Accessor {
	return svc.schedules
}

// slot is one placement of an edit: where the student is, or is going.
type slot struct {
	entry     Entry
	docID     string
	periodKey string
}

// Edit moves a student from the slot of original to the slot described by changes,
// and returns the updated entry. Every rejection is detected before the first write.
// Writes are not transactional: a store failure leaves earlier writes in place.
func (svc *Service) Edit(ctx context.Context, classroomCode string, original Entry, changes Changes) (Entry, error) {
	editID := uuid.New().String()
	fields := map[string]interface{}{
		"editId":    editID,
		"classroom": classroomCode,
		"studentId": original.StudentID,
		"from":      original.Date + " " + original.PeriodLabel + " " + string(original.Status),
	}
	args := []interface{}{fields}
	if actor, ok := core.ActorFrom(ctx); ok {
		args = append(args, actor)
	}

	updated, err := svc.edit(ctx, classroomCode, original, changes)
	switch reason := ReasonOf(err); {
	case reason == ReasonNone:
		fields["to"] = updated.Date + " " + updated.PeriodLabel + " " + string(updated.Status)
		svc.log.Info("attendance edited", args...)
	case reason.Rejected():
		fields["reason"] = string(reason)
		svc.log.Info("attendance edit rejected", args...)
	default:
		svc.log.Error("attendance edit failed", append([]interface{}{err}, args...)...)
	}
	return updated, err
}

func (svc *Service) edit(ctx context.Context, classroomCode string, original Entry, changes Changes) (Entry, error) {
	if err := checkEntry(original); err != nil {
		return Entry{}, err
	}
	target := changes.apply(original)
	teacherCode := changes.teacherCode(original)
	if !target.Status.Valid() {
		return Entry{}, core.NewValidationError(nil, core.FieldError{Field: "status", Error: "unknown status"})
	}

	// no-op
	if target.Date == original.Date &&
		target.PeriodLabel == original.PeriodLabel &&
		target.Status == original.Status &&
		teacherCode == original.TeacherCode() {
		return Entry{}, newEditError(ReasonNoChange)
	}

	// placements
	from, to, err := svc.resolve(ctx, classroomCode, original, target)
	if err != nil {
		return Entry{}, err
	}
	to.entry.Teacher = nil
	if target.Status == schedule.StatusScheduled {
		name, err := svc.schedules.TeacherName(ctx, classroomCode, teacherCode)
		if err != nil {
			return Entry{}, newEditError(ReasonStoreError, err)
		}
		to.entry.Teacher = &schedule.Teacher{Code: teacherCode, Name: name}
	}

	unlock, err := svc.locker.Lock(ctx, from.docID, to.docID)
	if err != nil {
		return Entry{}, newEditError(ReasonStoreError, errors.Wrap(err, "locking schedules"))
	}
	defer unlock()

	p := planFor(original.Status, target.Status)
	sameDoc := from.docID == to.docID

	// duplicate check on the (materialized) new document
	newDoc, err := svc.schedules.LoadOrMaterialize(ctx, classroomCode, to.entry.Date)
	if err != nil {
		return Entry{}, newEditError(ReasonStoreError, err)
	}
	inPlace := target.Date == original.Date && target.PeriodLabel == original.PeriodLabel
	if !inPlace && newDoc.Contains(to.periodKey, to.entry.StudentID) {
		return Entry{}, newEditError(ReasonDuplicateSlot)
	}

	// leave the old slot
	oldDoc := newDoc
	if !sameDoc {
		if oldDoc, _, err = svc.schedules.LoadDaily(ctx, classroomCode, original.Date); err != nil {
			return Entry{}, newEditError(ReasonStoreError, err)
		}
	}
	oldChanged := p.vacateGrid && oldDoc.RemoveStudent(from.periodKey, from.entry.StudentID)
	newChanged := false

	// grid insertion, checked before anything is written
	if p.insertGrid {
		if err = newDoc.Insert(to.periodKey, to.entry.Teacher, to.entry.seat()); err != nil {
			if errors.Cause(err) == schedule.ErrCapacityExceeded {
				return Entry{}, newEditError(ReasonCapacityExceeded)
			}
			return Entry{}, err
		}
		newChanged = true
	}

	// old document, unless the vacate is folded into the insertion below;
	// the seat is always freed before a make-up booking
	if oldChanged && !(sameDoc && newChanged) {
		if err = svc.schedules.Save(ctx, core.DailySchedules, from.docID, oldDoc); err != nil {
			return Entry{}, newEditError(ReasonStoreError, err)
		}
	}

	movedSlot := from.docID != to.docID || original.PeriodLabel != target.PeriodLabel
	if p.dropMakeup && movedSlot {
		if _, err = svc.makeups.Remove(ctx, from.entry.StudentID, from.docID, original.PeriodLabel); err != nil {
			return Entry{}, newEditError(ReasonStoreError, err)
		}
	}
	if p.saveMakeup {
		if err = svc.makeups.Save(ctx, to.entry.StudentID, to.docID, to.lesson()); err != nil {
			return Entry{}, newEditError(ReasonStoreError, err)
		}
	}

	// make-up exit
	if p.exitMakeup {
		if _, err = svc.makeups.Remove(ctx, from.entry.StudentID, from.docID, original.PeriodLabel); err != nil {
			return Entry{}, newEditError(ReasonStoreError, err)
		}
		svc.makeups.Archive(ctx, from.entry.StudentID, from.docID, from.lesson())
	}

	// new document
	if newChanged {
		if err = svc.schedules.Save(ctx, core.DailySchedules, to.docID, newDoc); err != nil {
			return Entry{}, newEditError(ReasonStoreError, err)
		}
	}
	return to.entry, nil
}

func checkEntry(e Entry) error {
	var flds []core.FieldError
	if e.StudentID == "" {
		flds = append(flds, core.FieldError{Field: "studentId", Error: "this field is required"})
	}
	if e.Date == "" {
		flds = append(flds, core.FieldError{Field: "date", Error: "this field is required"})
	}
	if len(flds) > 0 {
		return core.NewValidationError(nil, flds...)
	}
	return nil
}

// resolve derives the document ids and period keys of both placements.
func (svc *Service) resolve(ctx context.Context, classroomCode string, original, target Entry) (from, to slot, err error) {
	labels, err := svc.schedules.PeriodLabels(ctx, classroomCode)
	if err != nil {
		return from, to, newEditError(ReasonStoreError, err)
	}

	from.entry, to.entry = original, target
	for _, s := range []*slot{&from, &to} {
		idx, err := schedule.PeriodIndex(labels, s.entry.PeriodLabel)
		if err != nil {
			return from, to, newEditError(ReasonUnknownPeriod, errors.Errorf("%q", s.entry.PeriodLabel))
		}
		if s.docID, err = schedule.DailyDocID(classroomCode, s.entry.Date); err != nil {
			return from, to, err
		}
		s.periodKey = schedule.PeriodKeyAt(idx)
		s.entry.Period = idx + 1
		s.entry.Time = labels[idx].Time
	}
	to.entry.ClassroomCode = classroomCode
	to.entry.Weekday = WeekdayName(to.entry.Date)
	return from, to, nil
}

func (s slot) lesson() makeup.Lesson {
	return makeup.Lesson{
		StudentID:   s.entry.StudentID,
		Name:        s.entry.Name,
		Grade:       s.entry.Grade,
		Seat:        s.entry.Seat,
		Subject:     s.entry.Subject,
		ClassType:   s.entry.ClassType,
		Duration:    s.entry.Duration,
		Status:      s.entry.Status,
		Date:        s.entry.Date,
		PeriodLabel: s.entry.PeriodLabel,
		PeriodKey:   s.periodKey,
		Period:      s.entry.Period,
		Teacher:     s.entry.Teacher,
	}
}

// sortEntries orders entries by date then period.
func sortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Date != entries[j].Date {
			return entries[i].Date < entries[j].Date
		}
		return entries[i].Period < entries[j].Period
	})
}
