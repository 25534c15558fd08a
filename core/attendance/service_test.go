package attendance

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/juku/core"
	"github.com/trezcool/juku/core/makeup"
	"github.com/trezcool/juku/core/schedule"
	"github.com/trezcool/juku/services/locker"
	"github.com/trezcool/juku/storage/database/inmem"
	"github.com/trezcool/juku/testutil"
)

const (
	classroom = "C1"
	mon       = "2024-05-06"
	monID     = "C1_2024-05-06_1"
	tue       = "2024-05-07"
	tueID     = "C1_2024-05-07_2"
	wed       = "2024-05-08"
	wedID     = "C1_2024-05-08_3"
)

type fixture struct {
	store  *testutil.RecordingStore
	locker *locksvc.LocalLocker
	svc    *Service
}

func seat(id, classType string) schedule.Seat {
	return schedule.Seat{StudentID: id, Name: "Student " + id, ClassType: classType, Status: schedule.StatusScheduled}
}

func teacher(code string) *schedule.Teacher {
	names := map[string]string{"T1": "Sato Hana", "T2": "Suzuki Ken"}
	return &schedule.Teacher{Code: code, Name: names[code]}
}

func newFixture(t *testing.T) *fixture {
	store := testutil.NewRecordingStore(inmemdb.Open())
	testutil.SetJSON(t, store, core.PeriodLabels, classroom, map[string]interface{}{
		"periodLabels": []schedule.PeriodLabel{
			{Label: "1限", Time: "16:00"},
			{Label: "2限", Time: "17:00"},
			{Label: "3限", Time: "18:00"},
			{Label: "4限", Time: "19:00"},
		},
	})
	testutil.SetJSON(t, store, core.Teachers, classroom, map[string]interface{}{
		"teachers": []schedule.TeacherRecord{
			{Code: "T1", LastName: "Sato", FirstName: "Hana"},
			{Code: "T2", LastName: "Suzuki", FirstName: "Ken"},
		},
	})
	testutil.SetJSON(t, store, core.DailySchedules, monID, &schedule.Schedule{ID: monID, Rows: []schedule.Row{
		{Status: schedule.StatusScheduled, Teacher: teacher("T1"), Periods: schedule.Periods{
			"period1": {seat("S1", schedule.ClassPair)},
			"period2": {seat("S2", schedule.ClassPair)},
		}},
	}})
	store.Reset()

	lck := locksvc.NewLocalLocker(time.Second)
	return &fixture{store: store, locker: lck, svc: NewService(store, lck, core.NopLogger{})}
}

// put stores a document without recording it.
func (f *fixture) put(t *testing.T, collection, id string, v interface{}) {
	testutil.SetJSON(t, f.store, collection, id, v)
	f.store.Reset()
}

// clearGrid removes the student from the monday grid.
func (f *fixture) clearGrid(t *testing.T, studentID string) {
	s := f.doc(t, monID)
	for i := 0; i < schedule.MaxPeriods; i++ {
		s.RemoveStudent(schedule.PeriodKeyAt(i), studentID)
	}
	f.put(t, core.DailySchedules, monID, s)
}

func (f *fixture) doc(t *testing.T, id string) *schedule.Schedule {
	s := new(schedule.Schedule)
	if !testutil.GetJSON(t, f.store, core.DailySchedules, id, s) {
		return nil
	}
	return s
}

// placements lists every "docId/periodKey" of the grid holding studentID.
func (f *fixture) placements(t *testing.T, studentID string) []string {
	ids, err := f.store.ListDocumentIDs(context.Background(), core.DailySchedules, "")
	require.NoError(t, err)
	res := make([]string, 0)
	for _, id := range ids {
		s := f.doc(t, id)
		for i := 0; i < schedule.MaxPeriods; i++ {
			if s.Contains(schedule.PeriodKeyAt(i), studentID) {
				res = append(res, id+"/"+schedule.PeriodKeyAt(i))
			}
		}
	}
	return res
}

func s1() Entry {
	return Entry{
		Date:        mon,
		PeriodLabel: "1限",
		Status:      schedule.StatusScheduled,
		Teacher:     teacher("T1"),
		StudentID:   "S1",
		Name:        "Student S1",
		ClassType:   schedule.ClassPair,
	}
}

func TestService_Edit_Rejections(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name     string
		original func() Entry
		changes  Changes
		setup    func(t *testing.T, f *fixture)
		want     Reason
	}{
		{
			name:     "no changes",
			original: s1,
			want:     ReasonNoChange,
		},
		{
			name:     "same placement",
			original: s1,
			changes:  Changes{Date: mon, PeriodLabel: "1限", Status: schedule.StatusScheduled, TeacherCode: "T1", Subject: "math"},
			want:     ReasonNoChange,
		},
		{
			name:     "unknown new period",
			original: s1,
			changes:  Changes{PeriodLabel: "9限"},
			want:     ReasonUnknownPeriod,
		},
		{
			name: "unknown old period",
			original: func() Entry {
				e := s1()
				e.PeriodLabel = "0限"
				return e
			},
			changes: Changes{PeriodLabel: "2限"},
			want:    ReasonUnknownPeriod,
		},
		{
			name:     "invalid status",
			original: s1,
			changes:  Changes{Status: "遅刻"},
			want:     ReasonInvalid,
		},
		{
			name:     "duplicate slot",
			original: s1,
			changes:  Changes{Date: tue, PeriodLabel: "2限"},
			setup: func(t *testing.T, f *fixture) {
				f.put(t, core.DailySchedules, tueID, &schedule.Schedule{Rows: []schedule.Row{
					{Status: schedule.StatusScheduled, Teacher: teacher("T2"), Periods: schedule.Periods{
						"period2": {seat(" S1 ", schedule.ClassPair)},
					}},
				}})
			},
			want: ReasonDuplicateSlot,
		},
		{
			name:     "seventh practice student",
			original: s1,
			changes:  Changes{PeriodLabel: "3限", ClassType: schedule.ClassPractice},
			setup: func(t *testing.T, f *fixture) {
				var practice []schedule.Seat
				for _, id := range []string{"P1", "P2", "P3", "P4", "P5", "P6"} {
					practice = append(practice, seat(id, schedule.ClassPractice))
				}
				s := f.doc(t, monID)
				s.Rows[0].Periods["period3"] = practice
				f.put(t, core.DailySchedules, monID, s)
			},
			want: ReasonCapacityExceeded,
		},
		{
			name: "second solo student",
			original: func() Entry {
				e := s1()
				e.ClassType = schedule.ClassSolo
				return e
			},
			changes: Changes{PeriodLabel: "4限"},
			setup: func(t *testing.T, f *fixture) {
				s := f.doc(t, monID)
				s.Rows[0].Periods["period4"] = []schedule.Seat{seat("X1", schedule.ClassSolo)}
				f.put(t, core.DailySchedules, monID, s)
			},
			want: ReasonCapacityExceeded,
		},
		{
			name:     "third pair student",
			original: s1,
			changes:  Changes{PeriodLabel: "2限"},
			setup: func(t *testing.T, f *fixture) {
				s := f.doc(t, monID)
				s.Rows[0].Periods["period2"] = append(s.Rows[0].Periods["period2"], seat("S3", schedule.ClassPair))
				f.put(t, core.DailySchedules, monID, s)
			},
			want: ReasonCapacityExceeded,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			if tt.setup != nil {
				tt.setup(t, f)
			}
			before, _ := f.store.GetDocument(ctx, core.DailySchedules, monID)

			_, err := f.svc.Edit(ctx, classroom, tt.original(), tt.changes)
			require.Error(t, err)
			assert.Equal(t, tt.want, ReasonOf(err))
			assert.Empty(t, f.store.Writes(), "rejected edits must not write")

			after, _ := f.store.GetDocument(ctx, core.DailySchedules, monID)
			assert.JSONEq(t, string(before), string(after))
		})
	}
}

func TestService_Edit_SameDocument(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	updated, err := f.svc.Edit(ctx, classroom, s1(), Changes{PeriodLabel: "3限"})
	require.NoError(t, err)

	assert.Len(t, f.store.Writes(), 1, "a same-document move is a single write")
	assert.Len(t, f.store.WritesTo(core.DailySchedules, monID), 1)
	assert.Equal(t, []string{monID + "/period3"}, f.placements(t, "S1"))

	s := f.doc(t, monID)
	require.Len(t, s.Rows, 1)
	assert.Equal(t, "S2", s.Rows[0].Periods["period2"][0].StudentID, "other seats are untouched")

	assert.Equal(t, "3限", updated.PeriodLabel)
	assert.Equal(t, 3, updated.Period)
	assert.Equal(t, "18:00", updated.Time)
	assert.Equal(t, "月", updated.Weekday)
	assert.Equal(t, teacher("T1"), updated.Teacher)
}

func TestService_Edit_InPlace(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	// same date and period: the student's own seat does not count as a duplicate
	updated, err := f.svc.Edit(ctx, classroom, s1(), Changes{Status: schedule.StatusAbsent})
	require.NoError(t, err)
	assert.Nil(t, updated.Teacher)

	assert.Len(t, f.store.Writes(), 1)
	s := f.doc(t, monID)
	require.Len(t, s.Rows, 2)
	assert.Empty(t, s.Rows[0].Periods["period1"])
	assert.Equal(t, schedule.RowKey{Status: schedule.StatusAbsent}, s.Rows[1].Key())
	assert.Equal(t, "S1", s.Rows[1].Periods["period1"][0].StudentID)
	assert.Equal(t, schedule.StatusAbsent, s.Rows[1].Periods["period1"][0].Status)
}

func TestService_Edit_CrossDocument(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.Edit(ctx, classroom, s1(), Changes{Date: tue, PeriodLabel: "2限"})
	require.NoError(t, err)

	assert.Len(t, f.store.WritesTo(core.DailySchedules, monID), 1)
	// materialization, then the insertion
	assert.Len(t, f.store.WritesTo(core.DailySchedules, tueID), 2)
	assert.Equal(t, []string{tueID + "/period2"}, f.placements(t, "S1"))
	assert.True(t, f.doc(t, monID).Contains("period2", "S2"))

	s := f.doc(t, tueID)
	require.Len(t, s.Rows, 1)
	assert.Equal(t, schedule.RowKey{Status: schedule.StatusScheduled, TeacherCode: "T1"}, s.Rows[0].Key())
	assert.Equal(t, "Sato Hana", s.Rows[0].Teacher.Name)
}

func TestService_Edit_TemplateMaterialization(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tmpl := &schedule.Schedule{Rows: []schedule.Row{
		{Status: schedule.StatusScheduled, Teacher: teacher("T2"), Periods: schedule.Periods{
			"period1": {seat("W1", schedule.ClassSolo)},
		}},
	}}
	f.put(t, core.WeeklySchedules, "C1_3", tmpl)

	_, err := f.svc.Edit(ctx, classroom, s1(), Changes{Date: wed})
	require.NoError(t, err)

	writes := f.store.WritesTo(core.DailySchedules, wedID)
	require.Len(t, writes, 2)
	var seed, stored schedule.Schedule
	require.NoError(t, json.Unmarshal(writes[0].Data, &seed))
	require.True(t, testutil.GetJSON(t, f.store, core.WeeklySchedules, "C1_3", &stored))
	assert.Equal(t, stored.Rows, seed.Rows, "the daily document starts as a copy of the template")

	assert.True(t, stored.Contains("period1", "W1"))
	assert.False(t, stored.Contains("period1", "S1"), "the template is never mutated")

	s := f.doc(t, wedID)
	assert.True(t, s.Contains("period1", "W1"))
	assert.True(t, s.Contains("period1", "S1"))
	assert.Len(t, s.Rows, 2)
}

func TestService_Edit_MakeupRouting(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	updated, err := f.svc.Edit(ctx, classroom, s1(), Changes{Status: schedule.StatusMakeup, Date: tue, PeriodLabel: "3限"})
	require.NoError(t, err)
	assert.Equal(t, ListMakeup, updated.List())
	assert.Nil(t, updated.Teacher)

	assert.Empty(t, f.placements(t, "S1"), "make-up lessons never enter the grid")
	for _, w := range f.store.WritesTo(core.DailySchedules, tueID) {
		var s schedule.Schedule
		require.NoError(t, json.Unmarshal(w.Data, &s))
		assert.False(t, s.Contains("period3", "S1"))
	}

	lessons, err := makeup.NewStore(f.store, core.NopLogger{}).Lessons(ctx, "S1", tueID)
	require.NoError(t, err)
	require.Len(t, lessons, 1)
	assert.Equal(t, "3限", lessons[0].PeriodLabel)
	assert.Equal(t, "period3", lessons[0].PeriodKey)
	assert.Equal(t, 3, lessons[0].Period)
	assert.Equal(t, tue, lessons[0].Date)
	assert.Equal(t, schedule.StatusMakeup, lessons[0].Status)
}

func TestService_Edit_MakeupSameDay(t *testing.T) {
	ctx := context.Background()
	undecided := func() Entry {
		e := s1()
		e.Status = schedule.StatusUndecided
		e.Teacher = nil
		return e
	}

	tests := []struct {
		name     string
		original func() Entry
		setup    func(t *testing.T, f *fixture)
	}{
		{name: "from scheduled", original: s1},
		{
			name:     "from undecided",
			original: undecided,
			setup: func(t *testing.T, f *fixture) {
				s := f.doc(t, monID)
				s.RemoveStudent("period1", "S1")
				u := seat("S1", schedule.ClassPair)
				u.Status = schedule.StatusUndecided
				s.Rows = append(s.Rows, schedule.Row{Status: schedule.StatusUndecided, Periods: schedule.Periods{
					"period1": {u},
				}})
				f.put(t, core.DailySchedules, monID, s)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			if tt.setup != nil {
				tt.setup(t, f)
			}
			require.Equal(t, []string{monID + "/period1"}, f.placements(t, "S1"))

			updated, err := f.svc.Edit(ctx, classroom, tt.original(), Changes{Status: schedule.StatusMakeup, PeriodLabel: "3限"})
			require.NoError(t, err)
			assert.Equal(t, ListMakeup, updated.List())

			assert.Empty(t, f.placements(t, "S1"))
			assert.True(t, f.doc(t, monID).Contains("period2", "S2"))
			assert.Len(t, f.store.WritesTo(core.DailySchedules, monID), 1, "the vacate is a single write")

			lessons, err := makeup.NewStore(f.store, core.NopLogger{}).Lessons(ctx, "S1", monID)
			require.NoError(t, err)
			require.Len(t, lessons, 1)
			assert.Equal(t, "3限", lessons[0].PeriodLabel)

			writes := f.store.Writes()
			require.Len(t, writes, 2)
			assert.Equal(t, core.DailySchedules, writes[0].Collection, "the seat is freed before the booking")
			assert.Equal(t, core.MakeupLessonsCollection("S1"), writes[1].Collection)
		})
	}

	t.Run("schedule write fails", func(t *testing.T) {
		f := newFixture(t)
		f.store.FailOn = func(op, collection, id string) error {
			if op == "set" && collection == core.DailySchedules && id == monID {
				return assert.AnError
			}
			return nil
		}

		_, err := f.svc.Edit(ctx, classroom, s1(), Changes{Status: schedule.StatusMakeup, PeriodLabel: "3限"})
		require.Error(t, err)
		assert.Equal(t, ReasonStoreError, ReasonOf(err))

		f.store.FailOn = nil
		assert.Equal(t, []string{monID + "/period1"}, f.placements(t, "S1"))
		assert.Empty(t, f.store.Writes(core.MakeupLessonsCollection("S1")), "no booking without a freed seat")
		lessons, err := makeup.NewStore(f.store, core.NopLogger{}).Lessons(ctx, "S1", monID)
		require.NoError(t, err)
		assert.Empty(t, lessons)
	})
}

func TestService_Edit_MakeupExit(t *testing.T) {
	ctx := context.Background()
	original := s1()
	original.Status = schedule.StatusMakeup
	original.PeriodLabel = "2限"
	original.Teacher = nil

	archived := makeup.Lesson{
		StudentID:   "S1",
		Name:        "Student S1",
		ClassType:   schedule.ClassPair,
		Status:      schedule.StatusMakeup,
		Date:        mon,
		PeriodLabel: "2限",
		PeriodKey:   "period2",
		Period:      2,
	}

	t.Run("last lesson", func(t *testing.T) {
		f := newFixture(t)
		f.clearGrid(t, "S1")
		makeups := makeup.NewStore(f.store, core.NopLogger{})
		require.NoError(t, makeups.Save(ctx, "S1", monID, archived))
		f.store.Reset()

		updated, err := f.svc.Edit(ctx, classroom, original, Changes{Status: schedule.StatusScheduled, TeacherCode: "T1", PeriodLabel: "3限"})
		require.NoError(t, err)
		assert.Equal(t, ListRegular, updated.List())

		var deleted bool
		for _, w := range f.store.Writes(core.MakeupLessonsCollection("S1")) {
			assert.Equal(t, "delete", w.Op, "an emptied record is deleted, never saved empty")
			deleted = true
		}
		assert.True(t, deleted)
		lessons, err := makeups.Lessons(ctx, "S1", monID)
		require.NoError(t, err)
		assert.Empty(t, lessons)

		var archive struct {
			Lessons []makeup.Lesson `json:"lessons"`
		}
		require.True(t, testutil.GetJSON(t, f.store, core.MakeupArchiveCollection("S1"), monID, &archive))
		assert.Equal(t, []makeup.Lesson{archived}, archive.Lessons)

		assert.Equal(t, []string{monID + "/period3"}, f.placements(t, "S1"))
	})

	t.Run("archive failure is not fatal", func(t *testing.T) {
		f := newFixture(t)
		f.clearGrid(t, "S1")
		makeups := makeup.NewStore(f.store, core.NopLogger{})
		require.NoError(t, makeups.Save(ctx, "S1", monID, archived))
		f.store.Reset()
		f.store.FailOn = func(op, collection, _ string) error {
			if collection == core.MakeupArchiveCollection("S1") {
				return assert.AnError
			}
			return nil
		}

		_, err := f.svc.Edit(ctx, classroom, original, Changes{Status: schedule.StatusUndecided})
		require.NoError(t, err)
		assert.Equal(t, []string{monID + "/period2"}, f.placements(t, "S1"))
	})
}

func TestService_Edit_MakeupMove(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.clearGrid(t, "S1")
	makeups := makeup.NewStore(f.store, core.NopLogger{})
	original := s1()
	original.Status = schedule.StatusMakeup
	original.Teacher = nil
	require.NoError(t, makeups.Save(ctx, "S1", monID, makeup.Lesson{StudentID: "S1", Status: schedule.StatusMakeup, Date: mon, PeriodLabel: "1限"}))
	f.store.Reset()

	_, err := f.svc.Edit(ctx, classroom, original, Changes{Date: tue})
	require.NoError(t, err)

	old, err := makeups.Lessons(ctx, "S1", monID)
	require.NoError(t, err)
	assert.Empty(t, old)
	moved, err := makeups.Lessons(ctx, "S1", tueID)
	require.NoError(t, err)
	require.Len(t, moved, 1)
	assert.Equal(t, "1限", moved[0].PeriodLabel)
	assert.Empty(t, f.store.Writes(core.MakeupArchiveCollection("S1")), "moving a make-up lesson does not archive it")
}

func TestService_Edit_Teachers(t *testing.T) {
	ctx := context.Background()

	t.Run("known teacher", func(t *testing.T) {
		f := newFixture(t)
		updated, err := f.svc.Edit(ctx, classroom, s1(), Changes{TeacherCode: "T2"})
		require.NoError(t, err)
		assert.Equal(t, teacher("T2"), updated.Teacher)

		s := f.doc(t, monID)
		require.Len(t, s.Rows, 2)
		assert.Equal(t, teacher("T2"), s.Rows[1].Teacher)
		assert.Equal(t, "S1", s.Rows[1].Periods["period1"][0].StudentID)
	})

	t.Run("unknown teacher", func(t *testing.T) {
		f := newFixture(t)
		updated, err := f.svc.Edit(ctx, classroom, s1(), Changes{TeacherCode: "T9"})
		require.NoError(t, err)
		assert.Equal(t, &schedule.Teacher{Code: "T9"}, updated.Teacher)
	})
}

func TestService_Edit_Failures(t *testing.T) {
	ctx := context.Background()

	t.Run("store failure keeps earlier writes", func(t *testing.T) {
		f := newFixture(t)
		f.put(t, core.DailySchedules, tueID, &schedule.Schedule{Rows: []schedule.Row{}})
		f.store.FailOn = func(op, collection, id string) error {
			if op == "set" && id == tueID {
				return assert.AnError
			}
			return nil
		}

		_, err := f.svc.Edit(ctx, classroom, s1(), Changes{Date: tue})
		assert.Equal(t, ReasonStoreError, ReasonOf(err))
		assert.ErrorIs(t, err, assert.AnError)
		assert.Empty(t, f.placements(t, "S1"), "no compensating write restores the old seat")
	})

	t.Run("lock timeout", func(t *testing.T) {
		f := newFixture(t)
		lck := locksvc.NewLocalLocker(10 * time.Millisecond)
		svc := NewService(f.store, lck, core.NopLogger{})
		unlock, err := lck.Lock(ctx, monID)
		require.NoError(t, err)
		defer unlock()

		_, err = svc.Edit(ctx, classroom, s1(), Changes{PeriodLabel: "2限", TeacherCode: "T2"})
		assert.Equal(t, ReasonStoreError, ReasonOf(err))
		assert.ErrorIs(t, err, core.ErrLockTimeout)
		assert.Empty(t, f.store.Writes())
	})
}
