package attendance

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/juku/core"
	"github.com/trezcool/juku/core/makeup"
	"github.com/trezcool/juku/core/schedule"
)

func TestWeekdayName(t *testing.T) {
	tests := []struct {
		date string
		want string
	}{
		{date: "2024-05-05", want: "日"},
		{date: "2024-05-06", want: "月"},
		{date: "2024-05-11", want: "土"},
		{date: "bogus", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.date, func(t *testing.T) {
			if got := WeekdayName(tt.date); got != tt.want {
				t.Errorf("WeekdayName() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestService_MonthlyAttendance(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	// every tuesday of the month comes from the template, except the 14th
	f.put(t, core.WeeklySchedules, "C1_2", &schedule.Schedule{Rows: []schedule.Row{
		{Status: schedule.StatusScheduled, Teacher: teacher("T2"), Periods: schedule.Periods{
			"period2": {seat("s1", schedule.ClassPair)},
		}},
	}})
	f.put(t, core.DailySchedules, "C1_2024-05-14_2", &schedule.Schedule{Rows: []schedule.Row{
		{Status: schedule.StatusAbsent, Periods: schedule.Periods{
			"period2": {{StudentID: "S1", ClassType: schedule.ClassPair}},
		}},
	}})
	require.NoError(t, makeup.NewStore(f.store, core.NopLogger{}).Save(ctx, "S1", "C1_2024-05-09_4", makeup.Lesson{
		StudentID: "S1", Status: schedule.StatusMakeup, Date: "2024-05-09", PeriodLabel: "4限",
	}))
	f.put(t, core.DailySchedules, "C1_2024-06-04_2", &schedule.Schedule{Rows: []schedule.Row{
		{Status: schedule.StatusScheduled, Teacher: teacher("T1"), Periods: schedule.Periods{"period1": {seat("S1", schedule.ClassPair)}}},
	}})

	entries, err := f.svc.MonthlyAttendance(ctx, classroom, " S1", "2024-05")
	require.NoError(t, err)

	type got struct {
		date, label string
		status      schedule.Status
		teacher     string
	}
	var gots []got
	for _, e := range entries {
		g := got{date: e.Date, label: e.PeriodLabel, status: e.Status}
		if e.Teacher != nil {
			g.teacher = e.Teacher.Code
		}
		gots = append(gots, g)
	}
	assert.Equal(t, []got{
		{"2024-05-06", "1限", schedule.StatusScheduled, "T1"},
		{"2024-05-07", "2限", schedule.StatusScheduled, "T2"},
		{"2024-05-09", "4限", schedule.StatusMakeup, ""},
		{"2024-05-14", "2限", schedule.StatusAbsent, ""},
		{"2024-05-21", "2限", schedule.StatusScheduled, "T2"},
		{"2024-05-28", "2限", schedule.StatusScheduled, "T2"},
	}, gots)

	assert.Equal(t, "16:00", entries[0].Time)
	assert.Equal(t, "月", entries[0].Weekday)
	assert.Equal(t, 4, entries[2].Period)
	assert.Equal(t, "19:00", entries[2].Time)
	assert.Empty(t, f.store.Writes(), "reading history never materializes")

	p := NewProjection(entries)
	assert.Len(t, p.Regular(), 5)
	assert.Len(t, p.Makeup(), 1)
}

func TestService_MonthlyAttendance_InvalidArgs(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.MonthlyAttendance(context.Background(), classroom, "S1", "2024/05")
	assert.True(t, core.IsArgumentError(err))
	_, err = f.svc.MonthlyAttendance(context.Background(), classroom, " ", "2024-05")
	assert.True(t, core.IsArgumentError(err))
}
