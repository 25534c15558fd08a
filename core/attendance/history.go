package attendance

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/juku/core"
	"github.com/trezcool/juku/core/schedule"
)

var weekdayNames = [...]string{"日", "月", "火", "水", "木", "金", "土"}

// WeekdayName returns the japanese weekday of a YYYY-MM-DD date.
func WeekdayName(date string) string {
	t, err := time.Parse(core.DateLayout, date)
	if err != nil {
		return ""
	}
	return weekdayNames[t.Weekday()]
}

// MonthlyAttendance returns every lesson of the student in a month ("YYYY-MM"): grid seats of
// the daily schedules (or their weekly templates) and make-up lessons, ordered by date and period.
func (svc *Service) MonthlyAttendance(ctx context.Context, classroomCode, studentID, month string) ([]Entry, error) {
	start, err := time.Parse(core.MonthLayout, month)
	if err != nil {
		return nil, core.NewArgumentError("invalid month " + month)
	}
	if strings.TrimSpace(studentID) == "" {
		return nil, core.NewArgumentError("student id is required")
	}

	labels, err := svc.schedules.PeriodLabels(ctx, classroomCode)
	if err != nil {
		return nil, err
	}
	cache := svc.schedules.NewWeeklyCache(classroomCode)

	entries := make([]Entry, 0)
	for day := start; day.Month() == start.Month(); day = day.AddDate(0, 0, 1) {
		date := day.Format(core.DateLayout)
		s, err := cache.Daily(ctx, date)
		if err != nil {
			return nil, errors.Wrapf(err, "loading schedule of %s", date)
		}
		entries = append(entries, seatsOf(s, labels, classroomCode, date, studentID)...)
	}

	lessons, err := svc.makeups.ForMonth(ctx, strings.TrimSpace(studentID), classroomCode, month)
	if err != nil {
		return nil, err
	}
	for _, l := range lessons {
		e := Entry{
			Date:          l.Date,
			Weekday:       WeekdayName(l.Date),
			PeriodLabel:   l.PeriodLabel,
			Period:        l.Period,
			Status:        schedule.StatusMakeup,
			Teacher:       l.Teacher,
			StudentID:     l.StudentID,
			Name:          l.Name,
			Seat:          l.Seat,
			Grade:         l.Grade,
			Subject:       l.Subject,
			ClassType:     l.ClassType,
			Duration:      l.Duration,
			ClassroomCode: classroomCode,
		}
		if idx, err := schedule.PeriodIndex(labels, l.PeriodLabel); err == nil {
			e.Time = labels[idx].Time
			e.Period = idx + 1
		}
		entries = append(entries, e)
	}

	sortEntries(entries)
	return entries, nil
}

func seatsOf(s *schedule.Schedule, labels []schedule.PeriodLabel, classroomCode, date, studentID string) []Entry {
	want := strings.ToLower(strings.TrimSpace(studentID))
	var entries []Entry
	for _, row := range s.Rows {
		for i, label := range labels {
			if i >= schedule.MaxPeriods {
				break
			}
			for _, seat := range row.Periods[schedule.PeriodKeyAt(i)] {
				if strings.ToLower(strings.TrimSpace(seat.StudentID)) != want {
					continue
				}
				status := seat.Status
				if status == "" {
					status = row.Key().Status
				}
				var teacher *schedule.Teacher
				if row.Teacher != nil && status == schedule.StatusScheduled {
					t := *row.Teacher
					teacher = &t
				}
				entries = append(entries, Entry{
					Date:          date,
					Weekday:       WeekdayName(date),
					PeriodLabel:   label.Label,
					Time:          label.Time,
					Period:        i + 1,
					Status:        status,
					Teacher:       teacher,
					StudentID:     strings.TrimSpace(seat.StudentID),
					Name:          seat.Name,
					Seat:          seat.Seat,
					Grade:         seat.Grade,
					Subject:       seat.Subject,
					ClassType:     seat.ClassType,
					Duration:      seat.Duration,
					ClassroomCode: classroomCode,
				})
			}
		}
	}
	return entries
}
