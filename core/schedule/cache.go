package schedule

import (
	"context"
	"time"

	"github.com/trezcool/juku/core"
)

// WeeklyCache memoizes the weekly templates of one classroom for the duration of a
// single multi-day read. Create one per query; it is not safe for concurrent use.
type WeeklyCache struct {
	acc           *Accessor
	classroomCode string
	templates     map[int]*Schedule
}

func (a *Accessor) NewWeeklyCache(classroomCode string) *WeeklyCache {
	return &WeeklyCache{acc: a, classroomCode: classroomCode, templates: make(map[int]*Schedule, 7)}
}

// Template returns the template of the weekday (nil when absent). Callers must Clone before mutating.
func (c *WeeklyCache) Template(ctx context.Context, weekday time.Weekday) (*Schedule, error) {
	wd := int(weekday)
	if tmpl, ok := c.templates[wd]; ok {
		return tmpl, nil
	}
	tmpl, err := c.acc.Fetch(ctx, core.WeeklySchedules, WeeklyDocIDForWeekday(c.classroomCode, wd))
	if err != nil {
		return nil, err
	}
	c.templates[wd] = tmpl
	return tmpl, nil
}

// Daily returns the daily schedule of date, or a copy of its weekly template when absent.
func (c *WeeklyCache) Daily(ctx context.Context, date string) (*Schedule, error) {
	dailyID, err := DailyDocID(c.classroomCode, date)
	if err != nil {
		return nil, err
	}
	s, err := c.acc.Fetch(ctx, core.DailySchedules, dailyID)
	if err != nil || s != nil {
		return s, err
	}
	t, _ := time.Parse(core.DateLayout, date)
	tmpl, err := c.Template(ctx, t.Weekday())
	if err != nil {
		return nil, err
	}
	return seedFrom(dailyID, tmpl), nil
}
