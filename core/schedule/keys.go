package schedule

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/kat-co/vala"

	"github.com/trezcool/juku/core"
)

var ErrUnknownPeriod = errors.New("period label not found")

// Weekday returns the weekday index (Sunday = 0) of a YYYY-MM-DD date.
func Weekday(date string) (int, error) {
	t, err := time.Parse(core.DateLayout, date)
	if err != nil {
		return 0, core.NewArgumentError(fmt.Sprintf("invalid date %q", date))
	}
	return int(t.Weekday()), nil
}

func checkArgs(classroomCode, date string) error {
	if err := vala.BeginValidation().Validate(
		vala.StringNotEmpty(classroomCode, "classroomCode"),
		vala.StringNotEmpty(date, "date"),
	).Check(); err != nil {
		return core.NewArgumentError(err.Error())
	}
	return nil
}

// DailyDocID builds the id of a daily schedule: {classroom}_{YYYY-MM-DD}_{weekday}.
func DailyDocID(classroomCode, date string) (string, error) {
	if err := checkArgs(classroomCode, date); err != nil {
		return "", err
	}
	wd, err := Weekday(date)
	if err != nil {
		return "", err
	}
	return classroomCode + "_" + date + "_" + strconv.Itoa(wd), nil
}

// WeeklyDocID builds the id of the weekly template used by date: {classroom}_{weekday}.
func WeeklyDocID(classroomCode, date string) (string, error) {
	if err := checkArgs(classroomCode, date); err != nil {
		return "", err
	}
	wd, err := Weekday(date)
	if err != nil {
		return "", err
	}
	return WeeklyDocIDForWeekday(classroomCode, wd), nil
}

func WeeklyDocIDForWeekday(classroomCode string, weekday int) string {
	return classroomCode + "_" + strconv.Itoa(weekday)
}

// PeriodKeyAt returns the key of the 0-based period index.
func PeriodKeyAt(index int) string {
	return "period" + strconv.Itoa(index+1)
}

// PeriodIndex returns the position of label in labels.
func PeriodIndex(labels []PeriodLabel, label string) (int, error) {
	for i, pl := range labels {
		if pl.Label == label {
			if i >= MaxPeriods {
				break
			}
			return i, nil
		}
	}
	return -1, ErrUnknownPeriod
}

// PeriodKey maps a label to its key ("period1".."period8").
// An unknown label is an error, never a default slot.
func PeriodKey(labels []PeriodLabel, label string) (string, error) {
	idx, err := PeriodIndex(labels, label)
	if err != nil {
		return "", err
	}
	return PeriodKeyAt(idx), nil
}
