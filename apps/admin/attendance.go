package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/juku/core"
	"github.com/trezcool/juku/core/attendance"
)

var adminActor = core.Actor{UID: "admin-cli", Role: "admin"}

func (cli *commandLine) actorContext(classroom string) context.Context {
	actor := adminActor
	actor.ClassroomCode = classroom
	return core.WithActor(context.Background(), actor)
}

// materialize creates the daily schedule of date from its weekly template, if it does not exist yet.
func (cli *commandLine) materialize(classroom, date string) error {
	ctx := cli.actorContext(classroom)
	schedules := cli.svc.Schedules()

	_, found, err := schedules.LoadDaily(ctx, classroom, date)
	if err != nil {
		return errors.Wrap(err, "loading daily schedule")
	}
	s, err := schedules.LoadOrMaterialize(ctx, classroom, date)
	if err != nil {
		return err
	}
	if found {
		fmt.Fprintf(cli.out, "%s already exists (%d rows)\n", s.ID, len(s.Rows))
	} else {
		fmt.Fprintf(cli.out, "%s materialized (%d rows)\n", s.ID, len(s.Rows))
	}
	return nil
}

func (cli *commandLine) history(classroom, student, month string) error {
	p, err := cli.projection(classroom, student, month)
	if err != nil {
		return err
	}
	cli.printList(attendance.ListRegular, p.Regular())
	cli.printList(attendance.ListMakeup, p.Makeup())
	return nil
}

// edit applies changes to one lesson of the student's monthly history.
func (cli *commandLine) edit(classroom, student, month string, list attendance.ListType, index int, changes attendance.Changes) error {
	p, err := cli.projection(classroom, student, month)
	if err != nil {
		return err
	}
	if err = p.BeginEdit(list, index); err != nil {
		return err
	}
	updated, err := p.Save(cli.actorContext(classroom), cli.svc, classroom, list, changes)
	if err != nil {
		return errors.Wrapf(err, "editing lesson [%s %d] (%s)", list, index, attendance.ReasonOf(err))
	}
	fmt.Fprintf(cli.out, "saved: %s\n", formatEntry(updated))
	return nil
}

func (cli *commandLine) projection(classroom, student, month string) (*attendance.Projection, error) {
	entries, err := cli.svc.MonthlyAttendance(cli.actorContext(classroom), classroom, student, month)
	if err != nil {
		return nil, errors.Wrap(err, "loading monthly attendance")
	}
	return attendance.NewProjection(entries), nil
}

func (cli *commandLine) printList(list attendance.ListType, entries []attendance.Entry) {
	fmt.Fprintf(cli.out, "%s (%d)\n", list, len(entries))
	for i, e := range entries {
		fmt.Fprintf(cli.out, "  [%d] %s\n", i, formatEntry(e))
	}
}

func formatEntry(e attendance.Entry) string {
	teacher := "-"
	if e.Teacher != nil {
		teacher = e.Teacher.Code
		if e.Teacher.Name != "" {
			teacher += " " + e.Teacher.Name
		}
	}
	return fmt.Sprintf("%s(%s) %s %s %s %s teacher=%s", e.Date, e.Weekday, e.PeriodLabel, e.Time, e.Status, e.StudentID, teacher)
}
