package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/trezcool/juku/core/attendance"
	"github.com/trezcool/juku/core/schedule"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	db  *sql.DB // nil unless the store is postgres
	svc *attendance.Service
	out io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run goose migrations (up, up-by-one, up-to, down, down-to, redo, reset, status, version, create, fix)")
	fmt.Fprintln(cli.out, "  materialize -classroom CODE -date YYYY-MM-DD - create a daily schedule from its weekly template")
	fmt.Fprintln(cli.out, "  history -classroom CODE -student ID -month YYYY-MM - print a student's regular and make-up lessons")
	fmt.Fprintln(cli.out, "  edit -classroom CODE -student ID -month YYYY-MM -list regular|makeup -index N [CHANGES] - edit one lesson of the history")
}

// lessonFlags are the flags selecting a student's monthly history.
type lessonFlags struct {
	classroom *string
	student   *string
	month     *string
}

func newLessonFlags(fs *flag.FlagSet) lessonFlags {
	return lessonFlags{
		classroom: fs.String("classroom", "", "The classroom code."),
		student:   fs.String("student", "", "The student id."),
		month:     fs.String("month", "", "The month, formatted as YYYY-MM."),
	}
}

func (f lessonFlags) missing() bool {
	return *f.classroom == "" || *f.student == "" || *f.month == ""
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	materializeCmd := flag.NewFlagSet("materialize", flag.ContinueOnError)
	materializeCmd.SetOutput(cli.out)
	materializeClassroom := materializeCmd.String("classroom", "", "The classroom code.")
	materializeDate := materializeCmd.String("date", "", "The date, formatted as YYYY-MM-DD.")

	historyCmd := flag.NewFlagSet("history", flag.ContinueOnError)
	historyCmd.SetOutput(cli.out)
	historyFlags := newLessonFlags(historyCmd)

	editCmd := flag.NewFlagSet("edit", flag.ContinueOnError)
	editCmd.SetOutput(cli.out)
	editFlags := newLessonFlags(editCmd)
	editList := editCmd.String("list", string(attendance.ListRegular), "The list holding the lesson: regular or makeup.")
	editIndex := editCmd.Int("index", -1, "The position of the lesson in its list, as printed by `history`.")
	var changes attendance.Changes
	editCmd.StringVar(&changes.Date, "date", "", "New date (YYYY-MM-DD).")
	editCmd.StringVar(&changes.PeriodLabel, "period", "", "New period label.")
	editCmd.StringVar((*string)(&changes.Status), "status", "", "New status: "+statusList()+".")
	editCmd.StringVar(&changes.TeacherCode, "teacher", "", "New teacher code.")
	editCmd.StringVar(&changes.StudentID, "newstudent", "", "New student id.")
	editCmd.StringVar(&changes.StudentName, "name", "", "New student name.")
	editCmd.StringVar(&changes.Subject, "subject", "", "New subject.")
	editCmd.StringVar(&changes.ClassType, "classtype", "", "New class type.")
	editCmd.StringVar(&changes.Seat, "seat", "", "New seat.")
	editCmd.StringVar(&changes.Grade, "grade", "", "New grade.")
	editCmd.StringVar(&changes.Duration, "duration", "", "New duration.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "materialize":
		if err := materializeCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *materializeClassroom == "" || *materializeDate == "" {
			materializeCmd.Usage()
			return errHelp
		}
		return cli.materialize(*materializeClassroom, *materializeDate)
	case "history":
		if err := historyCmd.Parse(args[2:]); err != nil {
			return err
		}
		if historyFlags.missing() {
			historyCmd.Usage()
			return errHelp
		}
		return cli.history(*historyFlags.classroom, *historyFlags.student, *historyFlags.month)
	case "edit":
		if err := editCmd.Parse(args[2:]); err != nil {
			return err
		}
		if editFlags.missing() || *editIndex < 0 {
			editCmd.Usage()
			return errHelp
		}
		return cli.edit(*editFlags.classroom, *editFlags.student, *editFlags.month, attendance.ListType(*editList), *editIndex, changes)
	default:
		cli.printUsage()
		return errHelp
	}
}

func statusList() string {
	var s string
	for i, st := range schedule.Statuses {
		if i > 0 {
			s += ", "
		}
		s += string(st)
	}
	return s
}
