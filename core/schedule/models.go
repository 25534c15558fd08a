package schedule

import (
	"strings"
	"time"
)

// Attendance statuses
const (
	StatusScheduled Status = "予定"
	StatusAbsent    Status = "欠席"
	StatusUndecided Status = "未定"
	StatusMakeup    Status = "振替"
)

// Class types
const (
	ClassSolo     = "1名クラス"
	ClassPair     = "2名クラス"
	ClassPractice = "演習クラス"
)

// MaxPeriods is the number of period slots of a schedule row (period1..period8).
const MaxPeriods = 8

var Statuses = []Status{StatusScheduled, StatusAbsent, StatusUndecided, StatusMakeup}

type Status string

func (s Status) Valid() bool {
	for _, st := range Statuses {
		if s == st {
			return true
		}
	}
	return false
}

// IsMakeup reports whether entries of this status live in the make-up list.
func (s Status) IsMakeup() bool { return s == StatusMakeup }

type PeriodLabel struct {
	Label string `json:"label"`
	Time  string `json:"time"`
}

type Teacher struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Seat is a student occupying a period slot.
type Seat struct {
	StudentID string `json:"studentId"`
	Name      string `json:"name"`
	Grade     string `json:"grade"`
	Seat      string `json:"seat"`
	Subject   string `json:"subject"`
	ClassType string `json:"classType"`
	Duration  string `json:"duration"`
	Status    Status `json:"status"`
}

// Is compares student ids the way the schedules store them (surrounding spaces ignored).
func (s Seat) Is(studentID string) bool {
	return strings.TrimSpace(s.StudentID) == strings.TrimSpace(studentID)
}

// Periods maps a period key to its occupants.
type Periods map[string][]Seat

type Row struct {
	Periods Periods  `json:"periods"`
	Status  Status   `json:"status"`
	Teacher *Teacher `json:"teacher"`
}

// Schedule is a daily schedule or a weekly template.
type Schedule struct {
	ID        string    `json:"id"`
	Rows      []Row     `json:"rows"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Clone deep-copies the schedule so daily documents never share state with templates.
func (s *Schedule) Clone() *Schedule {
	if s == nil {
		return nil
	}
	c := &Schedule{ID: s.ID, UpdatedAt: s.UpdatedAt, Rows: make([]Row, len(s.Rows))}
	for i, row := range s.Rows {
		c.Rows[i] = row.clone()
	}
	return c
}

func (r Row) clone() Row {
	c := Row{Status: r.Status}
	if r.Teacher != nil {
		t := *r.Teacher
		c.Teacher = &t
	}
	if r.Periods != nil {
		c.Periods = make(Periods, len(r.Periods))
		for key, seats := range r.Periods {
			c.Periods[key] = append(make([]Seat, 0, len(seats)), seats...)
		}
	}
	return c
}

// TeacherRecord is a teacher of the classroom directory.
type TeacherRecord struct {
	Code      string `json:"code"`
	LastName  string `json:"lastName"`
	FirstName string `json:"firstName"`
}

func (t TeacherRecord) FullName() string {
	return strings.TrimSpace(t.LastName + " " + t.FirstName)
}
