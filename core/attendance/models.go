package attendance

import (
	"strings"

	"github.com/trezcool/juku/core/schedule"
)

type ListType string

const (
	ListRegular ListType = "regular"
	ListMakeup  ListType = "makeup"
)

func (l ListType) Valid() bool {
	return l == ListRegular || l == ListMakeup
}

type (
	// Entry is one lesson of a student's attendance history.
	Entry struct {
		Date          string            `json:"date" validate:"required,ymd"`
		Weekday       string            `json:"weekday,omitempty"`
		PeriodLabel   string            `json:"periodLabel" validate:"required"`
		Time          string            `json:"time,omitempty"`
		Period        int               `json:"period,omitempty"`
		Status        schedule.Status   `json:"status" validate:"required,attstatus"`
		Teacher       *schedule.Teacher `json:"teacher"`
		StudentID     string            `json:"studentId" validate:"required,notblank"`
		Name          string            `json:"name,omitempty"`
		Seat          string            `json:"seat,omitempty"`
		Grade         string            `json:"grade,omitempty"`
		Subject       string            `json:"subject,omitempty"`
		ClassType     string            `json:"classType,omitempty"`
		Duration      string            `json:"duration,omitempty"`
		ClassroomCode string            `json:"classroomCode,omitempty"`
	}

	// Changes holds the requested new values of an entry; blank fields keep the current value.
	Changes struct {
		StudentID   string          `json:"studentId"`
		StudentName string          `json:"studentName"`
		Subject     string          `json:"subject"`
		Status      schedule.Status `json:"status" validate:"attstatus"`
		Seat        string          `json:"seat"`
		Grade       string          `json:"grade"`
		ClassType   string          `json:"classType"`
		Duration    string          `json:"duration"`
		TeacherCode string          `json:"teacherCode"`
		PeriodLabel string          `json:"periodLabel"`
		Date        string          `json:"date" validate:"ymd"`
	}
)

func (e Entry) TeacherCode() string {
	if e.Teacher == nil {
		return ""
	}
	return e.Teacher.Code
}

// List returns the list the entry belongs to; membership follows the status only.
func (e Entry) List() ListType {
	if e.Status.IsMakeup() {
		return ListMakeup
	}
	return ListRegular
}

func (e Entry) seat() schedule.Seat {
	return schedule.Seat{
		StudentID: strings.TrimSpace(e.StudentID),
		Name:      e.Name,
		Grade:     e.Grade,
		Seat:      e.Seat,
		Subject:   e.Subject,
		ClassType: e.ClassType,
		Duration:  e.Duration,
		Status:    e.Status,
	}
}

func or(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}

// apply returns the entry with the changes layered on top. The teacher is resolved by the caller.
func (c Changes) apply(e Entry) Entry {
	res := e
	res.StudentID = strings.TrimSpace(or(c.StudentID, e.StudentID))
	res.Name = or(c.StudentName, e.Name)
	res.Subject = or(c.Subject, e.Subject)
	res.Status = schedule.Status(or(string(c.Status), string(e.Status)))
	res.Seat = or(c.Seat, e.Seat)
	res.Grade = or(c.Grade, e.Grade)
	res.ClassType = or(c.ClassType, e.ClassType)
	res.Duration = or(c.Duration, e.Duration)
	res.PeriodLabel = or(c.PeriodLabel, e.PeriodLabel)
	res.Date = or(c.Date, e.Date)
	return res
}

func (c Changes) teacherCode(e Entry) string {
	return or(c.TeacherCode, e.TeacherCode())
}
