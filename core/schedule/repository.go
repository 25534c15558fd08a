package schedule

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/juku/core"
)

// nowFunc is mocked by tests
var nowFunc = func() time.Time { return time.Now().UTC() }

// Accessor reads and writes schedule documents and the classroom directory.
type Accessor struct {
	store core.DocStore
}

func NewAccessor(store core.DocStore) *Accessor {
	return &Accessor{store: store}
}

func normalize(s *Schedule) *Schedule {
	if s.Rows == nil {
		s.Rows = []Row{}
	}
	for i := range s.Rows {
		if s.Rows[i].Periods == nil {
			s.Rows[i].Periods = emptyPeriods()
		}
	}
	return s
}

// Empty returns a schedule with no rows.
func Empty(id string) *Schedule {
	return &Schedule{ID: id, Rows: []Row{}}
}

// Fetch returns the stored schedule, or nil when the document does not exist.
func (a *Accessor) Fetch(ctx context.Context, collection, id string) (*Schedule, error) {
	data, err := a.store.GetDocument(ctx, collection, id)
	if err != nil {
		if errors.Cause(err) == core.ErrDocumentNotFound {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "fetching %s/%s", collection, id)
	}
	s := new(Schedule)
	if err := json.Unmarshal(data, s); err != nil {
		return nil, errors.Wrapf(err, "decoding %s/%s", collection, id)
	}
	s.ID = id
	return normalize(s), nil
}

// Save replaces the stored schedule with s (rows, id and updatedAt).
func (a *Accessor) Save(ctx context.Context, collection, id string, s *Schedule) error {
	doc := &Schedule{ID: id, Rows: s.Rows, UpdatedAt: nowFunc()}
	normalize(doc)
	data, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrapf(err, "encoding %s/%s", collection, id)
	}
	if err := a.store.SetDocument(ctx, collection, id, data, core.SetOptions{}); err != nil {
		return errors.Wrapf(err, "saving %s/%s", collection, id)
	}
	s.ID, s.UpdatedAt = doc.ID, doc.UpdatedAt
	return nil
}

// Materialize persists seed as the daily document dailyID.
func (a *Accessor) Materialize(ctx context.Context, dailyID string, seed *Schedule) error {
	return a.Save(ctx, core.DailySchedules, dailyID, seed)
}

// LoadDaily returns the daily schedule of date, falling back to a copy of the weekly
// template (or an empty schedule). found reports whether the daily document exists.
// Nothing is persisted.
func (a *Accessor) LoadDaily(ctx context.Context, classroomCode, date string) (s *Schedule, found bool, err error) {
	dailyID, err := DailyDocID(classroomCode, date)
	if err != nil {
		return nil, false, err
	}
	if s, err = a.Fetch(ctx, core.DailySchedules, dailyID); err != nil || s != nil {
		return s, s != nil, err
	}

	weeklyID, err := WeeklyDocID(classroomCode, date)
	if err != nil {
		return nil, false, err
	}
	tmpl, err := a.Fetch(ctx, core.WeeklySchedules, weeklyID)
	if err != nil {
		return nil, false, err
	}
	return seedFrom(dailyID, tmpl), false, nil
}

// LoadOrMaterialize returns the daily schedule of date, persisting it from its weekly
// template first when it does not exist yet.
func (a *Accessor) LoadOrMaterialize(ctx context.Context, classroomCode, date string) (*Schedule, error) {
	s, found, err := a.LoadDaily(ctx, classroomCode, date)
	if err != nil || found {
		return s, err
	}
	if err := a.Materialize(ctx, s.ID, s); err != nil {
		return nil, errors.Wrap(err, "materializing daily schedule")
	}
	return s, nil
}

func seedFrom(dailyID string, tmpl *Schedule) *Schedule {
	if tmpl == nil {
		return Empty(dailyID)
	}
	seed := tmpl.Clone()
	seed.ID = dailyID
	return normalize(seed)
}

// ListDaily returns the ids of the classroom's daily schedules whose date starts with datePrefix
// (e.g. "2024-05" for a month).
func (a *Accessor) ListDaily(ctx context.Context, classroomCode, datePrefix string) ([]string, error) {
	ids, err := a.store.ListDocumentIDs(ctx, core.DailySchedules, classroomCode+"_"+datePrefix)
	if err != nil {
		return nil, errors.Wrap(err, "listing daily schedules")
	}
	return ids, nil
}

type (
	periodLabelsDoc struct {
		PeriodLabels []PeriodLabel `json:"periodLabels"`
	}

	teachersDoc struct {
		Teachers []TeacherRecord `json:"teachers"`
	}
)

// PeriodLabels returns the classroom's ordered period labels; an unknown classroom has none.
func (a *Accessor) PeriodLabels(ctx context.Context, classroomCode string) ([]PeriodLabel, error) {
	var doc periodLabelsDoc
	if err := a.getJSON(ctx, core.PeriodLabels, classroomCode, &doc); err != nil {
		return nil, err
	}
	if doc.PeriodLabels == nil {
		return []PeriodLabel{}, nil
	}
	return doc.PeriodLabels, nil
}

// TeacherName returns "lastName firstName" of the teacher code, or "" for unknown teachers.
func (a *Accessor) TeacherName(ctx context.Context, classroomCode, code string) (string, error) {
	if code == "" {
		return "", nil
	}
	var doc teachersDoc
	if err := a.getJSON(ctx, core.Teachers, classroomCode, &doc); err != nil {
		return "", err
	}
	for _, t := range doc.Teachers {
		if strings.TrimSpace(t.Code) == strings.TrimSpace(code) {
			return t.FullName(), nil
		}
	}
	return "", nil
}

func (a *Accessor) getJSON(ctx context.Context, collection, id string, v interface{}) error {
	data, err := a.store.GetDocument(ctx, collection, id)
	if err != nil {
		if errors.Cause(err) == core.ErrDocumentNotFound {
			return nil
		}
		return errors.Wrapf(err, "fetching %s/%s", collection, id)
	}
	return errors.Wrapf(json.Unmarshal(data, v), "decoding %s/%s", collection, id)
}
