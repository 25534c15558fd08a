package schedule

// RowKey identifies the grouping row a seat belongs to.
// Scheduled rows are keyed by teacher; every other status has a single row.
type RowKey struct {
	Status      Status
	TeacherCode string
}

// KeyFor returns the row key a seat with the given status and teacher is grouped under.
func KeyFor(status Status, teacherCode string) RowKey {
	if status == StatusScheduled {
		return RowKey{Status: StatusScheduled, TeacherCode: teacherCode}
	}
	return RowKey{Status: status}
}

// Key returns the grouping key of the row. A row carrying a teacher with no
// status is a scheduled row.
func (r Row) Key() RowKey {
	if r.Teacher != nil && r.Teacher.Code != "" && (r.Status == StatusScheduled || r.Status == "") {
		return RowKey{Status: StatusScheduled, TeacherCode: r.Teacher.Code}
	}
	return RowKey{Status: r.Status}
}

// RowIndex maps row keys to the position of their first row.
// Order keeps the keys in row order for display.
type RowIndex struct {
	Order []RowKey
	pos   map[RowKey]int
}

func (s *Schedule) Index() RowIndex {
	idx := RowIndex{pos: make(map[RowKey]int, len(s.Rows))}
	for i, row := range s.Rows {
		key := row.Key()
		if _, ok := idx.pos[key]; ok {
			continue
		}
		idx.pos[key] = i
		idx.Order = append(idx.Order, key)
	}
	return idx
}

// Lookup returns the position of the first row grouped under key.
func (idx RowIndex) Lookup(key RowKey) (int, bool) {
	i, ok := idx.pos[key]
	return i, ok
}

// Occupants returns every seat of periodKey across all rows.
func (s *Schedule) Occupants(periodKey string) []Seat {
	var seats []Seat
	for _, row := range s.Rows {
		seats = append(seats, row.Periods[periodKey]...)
	}
	return seats
}

func (s *Schedule) Contains(periodKey, studentID string) bool {
	for _, seat := range s.Occupants(periodKey) {
		if seat.Is(studentID) {
			return true
		}
	}
	return false
}

// RemoveStudent filters the student out of periodKey in every row.
// It reports whether anything was removed; removing an absent student is a no-op.
func (s *Schedule) RemoveStudent(periodKey, studentID string) bool {
	removed := false
	for i := range s.Rows {
		seats, ok := s.Rows[i].Periods[periodKey]
		if !ok {
			continue
		}
		kept := seats[:0:0]
		for _, seat := range seats {
			if seat.Is(studentID) {
				removed = true
				continue
			}
			kept = append(kept, seat)
		}
		s.Rows[i].Periods[periodKey] = kept
	}
	return removed
}

// Insert appends seat to periodKey of the first row grouped under the seat's key,
// creating the row when none matches. Scheduled seats go through the capacity check
// and nothing is mutated when it fails.
func (s *Schedule) Insert(periodKey string, teacher *Teacher, seat Seat) error {
	code := ""
	if teacher != nil {
		code = teacher.Code
	}
	key := KeyFor(seat.Status, code)

	i, ok := s.Index().Lookup(key)
	if seat.Status == StatusScheduled {
		var occupants []Seat
		if ok {
			occupants = s.Rows[i].Periods[periodKey]
		}
		if err := CheckCapacity(occupants, seat); err != nil {
			return err
		}
	}

	if !ok {
		s.Rows = append(s.Rows, newRow(seat.Status, teacher))
		i = len(s.Rows) - 1
	}
	if s.Rows[i].Periods == nil {
		s.Rows[i].Periods = emptyPeriods()
	}
	s.Rows[i].Periods[periodKey] = append(s.Rows[i].Periods[periodKey], seat)
	return nil
}

func newRow(status Status, teacher *Teacher) Row {
	row := Row{Status: status, Periods: emptyPeriods()}
	if status == StatusScheduled && teacher != nil {
		t := *teacher
		row.Teacher = &t
	}
	return row
}

func emptyPeriods() Periods {
	p := make(Periods, MaxPeriods)
	for i := 0; i < MaxPeriods; i++ {
		p[PeriodKeyAt(i)] = []Seat{}
	}
	return p
}
