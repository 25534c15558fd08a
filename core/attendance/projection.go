package attendance

import "context"

// Editor applies an edit to the stores.
type Editor interface {
	Edit(ctx context.Context, classroomCode string, original Entry, changes Changes) (Entry, error)
}

var _ Editor = (*Service)(nil)

// Projection is the in-memory attendance list of one editing session.
// The regular and make-up lists are derived from the entries on every read.
// A Projection is not safe for concurrent use.
type Projection struct {
	entries []Entry
	editing map[ListType]int
}

func NewProjection(entries []Entry) *Projection {
	return &Projection{
		entries: append([]Entry(nil), entries...),
		editing: make(map[ListType]int, 2),
	}
}

func (p *Projection) Entries() []Entry {
	return append([]Entry(nil), p.entries...)
}

func (p *Projection) Regular() []Entry {
	return p.filter(ListRegular)
}

func (p *Projection) Makeup() []Entry {
	return p.filter(ListMakeup)
}

func (p *Projection) List(list ListType) ([]Entry, error) {
	if !list.Valid() {
		return nil, newEditError(ReasonUnknownListType)
	}
	return p.filter(list), nil
}

func (p *Projection) filter(list ListType) []Entry {
	res := make([]Entry, 0, len(p.entries))
	for _, e := range p.entries {
		if e.List() == list {
			res = append(res, e)
		}
	}
	return res
}

// position maps an index of a derived list to the entry list.
func (p *Projection) position(list ListType, index int) (int, bool) {
	n := 0
	for i, e := range p.entries {
		if e.List() != list {
			continue
		}
		if n == index {
			return i, true
		}
		n++
	}
	return -1, false
}

// BeginEdit selects the entry at index of list as the one being edited.
func (p *Projection) BeginEdit(list ListType, index int) error {
	if !list.Valid() {
		return newEditError(ReasonUnknownListType)
	}
	if _, ok := p.position(list, index); !ok {
		return newEditError(ReasonMissingOriginal)
	}
	p.editing[list] = index
	return nil
}

func (p *Projection) CancelEdit(list ListType) {
	delete(p.editing, list)
}

// Editing returns the index being edited in list.
func (p *Projection) Editing(list ListType) (int, bool) {
	i, ok := p.editing[list]
	return i, ok
}

// Save commits the changes of the entry being edited in list through editor.
// Only a successful edit replaces that entry and clears the editing selection;
// on failure the projection is left untouched.
func (p *Projection) Save(ctx context.Context, editor Editor, classroomCode string, list ListType, changes Changes) (Entry, error) {
	if !list.Valid() {
		return Entry{}, newEditError(ReasonUnknownListType)
	}
	index, ok := p.editing[list]
	if !ok {
		return Entry{}, newEditError(ReasonNoActiveEdit)
	}
	pos, ok := p.position(list, index)
	if !ok {
		return Entry{}, newEditError(ReasonMissingOriginal)
	}

	updated, err := editor.Edit(ctx, classroomCode, p.entries[pos], changes)
	if err != nil {
		return Entry{}, err
	}
	p.entries[pos] = updated
	p.editing = make(map[ListType]int, 2)
	return updated, nil
}
