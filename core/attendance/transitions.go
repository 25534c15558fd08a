package attendance

import "github.com/trezcool/juku/core/schedule"

// plan lists the store mutations of a status transition.
type plan struct {
	vacateGrid bool // ensure the student is absent from the old grid slot
	insertGrid bool // seat the student in the new grid slot
	saveMakeup bool // book the new slot in the make-up side-store
	dropMakeup bool // drop the old make-up booking without archiving it
	exitMakeup bool // drop the old make-up booking and archive it
}

type transition struct {
	from, to schedule.Status
}

var (
	gridMove    = plan{vacateGrid: true, insertGrid: true}
	enterMakeup = plan{vacateGrid: true, saveMakeup: true}
	leaveMakeup = plan{vacateGrid: true, insertGrid: true, exitMakeup: true}
	moveMakeup  = plan{vacateGrid: true, saveMakeup: true, dropMakeup: true}

	transitions = map[transition]plan{
		{schedule.StatusScheduled, schedule.StatusScheduled}: gridMove,
		{schedule.StatusScheduled, schedule.StatusAbsent}:    gridMove,
		{schedule.StatusScheduled, schedule.StatusUndecided}: gridMove,
		{schedule.StatusScheduled, schedule.StatusMakeup}:    enterMakeup,

		{schedule.StatusAbsent, schedule.StatusScheduled}: gridMove,
		{schedule.StatusAbsent, schedule.StatusAbsent}:    gridMove,
		{schedule.StatusAbsent, schedule.StatusUndecided}: gridMove,
		{schedule.StatusAbsent, schedule.StatusMakeup}:    enterMakeup,

		{schedule.StatusUndecided, schedule.StatusScheduled}: gridMove,
		{schedule.StatusUndecided, schedule.StatusAbsent}:    gridMove,
		{schedule.StatusUndecided, schedule.StatusUndecided}: gridMove,
		{schedule.StatusUndecided, schedule.StatusMakeup}:    enterMakeup,

		{schedule.StatusMakeup, schedule.StatusScheduled}: leaveMakeup,
		{schedule.StatusMakeup, schedule.StatusAbsent}:    leaveMakeup,
		{schedule.StatusMakeup, schedule.StatusUndecided}: leaveMakeup,
		{schedule.StatusMakeup, schedule.StatusMakeup}:    moveMakeup,
	}
)

// planFor returns the plan of a transition. Unknown source statuses are treated as grid entries.
func planFor(from, to schedule.Status) plan {
	if p, ok := transitions[transition{from, to}]; ok {
		return p
	}
	if to.IsMakeup() {
		return enterMakeup
	}
	return gridMove
}
