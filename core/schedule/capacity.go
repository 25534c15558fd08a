package schedule

import "errors"

var ErrCapacityExceeded = errors.New("class type or capacity limit exceeded")

// CheckCapacity validates a scheduled (teacher, period) cell once incoming joins occupants:
//   - pair and practice classes may share a cell of at most 2,
//   - practice classes alone may fill a cell of at most 6,
//   - a solo class must be alone.
func CheckCapacity(occupants []Seat, incoming Seat) error {
	counts := make(map[string]int)
	for _, s := range occupants {
		counts[s.ClassType]++
	}
	counts[incoming.ClassType]++
	total := len(occupants) + 1

	only := func(types ...string) bool {
		n := 0
		for _, t := range types {
			n += counts[t]
		}
		return n == total
	}

	switch {
	case only(ClassPractice) && total <= 6:
		return nil
	case only(ClassPair, ClassPractice) && total <= 2:
		return nil
	case only(ClassSolo) && total <= 1:
		return nil
	}
	return ErrCapacityExceeded
}
