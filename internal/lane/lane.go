package lane

import (
	"fmt"
	"math/bits"
	"strings"
)

// Lanes is a fixed-width bitmask of priority classes. Lower bits are more
// urgent, so the most urgent lane of a set is its lowest set bit and two sets
// merge with a bitwise OR.
type Lanes uint32

const (
	// NoLanes is the empty set.
	NoLanes Lanes = 0

	// Immediate work renders and commits without yielding.
	Immediate Lanes = 1 << 0

	// UserInteractive work responds to direct input.
	UserInteractive Lanes = 1 << 1

	// Normal is the default class.
	Normal Lanes = 1 << 2

	// Deferred work may wait behind everything interactive.
	Deferred Lanes = 1 << 3

	// Idle work runs when nothing else is pending.
	Idle Lanes = 1 << 4

	// NonIdleLanes is every class except Idle.
	NonIdleLanes = Immediate | UserInteractive | Normal | Deferred

	// AllLanes is every defined class.
	AllLanes = NonIdleLanes | Idle
)

// NumLanes is the number of defined classes.
const NumLanes = 5

// Priority names a single lane class for callers of the submission API.
type Priority int

const (
	PriorityImmediate Priority = iota
	PriorityUserInteractive
	PriorityNormal
	PriorityDeferred
	PriorityIdle
)

var priorityNames = [NumLanes]string{"immediate", "user_interactive", "normal", "deferred", "idle"}

func (p Priority) String() string {
	if p < 0 || int(p) >= NumLanes {
		return fmt.Sprintf("priority(%d)", int(p))
	}
	return priorityNames[p]
}

// Lane returns the single-bit lane for the priority.
func (p Priority) Lane() Lanes {
	if p < 0 || int(p) >= NumLanes {
		return Normal
	}
	return Lanes(1) << uint(p)
}

// ParsePriority accepts the String() names.
func ParsePriority(s string) (Priority, error) {
	for i, name := range priorityNames {
		if strings.EqualFold(s, name) {
			return Priority(i), nil
		}
	}
	return 0, fmt.Errorf("unknown priority %q: must be one of %s", s, strings.Join(priorityNames[:], ", "))
}

// PriorityOf returns the class of a single-bit lane.
func PriorityOf(l Lanes) Priority {
	return Priority(bits.TrailingZeros32(uint32(Highest(l))))
}

// Highest returns the most urgent lane in the set, or NoLanes.
func Highest(l Lanes) Lanes {
	return l & -l
}

// Includes reports whether every lane of sub is in l.
func (l Lanes) Includes(sub Lanes) bool {
	return l&sub == sub
}

// Intersects reports whether l and o share a lane.
func (l Lanes) Intersects(o Lanes) bool {
	return l&o != 0
}

// MoreUrgent reports whether the most urgent lane of l outranks the most urgent
// lane of o. An empty set is never more urgent; any lane outranks an empty set.
func (l Lanes) MoreUrgent(o Lanes) bool {
	hl, ho := Highest(l), Highest(o)
	if hl == 0 {
		return false
	}
	return ho == 0 || hl < ho
}

// Index returns the bit position of a single-bit lane.
func (l Lanes) Index() int {
	return bits.TrailingZeros32(uint32(l))
}

// String renders "normal|idle" style names.
func (l Lanes) String() string {
	if l == NoLanes {
		return "none"
	}
	var parts []string
	for i := 0; i < NumLanes; i++ {
		if l&(1<<uint(i)) != 0 {
			parts = append(parts, priorityNames[i])
		}
	}
	if rest := l &^ AllLanes; rest != 0 {
		parts = append(parts, fmt.Sprintf("0x%x", uint32(rest)))
	}
	return strings.Join(parts, "|")
}
