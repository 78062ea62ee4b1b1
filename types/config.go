package types

import "strings"

// Combinator joins a filter predicate with the result of the predicates
// registered before it.
type Combinator string

const (
	// And keeps the running result only if the predicate also matches.
	And Combinator = "AND"
	// Or turns the running result true when the predicate matches.
	Or Combinator = "OR"
)

// ParseCombinator normalises a user supplied combinator name.
// The second return value is false for anything other than AND/OR.
func ParseCombinator(s string) (Combinator, bool) {
	switch Combinator(strings.ToUpper(strings.TrimSpace(s))) {
	case And:
		return And, true
	case Or:
		return Or, true
	default:
		return Combinator(s), false
	}
}

// String returns the string representation of the Combinator
func (c Combinator) String() string {
	return string(c)
}

// Direction is the ordering applied by a sort stage.
type Direction string

const (
	// Asc sorts smallest key first.
	Asc Direction = "asc"
	// Desc sorts largest key first.
	Desc Direction = "desc"
)

// ParseDirection accepts asc/desc in any case.
func ParseDirection(s string) (Direction, bool) {
	switch Direction(strings.ToLower(strings.TrimSpace(s))) {
	case Asc:
		return Asc, true
	case Desc:
		return Desc, true
	default:
		return Direction(s), false
	}
}

// String returns the string representation of the Direction
func (d Direction) String() string {
	return string(d)
}
