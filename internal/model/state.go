package model

// State is the discrete traffic-light classification of a reading.
type State string

const (
	StateGreen  State = "GREEN"
	StateYellow State = "YELLOW"
	StateRed    State = "RED"
)

// Valid reports whether s is one of the three known states.
func (s State) Valid() bool {
	switch s {
	case StateGreen, StateYellow, StateRed:
		return true
	}
	return false
}
