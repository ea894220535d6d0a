package model

// Direction selects which side of the cursor a page is fetched from.
type Direction string

const (
	DirectionForward  Direction = "forward"
	DirectionBackward Direction = "backward"
)

func (d Direction) String() string {
	return string(d)
}

func (d Direction) Valid() bool {
	return d == DirectionForward || d == DirectionBackward
}

// ParseDirection maps a raw query value to a Direction.
// The empty string defaults to forward.
func ParseDirection(s string) (Direction, bool) {
	switch s {
	case "", DirectionForward.String():
		return DirectionForward, true
	case DirectionBackward.String():
		return DirectionBackward, true
	default:
		return "", false
	}
}
