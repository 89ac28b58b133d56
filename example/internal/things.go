package internal

import "fmt"

type Color int

const (
	ColRed Color = iota
	ColGreen
	ColBlue
)

func (c Color) String() string {
	switch c {
	case ColRed:
		return "red"
	case ColGreen:
		return "green"
	case ColBlue:
		return "blue"
	}
	return fmt.Sprintf("Color(%d)", int(c))
}

// Painted is posted when a thing got a new color.
type Painted struct {
	Thing    string
	From, To Color
}

// Dropped is posted when a thing was removed.
type Dropped struct {
	Thing string
}
