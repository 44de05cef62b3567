package engine

type Color string

const (
	White Color = "white"
	Black Color = "black"
)

func (c Color) Opponent() Color {
	if c == White {
		return Black
	}
	return White
}

func (c Color) Valid() bool { return c == White || c == Black }

// TurnForPly returns the side to move after ply half-moves from the start position.
func TurnForPly(ply int) Color {
	if ply%2 == 0 {
		return White
	}
	return Black
}
