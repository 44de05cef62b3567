package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/corentings/chess/v2"
)

var ErrIllegalMove = errors.New("illegal move")
var ErrEmptyMove = errors.New("empty move")
var ErrBadPosition = errors.New("bad position")

type Terminal string

const (
	NotTerminal          Terminal = ""
	Checkmate            Terminal = "checkmate"
	Stalemate            Terminal = "stalemate"
	InsufficientMaterial Terminal = "insufficient-material"
	OtherDraw            Terminal = "draw"
)

// Outcome is the rules-level verdict on a position. Winner is empty for draws.
type Outcome struct {
	Terminal Terminal
	Winner   Color
}

// Applied describes the position reached by one legal move.
type Applied struct {
	Position string // FEN after the move
	SAN      string
	UCI      string
	Turn     Color
	Outcome  Outcome
}

// Count is the number of pieces per code ("p", "n", "b", "r", "q"). Kings are not counted.
type Count map[string]int

type Material map[Color]Count

//go:generate mockgen -package=mocks -destination=mocks/mock_rules.go github.com/DoyleJ11/chess-session-backend/internal/engine Rules

// Rules is the rules-engine collaborator. Positions are FEN strings.
type Rules interface {
	StartPosition() string
	Apply(position, move string) (Applied, error)
	Material(position string) (Material, error)
}

// Chess implements Rules with github.com/corentings/chess/v2.
type Chess struct{}

func NewChess() Chess { return Chess{} }

func (Chess) StartPosition() string {
	return chess.NewGame().FEN()
}

// Apply plays move on position. UCI ("e2e4") is tried first, then SAN ("e4").
func (Chess) Apply(position, move string) (Applied, error) {
	move = strings.TrimSpace(move)
	if move == "" {
		return Applied{}, ErrEmptyMove
	}

	game, err := load(position)
	if err != nil {
		return Applied{}, err
	}

	before := game.Position()
	if err := game.PushNotationMove(strings.ToLower(move), chess.UCINotation{}, nil); err != nil {
		if err := game.PushNotationMove(move, chess.AlgebraicNotation{}, nil); err != nil {
			return Applied{}, fmt.Errorf("%w: %s", ErrIllegalMove, move)
		}
	}

	moves := game.Moves()
	if len(moves) == 0 {
		return Applied{}, fmt.Errorf("%w: %s", ErrIllegalMove, move)
	}
	last := moves[len(moves)-1]

	return Applied{
		Position: game.FEN(),
		SAN:      chess.AlgebraicNotation{}.Encode(before, last),
		UCI:      chess.UCINotation{}.Encode(before, last),
		Turn:     colorOf(game.Position().Turn()),
		Outcome:  outcomeOf(game),
	}, nil
}

func (Chess) Material(position string) (Material, error) {
	game, err := load(position)
	if err != nil {
		return nil, err
	}

	m := Material{White: Count{}, Black: Count{}}
	for _, piece := range game.Position().Board().SquareMap() {
		code := pieceCode(piece.Type())
		if code == "" {
			continue
		}
		m[colorOf(piece.Color())][code]++
	}
	return m, nil
}

func load(position string) (*chess.Game, error) {
	opt, err := chess.FEN(position)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPosition, err)
	}
	return chess.NewGame(opt), nil
}

func outcomeOf(game *chess.Game) Outcome {
	switch game.Outcome() {
	case chess.WhiteWon:
		return Outcome{Terminal: Checkmate, Winner: White}
	case chess.BlackWon:
		return Outcome{Terminal: Checkmate, Winner: Black}
	case chess.Draw:
		switch game.Method() {
		case chess.Stalemate:
			return Outcome{Terminal: Stalemate}
		case chess.InsufficientMaterial:
			return Outcome{Terminal: InsufficientMaterial}
		default:
			return Outcome{Terminal: OtherDraw}
		}
	}
	return Outcome{}
}

func colorOf(c chess.Color) Color {
	if c == chess.Black {
		return Black
	}
	return White
}

func pieceCode(t chess.PieceType) string {
	switch t {
	case chess.Queen:
		return "q"
	case chess.Rook:
		return "r"
	case chess.Bishop:
		return "b"
	case chess.Knight:
		return "n"
	case chess.Pawn:
		return "p"
	}
	return ""
}
