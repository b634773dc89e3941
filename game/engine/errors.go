package engine

import (
	"errors"
	"fmt"
)

var (
	ErrOutOfBounds         = errors.New("cell out of bounds")
	ErrOriginEmpty         = errors.New("source cell empty")
	ErrIllegalDestination  = errors.New("illegal destination")
	ErrFriendlyDestination = errors.New("destination occupied by friendly piece")
	ErrPathBlocked         = errors.New("path is obstructed")
	ErrUnsupportedCommand  = errors.New("unsupported command type")
	ErrGameOver            = errors.New("game is over")
	ErrUnknownPieceType    = errors.New("unknown piece type")
)

func errOutOfBounds(c Cell) error {
	return fmt.Errorf("%w: (%d,%d)", ErrOutOfBounds, c.Row, c.Col)
}
