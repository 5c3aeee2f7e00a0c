package entity

import (
	"fmt"

	"github.com/litergames/litergames-backend/internal/apperror"
)

const (
	PlayerX   = "X"
	PlayerO   = "O"
	PlayerTie = "draw"

	EmptyCell = ""
)

// WinCombos - rows first, then columns, then diagonals. Evaluation order is
// fixed so results are deterministic.
var WinCombos = [][3]int{
	{0, 1, 2},
	{3, 4, 5},
	{6, 7, 8},
	{0, 3, 6},
	{1, 4, 7},
	{2, 5, 8},
	{0, 4, 8},
	{2, 4, 6},
}

// Game is the authoritative state of one tic-tac-toe board.
type Game struct {
	Board  [9]string `json:"board"`
	Turn   string    `json:"turn"`
	Winner string    `json:"winner,omitempty"`
}

// NewGame returns a fresh state: empty board, X to move, no winner.
func NewGame() *Game {
	return &Game{
		Board: [9]string{EmptyCell, EmptyCell, EmptyCell, EmptyCell, EmptyCell, EmptyCell, EmptyCell, EmptyCell, EmptyCell},
		Turn:  PlayerX,
	}
}

// Reset returns the game to its initial state, X to move.
func (that *Game) Reset() {
	*that = *NewGame()
}

// DetermineGameResult - checks the 8 winning lines for three equal marks.
// Returns the winning mark, PlayerTie when the board is full, or an empty
// string while the game is still open.
func (that *Game) DetermineGameResult() string {
	for _, combo := range WinCombos {
		a, b, c := that.Board[combo[0]], that.Board[combo[1]], that.Board[combo[2]]
		if a != EmptyCell && a == b && b == c {
			return a
		}
	}

	// the game will continue until all the squares are full
	for _, cell := range that.Board {
		if cell == EmptyCell {
			return ""
		}
	}

	return PlayerTie
}

// MakeTurn places playerMark on the given cell. After a terminal move the
// turn is left unchanged and the winner is recorded; otherwise the turn
// flips to the other mark.
func (that *Game) MakeTurn(playerMark string, cell int) error {
	if that.IsFinished() {
		return apperror.ErrGameFinished
	}

	if cell < 0 || cell >= len(that.Board) {
		return fmt.Errorf("%w: cell %d", apperror.ErrInvalidCell, cell)
	}

	if that.Turn != playerMark {
		return apperror.ErrNotYourTurn
	}

	if that.Board[cell] != EmptyCell {
		return apperror.ErrCellOccupied
	}

	that.Board[cell] = playerMark

	if result := that.DetermineGameResult(); result != "" {
		that.Winner = result
		return nil
	}

	if that.Turn == PlayerX {
		that.Turn = PlayerO
	} else {
		that.Turn = PlayerX
	}

	return nil
}

func (that *Game) IsFinished() bool {
	return that.Winner != ""
}
