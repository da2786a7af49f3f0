// SPDX-License-Identifier: AGPL-3.0-or-later
//
// Package kalah implements the authoritative Kalah/Mancala rules
// engine (spec.md 3, 4.4): a 14-slot board, sowing with captures, and
// outcome determination.
//
// The sowing/capture/termination algorithm is grounded on the
// teacher's board.go (Sow, Over, Outcome, Collect in board.go), but
// translated from the teacher's mirrored north[]/south[] pit arrays
// into the single absolute-index ring spec.md 3 mandates: pits 0-5
// and store 6 belong to side A, pits 7-12 and store 13 to side B.
package kalah

import (
	"fmt"
	"strings"
)

// Side identifies one of the two players of a match.
type Side int

const (
	SideA Side = iota
	SideB
)

// Opponent returns the other side.
func (s Side) Opponent() Side {
	if s == SideA {
		return SideB
	}
	return SideA
}

func (s Side) String() string {
	if s == SideA {
		return "A"
	}
	return "B"
}

const (
	pitsPerSide = 6
	boardSize   = 2*pitsPerSide + 2
	seedsPerPit = 3
)

// Board is the flat 14-slot Kalah board: indices 0-5 are A's pits, 6
// is A's store, 7-12 are B's pits, 13 is B's store.
type Board [boardSize]int

// NewBoard returns the opening position: every pit holds 3 seeds,
// both stores are empty.
func NewBoard() Board {
	var b Board
	for i := 0; i < pitsPerSide; i++ {
		b[i] = seedsPerPit
		b[pitsPerSide+1+i] = seedsPerPit
	}
	return b
}

// PitRange returns the inclusive [low, high] absolute indices of
// side's pits.
func PitRange(side Side) (low, high int) {
	if side == SideA {
		return 0, pitsPerSide - 1
	}
	return pitsPerSide + 1, 2*pitsPerSide
}

// StoreIndex returns the absolute index of side's store.
func StoreIndex(side Side) int {
	if side == SideA {
		return pitsPerSide
	}
	return 2*pitsPerSide + 1
}

// SideOf returns which side owns pit abs. abs must not be a store
// index.
func SideOf(abs int) Side {
	if abs < pitsPerSide {
		return SideA
	}
	return SideB
}

// ToAbsolute converts a pit index in side's own 0..5 frame of
// reference into an absolute board index. This is the
// "position-normaliser" spec.md 4.4 requires the dispatcher to apply
// to a B-side MOV payload.
func ToAbsolute(side Side, rel int) int {
	low, _ := PitRange(side)
	return low + rel
}

// ToRelative converts an absolute pit index back into its owning
// side's own 0..5 frame of reference.
func ToRelative(abs int) int {
	low, _ := PitRange(SideOf(abs))
	return abs - low
}

// Legal reports whether side may sow from absolute pit abs: it must
// lie in side's own pit range and hold at least one seed.
func (b Board) Legal(side Side, abs int) bool {
	low, high := PitRange(side)
	if abs < low || abs > high {
		return false
	}
	return b[abs] > 0
}

// Sum returns the total seed count across side's six pits (not
// including its store).
func (b Board) Sum(side Side) int {
	low, high := PitRange(side)
	total := 0
	for i := low; i <= high; i++ {
		total += b[i]
	}
	return total
}

// SowResult reports what happened after distributing the seeds from
// one pit.
type SowResult struct {
	Again    bool // the mover's last seed landed in their own store
	Captured bool // the mover captured the opposite pit
	Last     int  // absolute index of the last pit sown
}

// Sow distributes the seeds held in side's pit abs, one per pit,
// skipping the opponent's store, wrapping modulo 14. The caller must
// have already verified Legal(side, abs). Sow mutates b in place.
func (b *Board) Sow(side Side, abs int) SowResult {
	seeds := b[abs]
	b[abs] = 0

	oppStore := StoreIndex(side.Opponent())
	ownStore := StoreIndex(side)

	pos := abs
	for seeds > 0 {
		pos = (pos + 1) % boardSize
		if pos == oppStore {
			continue
		}
		b[pos]++
		seeds--
	}

	res := SowResult{Last: pos}

	if pos == ownStore {
		res.Again = true
		return res
	}

	low, high := PitRange(side)
	if pos >= low && pos <= high && b[pos] == 1 {
		opp := 2*pitsPerSide - pos
		if b[opp] > 0 {
			b[ownStore] += b[opp] + 1
			b[pos] = 0
			b[opp] = 0
			res.Captured = true
		}
	}

	return res
}

// SideEmpty reports whether side's pits are all empty.
func (b Board) SideEmpty(side Side) bool {
	return b.Sum(side) == 0
}

// Over reports whether the match has finished: either side's row is
// completely empty.
func (b Board) Over() bool {
	return b.SideEmpty(SideA) || b.SideEmpty(SideB)
}

// Collect sweeps any remaining seeds into their owner's store. Only
// meaningful once Over reports true.
func (b *Board) Collect() {
	for _, side := range [...]Side{SideA, SideB} {
		low, high := PitRange(side)
		store := StoreIndex(side)
		for i := low; i <= high; i++ {
			b[store] += b[i]
			b[i] = 0
		}
	}
}

// Outcome compares final store totals. winner is only meaningful when
// draw is false.
func (b Board) Outcome() (winner Side, draw bool) {
	aTotal := b[StoreIndex(SideA)]
	bTotal := b[StoreIndex(SideB)]
	switch {
	case aTotal > bTotal:
		return SideA, false
	case bTotal > aTotal:
		return SideB, false
	default:
		return SideA, true
	}
}

// Render renders the board from viewer's point of view: the
// opponent's pits reversed on top, a middle line with the opponent's
// store on the left and the viewer's own store on the right, then the
// viewer's own pits left to right on the bottom.
func (b Board) Render(viewer Side) string {
	opp := viewer.Opponent()
	oLow, oHigh := PitRange(opp)
	low, high := PitRange(viewer)

	oppRow := make([]string, 0, pitsPerSide)
	for i := oHigh; i >= oLow; i-- {
		oppRow = append(oppRow, fmt.Sprintf("%2d", b[i]))
	}
	ownRow := make([]string, 0, pitsPerSide)
	for i := low; i <= high; i++ {
		ownRow = append(ownRow, fmt.Sprintf("%2d", b[i]))
	}

	top := strings.Join(oppRow, " ")
	bottom := strings.Join(ownRow, " ")
	pad := len(top) - 4
	if pad < 0 {
		pad = 0
	}
	mid := fmt.Sprintf("%2d%s%2d", b[StoreIndex(opp)], strings.Repeat(" ", pad), b[StoreIndex(viewer)])

	return top + "\n" + mid + "\n" + bottom
}
