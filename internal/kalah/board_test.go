// SPDX-License-Identifier: AGPL-3.0-or-later
//
package kalah_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"kalahd/internal/kalah"
)

func sum(b kalah.Board) int {
	total := 0
	for _, v := range b {
		total += v
	}
	return total
}

func TestNewBoardInvariant(t *testing.T) {
	b := kalah.NewBoard()
	require.Equal(t, 36, sum(b))
	for i := 0; i < 6; i++ {
		require.Equal(t, 3, b[i])
		require.Equal(t, 3, b[7+i])
	}
	require.Zero(t, b[6])
	require.Zero(t, b[13])
}

func TestToAbsoluteAndRelative(t *testing.T) {
	require.Equal(t, 0, kalah.ToAbsolute(kalah.SideA, 0))
	require.Equal(t, 5, kalah.ToAbsolute(kalah.SideA, 5))
	require.Equal(t, 7, kalah.ToAbsolute(kalah.SideB, 0))
	require.Equal(t, 12, kalah.ToAbsolute(kalah.SideB, 5))

	require.Equal(t, 3, kalah.ToRelative(3))
	require.Equal(t, 2, kalah.ToRelative(9))
}

func TestSowWithoutCaptureOrReplay(t *testing.T) {
	b := kalah.NewBoard()
	res := b.Sow(kalah.SideA, 2)

	require.False(t, res.Again)
	require.False(t, res.Captured)
	require.Equal(t, 5, res.Last)
	require.Equal(t, 0, b[2])
	require.Equal(t, 4, b[3])
	require.Equal(t, 4, b[4])
	require.Equal(t, 4, b[5])
	require.Equal(t, 36, sum(b))
}

func TestSowLandsInOwnStorePlaysAgain(t *testing.T) {
	b := kalah.NewBoard()
	// One seed short of the store: sowing from pit 5 (1 pit away) lands
	// exactly in A's store when it holds a single seed.
	b[5] = 1
	res := b.Sow(kalah.SideA, 5)

	require.True(t, res.Again)
	require.Equal(t, kalah.StoreIndex(kalah.SideA), res.Last)
	require.Equal(t, 1, b[kalah.StoreIndex(kalah.SideA)])
	require.Equal(t, 34, sum(b)) // unchanged total, only redistributed
}

func TestSowSkipsOpponentStore(t *testing.T) {
	b := kalah.NewBoard()
	b[5] = 9 // enough seeds to wrap past B's store back to A's own row
	before := sum(b)
	b.Sow(kalah.SideA, 5)

	require.Equal(t, 0, b[kalah.StoreIndex(kalah.SideB)])
	require.Equal(t, before, sum(b))
}

func TestCaptureOnLoneLanding(t *testing.T) {
	b := kalah.NewBoard()
	b[2] = 0   // A's pit 2 is empty
	b[9] = 5   // opposite pit (12-2=10)... set up directly below
	b[10] = 5  // opposite of pit 2 is 12-2=10
	b[1] = 1   // one seed away from landing in the empty pit 2
	res := b.Sow(kalah.SideA, 1)

	require.True(t, res.Captured)
	require.Equal(t, 2, res.Last)
	require.Equal(t, 0, b[2])
	require.Equal(t, 0, b[10])
	require.Equal(t, 6, b[kalah.StoreIndex(kalah.SideA)]) // captured 5 + the landing seed
}

func TestNoCaptureWhenOppositePitEmpty(t *testing.T) {
	b := kalah.NewBoard()
	b[2] = 0
	b[10] = 0
	b[1] = 1
	res := b.Sow(kalah.SideA, 1)

	require.False(t, res.Captured)
	require.Equal(t, 1, b[2])
}

func TestOverAndCollectAndOutcome(t *testing.T) {
	var b kalah.Board
	b[kalah.StoreIndex(kalah.SideA)] = 20
	b[kalah.StoreIndex(kalah.SideB)] = 10
	b[8] = 6 // only B has pits left

	require.True(t, b.Over())
	b.Collect()
	require.Equal(t, 36, sum(b))

	winner, draw := b.Outcome()
	require.False(t, draw)
	require.Equal(t, kalah.SideA, winner)
}

func TestOutcomeDraw(t *testing.T) {
	var b kalah.Board
	b[kalah.StoreIndex(kalah.SideA)] = 18
	b[kalah.StoreIndex(kalah.SideB)] = 18

	_, draw := b.Outcome()
	require.True(t, draw)
}

func TestRenderProducesThreeLines(t *testing.T) {
	b := kalah.NewBoard()
	rendered := b.Render(kalah.SideA)
	require.Len(t, splitLines(rendered), 3)
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i, c := range s {
		if c == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	lines = append(lines, s[start:])
	return lines
}
