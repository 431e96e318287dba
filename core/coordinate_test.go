package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCellRef(t *testing.T) {
	tests := []struct {
		row, col int
		want     string
	}{
		{0, 0, "A1"},
		{2, 1, "B3"},
		{0, 25, "Z1"},
		{9, 26, "AA10"},
		{-1, 0, ""},
		{0, -1, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CellRef(tt.row, tt.col), "CellRef(%d, %d)", tt.row, tt.col)
	}
}

func TestCellPosition(t *testing.T) {
	row, col, err := CellPosition("$C$7")
	require.NoError(t, err)
	assert.Equal(t, 6, row)
	assert.Equal(t, 2, col)

	_, _, err = CellPosition("7C")
	var fe *FormatError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "7C", fe.Input)
}

func TestOffsetRef(t *testing.T) {
	got, err := OffsetRef("B2", 3, 1)
	require.NoError(t, err)
	assert.Equal(t, "C5", got)

	_, err = OffsetRef("A1", -1, 0)
	assert.Error(t, err)
}

func TestCellRefRoundTrip(t *testing.T) {
	tests := []struct{ row, col int }{
		{0, 0}, {0, 25}, {0, 26}, {0, 701}, {0, 702},
		{99, 3}, {65535, 255}, {1048575, 16383},
	}
	for _, tt := range tests {
		ref := CellRef(tt.row, tt.col)
		row, col, err := CellPosition(ref)
		require.NoError(t, err, ref)
		assert.Equal(t, tt.row, row, ref)
		assert.Equal(t, tt.col, col, ref)
	}
}

func TestOffsetRefComposes(t *testing.T) {
	tests := []struct {
		start          string
		r1, c1, r2, c2 int
	}{
		{"A1", 1, 0, 0, 1},
		{"B3", 2, 5, 7, 1},
		{"Z9", 0, 1, 0, 1},
		{"AZ100", 10, 0, 0, 26},
		{"C5", -2, -1, -1, -1},
	}
	for _, tt := range tests {
		a, err := OffsetRef(tt.start, tt.r1, tt.c1)
		require.NoError(t, err)
		b, err := OffsetRef(a, tt.r2, tt.c2)
		require.NoError(t, err)
		direct, err := OffsetRef(tt.start, tt.r1+tt.r2, tt.c1+tt.c2)
		require.NoError(t, err)
		assert.Equal(t, direct, b, "%s by (%d,%d) then (%d,%d)", tt.start, tt.r1, tt.c1, tt.r2, tt.c2)
	}
}

func TestParseRange(t *testing.T) {
	sr, sc, er, ec, err := ParseRange("B3:D9")
	require.NoError(t, err)
	assert.Equal(t, []int{2, 1, 8, 3}, []int{sr, sc, er, ec})

	sr, sc, er, ec, err = ParseRange("C4")
	require.NoError(t, err)
	assert.Equal(t, []int{3, 2, 3, 2}, []int{sr, sc, er, ec})

	for _, bad := range []string{"", "A1:B2:C3", "A1:", "1A:B2"} {
		_, _, _, _, err := ParseRange(bad)
		assert.Error(t, err, bad)
	}

	assert.Equal(t, "B3:D9", RangeRef(2, 1, 8, 3))
}

func TestOffsetFormula(t *testing.T) {
	tests := []struct {
		name     string
		formula  string
		rows     int
		cols     int
		want     string
	}{
		{"simple", "A1+B2", 2, 0, "A3+B4"},
		{"range in function", "SUM(A1:B2)", 1, 1, "SUM(B2:C3)"},
		{"absolute column", "$A1*2", 3, 5, "$A4*2"},
		{"absolute row", "A$1*2", 3, 5, "F$1*2"},
		{"fully absolute", "$A$1", 3, 5, "$A$1"},
		{"string literal untouched", `IF(A1="B2","A3",C4)`, 1, 0, `IF(A2="B2","A3",C5)`},
		{"function name with digits", "LOG10(A1)", 1, 0, "LOG10(A2)"},
		{"identifier ending in ref", "MY_A1+A1", 1, 0, "MY_A1+A2"},
		{"sheet qualified", "Sheet1!A1", 1, 0, "Sheet1!A2"},
		{"leaves sheet", "A1", -1, 0, "A1"},
		{"zero offset", "A1+ZZ9", 0, 0, "A1+ZZ9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, OffsetFormula(tt.formula, tt.rows, tt.cols))
		})
	}
}
