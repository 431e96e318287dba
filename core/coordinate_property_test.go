//go:build property

package core

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestCoordinateProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(1357)
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("CellPosition inverts CellRef", prop.ForAll(
		func(row, col int) bool {
			r, c, err := CellPosition(CellRef(row, col))
			return err == nil && r == row && c == col
		},
		gen.IntRange(0, 1048575),
		gen.IntRange(0, 16383),
	))

	properties.Property("offsets compose", prop.ForAll(
		func(row, col, r1, c1, r2, c2 int) bool {
			start := CellRef(row, col)
			a, err := OffsetRef(start, r1, c1)
			if err != nil {
				return false
			}
			b, err := OffsetRef(a, r2, c2)
			if err != nil {
				return false
			}
			direct, err := OffsetRef(start, r1+r2, c1+c2)
			return err == nil && b == direct
		},
		gen.IntRange(0, 5000),
		gen.IntRange(0, 500),
		gen.IntRange(0, 100),
		gen.IntRange(0, 50),
		gen.IntRange(0, 100),
		gen.IntRange(0, 50),
	))

	properties.Property("formula text without references is preserved", prop.ForAll(
		func(text string, rows, cols int) bool {
			// lower-case text cannot hold a reference
			f := strings.ToLower(text)
			return OffsetFormula(f, rows, cols) == f
		},
		gen.AlphaString(),
		gen.IntRange(-10, 10),
		gen.IntRange(-10, 10),
	))

	properties.Property("relative reference moves by the offset", prop.ForAll(
		func(row, col, dr, dc int) bool {
			ref := CellRef(row, col)
			want := CellRef(row+dr, col+dc)
			return OffsetFormula("SUM("+ref+")", dr, dc) == "SUM("+want+")"
		},
		gen.IntRange(0, 10000),
		gen.IntRange(0, 600),
		gen.IntRange(0, 100),
		gen.IntRange(0, 100),
	))

	properties.TestingRun(t)
}
