package core

import (
	"errors"
	"testing"

	"gridbind/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func peopleSchema() *config.SchemaConfig {
	return &config.SchemaConfig{
		Id: "people",
		Sheets: []config.SheetConfig{{
			Index:      0,
			SkipErrors: true,
			Blocks: []config.BlockConfig{
				{
					Range: config.CellRange{Ref: "A1"},
					Cells: []config.CellConfig{{Ref: "A1", DataName: "Title"}},
				},
				{
					Range:    config.CellRange{Ref: "A3:B3"},
					DataName: "People",
					Loop:     true,
					Cells: []config.CellConfig{
						{Ref: "A3", DataName: "Name"},
						{Ref: "B3", DataName: "Age"},
					},
				},
			},
		}},
	}
}

func TestBuildDefinition(t *testing.T) {
	def, err := BuildDefinition(peopleSchema())
	require.NoError(t, err)
	require.Len(t, def.Sheets, 1)
	require.Len(t, def.Sheets[0].Blocks, 2)

	loop := def.Sheets[0].Blocks[1]
	assert.True(t, loop.Loop)
	assert.Equal(t, Horizontal, loop.Direction)
	assert.Equal(t, []int{2, 0, 2, 1}, []int{loop.StartRow, loop.StartCol, loop.EndRow, loop.EndCol})
	assert.Equal(t, 1, loop.Step())
	assert.Equal(t, "B3", loop.Cells[1].Ref())
	assert.Equal(t, "People@A3:B3", loop.Name())
}

func TestBuildDefinitionSettingErrors(t *testing.T) {
	tests := []struct {
		name  string
		block config.BlockConfig
	}{
		{"bad range", config.BlockConfig{Range: config.CellRange{Ref: "A0:B"}}},
		{"inverted", config.BlockConfig{Range: config.CellRange{Ref: "B3:A1"}}},
		{"loop without name", config.BlockConfig{Range: config.CellRange{Ref: "A1:B1"}, Loop: true}},
		{"bad cell", config.BlockConfig{Range: config.CellRange{Ref: "A1:B1"}, Cells: []config.CellConfig{{Ref: "??", DataName: "x"}}}},
		{"bad style range", config.BlockConfig{
			Range:  config.CellRange{Ref: "A1:B1"},
			Styles: []config.ConditionalStyleConfig{{Range: config.CellRange{Ref: "nope"}, Condition: "true"}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			schema := &config.SchemaConfig{Id: "x", Sheets: []config.SheetConfig{{Blocks: []config.BlockConfig{tt.block}}}}
			_, err := BuildDefinition(schema)
			var se *SettingError
			assert.True(t, errors.As(err, &se), "got %v", err)
		})
	}
}

func TestAttachChildBindsEnd(t *testing.T) {
	parent := &Block{StartRow: 2, StartCol: 0, EndRow: 5, EndCol: 3}
	child := &Block{StartRow: 3, StartCol: 1, EndRow: 3, EndCol: 1}
	parent.AttachChild(child)

	assert.Same(t, child, parent.Child)
	assert.True(t, child.IsChild)
	assert.Equal(t, 5, child.EndRow)
	assert.Equal(t, 3, child.EndCol)
}

func TestBlockShift(t *testing.T) {
	b := &Block{
		StartRow: 1, StartCol: 1, EndRow: 2, EndCol: 2,
		Cells:  []*Cell{{Row: 1, Col: 1}},
		Styles: []*ConditionalStyle{{StartRow: 1, StartCol: 1, EndRow: 1, EndCol: 2, CellIndex: 4}},
	}
	b.AttachChild(&Block{StartRow: 2, StartCol: 1})
	b.Shift(3, 1)

	assert.Equal(t, 4, b.StartRow)
	assert.Equal(t, 3, b.EndCol)
	assert.Equal(t, 4, b.Cells[0].Row)
	assert.Equal(t, 2, b.Cells[0].Col)
	assert.Equal(t, 5, b.Styles[0].CellIndex)
	assert.Equal(t, 5, b.Child.StartRow)
}

func TestCloneIsolation(t *testing.T) {
	def, err := BuildDefinition(peopleSchema())
	require.NoError(t, err)
	def.Sheets[0].Blocks[1].Cells[0].Choices = []string{"a"}
	def.Sheets[0].Blocks[1].AttachChild(&Block{StartRow: 2, Cells: []*Cell{{Row: 2, DataName: "x"}}})

	clone := def.Clone()
	cb := clone.Sheets[0].Blocks[1]
	cb.Shift(10, 0)
	cb.Cells[0].Choices[0] = "changed"
	cb.Child.Cells[0].DataName = "y"

	orig := def.Sheets[0].Blocks[1]
	assert.Equal(t, 2, orig.StartRow)
	assert.Equal(t, 2, orig.Cells[0].Row)
	assert.Equal(t, "a", orig.Cells[0].Choices[0])
	assert.Equal(t, "x", orig.Child.Cells[0].DataName)
	assert.Equal(t, 2, orig.Child.StartRow)
}
