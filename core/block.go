package core

import (
	"fmt"

	"gridbind/config"
)

// Direction is the axis along which a loop block repeats.
type Direction int

const (
	// Horizontal bands repeat downwards, one row band per element.
	Horizontal Direction = iota
	// Vertical bands repeat to the right, one column band per element.
	Vertical
)

func (d Direction) String() string {
	if d == Vertical {
		return "vertical"
	}
	return "horizontal"
}

// ConditionalStyle selects an alternate style for a range while writing.
// The alternate style is read from the template cell (StartRow, CellIndex).
type ConditionalStyle struct {
	StartRow, StartCol int
	EndRow, EndCol     int
	Condition          string
	CellIndex          int
}

func (s *ConditionalStyle) Clone() *ConditionalStyle {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

// BreakCondition stops a loop once the checked cell is blank or equals Flag.
// The checked cell sits at (RowOffset, ColOffset) from the last row (column)
// the loop consumed: (1, 0) checks the first cell of the next iteration, while
// (0, 0) checks the iteration just read and lets one blank iteration through.
type BreakCondition struct {
	RowOffset int
	ColOffset int
	Flag      string
}

func (b *BreakCondition) Clone() *BreakCondition {
	if b == nil {
		return nil
	}
	c := *b
	return &c
}

// Cell is one bound field inside a block. Row and Col are absolute template
// coordinates.
type Cell struct {
	Row, Col  int
	DataName  string
	Type      string
	Mandatory bool
	Pattern   string
	Choices   []string
	Styles    []*ConditionalStyle
}

func (c *Cell) Ref() string { return CellRef(c.Row, c.Col) }

func (c *Cell) Clone() *Cell {
	if c == nil {
		return nil
	}
	out := *c
	if c.Choices != nil {
		out.Choices = append([]string(nil), c.Choices...)
	}
	out.Styles = cloneStyles(c.Styles)
	return &out
}

// Block is a rectangular, possibly repeating, region of a sheet.
type Block struct {
	StartRow, StartCol int
	EndRow, EndCol     int
	DataName           string
	Loop               bool
	Direction          Direction
	LoopClass          string
	Cells              []*Cell
	Styles             []*ConditionalStyle
	Break              *BreakCondition
	Child              *Block
	IsChild            bool
}

// Name identifies the block in logs and errors.
func (b *Block) Name() string {
	ref := RangeRef(b.StartRow, b.StartCol, b.EndRow, b.EndCol)
	if b.DataName == "" {
		return ref
	}
	return b.DataName + "@" + ref
}

// Step is the size of one loop iteration along the loop direction.
func (b *Block) Step() int {
	if b.Direction == Vertical {
		return b.EndCol - b.StartCol + 1
	}
	return b.EndRow - b.StartRow + 1
}

// Height and Width are the template dimensions.
func (b *Block) Height() int { return b.EndRow - b.StartRow + 1 }
func (b *Block) Width() int  { return b.EndCol - b.StartCol + 1 }

// AttachChild nests child under b. The child's end coordinates are bound to
// the parent's.
func (b *Block) AttachChild(child *Block) {
	child.EndRow = b.EndRow
	child.EndCol = b.EndCol
	child.IsChild = true
	b.Child = child
}

// Shift moves the block, its cells, styles and child by the given offsets.
func (b *Block) Shift(rows, cols int) {
	b.StartRow += rows
	b.EndRow += rows
	b.StartCol += cols
	b.EndCol += cols
	for _, c := range b.Cells {
		c.Row += rows
		c.Col += cols
		shiftStyles(c.Styles, rows, cols)
	}
	shiftStyles(b.Styles, rows, cols)
	if b.Child != nil {
		b.Child.Shift(rows, cols)
	}
}

func shiftStyles(styles []*ConditionalStyle, rows, cols int) {
	for _, s := range styles {
		s.StartRow += rows
		s.EndRow += rows
		s.StartCol += cols
		s.EndCol += cols
		s.CellIndex += cols
	}
}

// Clone deep-copies the block so per-invocation mutation never reaches the
// shared template.
func (b *Block) Clone() *Block {
	if b == nil {
		return nil
	}
	out := *b
	out.Cells = make([]*Cell, len(b.Cells))
	for i, c := range b.Cells {
		out.Cells[i] = c.Clone()
	}
	out.Styles = cloneStyles(b.Styles)
	out.Break = b.Break.Clone()
	out.Child = b.Child.Clone()
	return &out
}

func cloneStyles(in []*ConditionalStyle) []*ConditionalStyle {
	if in == nil {
		return nil
	}
	out := make([]*ConditionalStyle, len(in))
	for i, s := range in {
		out[i] = s.Clone()
	}
	return out
}

// Sheet is the block layout of one worksheet.
type Sheet struct {
	Index      int
	Name       string
	SkipErrors bool
	Blocks     []*Block
}

func (s *Sheet) Clone() *Sheet {
	out := *s
	out.Blocks = make([]*Block, len(s.Blocks))
	for i, b := range s.Blocks {
		out.Blocks[i] = b.Clone()
	}
	return &out
}

// Definition is the parsed block layout of a whole workbook.
type Definition struct {
	ID     string
	Sheets []*Sheet
}

func (d *Definition) Clone() *Definition {
	out := &Definition{ID: d.ID, Sheets: make([]*Sheet, len(d.Sheets))}
	for i, s := range d.Sheets {
		out.Sheets[i] = s.Clone()
	}
	return out
}

// BuildDefinition converts a declarative schema into the block model.
func BuildDefinition(s *config.SchemaConfig) (*Definition, error) {
	def := &Definition{ID: s.Id}
	for i := range s.Sheets {
		sc := &s.Sheets[i]
		sheet := &Sheet{Index: sc.Index, Name: sc.Name, SkipErrors: sc.SkipErrors}
		for j := range sc.Blocks {
			b, err := buildBlock(&sc.Blocks[j])
			if err != nil {
				return nil, fmt.Errorf("sheet %d block %d: %w", i, j, err)
			}
			sheet.Blocks = append(sheet.Blocks, b)
		}
		def.Sheets = append(def.Sheets, sheet)
	}
	return def, nil
}

func buildBlock(bc *config.BlockConfig) (*Block, error) {
	r1, c1, r2, c2, err := ParseRange(bc.Range.Ref)
	if err != nil {
		return nil, &SettingError{Block: bc.DataName, Msg: "invalid range", Err: err}
	}
	if r1 > r2 || c1 > c2 {
		return nil, &SettingError{Block: bc.DataName, Msg: fmt.Sprintf("range %s is inverted", bc.Range.Ref)}
	}
	if bc.Loop && bc.DataName == "" {
		return nil, &SettingError{Block: bc.Range.Ref, Msg: "loop block requires a data name"}
	}

	b := &Block{
		StartRow:  r1,
		StartCol:  c1,
		EndRow:    r2,
		EndCol:    c2,
		DataName:  bc.DataName,
		Loop:      bc.Loop,
		LoopClass: bc.LoopClass,
	}
	if bc.Direction == config.DirectionVertical {
		b.Direction = Vertical
	}
	if bc.Break != nil {
		b.Break = &BreakCondition{RowOffset: bc.Break.RowOffset, ColOffset: bc.Break.ColOffset, Flag: bc.Break.Flag}
	}

	for i := range bc.Cells {
		cc := &bc.Cells[i]
		row, col, err := CellPosition(cc.Ref)
		if err != nil {
			return nil, &SettingError{Block: bc.DataName, Msg: fmt.Sprintf("cell %d", i), Err: err}
		}
		styles, err := buildStyles(cc.Styles)
		if err != nil {
			return nil, &SettingError{Block: bc.DataName, Msg: fmt.Sprintf("cell %s style", cc.Ref), Err: err}
		}
		b.Cells = append(b.Cells, &Cell{
			Row:       row,
			Col:       col,
			DataName:  cc.DataName,
			Type:      cc.Type,
			Mandatory: cc.Mandatory,
			Pattern:   cc.Pattern,
			Choices:   append([]string(nil), cc.Choices...),
			Styles:    styles,
		})
	}

	b.Styles, err = buildStyles(bc.Styles)
	if err != nil {
		return nil, &SettingError{Block: bc.DataName, Msg: "style", Err: err}
	}

	if bc.Child != nil {
		child, err := buildBlock(bc.Child)
		if err != nil {
			return nil, err
		}
		b.AttachChild(child)
	}
	return b, nil
}

func buildStyles(in []config.ConditionalStyleConfig) ([]*ConditionalStyle, error) {
	var out []*ConditionalStyle
	for _, sc := range in {
		r1, c1, r2, c2, err := ParseRange(sc.Range.Ref)
		if err != nil {
			return nil, err
		}
		out = append(out, &ConditionalStyle{
			StartRow:  r1,
			StartCol:  c1,
			EndRow:    r2,
			EndCol:    c2,
			Condition: sc.Condition,
			CellIndex: sc.CellIndex,
		})
	}
	return out, nil
}
