package config

import "gopkg.in/yaml.v3"

type Direction string

const (
	DirectionHorizontal Direction = "horizontal" // repeats row bands downwards
	DirectionVertical   Direction = "vertical"   // repeats column bands to the right
)

// CellRange： cell range config
type CellRange struct {
	Ref string `json:"ref" yaml:"ref"` // e.g. "A1:G33" or "A1"
}

// UnmarshalYAML lets a range be written either as a plain scalar ("A1:B3")
// or as {ref: "A1:B3"}.
func (r *CellRange) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		r.Ref = value.Value
		return nil
	}
	type plain CellRange
	var p plain
	if err := value.Decode(&p); err != nil {
		return err
	}
	*r = CellRange(p)
	return nil
}

// DataSourceConfig：datasource config
type DataSourceConfig struct {
	Name   string `json:"name"   yaml:"name"   validate:"required"`
	Driver string `json:"driver" yaml:"driver" validate:"required"` // "mysql", "postgres", "csv", "dynamodb"
	DSN    string `json:"dsn"    yaml:"dsn"`
}

// LabelConfig maps a fetched column onto the data name used by the schema.
type LabelConfig struct {
	Name   string `json:"name"   yaml:"name"`   // label name (key in the data graph)
	Column string `json:"column" yaml:"column"` // actual column name in the source
	Type   string `json:"type,omitempty" yaml:"type,omitempty"`
}

// DataViewConfig：a named, relabeled slice of a data source.
type DataViewConfig struct {
	Name       string        `json:"name"       yaml:"name"`
	DataSource string        `json:"dataSource" yaml:"dataSource"`
	Table      string        `json:"table,omitempty" yaml:"table,omitempty"`
	Single     bool          `json:"single,omitempty" yaml:"single,omitempty"` // bind the first row instead of a list
	Labels     []LabelConfig `json:"labels"     yaml:"labels"`
}

// ConditionalStyleConfig：alternate style for a range when Condition holds.
// The alternate style is taken from the template cell on the first row of
// Range at column CellIndex (zero-based).
type ConditionalStyleConfig struct {
	Range     CellRange `json:"range"     yaml:"range"`
	Condition string    `json:"condition" yaml:"condition" validate:"required"`
	CellIndex int       `json:"cellIndex" yaml:"cellIndex" validate:"gte=0"`
}

// BreakConfig：loop termination cell check.
type BreakConfig struct {
	RowOffset int    `json:"rowOffset" yaml:"rowOffset"`
	ColOffset int    `json:"colOffset" yaml:"colOffset"`
	Flag      string `json:"flag,omitempty" yaml:"flag,omitempty"`
}

// CellConfig：one bound cell
type CellConfig struct {
	Ref       string                   `json:"ref"       yaml:"ref"  validate:"required"`
	DataName  string                   `json:"name"      yaml:"name" validate:"required"`
	Type      string                   `json:"type,omitempty" yaml:"type,omitempty"`
	Mandatory bool                     `json:"mandatory,omitempty" yaml:"mandatory,omitempty"`
	Pattern   string                   `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	Choices   []string                 `json:"choices,omitempty" yaml:"choices,omitempty"`
	Styles    []ConditionalStyleConfig `json:"styles,omitempty" yaml:"styles,omitempty" validate:"dive"`
}

// BlockConfig：config for a block
type BlockConfig struct {
	Range     CellRange                `json:"range"     yaml:"range"` // 块整体范围
	DataName  string                   `json:"name,omitempty" yaml:"name,omitempty"`
	Loop      bool                     `json:"loop,omitempty" yaml:"loop,omitempty"`
	Direction Direction                `json:"direction,omitempty" yaml:"direction,omitempty" validate:"omitempty,oneof=horizontal vertical"`
	LoopClass string                   `json:"loopClass,omitempty" yaml:"loopClass,omitempty"`
	Cells     []CellConfig             `json:"cells,omitempty" yaml:"cells,omitempty" validate:"dive"`
	Styles    []ConditionalStyleConfig `json:"styles,omitempty" yaml:"styles,omitempty" validate:"dive"`
	Break     *BreakConfig             `json:"break,omitempty" yaml:"break,omitempty"`

	// Nested
	Child *BlockConfig `json:"child,omitempty" yaml:"child,omitempty"`
}

// SheetConfig：sheet range config. Name wins over Index when both are set.
type SheetConfig struct {
	Index      int           `json:"index"      yaml:"index" validate:"gte=0"`
	Name       string        `json:"name,omitempty" yaml:"name,omitempty"`
	SkipErrors bool          `json:"skipErrors" yaml:"skipErrors"`
	Blocks     []BlockConfig `json:"blocks"     yaml:"blocks" validate:"dive"`
}

// SchemaConfig：block layout of one workbook
type SchemaConfig struct {
	Id     string        `json:"id"     yaml:"id"     validate:"required"`
	Name   string        `json:"name"   yaml:"name"`
	Sheets []SheetConfig `json:"sheets" yaml:"sheets" validate:"required,min=1,dive"`
}
