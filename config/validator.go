package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/xuri/excelize/v2"
)

// Validator validates the configuration objects.
type Validator struct {
	Provider Provider
	structs  *validator.Validate
}

// NewValidator creates a new Validator.
func NewValidator(provider Provider) *Validator {
	return &Validator{
		Provider: provider,
		structs:  validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (v *Validator) checkTags(s interface{}) error {
	err := v.structs.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fmt.Sprintf("%s failed on '%s'", fe.Namespace(), fe.Tag()))
		}
		return fmt.Errorf("%s", strings.Join(msgs, "; "))
	}
	return err
}

// ValidateSchema validates the SchemaConfig.
func (v *Validator) ValidateSchema(s *SchemaConfig) error {
	if s.Id == "" {
		return fmt.Errorf("schema id is required")
	}
	if len(s.Sheets) == 0 {
		return fmt.Errorf("schema must have at least one sheet")
	}
	if err := v.checkTags(s); err != nil {
		return fmt.Errorf("schema '%s': %w", s.Id, err)
	}

	for i := range s.Sheets {
		if err := v.ValidateSheet(&s.Sheets[i]); err != nil {
			return fmt.Errorf("sheet %d error: %w", i, err)
		}
	}
	return nil
}

// ValidateSheet validates the SheetConfig.
func (v *Validator) ValidateSheet(sheet *SheetConfig) error {
	if sheet.Index < 0 {
		return fmt.Errorf("sheet index must not be negative")
	}
	for i := range sheet.Blocks {
		if err := v.ValidateBlock(&sheet.Blocks[i]); err != nil {
			return fmt.Errorf("block %d error: %w", i, err)
		}
	}
	return nil
}

// ValidateBlock validates the BlockConfig and its child.
func (v *Validator) ValidateBlock(block *BlockConfig) error {
	if block.Range.Ref == "" {
		return fmt.Errorf("block '%s' range is required", block.DataName)
	}
	c1, r1, c2, r2, err := splitRange(block.Range.Ref)
	if err != nil {
		return fmt.Errorf("block '%s': %w", block.DataName, err)
	}
	if r1 > r2 || c1 > c2 {
		return fmt.Errorf("block '%s' range %s is inverted", block.DataName, block.Range.Ref)
	}

	switch block.Direction {
	case DirectionHorizontal, DirectionVertical, "":
		// OK
	default:
		return fmt.Errorf("block '%s' has invalid direction '%s'", block.DataName, block.Direction)
	}

	if block.Loop {
		if block.DataName == "" {
			return fmt.Errorf("loop block %s requires a name", block.Range.Ref)
		}
	} else {
		if block.Break != nil {
			return fmt.Errorf("block '%s' declares a break condition but is not a loop", block.DataName)
		}
		if block.LoopClass != "" {
			return fmt.Errorf("block '%s' declares a loopClass but is not a loop", block.DataName)
		}
	}

	for i := range block.Cells {
		cell := &block.Cells[i]
		if cell.DataName == "" {
			return fmt.Errorf("block '%s' cell %d name is required", block.DataName, i)
		}
		if _, _, err := excelize.CellNameToCoordinates(cell.Ref); err != nil {
			return fmt.Errorf("block '%s' cell %d has invalid ref '%s'", block.DataName, i, cell.Ref)
		}
		for j := range cell.Styles {
			if err := validateStyle(&cell.Styles[j]); err != nil {
				return fmt.Errorf("block '%s' cell %d style %d: %w", block.DataName, i, j, err)
			}
		}
	}
	for i := range block.Styles {
		if err := validateStyle(&block.Styles[i]); err != nil {
			return fmt.Errorf("block '%s' style %d: %w", block.DataName, i, err)
		}
	}

	if block.Child != nil {
		if err := v.ValidateBlock(block.Child); err != nil {
			return fmt.Errorf("block '%s' child error: %w", block.DataName, err)
		}
	}
	return nil
}

func validateStyle(s *ConditionalStyleConfig) error {
	if strings.TrimSpace(s.Condition) == "" {
		return fmt.Errorf("condition is required")
	}
	if s.CellIndex < 0 {
		return fmt.Errorf("cellIndex must not be negative")
	}
	if _, _, _, _, err := splitRange(s.Range.Ref); err != nil {
		return err
	}
	return nil
}

// ValidateDataView validates the DataViewConfig.
func (v *Validator) ValidateDataView(dv *DataViewConfig) error {
	if dv.Name == "" {
		return fmt.Errorf("data view name is required")
	}
	if dv.DataSource == "" {
		return fmt.Errorf("data view '%s' requires a DataSource", dv.Name)
	}
	if v.Provider != nil {
		if _, err := v.Provider.GetDataSourceConfig(dv.DataSource); err != nil {
			return fmt.Errorf("data view '%s' references unknown DataSource '%s'", dv.Name, dv.DataSource)
		}
	}
	for i, label := range dv.Labels {
		if label.Name == "" {
			return fmt.Errorf("data view '%s' label %d name is required", dv.Name, i)
		}
		if label.Column == "" {
			return fmt.Errorf("data view '%s' label %d column is required", dv.Name, i)
		}
	}
	return nil
}

// ValidateDataSource validates the DataSourceConfig.
func (v *Validator) ValidateDataSource(ds *DataSourceConfig) error {
	if ds.Name == "" {
		return fmt.Errorf("data source name is required")
	}
	if ds.Driver == "" {
		return fmt.Errorf("data source '%s' driver is required", ds.Name)
	}
	switch ds.Driver {
	case "mysql", "postgres":
		if ds.DSN == "" {
			return fmt.Errorf("data source '%s' DSN is required", ds.Name)
		}
	case "csv", "dynamodb":
		// DSN optional: csv falls back to the -data directory, dynamodb to the AWS default chain.
	default:
		return fmt.Errorf("data source '%s' has unsupported driver '%s'", ds.Name, ds.Driver)
	}
	return nil
}

// splitRange parses "A1:B2" or "A1" into one-based column/row bounds.
func splitRange(ref string) (int, int, int, int, error) {
	if ref == "" {
		return 0, 0, 0, 0, fmt.Errorf("range is required")
	}
	parts := strings.Split(ref, ":")
	if len(parts) > 2 {
		return 0, 0, 0, 0, fmt.Errorf("invalid range: %s", ref)
	}
	c1, r1, err := excelize.CellNameToCoordinates(parts[0])
	if err != nil {
		return 0, 0, 0, 0, fmt.Errorf("invalid range: %s", ref)
	}
	if len(parts) == 1 {
		return c1, r1, c1, r1, nil
	}
	c2, r2, err := excelize.CellNameToCoordinates(parts[1])
	if err != nil {
		return 0, 0, 0, 0, fmt.Errorf("invalid range: %s", ref)
	}
	return c1, r1, c2, r2, nil
}
