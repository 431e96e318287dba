package core

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Generator runs the write path end to end: fetch the data views, bind them
// onto the template and save the result.
type Generator struct {
	Context    *GenerationContext
	Definition *Definition
	// Views names the data views placed in the root object.
	Views []string
}

func NewGenerator(gc *GenerationContext, def *Definition, views []string) *Generator {
	return &Generator{Context: gc, Definition: def, Views: views}
}

func replacePlaceholders(input string, params map[string]string) string {
	output := input
	for k, v := range params {
		output = strings.ReplaceAll(output, fmt.Sprintf("${%s}", k), v)
	}
	return output
}

// OutputPath resolves "${param}" placeholders in output. A path without an
// extension is a directory; the file is named after the definition id.
func (g *Generator) OutputPath(output string) string {
	out := replacePlaceholders(output, g.Context.Parameters)
	if filepath.Ext(out) == "" {
		out = filepath.Join(out, g.Definition.ID+".xlsx")
	}
	return out
}

// Generate writes the bound workbook and returns its path. Cell-level
// problems still produce a file; the returned error lists them.
func (g *Generator) Generate(ctx context.Context, templatePath, output string) (path string, err error) {
	outputPath := g.OutputPath(output)

	f, err := OpenExcelFile(templatePath)
	if err != nil {
		return "", fmt.Errorf("failed to open template: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			if err == nil {
				err = fmt.Errorf("failed to close template file: %w", closeErr)
			} else {
				err = fmt.Errorf("%w; (cleanup error: %v)", err, closeErr)
			}
		}
	}()

	root, err := g.Context.BuildDataGraph(ctx, g.Views)
	if err != nil {
		return "", err
	}

	w := NewWriter(g.Definition)
	w.Context = g.Context.ParameterContext()
	status := w.Write(f, root)
	if !status.OK() && status.Code != StatusDataCollectionError {
		return "", status.Err()
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := f.SaveAs(outputPath); err != nil {
		return "", fmt.Errorf("failed to save output: %w", err)
	}
	return outputPath, status.Err()
}
