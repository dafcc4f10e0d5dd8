package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

func formatFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: text, json or yaml",
		Value:   "text",
		Validator: func(v string) error {
			switch v {
			case "text", "json", "yaml":
				return nil
			}
			return fmt.Errorf("unsupported format %q", v)
		},
	}
}

// writeStructured encodes v as JSON or YAML. It reports false for the text format.
func writeStructured(w io.Writer, format string, v any) (bool, error) {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return true, enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return true, enc.Encode(v)
	}
	return false, nil
}

// renderMarkdown prints md through glamour when stdout is a terminal and as
// plain markdown otherwise.
func renderMarkdown(w io.Writer, md string) error {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		_, err := io.WriteString(w, md)
		return err
	}

	width := 100
	if tw, _, err := term.GetSize(fd); err == nil && tw > 20 {
		width = min(tw, 120)
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return fmt.Errorf("markdown renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return fmt.Errorf("render markdown: %w", err)
	}
	_, err = io.WriteString(w, out)
	return err
}
