package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

/*
readInputFile decodes JSON (".json" extension) or YAML (any other extension)
file into "v".
*/
func readInputFile(filename string, v any) error {
	if filename == "" {
		return errors.New("input file name is empty")
	}
	f, err := os.Open(filepath.Clean(filename))
	if err != nil {
		return fmt.Errorf("opening input file: %w", err)
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(filename), ".json") {
		err = json.NewDecoder(f).Decode(v)
	} else {
		err = yaml.NewDecoder(f).Decode(v)
	}
	switch {
	case errors.Is(err, io.EOF):
		return fmt.Errorf("input file %s is empty", filename)
	case err != nil:
		return fmt.Errorf("decoding input file %s: %w", filename, err)
	}
	return nil
}

// writeJSON prints "v" as indented JSON to the command's output.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	return nil
}
