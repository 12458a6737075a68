package hcl

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/leowmjw/go-epitaxy-timeline/pkg/structure"
)

// MergeHCLFiles combines multiple HCL files into a single HCL file body.
// This mimics how Terraform loads multiple .tf files in a directory, so
// channel blocks can live in one file and role bindings in another.
func MergeHCLFiles(filePaths []string) (*hcl.File, error) {
	var merged bytes.Buffer
	for _, path := range filePaths {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read file %s: %w", path, err)
		}
		merged.Write(content)
		merged.WriteString("\n")
	}

	file, diags := hclparse.NewParser().ParseHCL(merged.Bytes(), "merged.hcl")
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse merged HCL content: %s", diags.Error())
	}
	return file, nil
}

// ParseSettingsFiles parses and merges the given HCL files into run settings
func ParseSettingsFiles(filePaths ...string) (*structure.Settings, error) {
	file, err := MergeHCLFiles(filePaths)
	if err != nil {
		return nil, err
	}
	return decodeSettings(file)
}

// ParseSettingsDirectory parses all .hcl files below a directory, in lexical
// order, into merged run settings.
func ParseSettingsDirectory(dirPath string) (*structure.Settings, error) {
	var hclFiles []string
	err := filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && FormatFromExtension(d.Name()) == ContentTypeHCL {
			hclFiles = append(hclFiles, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory %s: %w", dirPath, err)
	}
	if len(hclFiles) == 0 {
		return nil, fmt.Errorf("no HCL files found in directory %s", dirPath)
	}

	slices.Sort(hclFiles)
	return ParseSettingsFiles(hclFiles...)
}
