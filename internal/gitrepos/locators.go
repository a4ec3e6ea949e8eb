package gitrepos

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadLocators reads the list of repository locators to index.
// The file is a JSON array of strings, or a YAML sequence when the file has a
// .yaml or .yml extension. Blank entries are dropped.
func LoadLocators(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read index file: %w", err)
	}

	var locators []string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &locators); err != nil {
			return nil, fmt.Errorf("failed to parse index file %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, &locators); err != nil {
			return nil, fmt.Errorf("failed to parse index file %s: %w", path, err)
		}
	}

	result := make([]string, 0, len(locators))
	for _, loc := range locators {
		if loc = strings.TrimSpace(loc); loc != "" {
			result = append(result, loc)
		}
	}
	return result, nil
}
