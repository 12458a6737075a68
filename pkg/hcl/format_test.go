package hcl

import (
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/leowmjw/go-epitaxy-timeline/pkg/structure"
)

func TestHCLtoJSONEquivalence(t *testing.T) {
	testCases := []struct {
		name     string
		hclPath  string
		jsonPath string
	}{
		{
			name:     "Ammonia Run",
			hclPath:  "testdata/run.hcl",
			jsonPath: "testdata/run.json",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			hclContent, err := os.ReadFile(tc.hclPath)
			require.NoError(t, err)
			hclSettings, err := ParseSettings(string(hclContent))
			require.NoError(t, err)

			jsonContent, err := os.ReadFile(tc.jsonPath)
			require.NoError(t, err)
			var jsonSettings structure.Settings
			require.NoError(t, json.Unmarshal(jsonContent, &jsonSettings))
			require.NoError(t, jsonSettings.Validate())

			AssertSettingsEqual(t, &jsonSettings, hclSettings)
		})
	}
}
