package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlexString_UnmarshalVariants(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"string", `"3"`, "3"},
		{"number", `7`, "7"},
		{"float", `2.5`, "2.5"},
		{"null", `null`, ""},
		{"string list", `["1", "4"]`, "1,4"},
		{"number list", `[1, 4]`, "1,4"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var f FlexString
			require.NoError(t, json.Unmarshal([]byte(tc.in), &f))
			assert.Equal(t, tc.want, string(f))
		})
	}
}

func TestFlexString_RejectsObjects(t *testing.T) {
	var f FlexString
	assert.Error(t, json.Unmarshal([]byte(`{"page": 1}`), &f))
}

func TestFinding_DecodeWithNumericPage(t *testing.T) {
	raw := `{"section_title": "Fees", "page_number": 3, "observations": "x", "rule_citation": "y", "recommendations": "z", "category": "Formatting"}`

	var f Finding
	require.NoError(t, json.Unmarshal([]byte(raw), &f))
	assert.Equal(t, "3", string(f.PageNumber))
}
