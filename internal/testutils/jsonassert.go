// Package testutils carries shared test helpers for the wire-protocol and
// client suites.
package testutils

import (
	"encoding/json"
	"testing"

	"github.com/yudai/gojsondiff"
	"github.com/yudai/gojsondiff/formatter"
)

// MustJSON marshals v or fails the test.
func MustJSON(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal %T: %v", v, err)
	}
	return string(data)
}

// AssertJSONEq compares two JSON documents structurally and reports a
// readable field-level diff on mismatch. Unlike a byte comparison it is
// insensitive to key order and whitespace, which keeps wire-message tests
// stable across encoder changes.
func AssertJSONEq(t *testing.T, expected, actual string) bool {
	t.Helper()

	var expectedDoc map[string]any
	if err := json.Unmarshal([]byte(expected), &expectedDoc); err != nil {
		t.Fatalf("expected is not valid JSON: %v\n%s", err, expected)
	}

	differ := gojsondiff.New()
	diff, err := differ.Compare([]byte(expected), []byte(actual))
	if err != nil {
		t.Errorf("actual is not valid JSON: %v\n%s", err, actual)
		return false
	}
	if !diff.Modified() {
		return true
	}

	report, err := formatter.NewAsciiFormatter(expectedDoc, formatter.AsciiFormatterConfig{}).Format(diff)
	if err != nil {
		report = "(diff formatting failed: " + err.Error() + ")"
	}
	t.Errorf("JSON mismatch (-expected +actual):\n%s", report)
	return false
}
