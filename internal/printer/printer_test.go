package printer

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capture(t *testing.T) (*bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	var out, errOut bytes.Buffer
	restore := SetOutput(&out, &errOut)
	SetColor(false)
	t.Cleanup(restore)
	return &out, &errOut
}

func TestError(t *testing.T) {
	t.Run("returns error with title", func(t *testing.T) {
		_, errOut := capture(t)
		err := Error("Test Error", "This is a test error", []string{})
		require.Error(t, err)
		require.Equal(t, "Test Error", err.Error())
		assert.Contains(t, errOut.String(), "This is a test error")
	})

	t.Run("single suggestion is printed bare", func(t *testing.T) {
		_, errOut := capture(t)
		err := Error("Test Error", "Explanation", []string{"Try this fix"})
		require.Equal(t, "Test Error", err.Error())
		assert.Contains(t, errOut.String(), "\nTry this fix\n")
		assert.NotContains(t, errOut.String(), "Either:")
	})

	t.Run("multiple suggestions are numbered", func(t *testing.T) {
		_, errOut := capture(t)
		err := Error("Test Error", "Explanation", []string{
			"First option",
			"Second option",
		})
		require.Equal(t, "Test Error", err.Error())
		assert.Contains(t, errOut.String(), "Either:\n  1. First option\n  2. Second option\n")
	})
}

func TestErrorWithContext(t *testing.T) {
	_, errOut := capture(t)
	context := map[string]string{"Domain": "cli"}
	err := ErrorWithContext("Test Error", "Explanation", context, []string{"Fix it"})
	require.Error(t, err)
	require.Equal(t, "Test Error", err.Error())
	assert.Contains(t, errOut.String(), "  Domain: cli\n")
}

func TestMessages(t *testing.T) {
	out, _ := capture(t)
	Success("Recorded %s\n", "mx-abc123")
	Warning("careful\n")
	Printf("%d records\n", 3)

	assert.Contains(t, out.String(), "✓ Recorded mx-abc123\n")
	assert.Contains(t, out.String(), "⚠️  careful\n")
	assert.Contains(t, out.String(), "3 records\n")
}

func TestJSONEnvelopes(t *testing.T) {
	t.Run("success merges fields", func(t *testing.T) {
		out, _ := capture(t)
		require.NoError(t, JSONSuccess("record", map[string]any{"id": "mx-abc123"}))

		var got map[string]any
		require.NoError(t, json.Unmarshal(out.Bytes(), &got))
		assert.Equal(t, true, got["success"])
		assert.Equal(t, "record", got["command"])
		assert.Equal(t, "mx-abc123", got["id"])
	})

	t.Run("error is reported and returned", func(t *testing.T) {
		out, _ := capture(t)
		cause := errors.New("domain not found")
		err := JSONError("query", cause)

		var reported *ReportedError
		require.ErrorAs(t, err, &reported)
		assert.ErrorIs(t, err, cause)

		var got map[string]any
		require.NoError(t, json.Unmarshal(out.Bytes(), &got))
		assert.Equal(t, false, got["success"])
		assert.Equal(t, "domain not found", got["error"])
	})
}
