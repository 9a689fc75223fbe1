package expertise

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMeta() Meta {
	return Meta{
		Classification: ClassificationFoundational,
		RecordedAt:     "2024-01-01T00:00:00.000Z",
	}
}

func TestRecordValidate(t *testing.T) {
	tests := []struct {
		name      string
		record    Record
		wantField string
	}{
		{
			name:   "valid convention",
			record: &Convention{Content: "Use snake_case", Meta: testMeta()},
		},
		{
			name:      "convention without content",
			record:    &Convention{Meta: testMeta()},
			wantField: "content",
		},
		{
			name:      "pattern without description",
			record:    &Pattern{Name: "Repo", Meta: testMeta()},
			wantField: "description",
		},
		{
			name:      "failure without resolution",
			record:    &Failure{Description: "flaky test", Meta: testMeta()},
			wantField: "resolution",
		},
		{
			name:   "valid decision",
			record: &Decision{Title: "Use YAML", Rationale: "readable", Meta: testMeta()},
		},
		{
			name:      "missing classification",
			record:    &Guide{Name: "Release", Description: "steps", Meta: Meta{RecordedAt: "2024-01-01T00:00:00Z"}},
			wantField: "classification",
		},
		{
			name:      "unknown classification",
			record:    &Guide{Name: "Release", Description: "steps", Meta: Meta{Classification: "forever", RecordedAt: "2024-01-01T00:00:00Z"}},
			wantField: "classification",
		},
		{
			name:      "missing recorded_at",
			record:    &Reference{Name: "docs", Description: "api docs", Meta: Meta{Classification: ClassificationTactical}},
			wantField: "recorded_at",
		},
		{
			name: "invalid outcome status",
			record: &Convention{Content: "x", Meta: Meta{
				Classification: ClassificationTactical,
				RecordedAt:     "2024-01-01T00:00:00Z",
				Outcomes:       []Outcome{{Status: "meh"}},
			}},
			wantField: "outcomes[0].status",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.record.Validate()
			if tt.wantField == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.wantField, ve.Field)
			assert.True(t, IsValidationError(err))
		})
	}
}

func TestIsNamed(t *testing.T) {
	assert.True(t, IsNamed(TypePattern))
	assert.True(t, IsNamed(TypeDecision))
	assert.True(t, IsNamed(TypeReference))
	assert.True(t, IsNamed(TypeGuide))
	assert.False(t, IsNamed(TypeConvention))
	assert.False(t, IsNamed(TypeFailure))
}

func TestEnumValidate(t *testing.T) {
	for _, typ := range Types {
		assert.NoError(t, typ.Validate())
	}
	assert.Error(t, Type("note").Validate())

	for _, c := range Classifications {
		assert.NoError(t, c.Validate())
	}
	assert.Error(t, Classification("permanent").Validate())

	assert.NoError(t, OutcomePartial.Validate())
	assert.Error(t, OutcomeStatus("skipped").Validate())
}

func TestEncode_TypeDiscriminator(t *testing.T) {
	rec := &Pattern{
		Name:        "Repository",
		Description: "Wrap storage access",
		FileList:    []string{"internal/store.go"},
		Meta:        testMeta(),
	}

	data, err := Encode(rec)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.Equal(t, "pattern", fields["type"])
	assert.Equal(t, "Repository", fields["name"])
	assert.Equal(t, []any{"internal/store.go"}, fields["files"])
	assert.NotContains(t, fields, "id", "empty optional fields are omitted")
	assert.NotContains(t, fields, "tags")
	assert.NotContains(t, fields, "evidence")
	assert.Contains(t, string(data), `{"type":"pattern",`)
}

func TestDecode(t *testing.T) {
	t.Run("decodes each variant", func(t *testing.T) {
		lines := map[Type]string{
			TypeConvention: `{"type":"convention","content":"c","classification":"tactical","recorded_at":"2024-01-01T00:00:00Z"}`,
			TypePattern:    `{"type":"pattern","name":"n","description":"d","classification":"tactical","recorded_at":"2024-01-01T00:00:00Z"}`,
			TypeFailure:    `{"type":"failure","description":"d","resolution":"r","classification":"tactical","recorded_at":"2024-01-01T00:00:00Z"}`,
			TypeDecision:   `{"type":"decision","title":"t","rationale":"r","date":"2024-01-01","classification":"tactical","recorded_at":"2024-01-01T00:00:00Z"}`,
			TypeReference:  `{"type":"reference","name":"n","description":"d","classification":"tactical","recorded_at":"2024-01-01T00:00:00Z"}`,
			TypeGuide:      `{"type":"guide","name":"n","description":"d","classification":"tactical","recorded_at":"2024-01-01T00:00:00Z"}`,
		}
		for typ, line := range lines {
			rec, err := Decode([]byte(line))
			require.NoError(t, err, typ)
			assert.Equal(t, typ, rec.Type())
		}
	})

	t.Run("rejects unknown type", func(t *testing.T) {
		_, err := Decode([]byte(`{"type":"note","content":"x","classification":"tactical","recorded_at":"x"}`))
		require.Error(t, err)
		assert.True(t, IsValidationError(err))
	})

	t.Run("rejects missing type", func(t *testing.T) {
		_, err := Decode([]byte(`{"content":"x","classification":"tactical","recorded_at":"x"}`))
		require.Error(t, err)
	})

	t.Run("rejects missing required field", func(t *testing.T) {
		_, err := Decode([]byte(`{"type":"failure","description":"d","classification":"tactical","recorded_at":"x"}`))
		require.Error(t, err)
	})

	t.Run("rejects malformed json", func(t *testing.T) {
		_, err := Decode([]byte(`{"type":"convention",`))
		require.Error(t, err)
	})

	t.Run("ignores unknown fields", func(t *testing.T) {
		rec, err := Decode([]byte(`{"type":"guide","name":"n","description":"d","classification":"tactical","recorded_at":"x","future":true}`))
		require.NoError(t, err)
		assert.Equal(t, "n", rec.Key())
	})
}

func TestDecodeLine_LegacyOutcome(t *testing.T) {
	legacy := `{"type":"convention","content":"c","classification":"tactical","recorded_at":"2024-01-01T00:00:00Z","outcome":{"status":"success","duration":12.5,"agent":"bot"}}`
	current := `{"type":"convention","content":"c","classification":"tactical","recorded_at":"2024-01-01T00:00:00Z","outcomes":[{"status":"success","duration":12.5,"agent":"bot"}]}`

	fromLegacy, err := DecodeLine([]byte(legacy))
	require.NoError(t, err)
	fromCurrent, err := DecodeLine([]byte(current))
	require.NoError(t, err)

	require.Len(t, fromLegacy.Base().Outcomes, 1)
	assert.Equal(t, fromCurrent, fromLegacy)
	assert.Equal(t, OutcomeSuccess, fromLegacy.Base().Outcomes[0].Status)
	require.NotNil(t, fromLegacy.Base().Outcomes[0].Duration)
	assert.Equal(t, 12.5, *fromLegacy.Base().Outcomes[0].Duration)

	t.Run("outcomes array wins over legacy field", func(t *testing.T) {
		both := `{"type":"convention","content":"c","classification":"tactical","recorded_at":"x","outcome":{"status":"failure"},"outcomes":[{"status":"partial"}]}`
		rec, err := DecodeLine([]byte(both))
		require.NoError(t, err)
		require.Len(t, rec.Base().Outcomes, 1)
		assert.Equal(t, OutcomePartial, rec.Base().Outcomes[0].Status)
	})
}
