package tempest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractSlots(t *testing.T) {
	t.Run("assigns values by position", func(t *testing.T) {
		var epoch int64
		var speed float64
		var direction int
		schema := []slot{
			{name: "epoch", kind: kindEpoch, set: func(v float64) { epoch = int64(v) }},
			{name: "wind_speed", kind: kindFloat, set: func(v float64) { speed = v }},
			{name: "wind_direction", kind: kindInt, set: func(v float64) { direction = int(v) }},
		}

		derr := extractSlots([]any{float64(1493322445), 2.3, float64(128)}, schema)

		require.Nil(t, derr)
		assert.Equal(t, int64(1493322445), epoch)
		assert.Equal(t, 2.3, speed)
		assert.Equal(t, 128, direction)
	})

	t.Run("array shorter than required prefix", func(t *testing.T) {
		schema := []slot{
			{name: "epoch", kind: kindEpoch, set: func(float64) {}},
			{name: "wind_speed", kind: kindFloat, set: func(float64) {}},
			{name: "wind_direction", kind: kindInt, set: func(float64) {}},
		}

		derr := extractSlots([]any{float64(1493322445), 2.3}, schema)

		require.NotNil(t, derr)
		assert.Equal(t, KindArityTooSmall, derr.Kind)
		assert.Equal(t, 3, derr.Minimum)
		assert.Equal(t, 2, derr.Length)
	})

	t.Run("missing optional suffix leaves fields unset", func(t *testing.T) {
		var battery float64
		var interval *int
		schema := []slot{
			{name: "battery", kind: kindFloat, set: func(v float64) { battery = v }},
			{name: "report_interval", kind: kindInt, optional: true, set: func(v float64) { n := int(v); interval = &n }},
		}

		derr := extractSlots([]any{3.46}, schema)

		require.Nil(t, derr)
		assert.Equal(t, 3.46, battery)
		assert.Nil(t, interval)
	})

	t.Run("present optional suffix is assigned", func(t *testing.T) {
		var interval *int
		schema := []slot{
			{name: "battery", kind: kindFloat, set: func(float64) {}},
			{name: "report_interval", kind: kindInt, optional: true, set: func(v float64) { n := int(v); interval = &n }},
		}

		derr := extractSlots([]any{3.46, float64(1)}, schema)

		require.Nil(t, derr)
		require.NotNil(t, interval)
		assert.Equal(t, 1, *interval)
	})

	t.Run("empty array with all-optional schema succeeds", func(t *testing.T) {
		schema := []slot{
			{name: "a", kind: kindFloat, optional: true, set: func(float64) { t.Fatal("set called") }},
			{name: "b", kind: kindFloat, optional: true, set: func(float64) { t.Fatal("set called") }},
		}

		derr := extractSlots([]any{}, schema)

		assert.Nil(t, derr)
	})

	t.Run("extra trailing elements are ignored", func(t *testing.T) {
		var epoch int64
		schema := []slot{
			{name: "epoch", kind: kindEpoch, set: func(v float64) { epoch = int64(v) }},
		}

		derr := extractSlots([]any{float64(1493322445), float64(99), "future-field"}, schema)

		require.Nil(t, derr)
		assert.Equal(t, int64(1493322445), epoch)
	})

	t.Run("null on nullable slot leaves field unset", func(t *testing.T) {
		var rainDay *int
		schema := []slot{
			{name: "rain_day", kind: kindInt, nullable: true, set: func(v float64) { n := int(v); rainDay = &n }},
		}

		derr := extractSlots([]any{nil}, schema)

		require.Nil(t, derr)
		assert.Nil(t, rainDay)
	})

	t.Run("null on required slot fails", func(t *testing.T) {
		schema := []slot{
			{name: "epoch", kind: kindEpoch, set: func(float64) {}},
		}

		derr := extractSlots([]any{nil}, schema)

		require.NotNil(t, derr)
		assert.Equal(t, KindTypeMismatch, derr.Kind)
		assert.Equal(t, "epoch", derr.Field)
		assert.Equal(t, "null", derr.Actual)
	})

	t.Run("string where number expected", func(t *testing.T) {
		schema := []slot{
			{name: "wind_speed", kind: kindFloat, set: func(float64) {}},
		}

		derr := extractSlots([]any{"2.3"}, schema)

		require.NotNil(t, derr)
		assert.Equal(t, KindTypeMismatch, derr.Kind)
		assert.Equal(t, "wind_speed", derr.Field)
		assert.Equal(t, "number", derr.Expected)
		assert.Equal(t, "string", derr.Actual)
	})

	t.Run("fractional value on integer slot", func(t *testing.T) {
		schema := []slot{
			{name: "wind_direction", kind: kindInt, set: func(float64) {}},
		}

		derr := extractSlots([]any{128.5}, schema)

		require.NotNil(t, derr)
		assert.Equal(t, KindTypeMismatch, derr.Kind)
		assert.Equal(t, "integer", derr.Expected)
		assert.Equal(t, "float", derr.Actual)
	})

	t.Run("integral float accepted on integer slot", func(t *testing.T) {
		var direction int
		schema := []slot{
			{name: "wind_direction", kind: kindInt, set: func(v float64) { direction = int(v) }},
		}

		derr := extractSlots([]any{float64(187)}, schema)

		require.Nil(t, derr)
		assert.Equal(t, 187, direction)
	})
}

func TestRequiredPrefix(t *testing.T) {
	tests := []struct {
		name     string
		schema   []slot
		expected int
	}{
		{"empty schema", nil, 0},
		{"all required", []slot{{name: "a"}, {name: "b"}}, 2},
		{"optional suffix", []slot{{name: "a"}, {name: "b", optional: true}}, 1},
		{"all optional", []slot{{name: "a", optional: true}, {name: "b", optional: true}}, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, requiredPrefix(tc.schema))
		})
	}
}
