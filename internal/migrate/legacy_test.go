// ABOUTME: Tests for lenient decoding of legacy snapshot values
// ABOUTME: Covers number-or-string ids and the accepted timestamp layouts

package migrate

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlexInt(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{`123456789012345678`, 123456789012345678, false},
		{`"123456789012345678"`, 123456789012345678, false},
		{`" 42 "`, 42, false},
		{`null`, 0, false},
		{`""`, 0, false},
		{`"abc"`, 0, true},
		{`1.5`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var v flexInt
			err := json.Unmarshal([]byte(tt.in), &v)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, int64(v))
		})
	}
}

func TestFlexString(t *testing.T) {
	var v struct {
		A flexString `json:"a"`
		B flexString `json:"b"`
		C flexString `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a": 7, "b": "x-1", "c": null}`), &v))
	assert.Equal(t, flexString("7"), v.A)
	assert.Equal(t, flexString("x-1"), v.B)
	assert.Equal(t, flexString(""), v.C)
}

func TestParseLegacyTime(t *testing.T) {
	want := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	for _, in := range []string{
		"2024-01-02T03:04:05Z",
		"2024-01-02T03:04:05+00:00",
		"2024-01-02T03:04:05",
		"2024-01-02 03:04:05",
		"2024-01-02 03:04:05+00:00",
	} {
		t.Run(in, func(t *testing.T) {
			got, err := parseLegacyTime(in)
			require.NoError(t, err)
			assert.True(t, want.Equal(got), "got %s", got)
		})
	}

	got, err := parseLegacyTime("2024-01-02T03:04:05.123456")
	require.NoError(t, err)
	assert.Equal(t, 123456000, got.Nanosecond())

	got, err = parseLegacyTime("2024-01-02")
	require.NoError(t, err)
	assert.Equal(t, 2, got.Day())

	_, err = parseLegacyTime("yesterday")
	assert.Error(t, err)
}
