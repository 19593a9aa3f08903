package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	v := Default()
	assert.Equal(t, "1.21.4", v.ID)
	assert.Equal(t, 46, v.PackFormat)
	assert.Equal(t, EncodingRangeDispatch, v.Encoding)
}

func TestLookup(t *testing.T) {
	tests := []struct {
		name        string
		id          string
		wantFormat  int
		shouldError bool
	}{
		{
			name:       "empty resolves to default",
			id:         "",
			wantFormat: 46,
		},
		{
			name:       "explicit default version",
			id:         "1.21.4",
			wantFormat: 46,
		},
		{
			name:       "newer version",
			id:         "1.21.5",
			wantFormat: 55,
		},
		{
			name:        "unknown version",
			id:          "1.8.9",
			shouldError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := Lookup(tt.id)
			if tt.shouldError {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantFormat, v.PackFormat)
			}
		})
	}
}

func TestLookup_Moves(t *testing.T) {
	v, err := Lookup("1.21.4")
	require.NoError(t, err)
	require.Len(t, v.Moves, 1)
	assert.Equal(t, ShapeItemDescriptor, v.Moves[0].Shape)
	assert.Equal(t, "models/item", v.Moves[0].From)
	assert.Equal(t, "items", v.Moves[0].To)
}

func TestIDs(t *testing.T) {
	assert.Equal(t, []string{"1.21.4", "1.21.5"}, IDs())
}

func TestParseEncoding(t *testing.T) {
	tests := []struct {
		name        string
		in          string
		want        Encoding
		shouldError bool
	}{
		{
			name: "empty means no preference",
			in:   "",
			want: Encoding(""),
		},
		{
			name: "range dispatch",
			in:   "range_dispatch",
			want: EncodingRangeDispatch,
		},
		{
			name: "select",
			in:   "select",
			want: EncodingSelect,
		},
		{
			name:        "unknown",
			in:          "hash_lookup",
			shouldError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseEncoding(tt.in)
			if tt.shouldError {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
		})
	}
}
