package cidr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudplane/cloudplane/internal/clouderr"
)

func TestAutoOffset(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		count   int
		base    int
		step    int
		prefix  int
		want    []string
		wantErr bool
	}{
		{
			name:   "defaults from zero",
			count:  2,
			base:   0,
			step:   1,
			prefix: 16,
			want:   []string{"10.0.0.0/16", "10.1.0.0/16"},
		},
		{
			name:   "offset base",
			count:  3,
			base:   5,
			step:   1,
			prefix: 16,
			want:   []string{"10.5.0.0/16", "10.6.0.0/16", "10.7.0.0/16"},
		},
		{
			name:   "wider step",
			count:  3,
			base:   0,
			step:   10,
			prefix: 16,
			want:   []string{"10.0.0.0/16", "10.10.0.0/16", "10.20.0.0/16"},
		},
		{
			name:   "custom prefix",
			count:  2,
			base:   4,
			step:   1,
			prefix: 20,
			want:   []string{"10.4.0.0/20", "10.5.0.0/20"},
		},
		{
			name:   "boundary octet 255 succeeds",
			count:  2,
			base:   254,
			step:   1,
			prefix: 16,
			want:   []string{"10.254.0.0/16", "10.255.0.0/16"},
		},
		{
			name:    "octet 256 fails",
			count:   2,
			base:    255,
			step:    1,
			prefix:  16,
			wantErr: true,
		},
		{
			name:    "step overshoots space",
			count:   3,
			base:    200,
			step:    50,
			prefix:  16,
			wantErr: true,
		},
		{
			name:   "zero count yields nothing",
			count:  0,
			base:   0,
			step:   1,
			prefix: 16,
			want:   nil,
		},
		{
			name:    "prefix outside range",
			count:   1,
			base:    0,
			step:    1,
			prefix:  33,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := AutoOffset(tt.count, tt.base, tt.step, tt.prefix)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, clouderr.CodeCidrInvalid, clouderr.CodeOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAutoOffsetBoundaryExact(t *testing.T) {
	t.Parallel()

	// base + (count-1)*step == 255 is the last allowed allocation.
	got, err := AutoOffset(256, 0, 1, 16)
	require.NoError(t, err)
	require.Len(t, got, 256)
	assert.Equal(t, "10.255.0.0/16", got[255])

	_, err = AutoOffset(257, 0, 1, 16)
	require.Error(t, err)
	assert.Equal(t, clouderr.CodeCidrInvalid, clouderr.CodeOf(err))
}

func TestBuildMapAllAuto(t *testing.T) {
	t.Parallel()
	got, err := BuildMap([]string{"aws", "azure"}, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"aws":   "10.0.0.0/16",
		"azure": "10.1.0.0/16",
	}, got)
}

func TestBuildMapExplicitBase(t *testing.T) {
	t.Parallel()
	got, err := BuildMap(
		[]string{"aws", "azure"},
		map[string]string{"aws": "10.5.0.0/16"},
	)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"aws":   "10.5.0.0/16",
		"azure": "10.6.0.0/16",
	}, got)
}

func TestBuildMapSkipsPastHighestExplicit(t *testing.T) {
	t.Parallel()
	got, err := BuildMap(
		[]string{"aws", "azure", "gcp"},
		map[string]string{
			"aws": "10.9.0.0/16",
			"gcp": "10.2.0.0/16",
		},
	)
	require.NoError(t, err)
	assert.Equal(t, "10.10.0.0/16", got["azure"])
}

func TestBuildMapNarrowExplicit(t *testing.T) {
	t.Parallel()

	// A /24 still reserves its whole second octet for planning purposes.
	got, err := BuildMap(
		[]string{"aws", "azure"},
		map[string]string{"aws": "10.5.3.0/24"},
	)
	require.NoError(t, err)
	assert.Equal(t, "10.6.0.0/16", got["azure"])
}

func TestBuildMapExplicitOverlap(t *testing.T) {
	t.Parallel()
	_, err := BuildMap(
		[]string{"aws", "azure"},
		map[string]string{
			"aws":   "10.0.0.0/16",
			"azure": "10.0.128.0/24",
		},
	)
	require.Error(t, err)
	assert.Equal(t, clouderr.CodeCidrOverlap, clouderr.CodeOf(err))
}

func TestBuildMapRejectsForeignSpaceWhenAllocating(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		explicit string
	}{
		{name: "different first octet", explicit: "192.168.0.0/16"},
		{name: "wider than /16", explicit: "10.192.0.0/12"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := BuildMap(
				[]string{"aws", "azure"},
				map[string]string{"aws": tt.explicit},
			)
			require.Error(t, err)
			assert.Equal(t, clouderr.CodeCidrInvalid, clouderr.CodeOf(err))
			assert.Contains(t, err.Error(), "planning space")
		})
	}
}

func TestBuildMapFullyExplicitSkipsSpaceCheck(t *testing.T) {
	t.Parallel()

	// Nothing left to auto-allocate, so foreign ranges are accepted as-is.
	got, err := BuildMap(
		[]string{"aws", "azure"},
		map[string]string{
			"aws":   "192.168.0.0/16",
			"azure": "172.16.0.0/16",
		},
	)
	require.NoError(t, err)
	assert.Equal(t, "192.168.0.0/16", got["aws"])
	assert.Equal(t, "172.16.0.0/16", got["azure"])
}

func TestBuildMapIgnoresUnknownExplicitKeys(t *testing.T) {
	t.Parallel()
	got, err := BuildMap(
		[]string{"aws"},
		map[string]string{"aws": "10.3.0.0/16", "azure": "10.4.0.0/16"},
	)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"aws": "10.3.0.0/16"}, got)
}

func TestBuildMapEmptyExplicitValueAutoAllocates(t *testing.T) {
	t.Parallel()
	got, err := BuildMap(
		[]string{"aws", "azure"},
		map[string]string{"aws": ""},
	)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.0/16", got["aws"])
	assert.Equal(t, "10.1.0.0/16", got["azure"])
}

func TestBuildMapMalformedExplicit(t *testing.T) {
	t.Parallel()
	_, err := BuildMap(
		[]string{"aws", "azure"},
		map[string]string{"aws": "10.0.0/16"},
	)
	require.Error(t, err)
	assert.Equal(t, clouderr.CodeCidrInvalid, clouderr.CodeOf(err))
}

func TestBuildMapOutputNeverOverlaps(t *testing.T) {
	t.Parallel()
	names := []string{"a", "b", "c", "d", "e"}
	got, err := BuildMap(names, map[string]string{"c": "10.7.0.0/16", "e": "10.1.0.0/16"})
	require.NoError(t, err)

	blocks := make([]Block, 0, len(names))
	for _, name := range names {
		block, err := Parse(got[name])
		require.NoError(t, err)
		blocks = append(blocks, block)
	}
	assert.Empty(t, DetectOverlaps(blocks))
}
