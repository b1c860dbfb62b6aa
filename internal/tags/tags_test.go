package tags

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudplane/cloudplane/internal/cloud"
)

func TestRequired(t *testing.T) {
	t.Parallel()
	got := Required("prod", cloud.BackendAWS)
	assert.Equal(t, map[string]string{
		"cloudplane.io/deployment": "prod",
		"cloudplane.io/backend":    "aws",
		"cloudplane.io/managed-by": "cloudplane",
	}, got)
}

func TestMergeRequired(t *testing.T) {
	t.Parallel()

	t.Run("required wins on conflict", func(t *testing.T) {
		t.Parallel()
		required := map[string]string{KeyManagedBy: ManagedByCloudplane}
		user := map[string]string{KeyManagedBy: "terraform", "team": "storage"}

		got := MergeRequired(required, user)
		assert.Equal(t, ManagedByCloudplane, got[KeyManagedBy])
		assert.Equal(t, "storage", got["team"])
	})

	t.Run("inputs are not mutated", func(t *testing.T) {
		t.Parallel()
		required := map[string]string{KeyDeployment: "prod"}
		user := map[string]string{"env": "dev"}

		got := MergeRequired(required, user)
		got["env"] = "changed"
		got[KeyDeployment] = "changed"

		assert.Equal(t, "dev", user["env"])
		assert.Equal(t, "prod", required[KeyDeployment])
	})

	t.Run("nil user tags", func(t *testing.T) {
		t.Parallel()
		got := MergeRequired(map[string]string{KeyDeployment: "prod"}, nil)
		assert.Equal(t, map[string]string{KeyDeployment: "prod"}, got)
	})
}

func TestNormalizeUnrestrictedBackend(t *testing.T) {
	t.Parallel()
	in := map[string]string{"Team Name": "Storage/Platform", "Env": "Prod"}

	got, warnings := Normalize(in, cloud.BackendAWS)
	assert.Equal(t, in, got)
	assert.Empty(t, warnings)

	// Shallow copy, not the same map.
	got["Env"] = "changed"
	assert.Equal(t, "Prod", in["Env"])
}

func TestNormalizeStrictBackend(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		key       string
		value     string
		wantKey   string
		wantValue string
	}{
		{
			name:      "clean pair unchanged",
			key:       "env",
			value:     "prod",
			wantKey:   "env",
			wantValue: "prod",
		},
		{
			name:      "uppercase folded",
			key:       "Env",
			value:     "Prod",
			wantKey:   "env",
			wantValue: "prod",
		},
		{
			name:      "disallowed characters substituted",
			key:       "team name",
			value:     "storage/platform",
			wantKey:   "team-name",
			wantValue: "storage-platform",
		},
		{
			name:      "underscore kept",
			key:       "cost_center",
			value:     "r_and_d",
			wantKey:   "cost_center",
			wantValue: "r_and_d",
		},
		{
			name:      "key starting with digit gets filler letter",
			key:       "9tier",
			value:     "9",
			wantKey:   "a9tier",
			wantValue: "9",
		},
		{
			name:      "namespaced key flattened",
			key:       "cloudplane.io/deployment",
			value:     "prod",
			wantKey:   "cloudplane-io-deployment",
			wantValue: "prod",
		},
		{
			name:      "repeated hyphens collapse",
			key:       "a..b",
			value:     "x!!y",
			wantKey:   "a-b",
			wantValue: "x-y",
		},
		{
			name:      "trailing hyphen stripped",
			key:       "env.",
			value:     "prod!",
			wantKey:   "env",
			wantValue: "prod",
		},
		{
			name:      "empty value allowed",
			key:       "flag",
			value:     "",
			wantKey:   "flag",
			wantValue: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, warnings := Normalize(map[string]string{tt.key: tt.value}, cloud.BackendGCP)
			assert.Empty(t, warnings)
			assert.Equal(t, map[string]string{tt.wantKey: tt.wantValue}, got)
		})
	}
}

func TestNormalizeTruncates(t *testing.T) {
	t.Parallel()
	longKey := strings.Repeat("k", 80)
	longValue := strings.Repeat("v", 80)

	got, warnings := Normalize(map[string]string{longKey: longValue}, cloud.BackendGCP)
	assert.Empty(t, warnings)
	require.Len(t, got, 1)
	assert.Contains(t, got, strings.Repeat("k", 63))
	assert.Equal(t, strings.Repeat("v", 63), got[strings.Repeat("k", 63)])
}

func TestNormalizeCollisionFirstWins(t *testing.T) {
	t.Parallel()

	// Both keys normalize to "env"; sorted input order makes "Env" the
	// first-seen key, so its value survives.
	got, warnings := Normalize(map[string]string{
		"Env": "prod",
		"env": "dev",
	}, cloud.BackendGCP)

	require.Len(t, got, 1)
	assert.Equal(t, "prod", got["env"])
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], `"env"`)
	assert.Contains(t, warnings[0], "dropping")
}

func TestNormalizeCollisionIsNotAnError(t *testing.T) {
	t.Parallel()
	got, warnings := Normalize(map[string]string{
		"team name": "a",
		"team-name": "b",
		"region":    "us",
	}, cloud.BackendGCP)

	assert.Len(t, got, 2)
	assert.Len(t, warnings, 1)
	assert.Equal(t, "us", got["region"])
	assert.Equal(t, "a", got["team-name"], "sorted order makes the spaced key first-seen")
}

func TestNormalizeEmptyKeyGetsFiller(t *testing.T) {
	t.Parallel()
	got, warnings := Normalize(map[string]string{"": "orphan"}, cloud.BackendGCP)
	assert.Empty(t, warnings)
	assert.Equal(t, map[string]string{"a": "orphan"}, got)
}
