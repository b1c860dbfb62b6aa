package validate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudplane/cloudplane/internal/cloud"
	"github.com/cloudplane/cloudplane/internal/clouderr"
)

func TestFeature(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		feature cloud.Capability
		backend cloud.Backend
		wantErr bool
	}{
		{
			name:    "aws supports secret store",
			feature: cloud.CapabilitySecretStore,
			backend: cloud.BackendAWS,
		},
		{
			name:    "hetzner has no secret store",
			feature: cloud.CapabilitySecretStore,
			backend: cloud.BackendHetzner,
			wantErr: true,
		},
		{
			name:    "hetzner has no nat gateway",
			feature: cloud.CapabilityNATGateway,
			backend: cloud.BackendHetzner,
			wantErr: true,
		},
		{
			name:    "hetzner supports networks",
			feature: cloud.CapabilityNetwork,
			backend: cloud.BackendHetzner,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := Feature(tt.feature, tt.backend)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, clouderr.CodeUnsupportedFeature, clouderr.CodeOf(err))
				assert.Contains(t, err.Error(), string(tt.feature))
				assert.False(t, IsFeatureSupported(tt.feature, tt.backend))
				return
			}
			require.NoError(t, err)
			assert.True(t, IsFeatureSupported(tt.feature, tt.backend))
		})
	}
}

func TestResourceName(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name         string
		input        string
		backend      cloud.Backend
		wantValid    bool
		wantErrs     int
		wantWarnings int
		contains     string
	}{
		{
			name:      "clean name passes everywhere",
			input:     "prod-cluster",
			backend:   cloud.BackendAWS,
			wantValid: true,
		},
		{
			name:      "64 characters against a 63 limit",
			input:     strings.Repeat("a", 64),
			backend:   cloud.BackendAzure,
			wantValid: false,
			wantErrs:  1,
			contains:  "64 characters",
		},
		{
			name:      "63 characters at the limit",
			input:     strings.Repeat("a", 63),
			backend:   cloud.BackendAzure,
			wantValid: true,
		},
		{
			name:      "aws accepts long names",
			input:     strings.Repeat("a", 200),
			backend:   cloud.BackendAWS,
			wantValid: true,
		},
		{
			name:      "aws rejects names above 255",
			input:     strings.Repeat("a", 256),
			backend:   cloud.BackendAWS,
			wantValid: false,
			wantErrs:  1,
		},
		{
			name:      "gcp requires a leading letter",
			input:     "9lives",
			backend:   cloud.BackendGCP,
			wantValid: false,
			wantErrs:  1,
			contains:  "start with a letter",
		},
		{
			name:      "gcp accepts digits after the first character",
			input:     "lives9",
			backend:   cloud.BackendGCP,
			wantValid: true,
		},
		{
			name:      "aws accepts a leading digit",
			input:     "9lives",
			backend:   cloud.BackendAWS,
			wantValid: true,
		},
		{
			name:      "leading hyphen is an illegal first character",
			input:     "-prod",
			backend:   cloud.BackendHetzner,
			wantValid: false,
			wantErrs:  1,
		},
		{
			name:         "uppercase warns where the backend folds case",
			input:        "Prod-Cluster",
			backend:      cloud.BackendAzure,
			wantValid:    true,
			wantWarnings: 1,
			contains:     "lowercased",
		},
		{
			name:      "uppercase is fine where case is kept",
			input:     "Prod-Cluster",
			backend:   cloud.BackendAWS,
			wantValid: true,
		},
		{
			name:         "disallowed characters warn",
			input:        "prod_cluster",
			backend:      cloud.BackendAWS,
			wantValid:    true,
			wantWarnings: 1,
			contains:     "substituted",
		},
		{
			name:         "trailing hyphen warns on azure",
			input:        "prod-",
			backend:      cloud.BackendAzure,
			wantValid:    true,
			wantWarnings: 1,
			contains:     "hyphen",
		},
		{
			name:      "trailing hyphen is fine elsewhere",
			input:     "prod-",
			backend:   cloud.BackendAWS,
			wantValid: true,
		},
		{
			name:      "empty name is an error",
			input:     "",
			backend:   cloud.BackendAWS,
			wantValid: false,
			wantErrs:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			res := ResourceName(tt.input, tt.backend)
			assert.Equal(t, tt.wantValid, res.Valid())
			if tt.wantErrs > 0 {
				assert.Len(t, res.Errors(), tt.wantErrs)
			}
			if tt.wantWarnings > 0 {
				assert.Len(t, res.Warnings(), tt.wantWarnings)
			}
			if tt.contains != "" {
				found := false
				for _, issue := range res.Issues {
					if strings.Contains(issue.Message, tt.contains) {
						found = true
					}
				}
				assert.True(t, found, "no issue mentions %q: %v", tt.contains, res.Issues)
			}
		})
	}
}

func TestMultiTarget(t *testing.T) {
	t.Parallel()

	t.Run("distinct targets pass", func(t *testing.T) {
		t.Parallel()
		res := MultiTarget([]cloud.ResolvedTarget{
			{Backend: cloud.BackendAWS, Region: "us-east-1"},
			{Backend: cloud.BackendAzure, Region: "eastus"},
		}, "prod")
		assert.True(t, res.Valid())
		assert.Empty(t, res.Issues)
	})

	t.Run("same backend different regions is not a duplicate", func(t *testing.T) {
		t.Parallel()
		res := MultiTarget([]cloud.ResolvedTarget{
			{Backend: cloud.BackendAWS, Region: "us-east-1"},
			{Backend: cloud.BackendAWS, Region: "eu-west-1"},
		}, "prod")
		assert.True(t, res.Valid())
	})

	t.Run("identical backend and region is flagged", func(t *testing.T) {
		t.Parallel()
		res := MultiTarget([]cloud.ResolvedTarget{
			{Backend: cloud.BackendAWS, Region: "us-east-1"},
			{Backend: cloud.BackendAWS, Region: "us-east-1"},
		}, "prod")
		require.False(t, res.Valid())
		require.Len(t, res.Errors(), 1)
		assert.Contains(t, res.Errors()[0].Message, "duplicate target aws/us-east-1")
		assert.Equal(t, "targets[1]", res.Errors()[0].Field)
	})

	t.Run("name issues aggregate per target", func(t *testing.T) {
		t.Parallel()
		longName := strings.Repeat("a", 100)
		res := MultiTarget([]cloud.ResolvedTarget{
			{Backend: cloud.BackendAWS, Region: "us-east-1"},   // 255 limit, fine
			{Backend: cloud.BackendAzure, Region: "eastus"},    // 63 limit, violated
			{Backend: cloud.BackendGCP, Region: "us-central1"}, // 63 limit, violated
		}, longName)
		require.False(t, res.Valid())
		assert.Len(t, res.Errors(), 2)
		assert.Equal(t, "targets[1].name", res.Errors()[0].Field)
		assert.Equal(t, "targets[2].name", res.Errors()[1].Field)
	})
}

func TestAssertMultiTarget(t *testing.T) {
	t.Parallel()

	t.Run("valid input returns nil", func(t *testing.T) {
		t.Parallel()
		err := AssertMultiTarget([]cloud.ResolvedTarget{
			{Backend: cloud.BackendAWS, Region: "us-east-1"},
		}, "prod")
		assert.NoError(t, err)
	})

	t.Run("aggregate failure lists every issue", func(t *testing.T) {
		t.Parallel()
		err := AssertMultiTarget([]cloud.ResolvedTarget{
			{Backend: cloud.BackendAWS, Region: "us-east-1"},
			{Backend: cloud.BackendAWS, Region: "us-east-1"},
		}, strings.Repeat("z", 300))
		require.Error(t, err)
		assert.Equal(t, clouderr.CodeCloudValidation, clouderr.CodeOf(err))
		assert.Contains(t, err.Error(), "duplicate target")
		assert.Contains(t, err.Error(), "300 characters")
	})

	t.Run("warnings alone do not fail the assert", func(t *testing.T) {
		t.Parallel()
		err := AssertMultiTarget([]cloud.ResolvedTarget{
			{Backend: cloud.BackendAzure, Region: "eastus"},
		}, "Prod")
		assert.NoError(t, err)
	})
}
