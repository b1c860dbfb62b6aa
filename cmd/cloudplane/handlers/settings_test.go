package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingsFromEnv(t *testing.T) {
	t.Run("reads all variables", func(t *testing.T) {
		t.Setenv("HCLOUD_TOKEN", "cloud-token")
		t.Setenv("HETZNER_DNS_TOKEN", "dns-token")
		t.Setenv("HETZNER_S3_ACCESS_KEY", "access")
		t.Setenv("HETZNER_S3_SECRET_KEY", "secret")
		t.Setenv("CLOUDPLANE_HETZNER_SERVER_TYPE", "cx32")
		t.Setenv("CLOUDPLANE_HETZNER_NETWORK_ZONE", "us-east")

		s, err := SettingsFromEnv()
		require.NoError(t, err)
		assert.Equal(t, "cloud-token", s.HCloudToken)
		assert.Equal(t, "dns-token", s.HetznerDNSToken)
		assert.Equal(t, "access", s.HetznerS3AccessKey)
		assert.Equal(t, "secret", s.HetznerS3SecretKey)
		assert.Equal(t, "cx32", s.HetznerServerType)
		assert.Equal(t, "us-east", s.HetznerNetworkZone)
	})

	t.Run("empty environment is fine", func(t *testing.T) {
		t.Setenv("HCLOUD_TOKEN", "")

		s, err := SettingsFromEnv()
		require.NoError(t, err)
		assert.Empty(t, s.HCloudToken)
	})
}
