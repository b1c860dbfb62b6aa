package handlers

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Settings carries the environment-sourced credentials and defaults for
// the compiled-in providers. Every field is optional here; a provider
// reports its own missing credentials when it is first dispatched to.
type Settings struct {
	// HCloudToken authenticates against the Hetzner Cloud API.
	HCloudToken string `env:"HCLOUD_TOKEN"`
	// HetznerDNSToken authenticates against the separate Hetzner DNS API.
	HetznerDNSToken string `env:"HETZNER_DNS_TOKEN"`
	// HetznerS3AccessKey and HetznerS3SecretKey authenticate against
	// Hetzner Object Storage for state backends.
	HetznerS3AccessKey string `env:"HETZNER_S3_ACCESS_KEY"`
	HetznerS3SecretKey string `env:"HETZNER_S3_SECRET_KEY"`
	// HetznerServerType and HetznerNetworkZone override the provisioning
	// defaults (cx22, eu-central).
	HetznerServerType  string `env:"CLOUDPLANE_HETZNER_SERVER_TYPE"`
	HetznerNetworkZone string `env:"CLOUDPLANE_HETZNER_NETWORK_ZONE"`
}

// SettingsFromEnv parses Settings from the process environment.
func SettingsFromEnv() (Settings, error) {
	var s Settings
	if err := env.Parse(&s); err != nil {
		return Settings{}, fmt.Errorf("parse env: %w", err)
	}
	return s, nil
}
