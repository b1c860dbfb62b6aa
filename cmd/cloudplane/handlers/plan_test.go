package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudplane/cloudplane/internal/clouderr"
	"github.com/cloudplane/cloudplane/internal/config"
	"github.com/cloudplane/cloudplane/internal/dispatch"
	"github.com/cloudplane/cloudplane/internal/ui"
)

func loadManifestBytes(t *testing.T, content string) *config.Manifest {
	t.Helper()
	m, err := config.LoadFromBytes([]byte(content))
	require.NoError(t, err)
	return m
}

func planRowNames(summary *ui.PlanSummary) []string {
	names := make([]string, 0, len(summary.Rows))
	for _, row := range summary.Rows {
		names = append(names, row.Name)
	}
	return names
}

func TestPlan_RendersManifestWithoutDispatching(t *testing.T) {
	saveAndRestoreFactories(t)

	buf := captureOutput()
	// Any registry construction would be a planning bug.
	newRegistry = func(Settings, bool) *dispatch.Registry {
		panic("plan must not build providers")
	}

	path := writeManifest(t, demoManifest)
	err := Plan(context.Background(), path)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "cloudplane plan: demo")
	assert.Contains(t, out, "core-aws")
	assert.Contains(t, out, "core-hetzner")
	assert.Contains(t, out, "10.5.0.0/16")
	assert.Contains(t, out, "10.6.0.0/16")
	assert.Contains(t, out, "No changes were applied")
}

func TestBuildPlan_MultiTargetNamesAndOffsets(t *testing.T) {
	m := loadManifestBytes(t, `
apiVersion: cloudplane.io/v1alpha1
metadata:
  name: demo
targets: [aws, azure]
resources:
  networks:
    - name: core
      cidr: 10.5.0.0/16
`)

	summary, err := buildPlan(m, "cloudplane.yaml")
	require.NoError(t, err)

	assert.Equal(t, []string{"aws/us-east-1", "azure/eastus"}, summary.Targets)
	require.Len(t, summary.Rows, 2)
	assert.Equal(t, "core-aws", summary.Rows[0].Name)
	assert.Equal(t, "cidr 10.5.0.0/16", summary.Rows[0].Detail)
	assert.Equal(t, "core-azure", summary.Rows[1].Name)
	assert.Equal(t, "cidr 10.6.0.0/16", summary.Rows[1].Detail)
}

func TestBuildPlan_SingleTargetKeepsBareName(t *testing.T) {
	m := loadManifestBytes(t, `
apiVersion: cloudplane.io/v1alpha1
metadata:
  name: demo
targets: [hetzner]
resources:
  networks:
    - name: core
`)

	summary, err := buildPlan(m, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"core"}, planRowNames(summary))
	assert.Equal(t, "cidr 10.0.0.0/16", summary.Rows[0].Detail)
}

func TestBuildPlan_ClusterAttachesToBackendMatchedNetwork(t *testing.T) {
	m := loadManifestBytes(t, `
apiVersion: cloudplane.io/v1alpha1
metadata:
  name: demo
targets: [aws, azure]
resources:
  networks:
    - name: core
  clusters:
    - name: app
      network: core
      version: "1.32"
      nodes: 5
`)

	summary, err := buildPlan(m, "")
	require.NoError(t, err)
	require.Len(t, summary.Rows, 4)
	assert.Equal(t, "app-aws", summary.Rows[2].Name)
	assert.Equal(t, "1.32, 5 nodes on core-aws", summary.Rows[2].Detail)
	assert.Equal(t, "app-azure", summary.Rows[3].Name)
	assert.Equal(t, "1.32, 5 nodes on core-azure", summary.Rows[3].Detail)
}

func TestBuildPlan_ClusterWithoutNetworkOnBackendFails(t *testing.T) {
	m := loadManifestBytes(t, `
apiVersion: cloudplane.io/v1alpha1
metadata:
  name: demo
resources:
  networks:
    - name: core
      targets: [hetzner]
  clusters:
    - name: app
      network: core
      targets: [aws]
`)

	_, err := buildPlan(m, "")
	require.Error(t, err)
	assert.True(t, clouderr.HasCode(err, clouderr.CodeUnsupportedFeature))
	assert.Contains(t, err.Error(), "no match found")
}

func TestBuildPlan_FeatureGapsFail(t *testing.T) {
	t.Run("secret store on hetzner", func(t *testing.T) {
		m := loadManifestBytes(t, `
apiVersion: cloudplane.io/v1alpha1
metadata:
  name: demo
targets: [hetzner]
resources:
  secretStores:
    - name: vault
`)
		_, err := buildPlan(m, "")
		require.Error(t, err)
		assert.True(t, clouderr.HasCode(err, clouderr.CodeUnsupportedFeature))
	})

	t.Run("nat gateway on hetzner", func(t *testing.T) {
		m := loadManifestBytes(t, `
apiVersion: cloudplane.io/v1alpha1
metadata:
  name: demo
targets: [hetzner]
resources:
  networks:
    - name: core
      nat: gateway
`)
		_, err := buildPlan(m, "")
		require.Error(t, err)
		assert.True(t, clouderr.HasCode(err, clouderr.CodeUnsupportedFeature))
		assert.Contains(t, err.Error(), "nat-gateway")
	})
}

func TestBuildPlan_WarnsOnMissingGCPProject(t *testing.T) {
	t.Run("without project id", func(t *testing.T) {
		m := loadManifestBytes(t, `
apiVersion: cloudplane.io/v1alpha1
metadata:
  name: demo
targets: [gcp]
resources:
  networks:
    - name: core
    - name: edge
`)
		summary, err := buildPlan(m, "")
		require.NoError(t, err)
		// One warning for the backend, not one per resource.
		require.Len(t, summary.Warnings, 1)
		assert.Contains(t, summary.Warnings[0], "project id")
	})

	t.Run("with project id", func(t *testing.T) {
		m := loadManifestBytes(t, `
apiVersion: cloudplane.io/v1alpha1
metadata:
  name: demo
targets: [gcp]
options:
  gcp:
    projectId: demo-project
resources:
  networks:
    - name: core
`)
		summary, err := buildPlan(m, "")
		require.NoError(t, err)
		assert.Empty(t, summary.Warnings)
	})
}

func TestBuildPlan_NameWarningsLand(t *testing.T) {
	m := loadManifestBytes(t, `
apiVersion: cloudplane.io/v1alpha1
metadata:
  name: demo
targets: [azure]
resources:
  networks:
    - name: Core
`)

	summary, err := buildPlan(m, "")
	require.NoError(t, err)
	require.NotEmpty(t, summary.Warnings)
	assert.Contains(t, summary.Warnings[0], "lowercased")
}

func TestBuildPlan_NameErrorAborts(t *testing.T) {
	m := loadManifestBytes(t, `
apiVersion: cloudplane.io/v1alpha1
metadata:
  name: demo
targets: [gcp]
options:
  gcp:
    projectId: demo-project
resources:
  networks:
    - name: 1core
`)

	_, err := buildPlan(m, "")
	require.Error(t, err)
	assert.True(t, clouderr.HasCode(err, clouderr.CodeCloudValidation))
	assert.Contains(t, err.Error(), "start with a letter")
}

func TestBuildPlan_StateBackendVersioningDetail(t *testing.T) {
	m := loadManifestBytes(t, `
apiVersion: cloudplane.io/v1alpha1
metadata:
  name: demo
targets: [aws]
resources:
  stateBackends:
    - name: tfstate
    - name: scratch
      versioning: false
`)

	summary, err := buildPlan(m, "")
	require.NoError(t, err)
	require.Len(t, summary.Rows, 2)
	assert.Equal(t, "versioning on", summary.Rows[0].Detail)
	assert.Equal(t, "versioning off", summary.Rows[1].Detail)
}
