package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cloudplane/cloudplane/internal/cloud"
	"github.com/cloudplane/cloudplane/internal/clouderr"
)

func writeManifest(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write test manifest: %v", err)
	}
	return path
}

func TestLoad_ValidYAML(t *testing.T) {
	t.Parallel()
	content := `
apiVersion: cloudplane.io/v1alpha1
kind: Deployment
metadata:
  name: prod
  tags:
    team: platform
targets:
  - aws
  - backend: azure
    region: westeurope
options:
  gcp:
    projectId: plat-123
resources:
  networks:
    - name: core
      cidr: 10.5.0.0/16
      nat: gateway
  clusters:
    - name: app
      network: core
  stateBackends:
    - name: tfstate
`
	m, err := Load(writeManifest(t, "cloudplane.yaml", content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if m.Metadata.Name != "prod" {
		t.Errorf("Metadata.Name = %q, want %q", m.Metadata.Name, "prod")
	}
	if m.Metadata.Tags["team"] != "platform" {
		t.Errorf("Metadata.Tags = %v, want team=platform", m.Metadata.Tags)
	}

	targets := m.Targets.Targets()
	if len(targets) != 2 {
		t.Fatalf("Targets = %v, want 2 terms", targets)
	}
	if targets[0].Backend != cloud.BackendAWS || targets[0].Region != "" {
		t.Errorf("Targets[0] = %+v, want bare aws", targets[0])
	}
	if targets[1].Backend != cloud.BackendAzure || targets[1].Region != "westeurope" {
		t.Errorf("Targets[1] = %+v, want azure/westeurope", targets[1])
	}

	if m.Options.GCP == nil || m.Options.GCP.ProjectID != "plat-123" {
		t.Errorf("Options.GCP = %+v, want projectId plat-123", m.Options.GCP)
	}

	if len(m.Resources.Networks) != 1 || m.Resources.Networks[0].CIDR != "10.5.0.0/16" {
		t.Errorf("Networks = %+v", m.Resources.Networks)
	}
	if m.Resources.Networks[0].NAT != "gateway" {
		t.Errorf("NAT = %q, want gateway", m.Resources.Networks[0].NAT)
	}
	if m.Resources.Clusters[0].Nodes != DefaultClusterNodes {
		t.Errorf("Nodes = %d, want default %d", m.Resources.Clusters[0].Nodes, DefaultClusterNodes)
	}
	if v := m.Resources.StateBackends[0].Versioning; v == nil || !*v {
		t.Errorf("Versioning = %v, want defaulted true", v)
	}
}

func TestLoad_SingleBackendTargets(t *testing.T) {
	t.Parallel()
	content := `
apiVersion: cloudplane.io/v1alpha1
metadata:
  name: dev
targets: hetzner
resources:
  networks:
    - name: net
`
	m, err := Load(writeManifest(t, "cloudplane.yaml", content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !m.Targets.IsSingle() || m.Targets.Len() != 1 {
		t.Errorf("Targets = %+v, want single hetzner", m.Targets.Targets())
	}
	if m.Kind != KindDeployment {
		t.Errorf("Kind = %q, want defaulted %q", m.Kind, KindDeployment)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()
	_, err := Load(filepath.Join(t.TempDir(), "cloudplane.yaml"))
	if err == nil {
		t.Fatal("Load() expected error for missing file")
	}
	if !clouderr.HasCode(err, clouderr.CodeConfigMissing) {
		t.Errorf("Load() code = %v, want CONFIG_MISSING", clouderr.CodeOf(err))
	}
}

func TestLoad_UnsupportedExtension(t *testing.T) {
	t.Parallel()
	_, err := Load(writeManifest(t, "cloudplane.json", `{}`))
	if err == nil {
		t.Fatal("Load() expected error for unsupported format")
	}
	if !clouderr.HasCode(err, clouderr.CodeConfigInvalid) {
		t.Errorf("Load() code = %v, want CONFIG_INVALID", clouderr.CodeOf(err))
	}
	if !strings.Contains(err.Error(), ".json") {
		t.Errorf("Load() error = %v, want the extension named", err)
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	t.Parallel()
	_, err := Load(writeManifest(t, "cloudplane.yaml", "metadata: [unclosed"))
	if err == nil {
		t.Fatal("Load() expected parse error")
	}
	if !clouderr.HasCode(err, clouderr.CodeConfigInvalid) {
		t.Errorf("Load() code = %v, want CONFIG_INVALID", clouderr.CodeOf(err))
	}
}

func TestLoad_InvalidManifest(t *testing.T) {
	t.Parallel()
	content := `
apiVersion: cloudplane.io/v1alpha1
targets: aws
resources:
  clusters:
    - name: app
      network: missing
`
	_, err := Load(writeManifest(t, "cloudplane.yaml", content))
	if err == nil {
		t.Fatal("Load() expected validation error")
	}
	if !strings.Contains(err.Error(), "manifest validation failed") {
		t.Errorf("Load() error = %v", err)
	}
	if !strings.Contains(err.Error(), "metadata.name is missing") {
		t.Errorf("Load() error = %v, want missing name reported", err)
	}
}

func TestLoadWithoutValidation(t *testing.T) {
	t.Parallel()
	content := `
apiVersion: cloudplane.io/v1alpha1
resources:
  clusters:
    - name: app
`
	m, err := LoadWithoutValidation(writeManifest(t, "cloudplane.yaml", content))
	if err != nil {
		t.Fatalf("LoadWithoutValidation() error = %v", err)
	}
	if m.Resources.Clusters[0].Nodes != DefaultClusterNodes {
		t.Errorf("Nodes = %d, want defaults applied", m.Resources.Clusters[0].Nodes)
	}
}

func TestLoadFromBytes(t *testing.T) {
	t.Parallel()
	m, err := LoadFromBytes([]byte(`
apiVersion: cloudplane.io/v1alpha1
metadata:
  name: dev
targets: [aws, gcp]
`))
	if err != nil {
		t.Fatalf("LoadFromBytes() error = %v", err)
	}
	if m.Targets.Len() != 2 {
		t.Errorf("Targets = %+v, want 2 terms", m.Targets.Targets())
	}
}

func TestFind_WalksUp(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("Failed to create directories: %v", err)
	}
	manifest := filepath.Join(root, "cloudplane.yaml")
	if err := os.WriteFile(manifest, []byte("apiVersion: cloudplane.io/v1alpha1\n"), 0o644); err != nil {
		t.Fatalf("Failed to write manifest: %v", err)
	}

	t.Chdir(nested)

	found, err := Find()
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	// Resolve symlinks; t.TempDir may sit behind one on some systems.
	wantReal, _ := filepath.EvalSymlinks(manifest)
	foundReal, _ := filepath.EvalSymlinks(found)
	if foundReal != wantReal {
		t.Errorf("Find() = %q, want %q", found, manifest)
	}
}

func TestSave_RoundTrip(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "cloudplane.yaml")
	m := &Manifest{
		APIVersion: APIVersion,
		Kind:       KindDeployment,
		Metadata:   Metadata{Name: "prod"},
		Targets: cloud.Multi(
			cloud.Target{Backend: cloud.BackendAWS},
			cloud.Target{Backend: cloud.BackendAzure, Region: "westeurope"},
		),
		Resources: Resources{
			Networks: []NetworkSpec{{Name: "core", CIDR: "10.5.0.0/16"}},
		},
	}

	if err := Save(m, path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if loaded.Metadata.Name != m.Metadata.Name {
		t.Errorf("Name = %q, want %q", loaded.Metadata.Name, m.Metadata.Name)
	}
	if loaded.Targets.Len() != 2 {
		t.Errorf("Targets = %+v, want 2 terms", loaded.Targets.Targets())
	}
	got := loaded.Targets.Targets()
	if got[1].Region != "westeurope" {
		t.Errorf("Targets[1] = %+v, want region preserved", got[1])
	}
}
