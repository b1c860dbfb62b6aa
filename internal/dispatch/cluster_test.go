package dispatch_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudplane/cloudplane/internal/cloud"
	"github.com/cloudplane/cloudplane/internal/clouderr"
	"github.com/cloudplane/cloudplane/internal/dispatch"
)

func TestCreateClusterMatchesNetworkByBackend(t *testing.T) {
	t.Parallel()
	f := newFixture(dispatch.SessionOptions{}, cloud.BackendAWS, cloud.BackendAzure)
	targets := cloud.Multi(
		cloud.Target{Backend: cloud.BackendAWS},
		cloud.Target{Backend: cloud.BackendAzure},
	)

	networks, err := f.session.CreateNetwork(context.Background(), "net", dispatch.NetworkConfig{
		Targets: targets,
	}, cloud.Options{})
	require.NoError(t, err)

	results, err := f.session.CreateCluster(context.Background(), "cl", dispatch.ClusterConfig{
		Targets: targets,
		Nodes:   3,
	}, networks, cloud.Options{})
	require.NoError(t, err)
	require.Len(t, results, 2)

	awsReqs := f.provider(cloud.BackendAWS).Clusters()
	require.Len(t, awsReqs, 1)
	assert.Equal(t, cloud.BackendAWS, awsReqs[0].Network.Target.Backend)
	assert.Equal(t, "net-aws", awsReqs[0].Network.Name)

	azureReqs := f.provider(cloud.BackendAzure).Clusters()
	require.Len(t, azureReqs, 1)
	assert.Equal(t, cloud.BackendAzure, azureReqs[0].Network.Target.Backend)
	assert.Equal(t, "net-azure", azureReqs[0].Network.Name)
}

func TestCreateClusterNoMatchingNetwork(t *testing.T) {
	t.Parallel()
	f := newFixture(dispatch.SessionOptions{}, cloud.BackendAWS, cloud.BackendHetzner)

	networks, err := f.session.CreateNetwork(context.Background(), "net", dispatch.NetworkConfig{
		Targets: cloud.SingleBackend(cloud.BackendAWS),
	}, cloud.Options{})
	require.NoError(t, err)

	_, err = f.session.CreateCluster(context.Background(), "cl", dispatch.ClusterConfig{
		Targets: cloud.Multi(
			cloud.Target{Backend: cloud.BackendAWS},
			cloud.Target{Backend: cloud.BackendHetzner},
		),
	}, networks, cloud.Options{})
	require.Error(t, err)

	assert.True(t, clouderr.HasCode(err, clouderr.CodeUnsupportedFeature))
	assert.Contains(t, err.Error(), "no match found")

	// Matching happens before fan-out, so neither target dispatched.
	assert.Empty(t, f.provider(cloud.BackendAWS).Clusters())
	assert.Empty(t, f.provider(cloud.BackendHetzner).Clusters())
}

func TestCreateClusterMatchIgnoresRegion(t *testing.T) {
	t.Parallel()
	f := newFixture(dispatch.SessionOptions{}, cloud.BackendAWS)

	networks, err := f.session.CreateNetwork(context.Background(), "net", dispatch.NetworkConfig{
		Targets: cloud.SingleBackend(cloud.BackendAWS),
	}, cloud.Options{})
	require.NoError(t, err)
	require.Equal(t, "us-east-1", networks[0].Target.Region)

	// Dependency matching is by backend identity only; a cluster in another
	// region still picks the candidate up.
	_, err = f.session.CreateCluster(context.Background(), "cl", dispatch.ClusterConfig{
		Targets: cloud.Single(cloud.Target{Backend: cloud.BackendAWS, Region: "eu-west-1"}),
	}, networks, cloud.Options{})
	require.NoError(t, err)

	reqs := f.provider(cloud.BackendAWS).Clusters()
	require.Len(t, reqs, 1)
	assert.Equal(t, "eu-west-1", reqs[0].Region)
	assert.Equal(t, "us-east-1", reqs[0].Network.Target.Region)
}

func TestCreateClusterFirstMatchingNetworkWins(t *testing.T) {
	t.Parallel()
	f := newFixture(dispatch.SessionOptions{}, cloud.BackendAWS)
	candidates := []dispatch.NetworkResult{
		{Name: "old", Target: cloud.ResolvedTarget{Backend: cloud.BackendAWS, Region: "us-east-1"}},
		{Name: "new", Target: cloud.ResolvedTarget{Backend: cloud.BackendAWS, Region: "us-east-1"}},
	}

	_, err := f.session.CreateCluster(context.Background(), "cl", dispatch.ClusterConfig{
		Targets: cloud.SingleBackend(cloud.BackendAWS),
	}, candidates, cloud.Options{})
	require.NoError(t, err)

	reqs := f.provider(cloud.BackendAWS).Clusters()
	require.Len(t, reqs, 1)
	assert.Equal(t, "old", reqs[0].Network.Name)
}

func TestCreateClusterRejectsNegativeNodes(t *testing.T) {
	t.Parallel()
	f := newFixture(dispatch.SessionOptions{}, cloud.BackendAWS)

	_, err := f.session.CreateCluster(context.Background(), "cl", dispatch.ClusterConfig{
		Targets: cloud.SingleBackend(cloud.BackendAWS),
		Nodes:   -1,
	}, nil, cloud.Options{})
	require.Error(t, err)

	assert.True(t, clouderr.HasCode(err, clouderr.CodeCloudValidation))
	assert.Empty(t, f.provider(cloud.BackendAWS).Clusters())
}

func TestCreateClusterPassesShape(t *testing.T) {
	t.Parallel()
	f := newFixture(dispatch.SessionOptions{}, cloud.BackendAWS)

	networks, err := f.session.CreateNetwork(context.Background(), "net", dispatch.NetworkConfig{
		Targets: cloud.SingleBackend(cloud.BackendAWS),
	}, cloud.Options{})
	require.NoError(t, err)

	results, err := f.session.CreateCluster(context.Background(), "cl", dispatch.ClusterConfig{
		Targets: cloud.SingleBackend(cloud.BackendAWS),
		Version: "1.31",
		Nodes:   3,
	}, networks, cloud.Options{})
	require.NoError(t, err)
	require.Len(t, results, 1)

	reqs := f.provider(cloud.BackendAWS).Clusters()
	require.Len(t, reqs, 1)
	assert.Equal(t, "1.31", reqs[0].Version)
	assert.Equal(t, 3, reqs[0].Nodes)

	assert.Contains(t, results[0].Endpoint, "cl")
	assert.NotEmpty(t, results[0].Credentials)
}
