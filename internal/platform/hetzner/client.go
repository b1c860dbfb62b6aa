package hetzner

import (
	"context"
	"fmt"
	"net"
	"reflect"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"
)

// ServerOpts holds the parameters for creating one cluster node.
type ServerOpts struct {
	Name             string
	ServerType       string
	Image            string
	Location         string
	SSHKeyID         int64
	PlacementGroupID int64
	NetworkID        int64
	Labels           map[string]string
}

// CloudAPI is the slice of the Hetzner Cloud API the provider needs. The
// real implementation talks to the API; tests substitute a fake.
type CloudAPI interface {
	EnsureNetwork(ctx context.Context, name, ipRange string, labels map[string]string) (*hcloud.Network, error)
	EnsureSubnet(ctx context.Context, network *hcloud.Network, ipRange, zone string) error
	EnsureSSHKey(ctx context.Context, name, publicKey string, labels map[string]string) (int64, error)
	EnsurePlacementGroup(ctx context.Context, name string, labels map[string]string) (*hcloud.PlacementGroup, error)
	CreateServer(ctx context.Context, opts ServerOpts) (*hcloud.Server, error)
	EnsureLoadBalancer(ctx context.Context, name, location string, labels map[string]string) (*hcloud.LoadBalancer, error)
	EnsureService(ctx context.Context, lb *hcloud.LoadBalancer, listenPort, destinationPort int) error
	AddLabelTarget(ctx context.Context, lb *hcloud.LoadBalancer, selector string) error
}

// realAPI implements CloudAPI against the Hetzner Cloud API.
type realAPI struct {
	client *hcloud.Client
}

// NewCloudAPI creates a CloudAPI backed by the real Hetzner Cloud API.
func NewCloudAPI(token string) CloudAPI {
	return &realAPI{client: hcloud.NewClient(hcloud.WithToken(token))}
}

// createResult pairs a created resource with the actions to await. hcloud
// create calls return their actions in different shapes; adapters flatten
// them into this.
type createResult[T any] struct {
	resource T
	actions  []*hcloud.Action
}

// ensureResource gets the named resource or creates it. hcloud getters
// return a nil resource without error when nothing matches, hence the
// reflect nil check on the typed pointer.
func ensureResource[T any, O any](
	ctx context.Context,
	c *realAPI,
	name, kind string,
	get func(context.Context, string) (T, *hcloud.Response, error),
	create func(context.Context, O) (createResult[T], error),
	opts func() O,
	validate func(T) error,
) (T, error) {
	var zero T

	existing, _, err := get(ctx, name)
	if err != nil {
		return zero, fmt.Errorf("failed to get %s: %w", kind, err)
	}
	if !reflect.ValueOf(existing).IsNil() {
		if validate != nil {
			if err := validate(existing); err != nil {
				return zero, err
			}
		}
		return existing, nil
	}

	res, err := create(ctx, opts())
	if err != nil {
		return zero, fmt.Errorf("failed to create %s: %w", kind, err)
	}
	if len(res.actions) > 0 {
		if err := c.client.Action.WaitFor(ctx, res.actions...); err != nil {
			return zero, fmt.Errorf("failed to wait for %s creation: %w", kind, err)
		}
	}
	return res.resource, nil
}

// EnsureNetwork implements CloudAPI. An existing network with a different
// range is an error, not something to force into shape.
func (c *realAPI) EnsureNetwork(ctx context.Context, name, ipRange string, labels map[string]string) (*hcloud.Network, error) {
	_, ipNet, err := net.ParseCIDR(ipRange)
	if err != nil {
		return nil, fmt.Errorf("invalid network ip range: %w", err)
	}

	return ensureResource(ctx, c, name, "network",
		c.client.Network.Get,
		func(ctx context.Context, opts hcloud.NetworkCreateOpts) (createResult[*hcloud.Network], error) {
			network, _, err := c.client.Network.Create(ctx, opts)
			return createResult[*hcloud.Network]{resource: network}, err
		},
		func() hcloud.NetworkCreateOpts {
			return hcloud.NetworkCreateOpts{Name: name, IPRange: ipNet, Labels: labels}
		},
		func(network *hcloud.Network) error {
			if network.IPRange.String() != ipRange {
				return fmt.Errorf("network %s exists with ip range %s (expected %s)",
					name, network.IPRange.String(), ipRange)
			}
			return nil
		},
	)
}

// EnsureSubnet implements CloudAPI.
func (c *realAPI) EnsureSubnet(ctx context.Context, network *hcloud.Network, ipRange, zone string) error {
	for _, subnet := range network.Subnets {
		if subnet.IPRange != nil && subnet.IPRange.String() == ipRange {
			return nil
		}
	}

	_, ipNet, err := net.ParseCIDR(ipRange)
	if err != nil {
		return fmt.Errorf("invalid subnet ip range: %w", err)
	}

	action, _, err := c.client.Network.AddSubnet(ctx, network, hcloud.NetworkAddSubnetOpts{
		Subnet: hcloud.NetworkSubnet{
			Type:        hcloud.NetworkSubnetTypeCloud,
			IPRange:     ipNet,
			NetworkZone: hcloud.NetworkZone(zone),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to add subnet: %w", err)
	}
	if err := c.client.Action.WaitFor(ctx, action); err != nil {
		return fmt.Errorf("failed to wait for subnet creation: %w", err)
	}
	return nil
}

// EnsureSSHKey implements CloudAPI.
func (c *realAPI) EnsureSSHKey(ctx context.Context, name, publicKey string, labels map[string]string) (int64, error) {
	key, err := ensureResource(ctx, c, name, "ssh key",
		c.client.SSHKey.Get,
		func(ctx context.Context, opts hcloud.SSHKeyCreateOpts) (createResult[*hcloud.SSHKey], error) {
			key, _, err := c.client.SSHKey.Create(ctx, opts)
			return createResult[*hcloud.SSHKey]{resource: key}, err
		},
		func() hcloud.SSHKeyCreateOpts {
			return hcloud.SSHKeyCreateOpts{Name: name, PublicKey: publicKey, Labels: labels}
		},
		nil,
	)
	if err != nil {
		return 0, err
	}
	return key.ID, nil
}

// EnsurePlacementGroup implements CloudAPI. Groups are always spread so
// node failures stay uncorrelated.
func (c *realAPI) EnsurePlacementGroup(ctx context.Context, name string, labels map[string]string) (*hcloud.PlacementGroup, error) {
	return ensureResource(ctx, c, name, "placement group",
		c.client.PlacementGroup.Get,
		func(ctx context.Context, opts hcloud.PlacementGroupCreateOpts) (createResult[*hcloud.PlacementGroup], error) {
			res, _, err := c.client.PlacementGroup.Create(ctx, opts)
			if err != nil {
				return createResult[*hcloud.PlacementGroup]{}, err
			}
			result := createResult[*hcloud.PlacementGroup]{resource: res.PlacementGroup}
			if res.Action != nil {
				result.actions = append(result.actions, res.Action)
			}
			return result, nil
		},
		func() hcloud.PlacementGroupCreateOpts {
			return hcloud.PlacementGroupCreateOpts{
				Name:   name,
				Type:   hcloud.PlacementGroupTypeSpread,
				Labels: labels,
			}
		},
		nil,
	)
}

// CreateServer implements CloudAPI.
func (c *realAPI) CreateServer(ctx context.Context, opts ServerOpts) (*hcloud.Server, error) {
	serverType, _, err := c.client.ServerType.Get(ctx, opts.ServerType)
	if err != nil {
		return nil, fmt.Errorf("failed to get server type: %w", err)
	}
	if serverType == nil {
		return nil, fmt.Errorf("server type not found: %s", opts.ServerType)
	}

	image, _, err := c.client.Image.GetForArchitecture(ctx, opts.Image, serverType.Architecture)
	if err != nil {
		return nil, fmt.Errorf("failed to get image: %w", err)
	}
	if image == nil {
		return nil, fmt.Errorf("image not found: %s", opts.Image)
	}

	location, _, err := c.client.Location.Get(ctx, opts.Location)
	if err != nil {
		return nil, fmt.Errorf("failed to get location: %w", err)
	}

	createOpts := hcloud.ServerCreateOpts{
		Name:       opts.Name,
		ServerType: serverType,
		Image:      image,
		Location:   location,
		SSHKeys:    []*hcloud.SSHKey{{ID: opts.SSHKeyID}},
		Labels:     opts.Labels,
	}
	if opts.PlacementGroupID != 0 {
		createOpts.PlacementGroup = &hcloud.PlacementGroup{ID: opts.PlacementGroupID}
	}
	if opts.NetworkID != 0 {
		createOpts.Networks = []*hcloud.Network{{ID: opts.NetworkID}}
	}

	result, _, err := c.client.Server.Create(ctx, createOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create server %s: %w", opts.Name, err)
	}

	actions := append([]*hcloud.Action{result.Action}, result.NextActions...)
	if err := c.client.Action.WaitFor(ctx, actions...); err != nil {
		return nil, fmt.Errorf("failed to wait for server creation: %w", err)
	}
	return result.Server, nil
}

// EnsureLoadBalancer implements CloudAPI.
func (c *realAPI) EnsureLoadBalancer(ctx context.Context, name, location string, labels map[string]string) (*hcloud.LoadBalancer, error) {
	lb, _, err := c.client.LoadBalancer.Get(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to get load balancer: %w", err)
	}
	if lb != nil {
		return lb, nil
	}

	lbType, _, err := c.client.LoadBalancerType.Get(ctx, defaultLoadBalancerType)
	if err != nil {
		return nil, fmt.Errorf("failed to get load balancer type: %w", err)
	}
	loc, _, err := c.client.Location.Get(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("failed to get location: %w", err)
	}

	res, _, err := c.client.LoadBalancer.Create(ctx, hcloud.LoadBalancerCreateOpts{
		Name:             name,
		LoadBalancerType: lbType,
		Location:         loc,
		Algorithm:        &hcloud.LoadBalancerAlgorithm{Type: hcloud.LoadBalancerAlgorithmTypeRoundRobin},
		Labels:           labels,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create load balancer: %w", err)
	}
	if err := c.client.Action.WaitFor(ctx, res.Action); err != nil {
		return nil, fmt.Errorf("failed to wait for load balancer creation: %w", err)
	}
	return res.LoadBalancer, nil
}

// EnsureService implements CloudAPI.
func (c *realAPI) EnsureService(ctx context.Context, lb *hcloud.LoadBalancer, listenPort, destinationPort int) error {
	for _, svc := range lb.Services {
		if svc.ListenPort == listenPort {
			return nil
		}
	}

	action, _, err := c.client.LoadBalancer.AddService(ctx, lb, hcloud.LoadBalancerAddServiceOpts{
		Protocol:        hcloud.LoadBalancerServiceProtocolTCP,
		ListenPort:      hcloud.Ptr(listenPort),
		DestinationPort: hcloud.Ptr(destinationPort),
	})
	if err != nil {
		return fmt.Errorf("failed to add load balancer service: %w", err)
	}
	if err := c.client.Action.WaitFor(ctx, action); err != nil {
		return fmt.Errorf("failed to wait for service configuration: %w", err)
	}
	return nil
}

// AddLabelTarget implements CloudAPI.
func (c *realAPI) AddLabelTarget(ctx context.Context, lb *hcloud.LoadBalancer, selector string) error {
	for _, target := range lb.Targets {
		if target.Type == hcloud.LoadBalancerTargetTypeLabelSelector &&
			target.LabelSelector != nil && target.LabelSelector.Selector == selector {
			return nil
		}
	}

	action, _, err := c.client.LoadBalancer.AddLabelSelectorTarget(ctx, lb, hcloud.LoadBalancerAddLabelSelectorTargetOpts{
		Selector:     selector,
		UsePrivateIP: hcloud.Ptr(true),
	})
	if err != nil {
		return fmt.Errorf("failed to add load balancer target: %w", err)
	}
	if err := c.client.Action.WaitFor(ctx, action); err != nil {
		return fmt.Errorf("failed to wait for target attachment: %w", err)
	}
	return nil
}
