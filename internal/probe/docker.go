package probe

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"

	"github.com/opsledger/opsledger/internal/models"
)

// Compose labels identifying stack and service for a container
const (
	labelComposeProject = "com.docker.compose.project"
	labelComposeService = "com.docker.compose.service"
)

// DockerCollector snapshots per-container disk usage across one or more
// Docker hosts. Hosts are endpoint URLs (tcp://host:2375, ssh://host,
// unix:///var/run/docker.sock); an empty list with local set falls back to
// the environment client.
type DockerCollector struct {
	hosts   []string
	timeout time.Duration
}

// NewDockerCollector creates a collector for the given Docker hosts.
func NewDockerCollector(hosts []string) *DockerCollector {
	return &DockerCollector{hosts: hosts, timeout: 30 * time.Second}
}

// Collect gathers size snapshots from every configured host. A host that
// cannot be reached is skipped with its error returned alongside the rows
// gathered from the others.
func (d *DockerCollector) Collect(ctx context.Context) ([]models.DockerSize, []error) {
	var rows []models.DockerSize
	var errs []error

	for _, host := range d.hosts {
		hostRows, err := d.collectHost(ctx, host)
		if err != nil {
			errs = append(errs, fmt.Errorf("docker host %s: %w", hostLabel(host), err))
			continue
		}
		rows = append(rows, hostRows...)
	}
	return rows, errs
}

func (d *DockerCollector) collectHost(ctx context.Context, host string) ([]models.DockerSize, error) {
	opts := []client.Opt{client.WithAPIVersionNegotiation()}
	if host == "" || host == "local" {
		opts = append(opts, client.FromEnv)
	} else {
		opts = append(opts, client.WithHost(host))
	}

	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Docker client: %w", err)
	}
	defer cli.Close()

	collectCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	containers, err := cli.ContainerList(collectCtx, container.ListOptions{All: true, Size: true})
	if err != nil {
		return nil, fmt.Errorf("failed to list containers: %w", err)
	}

	hostname := hostLabel(host)
	rows := make([]models.DockerSize, 0, len(containers))
	for _, c := range containers {
		rows = append(rows, models.DockerSize{
			Hostname: hostname,
			Stack:    c.Labels[labelComposeProject],
			Service:  serviceName(c),
			SizeMB:   float64(c.SizeRw+c.SizeRootFs) / (1024 * 1024),
		})
	}
	return rows, nil
}

func serviceName(c types.Container) string {
	if svc := c.Labels[labelComposeService]; svc != "" {
		return svc
	}
	if len(c.Names) > 0 {
		return strings.TrimPrefix(c.Names[0], "/")
	}
	return c.ID[:12]
}

// hostLabel reduces a Docker endpoint URL to a hostname for the ledger row.
func hostLabel(host string) string {
	if host == "" || host == "local" {
		return "localhost"
	}
	if u, err := url.Parse(host); err == nil && u.Hostname() != "" {
		return u.Hostname()
	}
	return host
}
