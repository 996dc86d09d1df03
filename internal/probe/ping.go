// Package probe contains the built-in fleet collectors: an ICMP
// reachability probe feeding the health_checks table and a Docker size
// collector feeding docker_sizes.
package probe

import (
	"context"
	"fmt"
	"time"

	"github.com/go-ping/ping"

	"github.com/opsledger/opsledger/internal/models"
)

// Pinger probes fleet hosts over ICMP and reports one health check row per
// host. An unreachable probe is a finding, not an error: the row carries
// critical status and the pass continues.
type Pinger struct {
	hosts   []string
	timeout time.Duration
	count   int
}

// NewPinger creates a pinger for the given hosts.
func NewPinger(hosts []string, timeout time.Duration) *Pinger {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Pinger{hosts: hosts, timeout: timeout, count: 3}
}

// Run probes every configured host in sequence and returns the resulting
// health check rows. With no hosts configured it returns nil.
func (p *Pinger) Run(ctx context.Context) []models.HealthCheck {
	if len(p.hosts) == 0 {
		return nil
	}

	checks := make([]models.HealthCheck, 0, len(p.hosts))
	for _, host := range p.hosts {
		checks = append(checks, p.probe(ctx, host))
	}
	return checks
}

func (p *Pinger) probe(ctx context.Context, host string) models.HealthCheck {
	check := models.HealthCheck{
		Hostname:  host,
		CheckName: "ping",
	}

	pinger, err := ping.NewPinger(host)
	if err != nil {
		check.CheckStatus = models.CheckCritical
		check.CheckDetail = fmt.Sprintf("failed to create pinger: %v", err)
		return check
	}

	pinger.Count = p.count
	pinger.Timeout = p.timeout
	pinger.SetPrivileged(false) // unprivileged UDP mode

	done := make(chan error, 1)
	go func() {
		done <- pinger.Run()
	}()

	select {
	case <-ctx.Done():
		pinger.Stop()
		check.CheckStatus = models.CheckCritical
		check.CheckDetail = "ping cancelled"
		return check
	case err := <-done:
		if err != nil {
			check.CheckStatus = models.CheckCritical
			check.CheckDetail = fmt.Sprintf("ping failed: %v", err)
			return check
		}
	}

	stats := pinger.Statistics()
	if stats.PacketsRecv == 0 {
		check.CheckStatus = models.CheckCritical
		check.CheckDetail = fmt.Sprintf("no reply to %d packets", stats.PacketsSent)
		return check
	}

	check.CheckValue = fmt.Sprintf("%dms", stats.AvgRtt.Milliseconds())
	if stats.PacketLoss > 0 {
		check.CheckStatus = models.CheckWarning
		check.CheckDetail = fmt.Sprintf("%.0f%% packet loss", stats.PacketLoss)
		return check
	}

	check.CheckStatus = models.CheckOK
	return check
}
