// Package connectivity answers the point-in-time question "can this
// process reach the internet right now". It is a single check at the
// orchestrator boundary, not a subscription.
package connectivity

import (
	"context"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"

	"github.com/linksift/linksift/internal/logger"
)

// fallbackDialTargets are tried over plain TCP when every DNS probe fails,
// so a broken local resolver does not read as "offline".
var fallbackDialTargets = []string{"1.1.1.1:443", "8.8.8.8:443"}

// Checker probes connectivity with a DNS A query against the system's
// resolvers (public servers when resolv.conf is unreadable), falling back
// to a raw TCP dial.
type Checker struct {
	probeHost string
	timeout   time.Duration
	servers   []string
	client    *dns.Client
	log       logger.Logger
}

func NewChecker(probeHost string, timeout time.Duration, log logger.Logger) *Checker {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Checker{
		probeHost: probeHost,
		timeout:   timeout,
		servers:   systemDNSServers(),
		client:    &dns.Client{Timeout: timeout},
		log:       log,
	}
}

// systemDNSServers returns the system's resolvers or well-known public ones.
func systemDNSServers() []string {
	config, err := dns.ClientConfigFromFile("/etc/resolv.conf")
	if err != nil || len(config.Servers) == 0 {
		return []string{"8.8.8.8:53", "1.1.1.1:53"}
	}
	servers := make([]string, 0, len(config.Servers))
	for _, server := range config.Servers {
		if !strings.Contains(server, ":") {
			server = net.JoinHostPort(server, config.Port)
		}
		servers = append(servers, server)
	}
	return servers
}

// CanAccessInternet reports whether a probe succeeded. Any single success
// is enough; total failure means offline.
func (c *Checker) CanAccessInternet(ctx context.Context) bool {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(c.probeHost), dns.TypeA)

	for _, server := range c.servers {
		reply, _, err := c.client.ExchangeContext(ctx, msg, server)
		if err != nil {
			continue
		}
		if reply.Rcode == dns.RcodeSuccess || reply.Rcode == dns.RcodeNameError {
			// Even NXDOMAIN proves a resolver answered over the network.
			return true
		}
	}

	for _, target := range fallbackDialTargets {
		d := net.Dialer{Timeout: c.timeout}
		conn, err := d.DialContext(ctx, "tcp", target)
		if err == nil {
			_ = conn.Close()
			return true
		}
	}

	c.log.Debug("connectivity probe failed on all paths",
		logger.String("probe_host", c.probeHost))
	return false
}
