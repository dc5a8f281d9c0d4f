package domain

import (
	"net/netip"
	"strings"
)

// Darknet classifies a host by the anonymity-network namespace it belongs
// to. Derived purely from the host string; stateless and total.
type Darknet int

const (
	DarknetNone Darknet = iota
	DarknetTor
	DarknetI2P
	DarknetLokinet
)

func (d Darknet) String() string {
	switch d {
	case DarknetTor:
		return "tor"
	case DarknetI2P:
		return "i2p"
	case DarknetLokinet:
		return "lokinet"
	default:
		return "none"
	}
}

// Classify maps a host to its darknet namespace. Every host maps to exactly
// one classification; unmatched hosts yield DarknetNone. Matching is
// case-insensitive and tolerates a trailing dot.
func Classify(host string) Darknet {
	h := strings.ToLower(strings.TrimSuffix(strings.TrimSpace(host), "."))
	switch {
	case h == "onion" || strings.HasSuffix(h, ".onion"):
		return DarknetTor
	case h == "i2p" || strings.HasSuffix(h, ".i2p"):
		return DarknetI2P
	case h == "loki" || strings.HasSuffix(h, ".loki"):
		return DarknetLokinet
	default:
		return DarknetNone
	}
}

// Suffixes that never resolve over the public internet.
var privateSuffixes = []string{".local", ".internal", ".home.arpa", ".lan"}

// PubliclyAccessible reports whether a host can plausibly be reached over
// the ordinary public internet: not a darknet name, not a single-label or
// site-local name, and not a loopback/private/link-local address literal.
// Pure string/address inspection, no lookups.
func PubliclyAccessible(host string) bool {
	h := strings.ToLower(strings.TrimSuffix(strings.TrimSpace(host), "."))
	if h == "" {
		return false
	}
	if Classify(h) != DarknetNone {
		return false
	}
	if addr, err := netip.ParseAddr(strings.Trim(h, "[]")); err == nil {
		return !(addr.IsLoopback() || addr.IsPrivate() || addr.IsLinkLocalUnicast() || addr.IsUnspecified())
	}
	if !strings.Contains(h, ".") {
		// Single-label names (localhost, bare mDNS names) are site-local.
		return false
	}
	for _, suffix := range privateSuffixes {
		if strings.HasSuffix(h, suffix) {
			return false
		}
	}
	return true
}
