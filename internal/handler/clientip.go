package handler

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/yl2chen/cidranger"
)

var ErrInvalidProxy = errors.New("invalid trusted proxy")

// TrustedProxies decides whether X-Forwarded-For may be believed. Only peers
// inside one of the configured networks can set the client IP.
type TrustedProxies struct {
	ranger cidranger.Ranger
	size   int
}

// NewTrustedProxies accepts CIDRs and bare IPs. An empty list trusts nobody.
func NewTrustedProxies(entries []string) (*TrustedProxies, error) {
	ranger := cidranger.NewPCTrieRanger()

	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if !strings.Contains(entry, "/") {
			ip := net.ParseIP(entry)
			if ip == nil {
				return nil, fmt.Errorf("%w: %q", ErrInvalidProxy, entry)
			}
			if ip.To4() != nil {
				entry += "/32"
			} else {
				entry += "/128"
			}
		}

		_, network, err := net.ParseCIDR(entry)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidProxy, entry, err)
		}

		if err := ranger.Insert(cidranger.NewBasicRangerEntry(*network)); err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidProxy, entry, err)
		}
	}

	return &TrustedProxies{ranger: ranger, size: len(entries)}, nil
}

func (t *TrustedProxies) trusts(ip net.IP) bool {
	if t == nil || t.size == 0 || ip == nil {
		return false
	}

	ok, err := t.ranger.Contains(ip)
	return err == nil && ok
}

// ClientIP returns the first X-Forwarded-For hop when the TCP peer is a
// trusted proxy, otherwise the peer address itself.
func (t *TrustedProxies) ClientIP(r *http.Request) string {
	peer := r.RemoteAddr
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		peer = host
	}

	if !t.trusts(net.ParseIP(peer)) {
		return peer
	}

	xff := r.Header.Get("X-Forwarded-For")
	if xff == "" {
		return peer
	}

	first := strings.TrimSpace(strings.Split(xff, ",")[0])
	if first == "" {
		return peer
	}
	return first
}
