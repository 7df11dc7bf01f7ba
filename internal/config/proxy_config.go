package config

import (
	"net/netip"
	"strings"
)

type Proxy struct{}

var _ ProxyConfig = Proxy{}

// TrustedProxies are the networks whose X-Forwarded-For headers are believed.
type TrustedProxies []netip.Prefix

func (t TrustedProxies) Contains(addr netip.Addr) bool {
	addr = addr.Unmap()
	for _, prefix := range t {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// GetTrustedProxies reads a comma separated TRUSTED_PROXIES list of CIDRs or single
// addresses. Unparseable entries are skipped. Empty means no proxy is trusted.
func (Proxy) GetTrustedProxies() TrustedProxies {
	var proxies TrustedProxies
	for _, entry := range strings.Split(GetEnv("TRUSTED_PROXIES", ""), ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if prefix, err := netip.ParsePrefix(entry); err == nil {
			proxies = append(proxies, prefix.Masked())
			continue
		}
		if addr, err := netip.ParseAddr(entry); err == nil {
			addr = addr.Unmap()
			proxies = append(proxies, netip.PrefixFrom(addr, addr.BitLen()))
		}
	}
	return proxies
}
