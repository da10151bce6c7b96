package tlsx

import (
	"crypto/x509"
	"net/netip"
	"strings"
)

// setVerifyTarget configures the session's verification target from the
// expected host: syntactically valid IP literals get IP-match verification,
// everything else DNS-name verification. Bracketed IPv6 literals are
// unwrapped first.
func setVerifyTarget(sess Session, host string) error {
	trimmed := host
	if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
		trimmed = trimmed[1 : len(trimmed)-1]
	}
	if ip, err := netip.ParseAddr(trimmed); err == nil {
		return sess.SetVerifyIP(ip)
	}
	return sess.SetVerifyHost(host)
}

// matchesName reports whether a certificate name pattern covers host.
// A wildcard is honored only as the entire leftmost label and consumes
// exactly one label, so "*.example.com" covers "b.example.com" but not
// "a.b.example.com" and not "example.com". Partial wildcards such as
// "f*.example.com" are rejected outright.
func matchesName(pattern, host string) bool {
	pattern = strings.TrimSuffix(strings.ToLower(pattern), ".")
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	if pattern == "" || host == "" {
		return false
	}
	patternLabels := strings.Split(pattern, ".")
	hostLabels := strings.Split(host, ".")
	if len(patternLabels) != len(hostLabels) {
		return false
	}
	for i, p := range patternLabels {
		if p == "*" && i == 0 && len(patternLabels) >= 3 {
			continue
		}
		if strings.Contains(p, "*") {
			return false
		}
		if p != hostLabels[i] {
			return false
		}
	}
	return true
}

// leafMatchesHost checks the leaf certificate against a DNS-name target
// using the strict matcher above. Certificates without SANs are rejected;
// CommonName fallback died long ago.
func leafMatchesHost(leaf *x509.Certificate, host string) bool {
	for _, name := range leaf.DNSNames {
		if matchesName(name, host) {
			return true
		}
	}
	return false
}

// leafMatchesIP checks the leaf certificate's IP SANs for an exact match.
func leafMatchesIP(leaf *x509.Certificate, ip netip.Addr) bool {
	for _, candidate := range leaf.IPAddresses {
		if addr, ok := netip.AddrFromSlice(candidate); ok && addr.Unmap() == ip.Unmap() {
			return true
		}
	}
	return false
}
