package util

import (
	"net"
	"strings"
)

// NormalizeName returns a Kubernetes-compliant resource name: lower case,
// underscores and spaces replaced by hyphens, only [a-z0-9.-] kept, and an
// alphanumeric first and last character.
func NormalizeName(name string) string {
	lower := strings.ToLower(name)
	lower = strings.NewReplacer("_", "-", " ", "-").Replace(lower)

	var b strings.Builder
	for _, c := range lower {
		if isAlnum(c) || c == '.' || c == '-' {
			b.WriteRune(c)
		}
	}
	safe := strings.Trim(b.String(), ".-")

	if safe == "" || !isAlnum(rune(safe[0])) {
		safe = "x" + safe
	}
	if !isAlnum(rune(safe[len(safe)-1])) {
		safe += "0"
	}
	return safe
}

func isAlnum(c rune) bool {
	return (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
}

// IsValidIPv4 returns true if s parses as an IPv4 address.
func IsValidIPv4(s string) bool {
	ip := net.ParseIP(s)
	return ip != nil && ip.To4() != nil
}

// InSubnet reports whether ip lies within the CIDR. Unparseable input is
// reported as outside.
func InSubnet(ip, cidr string) bool {
	_, n, err := net.ParseCIDR(cidr)
	if err != nil {
		return false
	}
	parsed := net.ParseIP(ip)
	return parsed != nil && n.Contains(parsed)
}
