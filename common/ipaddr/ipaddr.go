package ipaddr

import (
	"net"
	"regexp"
	"strconv"
	"strings"
)

// ipv4Pattern matches a dotted quad with nothing before or after it. Octet
// range checking happens separately; the pattern only pins the shape so that
// surrounding whitespace, schemes or ports never slip through.
var ipv4Pattern = regexp.MustCompile(`^(\d{1,3})\.(\d{1,3})\.(\d{1,3})\.(\d{1,3})$`)

// cidrPattern matches a dotted quad with a /0 to /32 suffix.
var cidrPattern = regexp.MustCompile(`^(\d{1,3})\.(\d{1,3})\.(\d{1,3})\.(\d{1,3})/(\d{1,2})$`)

// nonRoutable holds ranges that must never become actionable blacklist
// targets: RFC1918, loopback, link-local, "this network", multicast and the
// class E reserved block.
var nonRoutable []*net.IPNet

func init() {
	for _, cidr := range []string{
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		"127.0.0.0/8",
		"0.0.0.0/8",
		"169.254.0.0/16",
		"224.0.0.0/4",
		"240.0.0.0/4",
	} {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			panic("ipaddr: bad builtin range " + cidr)
		}
		nonRoutable = append(nonRoutable, network)
	}
}

// parse matches s against the dotted-quad shape and range-checks every octet.
// Octets with leading zeros are rejected: inet_aton-style parsers read "010"
// as octal 8, so normalizing such input here could block the wrong host.
func parse(s string) (net.IP, bool) {
	m := ipv4Pattern.FindStringSubmatch(s)
	if m == nil {
		return nil, false
	}
	var octets [4]byte
	for i, o := range m[1:5] {
		if len(o) > 1 && o[0] == '0' {
			return nil, false
		}
		n, err := strconv.Atoi(o)
		if err != nil || n > 255 {
			return nil, false
		}
		octets[i] = byte(n)
	}
	return net.IPv4(octets[0], octets[1], octets[2], octets[3]), true
}

// IsValidIPv4 reports whether s is a well-formed dotted-quad IPv4 address.
// The match is exact: no surrounding whitespace, no sign characters and every
// octet in 0-255. Feed payloads carry plenty of near-addresses and the point
// is to drop them, not to guess.
func IsValidIPv4(s string) bool {
	_, ok := parse(s)
	return ok
}

// IsValidIPv4OrCIDR reports whether s is a valid plain IPv4 address or an
// IPv4 CIDR block with a prefix length of 0-32.
func IsValidIPv4OrCIDR(s string) bool {
	if IsValidIPv4(s) {
		return true
	}
	m := cidrPattern.FindStringSubmatch(s)
	if m == nil {
		return false
	}
	if _, ok := parse(strings.Join(m[1:5], ".")); !ok {
		return false
	}
	prefix, err := strconv.Atoi(m[5])
	if err != nil {
		return false
	}
	return prefix <= 32
}

// IsPrivate reports whether a valid IPv4 address is private or otherwise
// non-routable. 0.0.0.0 and 255.255.255.255 both count: neither is a real
// attacker address and pushing them to a firewall would be an outage, not a
// block. Malformed input returns false; validity is a separate check.
func IsPrivate(s string) bool {
	ip, ok := parse(s)
	if !ok {
		return false
	}
	if ip.Equal(net.IPv4bcast) {
		return true
	}
	for _, network := range nonRoutable {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// IsPublic reports whether s is a valid, publicly routable IPv4 address.
func IsPublic(s string) bool {
	return IsValidIPv4(s) && !IsPrivate(s)
}

// Normalize returns the canonical dotted-quad form of s. CIDR input collapses
// to the network address of the block. The second return value is false when
// s is not a valid IPv4 address or CIDR block.
func Normalize(s string) (string, bool) {
	if ip, ok := parse(s); ok {
		return ip.String(), true
	}
	m := cidrPattern.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	ip, ok := parse(strings.Join(m[1:5], "."))
	if !ok {
		return "", false
	}
	prefix, err := strconv.Atoi(m[5])
	if err != nil || prefix > 32 {
		return "", false
	}
	return ip.Mask(net.CIDRMask(prefix, 32)).String(), true
}

// FilterValidPublic partitions raw tokens into normalized public addresses
// and rejected tokens, preserving arrival order on both sides. It never
// panics regardless of input.
func FilterValidPublic(raw []string) (valid []string, rejected []string) {
	for _, token := range raw {
		normalized, ok := Normalize(token)
		if !ok || !IsPublic(normalized) {
			rejected = append(rejected, token)
			continue
		}
		valid = append(valid, normalized)
	}
	return valid, rejected
}

// SplitTokens breaks a free-form line into whitespace or comma separated
// tokens. Parsers use it ahead of validation so a "1.2.3.4, 5.6.7.8" cell
// still yields both addresses.
func SplitTokens(line string) []string {
	return strings.FieldsFunc(line, func(r rune) bool {
		return r == ' ' || r == '\t' || r == ','
	})
}
