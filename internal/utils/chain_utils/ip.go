package chainutils

import (
	"encoding/binary"
	"fmt"
	"net"
	"strconv"
	"strings"
)

// IPv4ToInt converts an IPv4 net.IP to its uint32 representation (big-endian)
func IPv4ToInt(ip net.IP) (uint32, error) {
	ip4 := ip.To4()
	if ip4 == nil {
		return 0, fmt.Errorf("not an ipv4 address")
	}
	return binary.BigEndian.Uint32(ip4), nil
}

// IntToIPv4 is the inverse of IPv4ToInt.
func IntToIPv4(v uint32) net.IP {
	ip := make(net.IP, 4)
	binary.BigEndian.PutUint32(ip, v)
	return ip
}

// AxonHost normalizes the ip reported for an axon, which the chain may
// encode as a decimal integer. It returns "" for unroutable addresses.
func AxonHost(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	var ip net.IP
	if n, err := strconv.ParseUint(raw, 10, 32); err == nil {
		ip = IntToIPv4(uint32(n))
	} else {
		ip = net.ParseIP(raw)
	}
	if ip == nil || ip.IsUnspecified() {
		return ""
	}
	return ip.String()
}
