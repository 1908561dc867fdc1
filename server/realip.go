package server

import (
	"net"
	"net/http"
	"strings"
)

var privateCidrs []*net.IPNet

func init() {
	blocks := []string{
		"127.0.0.1/8",
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		"169.254.0.0/16",
		"100.64.0.0/10",
		"::1/128",
		"fc00::/7",
		"fe80::/10",
	}
	privateCidrs = make([]*net.IPNet, len(blocks))
	for i, block := range blocks {
		_, cidr, _ := net.ParseCIDR(block)
		privateCidrs[i] = cidr
	}
}

func isPrivateIP(address string) bool {
	ip := net.ParseIP(address)
	if ip == nil {
		return false
	}
	for _, cidr := range privateCidrs {
		if cidr.Contains(ip) {
			return true
		}
	}
	return false
}

// RealIP returns the client's public IP address from request headers,
// falling back to the remote address
func RealIP(r *http.Request) string {
	xRealIP := r.Header.Get("X-Real-Ip")
	xForwardedFor := r.Header.Get("X-Forwarded-For")

	if xRealIP == "" && xForwardedFor == "" {
		if strings.ContainsRune(r.RemoteAddr, ':') {
			host, _, _ := net.SplitHostPort(r.RemoteAddr)
			return host
		}
		return r.RemoteAddr
	}
	for _, address := range strings.Split(xForwardedFor, ",") {
		address = strings.TrimSpace(address)
		if address != "" && !isPrivateIP(address) {
			return address
		}
	}
	return xRealIP
}
