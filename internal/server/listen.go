package server

import (
	"errors"
	"fmt"
	"net"
)

// ErrExposedWithoutToken is returned by CheckListen for an address other
// hosts can reach when no token is configured.
var ErrExposedWithoutToken = errors.New("refusing to serve the API beyond loopback without a token")

// CheckListen rejects listen addresses reachable from other hosts unless a
// token protects the API.
func CheckListen(addr, token string) error {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid listen address %q: %w", addr, err)
	}
	if token != "" || isLoopback(host) {
		return nil
	}
	return fmt.Errorf("%w: %s (set a token or listen on 127.0.0.1)", ErrExposedWithoutToken, addr)
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
