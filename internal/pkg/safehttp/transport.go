// Package safehttp provides an outbound HTTP transport that refuses to dial
// loopback, private, and link-local addresses. The gateway only ever talks to
// public follow-graph APIs, so a base URL that resolves into the deployment
// network should fail at dial time.
package safehttp

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"
)

const dialTimeout = 5 * time.Second

// GuardedTransport returns a transport whose dialer rejects connections that
// land on a non-public address.
func GuardedTransport() *http.Transport {
	return &http.Transport{
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			dialer := &net.Dialer{Timeout: dialTimeout}
			conn, err := dialer.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}

			host, _, _ := net.SplitHostPort(conn.RemoteAddr().String())
			ip := net.ParseIP(host)
			if ip == nil {
				conn.Close()
				return nil, fmt.Errorf("could not parse remote address for %q", addr)
			}

			if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() {
				conn.Close()
				return nil, fmt.Errorf("upstream resolved to non-public address %s", ip)
			}

			return conn, nil
		},
	}
}
