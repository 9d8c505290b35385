package device

import (
	"context"
	"fmt"
	"net"
	"time"
)

// Prober checks that host:port accepts TCP connections.
type Prober func(ctx context.Context, host string, port int, timeout time.Duration) error

var _ Prober = ProbeTCP

// ProbeTCP reports whether host:port accepts a TCP connection within timeout.
func ProbeTCP(ctx context.Context, host string, port int, timeout time.Duration) error {
	addr := net.JoinHostPort(host, fmt.Sprint(port))
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("probe %s: %w", addr, err)
	}
	conn.Close()
	return nil
}
