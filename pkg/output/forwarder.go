package output

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"strings"
	"time"
)

// Protocol is the transport used to reach a remote collector.
type Protocol string

const (
	ProtocolTCP Protocol = "tcp"
	ProtocolUDP Protocol = "udp"
	ProtocolTLS Protocol = "tls"
)

// ParseProtocol validates a protocol name. "tls-tcp" is accepted as an
// alias for tls.
func ParseProtocol(s string) (Protocol, error) {
	switch strings.ToLower(s) {
	case "tcp", "":
		return ProtocolTCP, nil
	case "udp":
		return ProtocolUDP, nil
	case "tls", "tls-tcp":
		return ProtocolTLS, nil
	default:
		return "", fmt.Errorf("unknown forwarding protocol: %s", s)
	}
}

const dialTimeout = 10 * time.Second

// Forwarder sends newline-delimited JSON records to a remote
// collector.
type Forwarder struct {
	conn net.Conn
}

// NewForwarder connects to addr (host:port) using the given protocol.
// For TLS, certPath optionally names a PEM bundle to trust instead of
// the system roots; insecure disables certificate verification.
func NewForwarder(addr string, proto Protocol, certPath string, insecure bool) (*Forwarder, error) {
	var conn net.Conn
	var err error

	switch proto {
	case ProtocolTCP:
		conn, err = net.DialTimeout("tcp", addr, dialTimeout)
	case ProtocolUDP:
		conn, err = net.DialTimeout("udp", addr, dialTimeout)
	case ProtocolTLS:
		cfg := &tls.Config{InsecureSkipVerify: insecure}
		if certPath != "" {
			pem, readErr := os.ReadFile(certPath)
			if readErr != nil {
				return nil, fmt.Errorf("reading cert bundle: %w", readErr)
			}
			pool := x509.NewCertPool()
			if !pool.AppendCertsFromPEM(pem) {
				return nil, fmt.Errorf("no certificates found in %s", certPath)
			}
			cfg.RootCAs = pool
		}
		dialer := &net.Dialer{Timeout: dialTimeout}
		conn, err = tls.DialWithDialer(dialer, "tcp", addr, cfg)
	default:
		return nil, fmt.Errorf("unknown forwarding protocol: %s", proto)
	}

	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", addr, err)
	}
	return &Forwarder{conn: conn}, nil
}

// Send writes the record as one JSON line.
func (f *Forwarder) Send(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling record: %w", err)
	}
	data = append(data, '\n')
	if _, err := f.conn.Write(data); err != nil {
		return fmt.Errorf("forwarding record: %w", err)
	}
	return nil
}

// Close closes the connection.
func (f *Forwarder) Close() error {
	return f.conn.Close()
}
