package status

import (
	"net"
	"strconv"
)

// Target is the server being polled. Hostname is what the operator asked
// for; Host and Port are where probes actually connect, which differ when an
// SRV record redirects the name.
type Target struct {
	Hostname string `json:"hostname"`
	Host     string `json:"host"`
	Port     uint16 `json:"port"`
}

// NewTarget returns a target that connects to hostname:port directly.
func NewTarget(hostname string, port uint16) Target {
	return Target{Hostname: hostname, Host: hostname, Port: port}
}

// Address returns host:port suitable for net.Dial.
func (t Target) Address() string {
	return net.JoinHostPort(t.Host, strconv.Itoa(int(t.Port)))
}

// Redirected reports whether the connect address differs from the
// requested name.
func (t Target) Redirected() bool {
	return t.Host != t.Hostname
}
