// Package resolve turns the hostname given on the command line into the
// address probes connect to, following a _minecraft._tcp SRV record if one
// exists.
package resolve

import (
	"context"
	"net"
	"strings"

	"github.com/rs/zerolog"

	"github.com/mcnotify/mcnotify/internal/status"
	"github.com/mcnotify/mcnotify/internal/util"
)

// LookupSRVFunc matches net.Resolver.LookupSRV.
type LookupSRVFunc func(ctx context.Context, service, proto, name string) (string, []*net.SRV, error)

// Resolver resolves poll targets.
type Resolver struct {
	lookup LookupSRVFunc
	logger zerolog.Logger
}

// New creates a resolver. A nil lookup uses net.DefaultResolver.
func New(lookup LookupSRVFunc) *Resolver {
	if lookup == nil {
		lookup = net.DefaultResolver.LookupSRV
	}
	return &Resolver{
		lookup: lookup,
		logger: util.ComponentLogger("resolve"),
	}
}

// Resolve returns the target for hostname and port. When an SRV record
// exists its first entry replaces host and port. Lookup failures are logged
// and leave the target unchanged.
func (r *Resolver) Resolve(ctx context.Context, hostname string, port uint16) status.Target {
	target := status.NewTarget(hostname, port)

	if net.ParseIP(hostname) != nil {
		return target
	}

	_, records, err := r.lookup(ctx, "minecraft", "tcp", hostname)
	if err != nil {
		r.logger.Debug().Err(err).Str("hostname", hostname).Msg("no SRV record, using address as given")
		return target
	}
	if len(records) == 0 {
		return target
	}

	srv := records[0]
	target.Host = strings.TrimSuffix(srv.Target, ".")
	target.Port = srv.Port

	r.logger.Info().
		Str("hostname", hostname).
		Str("host", target.Host).
		Uint16("port", target.Port).
		Bool("redirected", target.Redirected()).
		Msg("resolved SRV record")
	return target
}
