package main

import (
	"errors"
	"flag"
	"fmt"
	"strconv"

	"github.com/mcnotify/mcnotify/internal/config"

	"github.com/mcnotify/mcnotify/internal/protocol"
)

var errUsage = errors.New("usage")

// invocation is what the command line asks for.
type invocation struct {
	configDir string
	history   int
	hostname  string
	port      uint16
}

// parseCommandLine reads flags and the target from args. It touches nothing
// on disk, so a usage error can be reported before any file is created.
func parseCommandLine(fs *flag.FlagSet, args []string) (invocation, error) {
	inv := invocation{}
	fs.StringVar(&inv.configDir, "config", config.DefaultConfigDir, "configuration directory")
	fs.IntVar(&inv.history, "history", 0, "print the last N recorded status changes and exit")
	if err := fs.Parse(args); err != nil {
		return inv, err
	}
	if inv.history > 0 {
		return inv, nil
	}

	var err error
	inv.hostname, inv.port, err = parseTarget(fs.Args())
	return inv, err
}

// parseTarget reads "<hostname> [port]" from the positional arguments.
func parseTarget(args []string) (string, uint16, error) {
	if len(args) == 0 || args[0] == "" {
		return "", 0, errUsage
	}
	if len(args) > 2 {
		return "", 0, fmt.Errorf("unexpected arguments: %v", args[2:])
	}

	port := protocol.DefaultPort
	if len(args) == 2 {
		p, err := strconv.ParseUint(args[1], 10, 16)
		if err != nil || p == 0 {
			return "", 0, fmt.Errorf("invalid port %q", args[1])
		}
		port = uint16(p)
	}
	return args[0], port, nil
}
