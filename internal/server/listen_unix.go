//go:build !windows

package server

import (
	"fmt"
	"net"
	"os"
)

// listen binds a unix socket, replacing a stale socket file from a previous
// run. Permissions restrict the API to the owning user; broader access goes
// through minted scope tokens, not filesystem ACLs.
func listen(path string) (net.Listener, error) {
	if _, err := os.Stat(path); err == nil {
		if err := os.Remove(path); err != nil {
			return nil, fmt.Errorf("remove stale socket: %w", err)
		}
	}

	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, err
	}

	if err := os.Chmod(path, 0o600); err != nil {
		ln.Close()
		return nil, fmt.Errorf("restrict socket permissions: %w", err)
	}

	return ln, nil
}
