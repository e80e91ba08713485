//go:build windows

package server

import (
	"net"

	"github.com/Microsoft/go-winio"
)

// Built-in users can read/write the pipe; full control stays with SYSTEM and
// administrators. Authorization happens at the token layer.
const pipeSecurityDescriptor = "D:(A;;GRGW;;;BU)(A;;FA;;;SY)(A;;FA;;;BA)"

// listen creates the named pipe endpoint for the API.
func listen(path string) (net.Listener, error) {
	return winio.ListenPipe(path, &winio.PipeConfig{
		SecurityDescriptor: pipeSecurityDescriptor,
		MessageMode:        false,
	})
}
