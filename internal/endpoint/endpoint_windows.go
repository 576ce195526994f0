// +build windows

package endpoint

import (
	"encoding/binary"
	"fmt"
	"net"

	"github.com/Microsoft/go-winio"
)

// ListenPipe opens a Windows named pipe listener as the platform
// substitute for a Unix-domain listening socket. Named pipes carry no
// SCM_RIGHTS equivalent, so an endpoint built over one never receives
// fd-typed arguments; any signature declaring an fd arg on this
// platform fails the relay at the dispatcher, logged like any other
// unsupported-argument condition rather than panicking.
func ListenPipe(path string) (net.Listener, error) {
	return winio.ListenPipe(path, nil)
}

// DialPipe opens a Windows named pipe as the upstream connection.
func DialPipe(path string) (net.Conn, error) {
	return winio.DialPipe(path, nil)
}

// pipeEndpoint mirrors Endpoint's framing logic over a plain net.Conn,
// since named pipes are byte streams with no ancillary-data fd channel.
type pipeEndpoint struct {
	*Endpoint
	conn net.Conn
}

func newPipeWords(totalBytes int, raw []byte) ([]uint32, error) {
	if totalBytes%4 != 0 {
		return nil, fmt.Errorf("wire: invalid message length %d", totalBytes)
	}
	words := make([]uint32, totalBytes/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(raw[i*4 : i*4+4])
	}
	return words, nil
}
