// Package config locates the proxy's runtime directory and socket
// paths.
package config

import (
	"net"
	"os"
	"os/user"
	"path/filepath"
	"strconv"

	"github.com/youtube/vitess/go/ioutil2"
)

const dirName = ".wlmux"

// DownstreamSocketName is the default name of the socket clients dial.
const DownstreamSocketName = "wlmux.sock"

// ControlSocketName is the default name of the debug/introspection
// socket internal/control listens on.
const ControlSocketName = "wlmux-control.sock"

// HomeDir resolves the invoking user's home directory: prefer the
// system user database entry, fall back to $HOME.
func HomeDir() string {
	u, err := user.Lookup(username())
	if err == nil && u != nil && u.HomeDir != "" {
		return u.HomeDir
	}
	return os.Getenv("HOME")
}

func username() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	return ""
}

// Dir returns the proxy's runtime directory, creating it if needed.
func Dir() (string, error) {
	dir := filepath.Join(HomeDir(), dirName)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", err
	}
	return dir, nil
}

// DirFile joins name onto Dir(), creating the directory first.
func DirFile(name string) (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

// ListenDownstream opens the client-facing unix listener, removing a
// stale socket file left behind by an unclean shutdown.
func ListenDownstream(path string) (*net.UnixListener, error) {
	_ = os.Remove(path)
	return net.ListenUnix("unix", &net.UnixAddr{Net: "unix", Name: path})
}

// WritePidFile records the running daemon's pid atomically: a temp file
// renamed over the destination so a concurrent reader never observes a
// partial write.
func WritePidFile() error {
	path, err := DirFile("wlproxyd.pid")
	if err != nil {
		return err
	}
	return ioutil2.WriteFileAtomic(path, []byte(strconv.Itoa(os.Getpid())), 0600)
}

// RemovePidFile deletes the pid file on clean shutdown; a missing file
// is not an error.
func RemovePidFile() error {
	path, err := DirFile("wlproxyd.pid")
	if err != nil {
		return err
	}
	if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
		return rmErr
	}
	return nil
}
