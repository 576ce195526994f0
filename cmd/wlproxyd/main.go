// Command wlproxyd is the proxy daemon: it accepts downstream client
// connections on a Unix socket, dials the upstream compositor once per
// client, and relays the framed wire protocol between them. Its main()
// shape is grounded almost verbatim on krd/main.go: a package-level
// logger, a panic handler that logs then re-panics, sockets opened and
// deferred-closed in sequence, long-lived goroutines for the control
// server and the event loop, and a blocking signal wait for shutdown.
package main

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/op/go-logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli"

	"github.com/wlmux/wlmux/internal/config"
	"github.com/wlmux/wlmux/internal/control"
	wlog "github.com/wlmux/wlmux/internal/logging"
	"github.com/wlmux/wlmux/internal/loop"
	"github.com/wlmux/wlmux/internal/metrics"
	"github.com/wlmux/wlmux/internal/object"
	"github.com/wlmux/wlmux/internal/proto"
)

func useSyslog() bool {
	env := os.Getenv("WLPROXY_LOG_SYSLOG")
	if env != "" {
		return env == "true"
	}
	return false
}

var log = wlog.Setup("wlproxyd", logging.INFO, useSyslog())

func main() {
	app := cli.NewApp()
	app.Name = "wlproxyd"
	app.Usage = "relay a Wayland-shaped wire protocol between clients and one compositor"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "downstream",
			Usage: "socket path clients connect to (default under the proxy's run dir)",
		},
		cli.StringFlag{
			Name:  "upstream",
			Usage: "socket path of the real compositor to relay to",
			Value: os.Getenv("WAYLAND_DISPLAY"),
		},
		cli.StringFlag{
			Name:  "control",
			Usage: "socket path for the debug/introspection HTTP server (default under the proxy's run dir)",
		},
	}
	app.Action = run
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(c *cli.Context) (err error) {
	defer func() {
		if x := recover(); x != nil {
			log.Error(fmt.Sprintf("run time panic: %v", x))
			log.Error(string(debug.Stack()))
			panic(x)
		}
	}()

	upstreamPath := c.String("upstream")
	if upstreamPath == "" {
		return fmt.Errorf("wlproxyd: --upstream (or $WAYLAND_DISPLAY) is required")
	}

	downstreamPath := c.String("downstream")
	if downstreamPath == "" {
		downstreamPath, err = config.DirFile(config.DownstreamSocketName)
		if err != nil {
			log.Fatal(err)
		}
	}
	controlPath := c.String("control")
	if controlPath == "" {
		controlPath, err = config.DirFile(config.ControlSocketName)
		if err != nil {
			log.Fatal(err)
		}
	}

	downstreamListener, err := config.ListenDownstream(downstreamPath)
	if err != nil {
		log.Fatal(err)
	}
	defer downstreamListener.Close()

	controlListener, err := config.ListenDownstream(controlPath)
	if err != nil {
		log.Fatal(err)
	}
	defer controlListener.Close()

	if err := config.WritePidFile(); err != nil {
		log.Error(err)
	}
	defer config.RemovePidFile()

	registry := proto.NewRegistry()
	coll := metrics.NewCollector(prometheus.DefaultRegisterer)

	dial := func() (*net.UnixConn, error) {
		addr, err := net.ResolveUnixAddr("unix", upstreamPath)
		if err != nil {
			return nil, err
		}
		return net.DialUnix("unix", nil, addr)
	}

	// One audit trail shared across every bound connection, so /audit
	// reflects the whole daemon's recent deletes/errors rather than a
	// trail that dies with the connection that populated it.
	audit := object.NewAudit()

	l := loop.New(dial, registry, coll, log, audit)
	defer l.Shutdown()

	ctl := control.New(l, audit, log)

	go func() {
		if err := ctl.Serve(controlListener); err != nil {
			log.Error("control server return:", err)
		}
	}()

	go func() {
		if err := l.Serve(downstreamListener); err != nil {
			log.Error("event loop return:", err)
		}
	}()

	log.Notice(fmt.Sprintf("wlproxyd listening on %s, relaying to %s", downstreamPath, upstreamPath))

	stopSignal := make(chan os.Signal, 1)
	signal.Notify(stopSignal, os.Interrupt, syscall.SIGHUP, syscall.SIGQUIT, syscall.SIGTERM)
	sig, ok := <-stopSignal
	if ok {
		log.Notice("stopping with signal", sig)
	}
	return nil
}
