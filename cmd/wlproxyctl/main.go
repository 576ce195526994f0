// Command wlproxyctl is the operator CLI: it talks to a running
// wlproxyd's control socket over HTTP, grounded on kr/kr.go's command
// table shape and daemon/client/client.go's "write an *http.Request
// straight at the unix conn" style.
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"

	"github.com/fatih/color"
	"github.com/urfave/cli"

	"github.com/wlmux/wlmux/internal/config"
)

func red(s string) string {
	c := color.New(color.FgHiRed)
	c.EnableColor()
	return c.SprintFunc()(s)
}

func green(s string) string {
	c := color.New(color.FgHiGreen)
	c.EnableColor()
	return c.SprintFunc()(s)
}

func controlPath(c *cli.Context) (string, error) {
	if p := c.GlobalString("control"); p != "" {
		return p, nil
	}
	return config.DirFile(config.ControlSocketName)
}

func dialControl(c *cli.Context) (net.Conn, error) {
	path, err := controlPath(c)
	if err != nil {
		return nil, err
	}
	return net.Dial("unix", path)
}

func getOver(conn net.Conn, route string) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodGet, route, nil)
	if err != nil {
		return nil, err
	}
	if err := req.Write(conn); err != nil {
		return nil, err
	}
	return http.ReadResponse(bufio.NewReader(conn), req)
}

func versionCommand(c *cli.Context) error {
	conn, err := dialControl(c)
	if err != nil {
		return fmt.Errorf("connecting to wlproxyd: %v (%s)", err, red("is it running?"))
	}
	defer conn.Close()
	resp, err := getOver(conn, "/version")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	var buf [256]byte
	n, _ := resp.Body.Read(buf[:])
	fmt.Println(string(buf[:n]))
	return nil
}

func pingCommand(c *cli.Context) error {
	conn, err := dialControl(c)
	if err != nil {
		fmt.Println(red("wlproxyd is not running"))
		return nil
	}
	defer conn.Close()
	resp, err := getOver(conn, "/ping")
	if err != nil || resp.StatusCode != http.StatusOK {
		fmt.Println(red("wlproxyd is not responding"))
		return nil
	}
	resp.Body.Close()
	fmt.Println(green("wlproxyd is running"))
	return nil
}

type connectionsResponse struct {
	Active int `json:"active"`
}

func connectionsCommand(c *cli.Context) error {
	conn, err := dialControl(c)
	if err != nil {
		return fmt.Errorf("connecting to wlproxyd: %v", err)
	}
	defer conn.Close()
	resp, err := getOver(conn, "/connections")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	var body connectionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return err
	}
	fmt.Printf("%d connection(s) active\n", body.Active)
	return nil
}

type auditResponse struct {
	RecentDeletes []uint32 `json:"recent_deletes"`
	RecentErrors  []string `json:"recent_errors"`
}

func auditCommand(c *cli.Context) error {
	conn, err := dialControl(c)
	if err != nil {
		return fmt.Errorf("connecting to wlproxyd: %v", err)
	}
	defer conn.Close()
	resp, err := getOver(conn, "/audit")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	var body auditResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return err
	}
	fmt.Printf("recent deleted object ids: %v\n", body.RecentDeletes)
	fmt.Printf("recent dispatch errors: %v\n", body.RecentErrors)
	return nil
}

func main() {
	app := cli.NewApp()
	app.Name = "wlproxyctl"
	app.Usage = "inspect a running wlproxyd"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "control",
			Usage: "socket path of wlproxyd's control server (default under the proxy's run dir)",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:   "version",
			Usage:  "print the running wlproxyd's version",
			Action: versionCommand,
		},
		{
			Name:   "ping",
			Usage:  "check whether wlproxyd is reachable",
			Action: pingCommand,
		},
		{
			Name:   "connections",
			Usage:  "print the number of active client connections",
			Action: connectionsCommand,
		},
		{
			Name:   "audit",
			Usage:  "print recent object deletions and dispatch errors",
			Action: auditCommand,
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, red(err.Error()))
		os.Exit(1)
	}
}
