package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	cli "github.com/spf13/pflag"

	"jarvis/internal/ipc"
)

func main() {
	socket := cli.StringP("socket", "s", ipc.DefaultSocketPath, "Control socket path")
	asJSON := cli.BoolP("json", "j", false, "Print the full reply as JSON")
	cli.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: jarvis-ctl [flags] %s [text]\n", strings.Join(ipc.Commands, "|"))
		cli.PrintDefaults()
	}
	cli.Parse()

	if cli.NArg() == 0 {
		cli.Usage()
		os.Exit(2)
	}

	cmd := cli.Arg(0)
	text := strings.Join(cli.Args()[1:], " ")

	r, err := ipc.SendCommand(*socket, cmd, text)
	if err != nil && r.Error == "" {
		fmt.Fprintln(os.Stderr, "jarvis-daemon not running:", err)
		os.Exit(1)
	}

	if *asJSON {
		out, _ := json.MarshalIndent(r, "", "  ")
		fmt.Println(string(out))
	} else {
		fmt.Println(r.State.Status())
		if r.State.LastResponse != "" {
			fmt.Println("Jarvis:", r.State.LastResponse)
		}
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "jarvis-ctl:", err)
		os.Exit(1)
	}
}
