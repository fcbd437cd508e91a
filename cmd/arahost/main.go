package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/wippyai/ara-ipc/channel"
	"github.com/wippyai/ara-ipc/hostmodel"
	"github.com/wippyai/ara-ipc/proxy"
	"github.com/wippyai/ara-ipc/remote"
	"github.com/wippyai/ara-ipc/sineplug"
)

func main() {
	// The spawning side composes the remote marker arguments itself, so
	// they are checked before flag parsing.
	if rendezvous, codecName, ok := remote.ParseRemoteArgs(os.Args[1:]); ok {
		if err := runRemote(rendezvous, codecName); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	var (
		plugin      = flag.String("plugin", "", "Plug-in binary to spawn (defaults to this binary)")
		wire        = flag.String("wire", "binary", "Wire codec: binary or xml")
		seconds     = flag.Float64("seconds", 5, "Length of the generated audio source")
		verbose     = flag.Bool("v", false, "Verbose logging")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	if *verbose {
		log, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer log.Sync()
		setLoggers(log)
	}

	binary := *plugin
	if binary == "" {
		self, err := os.Executable()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		binary = self
	}

	if *interactive {
		if err := runInteractive(binary, *wire); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := runScenario(binary, *wire, *seconds); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func setLoggers(log *zap.Logger) {
	channel.SetLogger(log.Named("channel"))
	remote.SetLogger(log.Named("remote"))
	proxy.SetLogger(log.Named("proxy"))
	sineplug.SetLogger(log.Named("sineplug"))
	hostmodel.SetLogger(log.Named("hostmodel"))
}

// runRemote is the plug-in process: dial back to the host, serve until
// terminate arrives.
func runRemote(rendezvous, codecName string) error {
	conn, err := remote.ConnectChild(rendezvous, codecName, 0)
	if err != nil {
		return err
	}
	defer conn.Close()

	host := proxy.NewHost(conn)
	proxy.RegisterPlugIn(conn, sineplug.NewFactory(host.Interfaces()))
	return conn.RunLoop()
}
