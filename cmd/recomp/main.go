package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set during build.
var Version = "0.1.0-dev"

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	display    string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	rf := &runFlags{}

	root := &cobra.Command{
		Use:   "recomp",
		Short: "Minimal X11 compositing manager",
		Long: `recomp redirects the X11 screen through the Composite overlay window
and presents it with a Vulkan surface, clearing every frame to a fixed
colour. Running recomp with no subcommand starts the compositor.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompositor(cmd, g, rf)
		},
	}
	root.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "version %s\n" .Version}}`)

	pf := root.PersistentFlags()
	pf.StringVar(&g.configPath, "config", "", "Config file path (default: ~/.config/recomp/config.yaml)")
	pf.StringVar(&g.display, "display", "", "X display to manage (default: $DISPLAY)")

	rf.register(root)
	root.AddCommand(newRunCmd(g))
	root.AddCommand(newStatusCmd(g))
	root.AddCommand(newStopCmd(g))
	root.AddCommand(newResizeCmd(g))
	root.AddCommand(newConfigCmd(g))

	return root
}
