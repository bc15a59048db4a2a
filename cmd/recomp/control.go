package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/1broseidon/recomp/internal/ipc"
	"github.com/1broseidon/recomp/internal/runtimepath"
)

// controlClient resolves the socket for the selected display. The config
// file's display is used when --display is not given.
func controlClient(g *globalFlags) (*ipc.Client, error) {
	display := g.display
	if display == "" {
		if res, err := loadConfig(g, noOverrides); err == nil {
			display = res.Config.Display
		}
	}
	socketPath, err := runtimepath.SocketPath(display)
	if err != nil {
		return nil, err
	}
	return ipc.NewClient(socketPath), nil
}

func newStatusCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show compositor status via the control socket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := controlClient(g)
			if err != nil {
				return err
			}
			st, err := client.Status(cmd.Context())
			if err != nil {
				return err
			}
			printStatus(cmd.OutOrStdout(), st)
			return nil
		},
	}
}

func printStatus(w io.Writer, st *ipc.StatusData) {
	label := func(s string) string { return fmt.Sprintf("%-17s", s+":") }
	state := st.State
	if isTerminal(w) {
		key := lipgloss.NewStyle().Bold(true)
		label = func(s string) string { return key.Render(fmt.Sprintf("%-17s", s+":")) }
		color := lipgloss.Color("9")
		if st.State == "running" {
			color = lipgloss.Color("10")
		}
		state = lipgloss.NewStyle().Foreground(color).Render(st.State)
	}

	ext := st.Extensions
	fmt.Fprintf(w, "%s%s\n", label("state"), state)
	fmt.Fprintf(w, "%s%d\n", label("frames_rendered"), st.FramesRendered)
	fmt.Fprintf(w, "%s%d\n", label("events"), st.Events)
	fmt.Fprintf(w, "%s%d\n", label("damage_events"), st.DamageEvents)
	fmt.Fprintf(w, "%s%d\n", label("protocol_errors"), st.ProtocolErrors)
	fmt.Fprintf(w, "%s%#x\n", label("root"), st.Root)
	fmt.Fprintf(w, "%s%#x\n", label("overlay"), st.Overlay)
	fmt.Fprintf(w, "%s%dx%d %s\n", label("surface"), st.Width, st.Height, st.Format)
	fmt.Fprintf(w, "%sComposite %d.%d, XFIXES %d.%d, DAMAGE %d.%d\n", label("extensions"),
		ext.Composite.Major, ext.Composite.Minor,
		ext.XFixes.Major, ext.XFixes.Minor,
		ext.Damage.Major, ext.Damage.Minor)
	fmt.Fprintf(w, "%s%d\n", label("uptime_seconds"), st.UptimeSeconds)
}

func newStopCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop a running compositor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := controlClient(g)
			if err != nil {
				return err
			}
			return client.Stop(cmd.Context())
		},
	}
}

func newResizeCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "resize WIDTHxHEIGHT",
		Short: "Reconfigure the compositor surface to a new size",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			width, height, err := parseSize(args[0])
			if err != nil {
				return err
			}
			client, err := controlClient(g)
			if err != nil {
				return err
			}
			return client.Resize(cmd.Context(), width, height)
		},
	}
}

// parseSize parses "WIDTHxHEIGHT" with both sides positive.
func parseSize(s string) (uint32, uint32, error) {
	w, h, ok := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "x")
	if !ok {
		return 0, 0, fmt.Errorf("invalid size %q: expected WIDTHxHEIGHT", s)
	}
	width, err := strconv.ParseUint(w, 10, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid width %q: %w", w, err)
	}
	height, err := strconv.ParseUint(h, 10, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid height %q: %w", h, err)
	}
	if width == 0 || height == 0 {
		return 0, 0, fmt.Errorf("invalid size %q: width and height must be > 0", s)
	}
	return uint32(width), uint32(height), nil
}
