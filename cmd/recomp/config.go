package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/1broseidon/recomp/internal/config"
)

var noOverrides config.RawConfig

func newConfigCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the effective configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Check the config file for errors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := loadConfig(g, displayOverride(g)); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "config: ok")
			return nil
		},
	})

	var defaults bool
	printCmd := &cobra.Command{
		Use:   "print",
		Short: "Print the effective config as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.DefaultConfig()
			if !defaults {
				res, err := loadConfig(g, displayOverride(g))
				if err != nil {
					return err
				}
				cfg = res.Config
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	printCmd.Flags().BoolVar(&defaults, "defaults", false, "Print built-in defaults (no files)")
	cmd.AddCommand(printCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "explain PATH",
		Short: "Show a config value and where it came from",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := loadConfig(g, displayOverride(g))
			if err != nil {
				return err
			}
			return explain(cmd.OutOrStdout(), res, args[0])
		},
	})

	return cmd
}

func displayOverride(g *globalFlags) config.RawConfig {
	if g.display == "" {
		return noOverrides
	}
	display := g.display
	return config.RawConfig{Display: &display}
}

func explain(w io.Writer, res *config.LoadResult, path string) error {
	value, src, err := config.Explain(res, path)
	if err != nil {
		return err
	}
	out, err := yaml.Marshal(value)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "path: %s\n", path)
	fmt.Fprintf(w, "source: %s\n", formatSource(src))
	fmt.Fprintf(w, "value:\n%s", out)
	return nil
}

func formatSource(src config.Source) string {
	switch src.Kind {
	case config.SourceFile:
		if src.File == "" {
			return "file"
		}
		if src.Line > 0 {
			return fmt.Sprintf("file:%s:%d:%d", src.File, src.Line, src.Column)
		}
		return "file:" + src.File
	case config.SourceFlag:
		return "flag"
	default:
		return "default"
	}
}
