package main

import (
	"fmt"
	"log/slog"

	"github.com/gordian-engine/gavid/gmerkle"
	"github.com/spf13/cobra"
)

// NewRootCommand returns the gavid command with all subcommands attached.
func NewRootCommand() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "gavid",
		Short: "Erasure-coded dispersal with Merkle authentication",

		SilenceUsage: true,
	}
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log at debug level to stderr")

	newLogger := func(cmd *cobra.Command) *slog.Logger {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	}

	cmd.AddCommand(
		newDemoCommand(newLogger),
		newMerkleRootCommand(),
		newDisperseCommand(newLogger),
	)

	return cmd
}

func hashOptions(name string) ([]gmerkle.Option, error) {
	switch name {
	case "sha256":
		return nil, nil
	case "blake2b":
		return []gmerkle.Option{gmerkle.WithHash(gmerkle.BLAKE2b256)}, nil
	default:
		return nil, fmt.Errorf("unknown hash %q (want sha256 or blake2b)", name)
	}
}
