package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/gordian-engine/gavid"
	"github.com/gordian-engine/gavid/gshard"
	"github.com/spf13/cobra"
)

func newDisperseCommand(newLogger func(*cobra.Command) *slog.Logger) *cobra.Command {
	cfg := gshard.DefaultConfig()
	var (
		lengthSuffix bool
		hashName     string
	)

	cmd := &cobra.Command{
		Use:   "disperse",
		Short: "Disperse standard input into verifiable chunks and report the result",
		Args:  cobra.NoArgs,

		RunE: func(cmd *cobra.Command, _ []string) error {
			log := newLogger(cmd)

			opts, err := hashOptions(hashName)
			if err != nil {
				return err
			}
			if lengthSuffix {
				cfg.Padding = gshard.PaddingLengthSuffix
			}

			blob, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("failed to read input: %w", err)
			}

			d, err := gavid.Disperse(blob, cfg, opts...)
			if err != nil {
				return err
			}

			var codec gavid.BinaryChunkCodec
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "root: %s\n", d.Root)
			fmt.Fprintf(out, "group: %s\n", d.GroupID)
			for i := range d.Chunks {
				c := &d.Chunks[i]
				enc, err := codec.Encode(c)
				if err != nil {
					return fmt.Errorf("failed to encode chunk %d: %w", i, err)
				}
				fmt.Fprintf(out, "chunk %d: %d data bytes, %d proof items, %d encoded bytes\n",
					c.Index, len(c.Data), len(c.Proof.Items), len(enc))
			}

			log.Debug(
				"Dispersed blob",
				"size", len(blob), "nodes", cfg.NumNodes, "faults", cfg.NumFaults, "padding", cfg.Padding,
			)
			return nil
		},
	}

	f := cmd.Flags()
	f.IntVarP(&cfg.NumNodes, "nodes", "n", cfg.NumNodes, "total number of shards")
	f.IntVarP(&cfg.NumFaults, "faults", "f", cfg.NumFaults, "number of shards that may be lost")
	f.BoolVar(&lengthSuffix, "length-suffix", false, "pad with a length suffix instead of a self-describing trailer")
	f.StringVar(&hashName, "hash", "sha256", "leaf and node hash: sha256 or blake2b")

	return cmd
}
