package main

import (
	"fmt"
	"log/slog"

	"github.com/gordian-engine/gavid/gshard"
	"github.com/spf13/cobra"
)

func newDemoCommand(newLogger func(*cobra.Command) *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: `Shard "Hello" across 16 nodes, drop 7 shards, and reconstruct`,
		Args:  cobra.NoArgs,

		RunE: func(cmd *cobra.Command, _ []string) error {
			log := newLogger(cmd)
			out := cmd.OutOrStdout()

			const numNodes, numFaults = 16, 7
			blob := []byte("Hello")

			shards, err := gshard.Encode(blob, numNodes, numFaults)
			if err != nil {
				return fmt.Errorf("failed to encode: %w", err)
			}
			fmt.Fprintf(out, "SHARDS: %v\n", shards)

			received := make([][]byte, len(shards))
			copy(received, shards)
			dropped := []int{0, 2, 4, 6, 8, 10, 12}
			for _, idx := range dropped {
				received[idx] = nil
			}
			log.Debug("Dropped shards", "indices", dropped)

			reconstructed, err := gshard.Decode(received, numNodes, numFaults)
			if err != nil {
				return fmt.Errorf("failed to decode: %w", err)
			}

			fmt.Fprintf(out, "RECONSTRUCTED: %v\n", reconstructed)
			fmt.Fprintf(out, "String: %s\n", reconstructed)
			return nil
		},
	}
}
