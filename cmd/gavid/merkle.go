package main

import (
	"fmt"

	"github.com/gordian-engine/gavid/gmerkle"
	"github.com/spf13/cobra"
)

func newMerkleRootCommand() *cobra.Command {
	var hashName string

	cmd := &cobra.Command{
		Use:   "merkle-root VALUE...",
		Short: "Print the hex Merkle root over the given leaf values",
		Args:  cobra.MinimumNArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := hashOptions(hashName)
			if err != nil {
				return err
			}

			leaves := make([][]byte, len(args))
			for i, a := range args {
				leaves[i] = []byte(a)
			}

			tree, err := gmerkle.Build(leaves, opts...)
			if err != nil {
				return err
			}
			root, err := tree.RootHex()
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), root)
			return nil
		},
	}
	cmd.Flags().StringVar(&hashName, "hash", "sha256", "leaf and node hash: sha256 or blake2b")

	return cmd
}
