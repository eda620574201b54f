package main

import (
	"github.com/rosavcs/rosa/pkg/repo"
	"github.com/spf13/cobra"
)

func newAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "add <path>...",
		Aliases: []string{"stage"},
		Short:   "Stage file contents for the next commit",
		Long: `Stage the given paths into the index. Directories are walked
recursively, honoring .rosaignore patterns. Naming a tracked path that no
longer exists in the working tree stages its deletion.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}
			return r.Add(args)
		},
	}
}
