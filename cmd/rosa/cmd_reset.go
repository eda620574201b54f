package main

import (
	"fmt"

	"github.com/rosavcs/rosa/pkg/repo"
	"github.com/spf13/cobra"
)

func newResetCmd() *cobra.Command {
	var soft, mixed, hard bool

	cmd := &cobra.Command{
		Use:   "reset <commit>",
		Short: "Move the current branch to another commit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode := repo.ResetMixed
			set := 0
			if soft {
				mode = repo.ResetSoft
				set++
			}
			if mixed {
				mode = repo.ResetMixed
				set++
			}
			if hard {
				mode = repo.ResetHard
				set++
			}
			if set > 1 {
				return fmt.Errorf("--soft, --mixed and --hard are mutually exclusive")
			}

			r, err := repo.Open(".")
			if err != nil {
				return err
			}
			if err := r.Reset(args[0], mode); err != nil {
				return err
			}

			head, err := r.ReadHead()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "HEAD is now at %s (%s reset)\n", head.Commit.Short(), mode)
			return nil
		},
	}

	cmd.Flags().BoolVar(&soft, "soft", false, "move HEAD only")
	cmd.Flags().BoolVar(&mixed, "mixed", false, "move HEAD and reset the index (default)")
	cmd.Flags().BoolVar(&hard, "hard", false, "move HEAD, reset index and working tree")

	return cmd
}
