package main

import (
	"errors"
	"fmt"

	"github.com/rosavcs/rosa/pkg/repo"
	"github.com/spf13/cobra"
)

func newMergeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "merge <branch>",
		Short: "Merge another branch into the current branch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}

			committer, err := commitIdentity(r)
			if err != nil {
				return err
			}

			result, err := r.Merge(args[0], committer)
			out := cmd.OutOrStdout()
			if errors.Is(err, repo.ErrMergeConflict) {
				fmt.Fprintln(out, "merge stopped with conflicts:")
				for _, path := range result.Conflicts {
					fmt.Fprintf(out, "  ! %s\n", path)
				}
				fmt.Fprintln(out, "resolve the markers, 'rosa add' the files, then 'rosa commit'")
				return err
			}
			if err != nil {
				return err
			}

			switch {
			case result.AlreadyUpToDate:
				fmt.Fprintln(out, "already up to date")
			case result.FastForward:
				fmt.Fprintf(out, "fast-forward to %s\n", result.Hash.Short())
			default:
				fmt.Fprintf(out, "merged %s: %s\n", args[0], result.Hash.Short())
			}
			return nil
		},
	}
}
