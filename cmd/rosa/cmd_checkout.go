package main

import (
	"fmt"

	"github.com/rosavcs/rosa/pkg/repo"
	"github.com/spf13/cobra"
)

func newCheckoutCmd() *cobra.Command {
	var createBranch bool
	var force bool

	cmd := &cobra.Command{
		Use:   "checkout <branch|commit>",
		Short: "Switch branches or restore a commit's tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := args[0]

			r, err := repo.Open(".")
			if err != nil {
				return err
			}

			if createBranch {
				if err := r.CreateBranch(target, ""); err != nil {
					return err
				}
			}

			if err := r.Checkout(target, force); err != nil {
				return err
			}

			head, err := r.ReadHead()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			switch {
			case createBranch:
				fmt.Fprintf(out, "switched to new branch '%s'\n", target)
			case head.Detached():
				fmt.Fprintf(out, "HEAD detached at %s\n", head.Commit.Short())
			default:
				fmt.Fprintf(out, "switched to branch '%s'\n", target)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&createBranch, "branch", "b", false, "create and switch to a new branch")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "discard local changes that would be overwritten")

	return cmd
}
