package main

import (
	"fmt"

	"github.com/rosavcs/rosa/pkg/repo"
	"github.com/spf13/cobra"
)

func newBranchCmd() *cobra.Command {
	var deleteName string

	cmd := &cobra.Command{
		Use:   "branch [name] [start-point]",
		Short: "List or create branches",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}

			if deleteName != "" {
				if err := r.DeleteBranch(deleteName); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted branch '%s'\n", deleteName)
				return nil
			}

			if len(args) == 0 {
				branches, err := r.ListBranches()
				if err != nil {
					return err
				}
				current, err := r.CurrentBranch()
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, b := range branches {
					marker := "  "
					if b.Name == current {
						marker = "* "
					}
					fmt.Fprintf(out, "%s%s %s\n", marker, b.Name, b.Hash.Short())
				}
				return nil
			}

			start := ""
			if len(args) == 2 {
				start = args[1]
			}
			if err := r.CreateBranch(args[0], start); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created branch '%s'\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVarP(&deleteName, "delete", "d", "", "delete the named branch")

	return cmd
}
