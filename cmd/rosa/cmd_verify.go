package main

import (
	"fmt"

	"github.com/rosavcs/rosa/pkg/object"
	"github.com/rosavcs/rosa/pkg/repo"
	"github.com/spf13/cobra"
)

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <commit>",
		Short: "Verify a commit's SSH signature",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}

			h, err := resolveShowTarget(r, args[0])
			if err != nil {
				return err
			}
			commit, err := r.Store.ReadCommit(h)
			if err != nil {
				return err
			}
			if commit.Signature == "" {
				return fmt.Errorf("commit %s is not signed", h.Short())
			}

			payload := object.CommitSigningPayload(commit)
			pub, err := verifyCommitSignature(commit.Signature, payload)
			if err != nil {
				return fmt.Errorf("commit %s: %w", h.Short(), err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "good signature on %s (%s key)\n", h.Short(), pub.Type())
			return nil
		},
	}
}
