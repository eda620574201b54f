package main

import (
	"fmt"

	"github.com/rosavcs/rosa/pkg/repo"
	"github.com/spf13/cobra"
)

func newTagCmd() *cobra.Command {
	var deleteName string
	var message string
	var annotate bool

	cmd := &cobra.Command{
		Use:   "tag [name] [target]",
		Short: "List, create, or delete tags",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}

			if deleteName != "" {
				if err := r.DeleteTag(deleteName); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted tag '%s'\n", deleteName)
				return nil
			}

			if len(args) == 0 {
				tags, err := r.ListTags()
				if err != nil {
					return err
				}
				for _, t := range tags {
					fmt.Fprintln(cmd.OutOrStdout(), t.Name)
				}
				return nil
			}

			name := args[0]
			target := ""
			if len(args) == 2 {
				target = args[1]
			}

			if annotate && message == "" {
				return fmt.Errorf("annotated tags need a message (-m)")
			}
			if annotate || message != "" {
				tagger, err := commitIdentity(r)
				if err != nil {
					return err
				}
				h, err := r.CreateAnnotatedTag(name, target, message, tagger)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created annotated tag '%s' (%s)\n", name, h.Short())
				return nil
			}

			if err := r.CreateTag(name, target); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created tag '%s'\n", name)
			return nil
		},
	}

	cmd.Flags().StringVarP(&deleteName, "delete", "d", "", "delete the named tag")
	cmd.Flags().BoolVarP(&annotate, "annotate", "a", false, "create an annotated tag object")
	cmd.Flags().StringVarP(&message, "message", "m", "", "tag message (implies --annotate)")

	return cmd
}
