package main

import (
	"fmt"
	"time"

	"github.com/rosavcs/rosa/pkg/object"
	"github.com/rosavcs/rosa/pkg/repo"
	"github.com/spf13/cobra"
)

func newLogCmd() *cobra.Command {
	var oneline bool
	var limit int

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show commit history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}

			entries, err := r.Log("", limit)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no commits yet")
				return nil
			}

			head, err := r.ReadHead()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, entry := range entries {
				decoration := buildDecoration(entry.Hash, head)
				c := entry.Commit

				if oneline {
					if decoration != "" {
						fmt.Fprintf(out, "%s %s %s\n", entry.Hash.Short(), decoration, firstMessageLine(c.Message))
					} else {
						fmt.Fprintf(out, "%s %s\n", entry.Hash.Short(), firstMessageLine(c.Message))
					}
					continue
				}

				if decoration != "" {
					fmt.Fprintf(out, "commit %s %s\n", entry.Hash, decoration)
				} else {
					fmt.Fprintf(out, "commit %s\n", entry.Hash)
				}
				fmt.Fprintf(out, "Author: %s <%s>\n", c.Author.Name, c.Author.Email)
				fmt.Fprintf(out, "Date:   %s\n", time.Unix(c.Author.Timestamp, 0).Format("2006-01-02 15:04:05"))
				fmt.Fprintln(out)
				fmt.Fprintf(out, "    %s\n", firstMessageLine(c.Message))
				fmt.Fprintln(out)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&oneline, "oneline", false, "compact one-line format")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of commits to show")

	return cmd
}

// buildDecoration returns "(HEAD -> main)" for the current tip, ""
// otherwise.
func buildDecoration(commitHash object.Hash, head repo.Head) string {
	if commitHash != head.Commit {
		return ""
	}
	if head.Branch != "" {
		return "(HEAD -> " + head.Branch + ")"
	}
	return "(HEAD)"
}
