package main

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/rosavcs/rosa/pkg/repo"
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show working tree status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}

			entries, err := r.Status()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()

			head, err := r.ReadHead()
			if err != nil {
				return err
			}
			switch {
			case head.Detached():
				fmt.Fprintf(out, "HEAD detached at %s\n", head.Commit.Short())
			case head.Commit == "":
				fmt.Fprintf(out, "on %s (no commits yet)\n", head.Branch)
			default:
				fmt.Fprintf(out, "on %s\n", head.Branch)
			}

			var staged, unstaged, untracked []string
			for _, e := range entries {
				path := filepath.ToSlash(e.Path)

				switch e.Staged {
				case repo.StatusNew:
					staged = append(staged, "  + "+path)
				case repo.StatusModified:
					staged = append(staged, "  ~ "+path)
				case repo.StatusDeleted:
					staged = append(staged, "  - "+path)
				}

				switch e.Worktree {
				case repo.StatusModified:
					unstaged = append(unstaged, "  ~ "+path)
				case repo.StatusDeleted:
					unstaged = append(unstaged, "  - "+path)
				case repo.StatusUntracked:
					untracked = append(untracked, "  "+path)
				}
			}

			printSection(out, "staged:", staged)
			printSection(out, "unstaged:", unstaged)
			printSection(out, "untracked:", untracked)

			if len(staged) == 0 && len(unstaged) == 0 && len(untracked) == 0 {
				fmt.Fprintln(out, "nothing to commit, working tree clean")
			}
			return nil
		},
	}
}

func printSection(out io.Writer, header string, lines []string) {
	if len(lines) == 0 {
		return
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, header)
	for _, line := range lines {
		fmt.Fprintln(out, line)
	}
}
