package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/rosavcs/rosa/pkg/object"
	"github.com/rosavcs/rosa/pkg/repo"
	"github.com/spf13/cobra"
)

func newCommitCmd() *cobra.Command {
	var message string
	var authorFlag string
	var signKey string
	var sign bool
	var allowEmpty bool

	cmd := &cobra.Command{
		Use:   "commit",
		Short: "Record changes to the repository",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(message) == "" {
				return fmt.Errorf("commit message is required (-m)")
			}

			r, err := repo.Open(".")
			if err != nil {
				return err
			}

			author, err := commitIdentity(r)
			if err != nil {
				return err
			}
			if authorFlag != "" {
				author, err = parseAuthorFlag(authorFlag)
				if err != nil {
					return err
				}
			}

			opts := repo.CommitOptions{
				Message:    message,
				Author:     author,
				AllowEmpty: allowEmpty,
			}
			if sign || signKey != "" {
				signer, keyPath, err := newSSHCommitSigner(signKey)
				if err != nil {
					return err
				}
				opts.Signer = signer
				fmt.Fprintf(cmd.OutOrStdout(), "signing with %s\n", keyPath)
			}

			result, err := r.Commit(opts)
			if err != nil {
				return err
			}

			label := result.Branch
			if result.Detached {
				label = "detached HEAD"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "[%s %s] %s\n", label, result.Hash.Short(), firstMessageLine(message))
			if result.Detached {
				fmt.Fprintln(cmd.OutOrStdout(), "warning: HEAD is detached; create a branch to keep this commit reachable")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "commit message")
	cmd.Flags().StringVar(&authorFlag, "author", "", "override the author as 'Name <email>'")
	cmd.Flags().BoolVarP(&sign, "sign", "S", false, "sign the commit with the default SSH key")
	cmd.Flags().StringVar(&signKey, "sign-key", "", "sign the commit with the given SSH private key")
	cmd.Flags().BoolVar(&allowEmpty, "allow-empty", false, "record a commit even with no changes")

	return cmd
}

// commitIdentity builds the author from config, falling back to $USER
// when nothing is configured.
func commitIdentity(r *repo.Repo) (object.Identity, error) {
	cfg, err := r.ReadConfig()
	if err != nil {
		return object.Identity{}, err
	}
	name := cfg.User.Name
	email := cfg.User.Email
	if name == "" {
		name = os.Getenv("USER")
		if name == "" {
			name = "unknown"
		}
	}
	if email == "" {
		email = name + "@localhost"
	}
	return repo.NowIdentity(name, email), nil
}

// parseAuthorFlag accepts the conventional "Name <email>" form.
func parseAuthorFlag(s string) (object.Identity, error) {
	lt := strings.IndexByte(s, '<')
	gt := strings.LastIndexByte(s, '>')
	if lt <= 0 || gt < lt {
		return object.Identity{}, fmt.Errorf("--author must look like 'Name <email>', got %q", s)
	}
	name := strings.TrimSpace(s[:lt])
	email := strings.TrimSpace(s[lt+1 : gt])
	if name == "" || email == "" {
		return object.Identity{}, fmt.Errorf("--author must look like 'Name <email>', got %q", s)
	}
	return repo.NowIdentity(name, email), nil
}

func firstMessageLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
