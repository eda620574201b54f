package main

import (
	"fmt"
	"time"

	"github.com/rosavcs/rosa/pkg/object"
	"github.com/rosavcs/rosa/pkg/repo"
	"github.com/spf13/cobra"
)

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <object>",
		Short: "Show an object from the store",
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

			objType, data, err := r.Store.Read(h)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch objType {
			case object.TypeBlob:
				_, err := out.Write(data)
				return err
			case object.TypeTree:
				tree, err := object.UnmarshalTree(data)
				if err != nil {
					return err
				}
				for _, e := range tree.Entries {
					fmt.Fprintf(out, "%s %s %s\n", e.Mode, e.Target, e.Name)
				}
				return nil
			case object.TypeCommit:
				commit, err := object.UnmarshalCommit(data)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "commit %s\n", h)
				fmt.Fprintf(out, "tree %s\n", commit.TreeHash)
				for _, p := range commit.Parents {
					fmt.Fprintf(out, "parent %s\n", p)
				}
				fmt.Fprintf(out, "Author: %s <%s>\n", commit.Author.Name, commit.Author.Email)
				fmt.Fprintf(out, "Date:   %s\n", time.Unix(commit.Author.Timestamp, 0).Format("2006-01-02 15:04:05"))
				if commit.Signature != "" {
					fmt.Fprintln(out, "signed: yes")
				}
				fmt.Fprintln(out)
				fmt.Fprintf(out, "    %s\n", commit.Message)
				return nil
			case object.TypeTag:
				tag, err := object.UnmarshalTag(data)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "tag %s\n", tag.Name)
				fmt.Fprintf(out, "object %s (%s)\n", tag.TargetHash, tag.TargetType)
				fmt.Fprintf(out, "Tagger: %s <%s>\n", tag.Tagger.Name, tag.Tagger.Email)
				fmt.Fprintln(out)
				fmt.Fprintf(out, "    %s\n", tag.Message)
				return nil
			}
			return fmt.Errorf("unknown object type %q", objType)
		},
	}
}

func resolveShowTarget(r *repo.Repo, target string) (object.Hash, error) {
	if h, err := r.ResolveRef(target); err == nil {
		return h, nil
	}
	if h, err := r.ResolveRef("refs/tags/" + target); err == nil {
		return h, nil
	}
	h := object.Hash(target)
	if h.IsValid() {
		return h, nil
	}
	return "", fmt.Errorf("cannot resolve %q", target)
}
