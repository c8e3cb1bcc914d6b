package cli

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"beliefpad/api/internal/export"
	"beliefpad/api/internal/search"
)

var (
	errHistoryDisabled = errors.New("history is not enabled (set HISTORY_DIR)")
	errBackupDisabled  = errors.New("backups are not configured (set MINIO_ENDPOINT)")
)

func newSearchCommand(env *Env) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "search QUERY...",
		Short: "Search saved forms by text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := env.Search
			if svc == nil {
				svc = search.NewService(nil, search.NewLocal(env.Catalogue), env.Logger)
			}
			resp := svc.Search(cmd.Context(), search.Query{Text: strings.Join(args, " "), Limit: limit})
			out := cmd.OutOrStdout()
			if len(resp.Results) == 0 {
				fmt.Fprintln(out, "No matches.")
				return nil
			}
			for _, r := range resp.Results {
				_, _ = headingColor.Fprintf(out, "%s", r.Title)
				fmt.Fprintf(out, "  %s  %s\n", r.Subject, r.Key)
				if r.Snippet != "" {
					fmt.Fprintf(out, "    %s\n", r.Snippet)
				}
			}
			fmt.Fprintf(out, "%d of %d matches (%s)\n", len(resp.Results), resp.Total, resp.Engine)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum results")
	return cmd
}

func newHistoryCommand(env *Env) *cobra.Command {
	var (
		limit int
		show  string
	)
	cmd := &cobra.Command{
		Use:   "history KEY",
		Short: "List the recorded revisions of a form",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if env.History == nil {
				return errHistoryDisabled
			}
			out := cmd.OutOrStdout()
			if show != "" {
				doc, err := env.History.Revision(args[0], show)
				if err != nil {
					return err
				}
				content := export.EmailContent(doc, env.now())
				_, _ = headingColor.Fprintln(out, content.Subject)
				fmt.Fprintln(out, content.Body)
				return nil
			}
			commits, err := env.History.Log(args[0], limit)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			for _, c := range commits {
				state := ""
				if c.Deleted {
					state = "deleted"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", shortHash(c.Hash), c.CreatedAt.Local().Format("2006-01-02 15:04:05"), c.Message, state)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum revisions")
	cmd.Flags().StringVar(&show, "show", "", "Print the form as it was at this revision")
	return cmd
}

func newBackupCommand(env *Env) *cobra.Command {
	var list bool
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Upload the archive of every saved form to object storage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if env.Backup == nil {
				return errBackupDisabled
			}
			out := cmd.OutOrStdout()
			if list {
				objects, err := env.Backup.List(cmd.Context())
				if err != nil {
					return err
				}
				for _, o := range objects {
					fmt.Fprintf(out, "%s  %d bytes  %s\n", o.LastModified.Local().Format("2006-01-02 15:04"), o.Size, o.Name)
				}
				return nil
			}
			archive, err := env.Catalogue.ExportAll(cmd.Context())
			if err != nil {
				return err
			}
			object, err := env.Backup.Upload(cmd.Context(), archive)
			if err != nil {
				return err
			}
			success(out, "Uploaded %d forms to %s/%s", archive.Count, object.Bucket, object.Name)
			return nil
		},
	}
	cmd.Flags().BoolVar(&list, "list", false, "List existing backups")
	return cmd
}

func shortHash(hash string) string {
	if len(hash) > 8 {
		return hash[:8]
	}
	return hash
}
