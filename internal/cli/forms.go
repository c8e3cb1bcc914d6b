package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/gobwas/glob"
	"github.com/spf13/cobra"

	"beliefpad/api/internal/catalog"
	"beliefpad/api/internal/document"
	"beliefpad/api/internal/editor"
	"beliefpad/api/internal/export"
)

func newNewCommand(env *Env) *cobra.Command {
	var (
		title, subject, details, sessionType, source string
		sections, emotions                           []string
	)
	cmd := &cobra.Command{
		Use:   "new",
		Short: "Create and save a session form",
		Example: `  beliefpad new --title "Jane Doe" --subject "Public speaking" \
    --section "NP=I will fail" --emotion Anger`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ed := env.editor(nil)
			ed.SetTitle(title)
			ed.SetSubject(subject)
			ed.SetDetails(details)
			ed.SetSessionType(sessionType)
			ed.SetSourceOfBelief(source)
			if err := addSections(ed, catalog.Primary(), sections, ed.AddSection); err != nil {
				return err
			}
			if err := addSections(ed, catalog.Emotions(), emotions, ed.AddEmotion); err != nil {
				return err
			}
			result, err := ed.Save(cmd.Context())
			if err != nil {
				return err
			}
			success(cmd.OutOrStdout(), "Saved %s", result.Key)
			capacityWarning(cmd.OutOrStdout(), result.Capacity)
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "Client name")
	cmd.Flags().StringVar(&subject, "subject", "", "Session subject")
	cmd.Flags().StringVar(&details, "details", "", "Session details")
	cmd.Flags().StringVar(&sessionType, "session-type", "", "Session type")
	cmd.Flags().StringVar(&source, "source", "", "Source of belief")
	cmd.Flags().StringArrayVar(&sections, "section", nil, "Section as CODE or CODE=content (repeatable)")
	cmd.Flags().StringArrayVar(&emotions, "emotion", nil, "Connected emotion as CODE or CODE=content (repeatable)")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

// addSections parses CODE[=content] values. Without content the section
// keeps its catalog default.
func addSections(ed *editor.Editor, cat *catalog.Catalog, values []string, add func(string) (document.Section, error)) error {
	for _, value := range values {
		code, content, hasContent := strings.Cut(value, "=")
		code = strings.TrimSpace(code)
		if !cat.Has(code) {
			return fmt.Errorf("unknown %s heading %q (see `beliefpad catalog`)", cat.Name(), code)
		}
		section, err := add(code)
		if err != nil {
			return err
		}
		if hasContent {
			ed.UpdateContent(section.ID, content)
		}
	}
	return nil
}

func newListCommand(env *Env) *cobra.Command {
	var match string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved forms, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var pattern glob.Glob
			if match != "" {
				g, err := glob.Compile(strings.ToLower(match))
				if err != nil {
					return fmt.Errorf("invalid --match pattern: %w", err)
				}
				pattern = g
			}

			entries, err := env.Catalogue.List(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			shown := 0
			for _, entry := range entries {
				if pattern != nil && !pattern.Match(strings.ToLower(entry.Title)) {
					continue
				}
				date := "-"
				if entry.HasDate {
					date = entry.SavedAt.Local().Format("2006-01-02 15:04")
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", date, entry.Title, entry.Subject, entry.Key)
				shown++
			}
			if shown == 0 {
				fmt.Fprintln(out, "No saved forms.")
				return nil
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&match, "match", "", "Only forms whose client name matches this glob, e.g. 'jane*'")
	return cmd
}

func newShowCommand(env *Env) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show KEY",
		Short: "Print a saved form",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if asJSON {
				raw, err := env.Catalogue.Raw(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(out, raw)
				return nil
			}
			doc, err := env.Catalogue.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			content := export.EmailContent(doc, env.now())
			_, _ = headingColor.Fprintln(out, content.Subject)
			fmt.Fprintln(out, content.Body)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the stored JSON")
	return cmd
}

func newDeleteCommand(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "delete KEY",
		Short: "Delete a saved form",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := env.editor(nil).Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			success(cmd.OutOrStdout(), "Deleted %s", args[0])
			return nil
		},
	}
}

func newClearCommand(env *Env) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every saved form",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return fmt.Errorf("this deletes every saved form; pass --yes to confirm")
			}
			removed, err := env.editor(nil).ClearAll(cmd.Context())
			if err != nil {
				return err
			}
			success(cmd.OutOrStdout(), "Cleared %d saved forms", removed)
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm deletion")
	return cmd
}

func newCapacityCommand(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "capacity",
		Short: "Show how full the catalogue is",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := env.Catalogue.Capacity(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Used %d of %d bytes (%.1f%%)\n", c.UsedBytes, c.TotalBytes, c.Percent())
			capacityWarning(out, c)
			return nil
		},
	}
}

func newCatalogCommand() *cobra.Command {
	var emotions bool
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List section headings and keyboard shortcuts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cat := catalog.Primary()
			if emotions {
				cat = catalog.Emotions()
			}
			out := cmd.OutOrStdout()
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			for _, code := range cat.Codes() {
				fmt.Fprintf(tw, "%s\t%s\n", code, cat.FullName(code))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			if emotions {
				return nil
			}
			_, _ = headingColor.Fprintln(out, "\nShortcuts")
			for _, key := range catalog.ShortcutKeys() {
				first, _ := catalog.Shortcut(key, catalog.Modifiers{})
				second, _ := catalog.Shortcut(key, catalog.Modifiers{Shift: true})
				third, _ := catalog.Shortcut(key, catalog.Modifiers{Shift: true, Alt: true})
				fmt.Fprintf(out, "ctrl+%s %s, ctrl+shift+%s %s, ctrl+shift+alt+%s %s\n", key, first, key, second, key, third)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&emotions, "emotions", false, "List connected emotions instead")
	return cmd
}
