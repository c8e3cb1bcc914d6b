package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"beliefpad/api/internal/editor"
	"beliefpad/api/internal/export"
)

func newExportCommand(env *Env) *cobra.Command {
	var format, outDir string
	cmd := &cobra.Command{
		Use:   "export KEY",
		Short: "Export a saved form as pdf, json, email, html, print or docx",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := export.ParseFormat(strings.ToLower(format))
			if err != nil {
				return fmt.Errorf("%w: %q", err, format)
			}
			sink := &dirSink{dir: outDir}
			ed := env.editor(sink)
			if err := ed.Load(cmd.Context(), args[0]); err != nil {
				return err
			}
			if _, err := ed.Export(cmd.Context(), f); err != nil {
				return err
			}
			success(cmd.OutOrStdout(), "Wrote %s", sink.last)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", string(export.FormatPDF), "Output format")
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "Output directory")
	return cmd
}

func newImportCommand(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Import an exported JSON form and save it",
		Long:  "Import an exported JSON form and save it as a new entry. Use - to read standard input.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				data []byte
				err  error
			)
			if args[0] == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}
			ed := env.editor(nil)
			if err := ed.Import(data); err != nil {
				return err
			}
			result, err := ed.Save(cmd.Context())
			if err != nil {
				return err
			}
			success(cmd.OutOrStdout(), "Imported %s as %s", ed.Document().Title, result.Key)
			capacityWarning(cmd.OutOrStdout(), result.Capacity)
			return nil
		},
	}
}

func newExportAllCommand(env *Env) *cobra.Command {
	var outDir string
	cmd := &cobra.Command{
		Use:   "export-all",
		Short: "Write every saved form into one zip archive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sink := &dirSink{dir: outDir}
			archive, err := env.editor(sink).ExportAll(cmd.Context())
			if err != nil {
				return err
			}
			success(cmd.OutOrStdout(), "Wrote %d forms to %s", archive.Count, sink.last)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "Output directory")
	return cmd
}

func newMailtoCommand(env *Env) *cobra.Command {
	var (
		to   string
		open bool
	)
	cmd := &cobra.Command{
		Use:   "mailto KEY",
		Short: "Print a mailto link for a saved form",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ed := env.editor(nil)
			if err := ed.Load(cmd.Context(), args[0]); err != nil {
				return err
			}
			if open {
				if err := ed.OpenMailClient(cmd.Context(), to); err != nil {
					return err
				}
				success(cmd.OutOrStdout(), "Opened mail client for %s", to)
				return nil
			}
			link, err := ed.MailtoLink(to)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), link)
			return nil
		},
	}
	cmd.Flags().StringVar(&to, "to", "", "Recipient email")
	cmd.Flags().BoolVar(&open, "open", false, "Open the link in the default mail client")
	return cmd
}

func newSendCommand(env *Env) *cobra.Command {
	var opts editor.SendOptions
	cmd := &cobra.Command{
		Use:   "send KEY",
		Short: "Email a saved form through the beliefpad server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.PIN == "" {
				opts.PIN = env.PIN
			}
			ed := env.editor(nil)
			if err := ed.Load(cmd.Context(), args[0]); err != nil {
				return err
			}
			id, err := ed.SendEmail(cmd.Context(), opts)
			if err != nil {
				return err
			}
			success(cmd.OutOrStdout(), "Email sent to %s (%s)", strings.TrimSpace(opts.To), id)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.To, "to", "", "Recipient email")
	cmd.Flags().StringVar(&opts.SenderName, "sender-name", "", "Sender name")
	cmd.Flags().StringVar(&opts.SenderEmail, "sender-email", "", "Reply-to address")
	cmd.Flags().StringVar(&opts.Subject, "subject", "", "Subject, defaults to the session subject line")
	cmd.Flags().StringVar(&opts.Message, "message", "", "Message placed above the session notes")
	cmd.Flags().StringVar(&opts.PIN, "pin", "", "Delivery PIN, defaults to BELIEFPAD_PIN")
	return cmd
}
