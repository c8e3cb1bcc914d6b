// Package cli implements the beliefpad command line.
package cli

import (
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"beliefpad/api/internal/backup"
	"beliefpad/api/internal/editor"
	"beliefpad/api/internal/export"
	"beliefpad/api/internal/history"
	"beliefpad/api/internal/logging"
	"beliefpad/api/internal/search"
	"beliefpad/api/internal/store"
)

// Env holds the collaborators commands run against. History, Search, Backup,
// Delivery and Mail may be nil; commands needing them fail with a message.
type Env struct {
	Catalogue *store.Catalogue
	Exporter  *export.Service
	History   *history.Service
	Search    *search.Service
	Backup    *backup.Service
	Delivery  editor.Delivery
	Mail      editor.MailClient
	Logger    logging.Logger
	// PIN is the default for `send --pin`.
	PIN string
	Now func() time.Time
}

func (e *Env) now() time.Time {
	if e.Now == nil {
		return time.Now()
	}
	return e.Now()
}

func (e *Env) editor(files editor.FileSink) *editor.Editor {
	return editor.New(e.Catalogue, e.Exporter, editor.Options{
		Files:    files,
		Mail:     e.Mail,
		Delivery: e.Delivery,
		Logger:   e.Logger,
		Now:      e.now,
	})
}

// NewRootCommand builds the command tree bound to env.
func NewRootCommand(env *Env) *cobra.Command {
	root := &cobra.Command{
		Use:           "beliefpad",
		Short:         "Record, store and share Belief Code session notes",
		Long:          `beliefpad keeps session forms in a local catalogue and turns them into PDF, JSON, HTML and email hand-offs.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newNewCommand(env),
		newListCommand(env),
		newShowCommand(env),
		newDeleteCommand(env),
		newClearCommand(env),
		newCapacityCommand(env),
		newCatalogCommand(),
		newExportCommand(env),
		newImportCommand(env),
		newExportAllCommand(env),
		newMailtoCommand(env),
		newSendCommand(env),
		newSearchCommand(env),
		newHistoryCommand(env),
		newBackupCommand(env),
	)
	return root
}

// PrintError reports a command failure in red.
func PrintError(w io.Writer, err error) {
	failure(w, "Error: %v", err)
}

var (
	successColor = color.New(color.FgGreen)
	warningColor = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed)
	headingColor = color.New(color.FgCyan, color.Bold)
)

func success(w io.Writer, format string, args ...any) {
	_, _ = successColor.Fprintf(w, format+"\n", args...)
}

func warning(w io.Writer, format string, args ...any) {
	_, _ = warningColor.Fprintf(w, format+"\n", args...)
}

func failure(w io.Writer, format string, args ...any) {
	_, _ = errorColor.Fprintf(w, format+"\n", args...)
}

func capacityWarning(w io.Writer, c store.Capacity) {
	if c.Warning {
		warning(w, "Storage is %.1f%% full. Consider exporting and clearing old forms.", c.Percent())
	}
}
