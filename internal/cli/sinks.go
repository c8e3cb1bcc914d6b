package cli

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// dirSink writes downloads into a directory.
type dirSink struct {
	dir  string
	last string
}

func (d *dirSink) Save(_ context.Context, filename, _ string, data []byte) error {
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(d.dir, safeFilename(filename))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	d.last = path
	return nil
}

// safeFilename keeps a generated name inside the output directory.
func safeFilename(name string) string {
	return strings.NewReplacer("/", "_", "\\", "_").Replace(name)
}

// SystemMailClient hands mailto links to the desktop's URL opener.
type SystemMailClient struct{}

func (SystemMailClient) Open(ctx context.Context, link string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.CommandContext(ctx, "open", link)
	case "windows":
		cmd = exec.CommandContext(ctx, "rundll32", "url.dll,FileProtocolHandler", link)
	default:
		cmd = exec.CommandContext(ctx, "xdg-open", link)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("open mail client: %w", err)
	}
	return nil
}
