package cli

import (
	"context"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch a directory and process new .gz logs as they arrive",
	Long: `Watch a local directory for new compressed access logs and run the ETL
step for each one as it appears. This is the local stand-in for an
event-driven object-store trigger. Stop with Ctrl-C.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return err
		}
		defer watcher.Close()

		if err := watcher.Add(watchDir); err != nil {
			return err
		}
		e.log.Infow("watching for new logs", "dir", watchDir)

		for {
			select {
			case <-ctx.Done():
				e.log.Info("stopping watcher")
				return nil
			case event := <-watcher.Events:
				if event.Op&fsnotify.Create != fsnotify.Create {
					continue
				}
				if !strings.HasSuffix(event.Name, ".gz") {
					continue
				}
				// Give the writer a moment to finish the file.
				time.Sleep(200 * time.Millisecond)
				e.handleNewLog(ctx, event.Name)
			case err := <-watcher.Errors:
				e.log.Errorw("watch error", "error", err)
			}
		}
	},
}

// handleNewLog imports and processes one freshly written log file. Failures
// are logged, not fatal: the watcher keeps running.
func (e *env) handleNewLog(ctx context.Context, file string) {
	key, err := e.ingest(ctx, file)
	if err != nil {
		e.log.Errorw("failed to import log", "file", file, "error", err)
		return
	}
	outKey, err := e.pipe.ProcessRaw(ctx, key)
	if err != nil {
		e.log.Errorw("failed to process log", "key", key, "error", err)
		return
	}
	e.log.Infow("processed raw log", "input", key, "output", outKey)
}
