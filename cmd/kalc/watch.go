package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ColdOrange/kaleidoscope/config"
)

// debounceWindow collapses the bursts of events editors emit on save.
const debounceWindow = 100 * time.Millisecond

// watchFiles checks the given files, then re-checks a file whenever it
// changes, until interrupted.
func watchFiles(files []string, cfg *config.Config, stdout, stderr io.Writer) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	watched := make(map[string]bool, len(files))
	for _, file := range files {
		abs, err := filepath.Abs(file)
		if err != nil {
			return fmt.Errorf("invalid path %s: %w", file, err)
		}
		watched[abs] = true

		// Watch the directory: editors often replace the file on save,
		// which would drop a watch set on the file itself.
		if err := watcher.Add(filepath.Dir(abs)); err != nil {
			return fmt.Errorf("cannot watch %s: %w", file, err)
		}
	}

	for _, file := range files {
		checkOne(file, cfg, stdout, stderr)
	}
	fmt.Fprintln(stdout, "Watching for changes... (Ctrl+C to stop)")

	var lastChange time.Time
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil || !watched[abs] {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if time.Since(lastChange) < debounceWindow {
				continue
			}
			lastChange = time.Now()

			checkOne(event.Name, cfg, stdout, stderr)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(stderr, "watch error: %v\n", err)
		}
	}
}

// checkOne syntax-checks a single file and reports the outcome.
func checkOne(filename string, cfg *config.Config, stdout, stderr io.Writer) {
	content, err := os.ReadFile(filename)
	if err != nil {
		fmt.Fprintf(stderr, "Error reading %s: %v\n", filename, err)
		return
	}

	if checkSource(string(content), filename, cfg, stderr) {
		fmt.Fprintf(stdout, "%s: OK\n", filename)
	}
}
