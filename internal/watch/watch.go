// Package watch republishes a source file whenever it changes on disk, for
// the standalone serve mode where no connected editor pushes content.
package watch

import (
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reports write events for one file, collapsing editor save bursts
// (write + rename + chmod) into a single callback.
type Watcher struct {
	path    string
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// New starts watching path and invokes onChange after each settled change.
func New(path string, onChange func()) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("file watcher: %w", err)
	}
	// Watch the directory: many editors replace the file on save, which
	// drops a watch placed on the file itself.
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("file watcher: %w", err)
	}

	w := &Watcher{path: path, watcher: fw, done: make(chan struct{})}
	go w.run(onChange)
	return w, nil
}

func (w *Watcher) run(onChange func()) {
	var settle *time.Timer
	target := filepath.Clean(w.path)

	for {
		select {
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if settle != nil {
				settle.Stop()
			}
			settle = time.AfterFunc(50*time.Millisecond, func() {
				select {
				case <-w.done:
				default:
					onChange()
				}
			})
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("[epubsync] watch: %v", err)
		case <-w.done:
			return
		}
	}
}

// Close stops the watcher; callbacks scheduled before Close are suppressed.
func (w *Watcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}
