// Package watch reloads a program image when its file changes on disk.
package watch

import (
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/howeyc/fsnotify"

	"github.com/mnafees/c8host/internal/host"
)

// Editors and build tools tend to write a file in several steps, so changes
// are only acted upon once the file has been quiet for this long.
const settle = 100 * time.Millisecond

// Source wraps an event source and adds a host.Reload event whenever the
// watched program file has been rewritten.
type Source struct {
	host.EventSource

	programs chan []byte
	watcher  *fsnotify.Watcher
	done     chan struct{}
}

// New watches the directory holding path and wraps events. Failures to read
// the changed file are reported to logger and otherwise ignored.
func New(events host.EventSource, path string, logger *log.Logger) (*Source, error) {
	path = filepath.Clean(path)
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Watch(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, err
	}

	s := newSource(events)
	s.watcher = watcher
	go s.run(path, logger)
	return s, nil
}

func newSource(events host.EventSource) *Source {
	return &Source{
		EventSource: events,
		programs:    make(chan []byte, 1),
		done:        make(chan struct{}),
	}
}

func (s *Source) run(path string, logger *log.Logger) {
	var reload <-chan time.Time
	for {
		select {
		case ev, ok := <-s.watcher.Event:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) == path && !ev.IsAttrib() && !ev.IsDelete() {
				reload = time.After(settle)
			}
		case err, ok := <-s.watcher.Error:
			if !ok {
				return
			}
			logger.Printf("watch: %v", err)
		case <-reload:
			reload = nil
			program, err := os.ReadFile(path)
			if err != nil {
				logger.Printf("watch: %v", err)
				break
			}
			logger.Printf("watch: %s changed", filepath.Base(path))
			s.offer(program)
		case <-s.done:
			return
		}
	}
}

// offer queues program, replacing any reload the loop has not picked up yet
func (s *Source) offer(program []byte) {
	for {
		select {
		case s.programs <- program:
			return
		default:
		}
		select {
		case <-s.programs:
		default:
		}
	}
}

// PollEvent returns a pending reload before any event of the wrapped source
func (s *Source) PollEvent() (host.Event, bool) {
	select {
	case program := <-s.programs:
		return host.Event{Kind: host.Reload, Program: program}, true
	default:
		return s.EventSource.PollEvent()
	}
}

// Close stops watching
func (s *Source) Close() error {
	select {
	case <-s.done:
		return nil
	default:
	}
	close(s.done)
	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}
