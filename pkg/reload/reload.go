// Package reload keeps a corpus store fresh while its files are edited.
// Each change set produces a brand new immutable store that replaces the
// old one atomically; readers never observe a half-loaded corpus.
package reload

import (
	"context"
	"io/fs"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/jingkaihe/skillroute/pkg/corpus"
	"github.com/jingkaihe/skillroute/pkg/logger"
)

// Event reports the outcome of one reload. On failure Store is the store
// still being served.
type Event struct {
	Store *corpus.Store
	Err   error
	At    time.Time
}

type config struct {
	debounce   time.Duration
	attempts   uint
	retryDelay time.Duration
	loadOpts   []corpus.Option
}

// Option configures a Watcher
type Option func(*config) error

// WithDebounce sets how long the tree must stay quiet before reloading
func WithDebounce(d time.Duration) Option {
	return func(c *config) error {
		if d < 0 {
			return errors.Errorf("debounce cannot be negative: %s", d)
		}
		c.debounce = d
		return nil
	}
}

// WithRetry sets how often a failing reload is retried. Editors often
// write files in several steps, so the first attempt may see a partial file.
func WithRetry(attempts uint, delay time.Duration) Option {
	return func(c *config) error {
		if attempts < 1 {
			return errors.New("retry attempts must be at least 1")
		}
		c.attempts = attempts
		c.retryDelay = delay
		return nil
	}
}

// WithLoadOptions passes options through to corpus.Load
func WithLoadOptions(opts ...corpus.Option) Option {
	return func(c *config) error {
		c.loadOpts = append(c.loadOpts, opts...)
		return nil
	}
}

// Watcher serves the latest successfully loaded store for a corpus root
type Watcher struct {
	root    string
	cfg     config
	current atomic.Pointer[corpus.Store]
	fsw     *fsnotify.Watcher
	events  chan Event

	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
	reloadMu  sync.Mutex
}

// New loads root and starts watching it. A failing initial load is
// returned as an error; later failures only keep the previous store.
func New(ctx context.Context, root string, opts ...Option) (*Watcher, error) {
	cfg := config{
		debounce:   200 * time.Millisecond,
		attempts:   3,
		retryDelay: 100 * time.Millisecond,
	}
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, errors.Wrap(err, "failed to apply reload option")
		}
	}

	store, err := corpus.Load(ctx, root, cfg.loadOpts...)
	if err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create file watcher")
	}

	w := &Watcher{
		root:   root,
		cfg:    cfg,
		fsw:    fsw,
		events: make(chan Event, 1),
		done:   make(chan struct{}),
	}
	w.current.Store(store)

	if err := w.watchTree(root); err != nil {
		fsw.Close()
		return nil, err
	}

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	w.cancel = cancel
	go w.run(loopCtx)

	logger.G(ctx).WithFields(logrus.Fields{
		"root":      root,
		"documents": store.Len(),
	}).Debug("Watching corpus")

	return w, nil
}

// Current returns the store to serve right now
func (w *Watcher) Current() *corpus.Store {
	return w.current.Load()
}

// Reloads delivers the most recent reload outcome. Slow readers miss
// intermediate events. The channel is closed by Close.
func (w *Watcher) Reloads() <-chan Event {
	return w.events
}

// Reload loads the corpus now, with retries, and swaps it in on success
func (w *Watcher) Reload(ctx context.Context) (*corpus.Store, error) {
	w.reloadMu.Lock()
	defer w.reloadMu.Unlock()

	var store *corpus.Store
	err := retry.Do(
		func() error {
			s, err := corpus.Load(ctx, w.root, w.cfg.loadOpts...)
			if err != nil {
				return err
			}
			store = s
			return nil
		},
		retry.Attempts(w.cfg.attempts),
		retry.Delay(w.cfg.retryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			logger.G(ctx).WithError(err).WithField("attempt", n+1).Debug("Corpus reload failed, retrying")
		}),
	)
	if err != nil {
		return w.current.Load(), err
	}

	w.current.Store(store)
	return store, nil
}

// Close stops watching. It is safe to call more than once.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		w.cancel()
		err = w.fsw.Close()
		<-w.done
	})
	return errors.Wrap(err, "failed to close file watcher")
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.done)
	defer close(w.events)

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Has(fsnotify.Create) {
				// new directories must be watched as well
				if err := w.watchTree(ev.Name); err != nil {
					logger.G(ctx).WithError(err).WithField("path", ev.Name).Debug("Could not watch new path")
				}
			}
			if ev.Has(fsnotify.Chmod) && !ev.Has(fsnotify.Write) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.cfg.debounce)
			} else {
				timer.Reset(w.cfg.debounce)
			}
			fire = timer.C

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logger.G(ctx).WithError(err).Warn("File watcher error")

		case <-fire:
			fire = nil
			w.reload(ctx)
		}
	}
}

func (w *Watcher) reload(ctx context.Context) {
	store, err := w.Reload(ctx)
	if ctx.Err() != nil {
		return
	}

	log := logger.G(ctx).WithField("root", w.root)
	if err != nil {
		log.WithError(err).Error("Corpus reload failed, keeping previous documents")
	} else {
		log.WithField("documents", store.Len()).Info("Corpus reloaded")
	}

	w.publish(Event{Store: store, Err: err, At: time.Now()})
}

// publish replaces any undelivered event; run is the only sender
func (w *Watcher) publish(ev Event) {
	select {
	case w.events <- ev:
		return
	default:
	}
	select {
	case <-w.events:
	default:
	}
	w.events <- ev
}

// watchTree adds path and every directory below it
func (w *Watcher) watchTree(path string) error {
	return filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == path {
				return errors.Wrapf(err, "failed to watch %s", p)
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		switch d.Name() {
		case ".git", "node_modules":
			if p != path {
				return filepath.SkipDir
			}
		}
		return errors.Wrapf(w.fsw.Add(p), "failed to watch %s", p)
	})
}
