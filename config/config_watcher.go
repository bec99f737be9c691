package config

import (
	"path/filepath"
	"sync"
	"time"

	"PShare/global"
	"PShare/logger"
	"PShare/tools/errs"
	"PShare/tools/safe"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const debounce = 200 * time.Millisecond

// Watcher reloads the config file when it changes on disk and hands the
// new value to onChange. Only settings that are safe to change live
// (the log level) should be applied by the callback.
type Watcher struct {
	path     string
	load     func(string) (global.AppConfig, error)
	onChange func(global.AppConfig)

	mu      sync.RWMutex
	current global.AppConfig

	fw   *fsnotify.Watcher
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// StartWatcher begins watching path. The directory is watched rather than the
// file so editors that replace the file are still seen.
func StartWatcher(path string, initial global.AppConfig, onChange func(global.AppConfig)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errs.WrapMsg(err, "create config watcher")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		_ = fw.Close()
		return nil, errs.WrapMsg(err, "resolve config path", "path", path)
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		_ = fw.Close()
		return nil, errs.WrapMsg(err, "watch config dir", "dir", filepath.Dir(abs))
	}
	w := &Watcher{
		path:     abs,
		load:     global.LoadConfig,
		onChange: onChange,
		current:  initial,
		fw:       fw,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	safe.Go("config.watcher", w.loop)
	return w, nil
}

// Current returns the last config that loaded cleanly.
func (w *Watcher) Current() global.AppConfig {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Close stops watching. Safe to call more than once.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.stop)
		err = w.fw.Close()
		<-w.done
	})
	return err
}

func (w *Watcher) loop() {
	defer close(w.done)
	var (
		timer   *time.Timer
		timerCh <-chan time.Time
	)
	for {
		select {
		case <-w.stop:
			if timer != nil {
				timer.Stop()
			}
			return
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			// editors often write in several steps
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			timerCh = timer.C
		case <-timerCh:
			timerCh = nil
			w.reload()
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			logger.Warn("[config] watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := w.load(w.path)
	if err != nil {
		logger.Warn("[config] reload rejected, keeping previous config", zap.String("path", w.path), zap.Error(err))
		return
	}
	w.mu.Lock()
	w.current = cfg
	w.mu.Unlock()
	logger.Info("[config] reloaded", zap.String("path", w.path))
	if w.onChange != nil {
		w.onChange(cfg)
	}
}
