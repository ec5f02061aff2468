package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"stock-exchange-go/infrastructure/logger"
)

// Watcher 监听配置文件，文件写入或被替换后重新加载并回调。
// 监听的是所在目录，编辑器以 rename 方式保存时也能收到事件。
type Watcher struct {
	path     string
	cooldown time.Duration
	log      *logger.Logger
	fsw      *fsnotify.Watcher

	lastReload time.Time
}

// NewWatcher 创建监听器；返回时目录已在监听中。
func NewWatcher(path string, cooldown time.Duration, log *logger.Logger) (*Watcher, error) {
	if log == nil {
		log = logger.NewNop()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("failed to watch config dir: %w", err)
	}
	return &Watcher{
		path:     abs,
		cooldown: cooldown,
		log:      log,
		fsw:      fsw,
	}, nil
}

// Start 阻塞直到 ctx 结束；onUpdate 只会收到通过校验的配置。
func (w *Watcher) Start(ctx context.Context, onUpdate func(AppConfig)) error {
	defer w.fsw.Close()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			// 只处理写入和创建事件
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			w.reload(onUpdate)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("config watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) reload(onUpdate func(AppConfig)) {
	if w.cooldown > 0 && time.Since(w.lastReload) < w.cooldown {
		return
	}
	cfg, err := LoadWithEnvOverrides(w.path)
	if err != nil {
		// 写入过程中可能读到半个文件，下一次事件会再试
		w.log.Warn("config reload skipped", zap.String("path", w.path), zap.Error(err))
		return
	}
	w.lastReload = time.Now()
	w.log.Info("config reloaded", zap.String("path", w.path), zap.String("env", cfg.Env))
	if onUpdate != nil {
		onUpdate(cfg)
	}
}
