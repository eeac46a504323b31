// Package filewatcher uploads files dropped into a local directory to the
// primary provider's inbox prefix, where the bucket monitor picks them up.
package filewatcher

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/nasirwasim8/infinia-rag-demo-v2/internal/domain/entities"
	"github.com/nasirwasim8/infinia-rag-demo-v2/internal/domain/ports"
)

// settleDelay gives editors and browsers time to finish writing before the
// file is read.
const settleDelay = 500 * time.Millisecond

// DropFolder watches a local directory and mirrors new files into
// auto_ingest/ on the primary provider.
type DropFolder struct {
	watcher    *fsnotify.Watcher
	factory    ports.ClientFactory
	extensions map[string]bool
	log        *zap.Logger
}

// NewDropFolder creates a watcher for the given extensions (with leading
// dots, e.g. ".pdf").
func NewDropFolder(factory ports.ClientFactory, extensions []string, log *zap.Logger) (*DropFolder, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if len(extensions) == 0 {
		extensions = []string{".pdf", ".txt", ".md", ".csv"}
	}
	extSet := make(map[string]bool, len(extensions))
	for _, e := range extensions {
		extSet[e] = true
	}

	return &DropFolder{
		watcher:    w,
		factory:    factory,
		extensions: extSet,
		log:        log,
	}, nil
}

// Watch uploads files created or modified in dir until the context ends.
func (d *DropFolder) Watch(ctx context.Context, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := d.watcher.Add(dir); err != nil {
		return err
	}
	d.log.Info("watching drop folder", zap.String("dir", dir))

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-d.watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
					continue
				}
				if !d.extensions[filepath.Ext(event.Name)] {
					continue
				}
				d.upload(ctx, event.Name)
			case err, ok := <-d.watcher.Errors:
				if !ok {
					return
				}
				d.log.Warn("drop folder watch error", zap.Error(err))
			}
		}
	}()
	return nil
}

// upload pushes one local file into the inbox and removes the local copy
// on success.
func (d *DropFolder) upload(ctx context.Context, path string) {
	select {
	case <-ctx.Done():
		return
	case <-time.After(settleDelay):
	}

	data, err := os.ReadFile(path)
	if err != nil {
		d.log.Warn("cannot read dropped file", zap.String("path", path), zap.Error(err))
		return
	}

	client, err := d.factory.Client(entities.RolePrimary)
	if err != nil {
		d.log.Warn("primary provider unavailable, dropped file left in place",
			zap.String("path", path), zap.Error(err))
		return
	}

	name := filepath.Base(path)
	key := entities.InboxPrefix + name
	if err := client.Put(ctx, key, data); err != nil {
		d.log.Warn("inbox upload failed, dropped file left in place",
			zap.String("key", key), zap.Error(err))
		return
	}
	d.log.Info("dropped file uploaded to inbox",
		zap.String("key", key), zap.Int("bytes", len(data)))

	if err := os.Remove(path); err != nil {
		d.log.Warn("cannot remove uploaded file", zap.String("path", path), zap.Error(err))
	}
}

// Stop closes the underlying watcher.
func (d *DropFolder) Stop() error {
	return d.watcher.Close()
}
