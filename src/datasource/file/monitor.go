// monitor.go
package file

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// FileMonitor 监控数据目录，新写入的可读文件交给 handler
type FileMonitor struct {
	watchDir string
	watcher  *fsnotify.Watcher
	lastMod  map[string]time.Time
	mu       sync.Mutex
	wg       sync.WaitGroup
}

func NewFileMonitor(dir string) (*FileMonitor, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, err
	}

	return &FileMonitor{
		watchDir: dir,
		watcher:  watcher,
		lastMod:  make(map[string]time.Time),
	}, nil
}

// Watch 阻塞直到 ctx 结束或 watcher 出错；同一文件修改时间未变化时不重复触发
func (m *FileMonitor) Watch(ctx context.Context, handler func(string)) error {
	defer m.wg.Wait()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-m.watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if !Supported(event.Name) {
				continue
			}
			info, err := os.Stat(event.Name)
			if err != nil || info.IsDir() || info.Size() == 0 {
				continue
			}

			if m.changed(event.Name, info.ModTime()) {
				m.wg.Add(1)
				go func(name string) {
					defer m.wg.Done()
					handler(name)
				}(event.Name)
			}
		case err, ok := <-m.watcher.Errors:
			if !ok {
				return nil
			}
			return err
		}
	}
}

func (m *FileMonitor) changed(name string, mod time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if last, ok := m.lastMod[name]; ok && !mod.After(last) {
		return false
	}
	m.lastMod[name] = mod
	return true
}

// Forget 清除文件记录，下次写入时重新触发
func (m *FileMonitor) Forget(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.lastMod, name)
}

func (m *FileMonitor) Close() error {
	return m.watcher.Close()
}
