package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/yleoer/trackid/pkg/config"
	"github.com/yleoer/trackid/pkg/enrich"
	"github.com/yleoer/trackid/pkg/util"
)

const failedDirName = "failed"

// AudioIdentifier 识别一段音频，recognized 为 false 表示指纹识别没有结果
type AudioIdentifier interface {
	IdentifyAudioClip(ctx context.Context, data []byte, name string) (resp enrich.TrackResponse, recognized bool, err error)
}

// TaskScheduler 监听收件目录，文件稳定后逐个识别
type TaskScheduler struct {
	cfg               *config.Config
	identifier        AudioIdentifier
	logger            *log.Logger
	scanMutex         sync.Mutex // 同一时间只识别一个文件
	pendingScans      map[string]*time.Timer
	pendingScansMutex sync.Mutex // 保护 pendingScans map
	wg                sync.WaitGroup
}

// NewTaskScheduler 创建一个新的 TaskScheduler 实例
func NewTaskScheduler(cfg *config.Config, identifier AudioIdentifier, logger *log.Logger) *TaskScheduler {
	return &TaskScheduler{
		cfg:          cfg,
		identifier:   identifier,
		logger:       logger,
		pendingScans: make(map[string]*time.Timer),
	}
}

// InitialScan 调度收件目录中已经存在的音频文件
func (ts *TaskScheduler) InitialScan() {
	ts.logger.Printf("Performing initial scan of inbox %s...", ts.cfg.InboxDir)
	entries, err := os.ReadDir(ts.cfg.InboxDir)
	if err != nil {
		ts.logger.Printf("ERROR: Error reading inbox %s for initial scan: %v", ts.cfg.InboxDir, err)
		return
	}
	for _, entry := range entries {
		path := filepath.Join(ts.cfg.InboxDir, entry.Name())
		if !entry.IsDir() && util.IsAudioFile(path) {
			ts.logger.Printf("  -> Found pending clip: %s. Scheduling.", path)
			ts.TriggerScan(path)
		}
	}
	ts.logger.Println("Initial scan completed.")
}

// Watch 监听收件目录直到 ctx 结束
func (ts *TaskScheduler) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("error creating file watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(ts.cfg.InboxDir); err != nil {
		return fmt.Errorf("error adding inbox %s to watcher: %w", ts.cfg.InboxDir, err)
	}
	ts.logger.Printf("Monitoring inbox %s for audio clips...", ts.cfg.InboxDir)

	for {
		select {
		case <-ctx.Done():
			ts.stopPending()
			ts.wg.Wait()
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			// 只关心收件目录下直接写入的音频文件
			if filepath.Dir(event.Name) != ts.cfg.InboxDir || !util.IsAudioFile(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				ts.TriggerScan(event.Name)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			ts.logger.Printf("ERROR: Watcher error: %v", err)
		}
	}
}

// TriggerScan 将一个文件加入延迟处理队列；同一文件的重复事件会重置计时器
func (ts *TaskScheduler) TriggerScan(path string) {
	ts.pendingScansMutex.Lock()
	defer ts.pendingScansMutex.Unlock()
	if timer, ok := ts.pendingScans[path]; ok {
		if timer.Stop() {
			ts.wg.Done()
		}
	}
	ts.wg.Add(1)
	var timer *time.Timer
	timer = time.AfterFunc(ts.cfg.StabilityCheckInterval, func() {
		defer ts.wg.Done()
		ts.clearPending(path, timer)
		ts.performScan(path)
	})
	ts.pendingScans[path] = timer
}

// clearPending 只在 map 中仍是这个计时器时删除，避免删掉之后重新调度的计时器
func (ts *TaskScheduler) clearPending(path string, timer *time.Timer) {
	ts.pendingScansMutex.Lock()
	defer ts.pendingScansMutex.Unlock()
	if ts.pendingScans[path] == timer {
		delete(ts.pendingScans, path)
	}
}

func (ts *TaskScheduler) stopPending() {
	ts.pendingScansMutex.Lock()
	defer ts.pendingScansMutex.Unlock()
	for path, timer := range ts.pendingScans {
		if timer.Stop() {
			ts.wg.Done()
		}
		delete(ts.pendingScans, path)
	}
}

// performScan 等待文件稳定后识别，成功后从收件目录删除
func (ts *TaskScheduler) performScan(path string) {
	ts.scanMutex.Lock()
	defer ts.scanMutex.Unlock()

	if !ts.waitForFileStability(path) {
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			ts.logger.Printf("ERROR: Failed to read %s: %v", path, err)
		}
		return
	}
	resp, recognized, err := ts.identifier.IdentifyAudioClip(context.Background(), data, filepath.Base(path))
	if err != nil {
		ts.logger.Printf("ERROR: Identification of %s failed: %v", path, err)
		ts.moveToFailed(path)
		return
	}
	if !recognized {
		ts.logger.Printf("  -> No fingerprint match for %s.", path)
		ts.moveToFailed(path)
		return
	}
	out, _ := json.Marshal(resp)
	ts.logger.Printf("Identified %s: %s", filepath.Base(path), out)
	if err := os.Remove(path); err != nil {
		ts.logger.Printf("ERROR: Failed to remove %s from inbox: %v", path, err)
	}
}

func (ts *TaskScheduler) moveToFailed(path string) {
	dir := filepath.Join(ts.cfg.InboxDir, failedDirName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		ts.logger.Printf("ERROR: Failed to create %s: %v", dir, err)
		return
	}
	if err := os.Rename(path, filepath.Join(dir, filepath.Base(path))); err != nil {
		ts.logger.Printf("ERROR: Failed to move %s to %s: %v", path, dir, err)
	}
}

// fileInfo 记录文件的大小和修改时间
type fileInfo struct {
	Size    int64
	ModTime time.Time
}

// waitForFileStability 等待文件在 StabilityQuietDuration 内没有变化
func (ts *TaskScheduler) waitForFileStability(path string) bool {
	var prev fileInfo
	var quietSince time.Time
	start := time.Now()
	for time.Since(start) < ts.cfg.StabilityMaxWait {
		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				return false
			}
			ts.logger.Printf("ERROR: Error getting file info for %s: %v", path, err)
			return false
		}
		now := time.Now()
		cur := fileInfo{Size: info.Size(), ModTime: info.ModTime()}
		if quietSince.IsZero() || cur.Size != prev.Size || !cur.ModTime.Equal(prev.ModTime) {
			prev = cur
			quietSince = now
		} else if now.Sub(quietSince) >= ts.cfg.StabilityQuietDuration {
			return true
		}
		time.Sleep(ts.cfg.StabilityCheckInterval)
	}
	ts.logger.Printf("  -> Max wait time for stability exceeded for %s.", path)
	return false
}
