package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	defaultMaxSize = 10 << 20
	defaultMaxAge  = 7 * 24 * time.Hour
)

type LogRotation struct {
	maxSize int64
	maxAge  time.Duration
	now     func() time.Time
}

func NewLogRotation(maxSize int64, maxAge time.Duration) *LogRotation {
	return &LogRotation{
		maxSize: maxSize,
		maxAge:  maxAge,
		now:     time.Now,
	}
}

func (lr *LogRotation) ShouldRotate(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}

	if info.Size() >= lr.maxSize {
		return true
	}

	return lr.now().Sub(info.ModTime()) >= lr.maxAge
}

func (lr *LogRotation) Rotate(path string) (string, error) {
	timestamp := lr.now().Format("20060102-150405")
	ext := filepath.Ext(path)
	base := path[:len(path)-len(ext)]

	newPath := fmt.Sprintf("%s-%s%s", base, timestamp, ext)

	err := os.Rename(path, newPath)
	return newPath, err
}

// RotateIfNeeded moves an oversized or stale log file aside before it is
// reopened, and makes sure the parent directory exists.
func (lr *LogRotation) RotateIfNeeded(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
	}
	if !lr.ShouldRotate(path) {
		return nil
	}
	if _, err := lr.Rotate(path); err != nil {
		return fmt.Errorf("failed to rotate log file: %w", err)
	}
	return nil
}
