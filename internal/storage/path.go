package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"tuslite/internal/pathgen"
)

// ResolveUnitPath 计算并准备某个上传 id 的存储单元路径：
// 把基础目录规范化为绝对路径，拼接模板渲染出的日期分片目录，
// 递归创建缺失目录，最后拼上文件 id。
//
// 每次派生都重新规范化，避免相对基础目录随工作目录变化而漂移。
// MkdirAll 幂等，并发调用安全。
func ResolveUnitPath(baseDir, template, id string, now time.Time) (string, error) {
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return "", fmt.Errorf("resolve base dir %q: %w", baseDir, err)
	}

	dir := abs
	if segment := pathgen.Segment(template, now); segment != "" {
		dir = filepath.Join(abs, filepath.FromSlash(segment))
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create unit dir %q: %w", dir, err)
	}

	return filepath.Join(dir, filepath.Base(id)), nil
}
