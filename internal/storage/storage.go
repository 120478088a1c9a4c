package storage

import (
	"context"
	"fmt"
	"io"

	"tuslite/internal/info"
)

// Backend 定义所有存储后端必须实现的上传生命周期接口。
// 调用方只持有该接口，不依赖具体后端类型。
//
// 并发约定：不同 id 之间的操作互不排序；同一 id 的串行化由调用方负责，
// 存储层只保证 Create 的原子性。
type Backend interface {
	// Name 返回后端标识，用于日志与配置。
	Name() string

	// Prepare 执行幂等的启动初始化（如创建基础目录）。失败视为启动失败。
	Prepare(ctx context.Context) error

	// Create 为 upload.ID 分配一个全新的空存储单元并返回解析后的路径。
	// 同一 id 的并发 Create 必须恰好一个成功，冲突方返回 ErrExists。
	Create(ctx context.Context, upload *info.Upload) (string, error)

	// Append 向已创建的存储单元追加字节。StoragePath 未设置时返回 ErrNotCreated。
	Append(ctx context.Context, upload *info.Upload, data []byte) error

	// Concat 按 parts 给定的顺序把各分片拼装进目标单元，顺序不可改变。
	// 任一分片失败时目标不得呈现为看似完整的截断文件。
	Concat(ctx context.Context, upload *info.Upload, parts []info.Upload) error

	// Get 返回可交付的内容描述，供下载响应使用。
	Get(ctx context.Context, upload *info.Upload) (*Delivery, error)

	// Remove 删除存储单元。记录已创建但底层文件缺失时返回 ErrNotFound，
	// 不得按成功处理。
	Remove(ctx context.Context, upload *info.Upload) error

	// Capabilities 报告该后端能支撑哪些协议能力。
	Capabilities() Capabilities
}

// Capabilities 描述后端对可选协议能力的支持情况。
type Capabilities struct {
	Concatenation bool
	Termination   bool
}

// Delivery 是一次下载交付的描述。Body 为 nil 时表示空响应体
// （丢弃型后端只保留文件名用于 content-disposition）。
type Delivery struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.ReadCloser
}

// Disposition 生成下载响应的 Content-Disposition 头。
func (d *Delivery) Disposition() string {
	return fmt.Sprintf("attachment; filename=%q", d.Filename)
}

// Close 释放交付持有的读取端，Body 为 nil 时安全。
func (d *Delivery) Close() error {
	if d == nil || d.Body == nil {
		return nil
	}
	return d.Body.Close()
}
