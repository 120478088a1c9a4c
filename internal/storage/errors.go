package storage

import "errors"

var (
	// ErrNotCreated 表示操作的前置条件不满足：该 id 还没有成功 Create 过，
	// 属于调用方状态错误而非 I/O 故障。
	ErrNotCreated = errors.New("storage: upload not created")

	// ErrNotFound 表示记录声称已创建，但底层存储单元不存在，
	// 暴露簿记与实际存储之间的不一致。
	ErrNotFound = errors.New("storage: unit not found")

	// ErrExists 表示原子创建被拒绝：该 id 已存在存储单元。
	ErrExists = errors.New("storage: unit already exists")

	// ErrUnsupported 表示当前后端不支持该操作。
	ErrUnsupported = errors.New("storage: operation not supported by backend")
)
