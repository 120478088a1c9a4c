package info

import "errors"

// ErrNotFound 表示目标上传记录不存在。
var ErrNotFound = errors.New("info: upload not found")
