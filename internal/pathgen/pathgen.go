package pathgen

import (
	"fmt"
	"strings"
	"time"
)

// Segment 把目录结构模板渲染成相对目录片段，用于按日期分片存储。
// 支持的占位符：{year} {month} {day} {hour} {minute} {second} {timestamp}。
// 未知占位符原样保留。
func Segment(template string, now time.Time) string {
	replacer := strings.NewReplacer(
		"{year}", fmt.Sprintf("%04d", now.Year()),
		"{month}", fmt.Sprintf("%02d", int(now.Month())),
		"{day}", fmt.Sprintf("%02d", now.Day()),
		"{hour}", fmt.Sprintf("%02d", now.Hour()),
		"{minute}", fmt.Sprintf("%02d", now.Minute()),
		"{second}", fmt.Sprintf("%02d", now.Second()),
		"{timestamp}", fmt.Sprintf("%d", now.Unix()),
	)
	return strings.Trim(replacer.Replace(template), "/")
}
