package capability

import "strings"

// Extension 是协议能力标识，出现在能力协商响应头中。
type Extension string

const (
	Creation            Extension = "creation"
	CreationWithUpload  Extension = "creation-with-upload"
	CreationDeferLength Extension = "creation-defer-length"
	Termination         Extension = "termination"
	Concatenation       Extension = "concatenation"
	Getting             Extension = "getting"
	Checksum            Extension = "checksum"
)

// ChecksumAlgorithms 是校验能力开启时对外公布的固定算法列表。
const ChecksumAlgorithms = "md5,sha1,sha256,sha512"

var known = map[Extension]struct{}{
	Creation:            {},
	CreationWithUpload:  {},
	CreationDeferLength: {},
	Termination:         {},
	Concatenation:       {},
	Getting:             {},
	Checksum:            {},
}

// Parse 把配置中的能力名解析为已知 Extension 列表，
// 保持配置顺序，忽略未知项与空白项。
func Parse(names []string) []Extension {
	exts := make([]Extension, 0, len(names))
	for _, name := range names {
		ext := Extension(strings.TrimSpace(strings.ToLower(name)))
		if _, ok := known[ext]; ok {
			exts = append(exts, ext)
		}
	}
	return exts
}

// Render 渲染能力响应头的值：逗号连接，顺序稳定。
func Render(exts []Extension) string {
	parts := make([]string, 0, len(exts))
	for _, ext := range exts {
		parts = append(parts, string(ext))
	}
	return strings.Join(parts, ",")
}

// Contains 报告列表中是否包含指定能力。
func Contains(exts []Extension, target Extension) bool {
	for _, ext := range exts {
		if ext == target {
			return true
		}
	}
	return false
}

// Without 返回去掉指定能力后的新列表，原列表不变。
// 用于按后端实际支持情况收窄对外公布的能力集。
func Without(exts []Extension, drop Extension) []Extension {
	out := make([]Extension, 0, len(exts))
	for _, ext := range exts {
		if ext != drop {
			out = append(out, ext)
		}
	}
	return out
}
