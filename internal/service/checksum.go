package service

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"hash"
	"strings"
)

var (
	// ErrChecksumMismatch 表示数据块与请求声明的摘要不一致。
	ErrChecksumMismatch = errors.New("service: chunk checksum mismatch")

	// ErrUnknownAlgorithm 表示请求使用了未公布的校验算法。
	ErrUnknownAlgorithm = errors.New("service: unknown checksum algorithm")
)

func newHasher(algorithm string) hash.Hash {
	switch algorithm {
	case "md5":
		return md5.New()
	case "sha1":
		return sha1.New()
	case "sha256":
		return sha256.New()
	case "sha512":
		return sha512.New()
	default:
		return nil
	}
}

// verifyChecksum 校验 "<算法> <base64摘要>" 格式的声明与数据是否一致。
// 算法集合与能力协商公布的固定列表一致。
func verifyChecksum(header string, data []byte) error {
	fields := strings.Fields(header)
	if len(fields) != 2 {
		return fmt.Errorf("malformed checksum header %q", header)
	}

	hasher := newHasher(strings.ToLower(fields[0]))
	if hasher == nil {
		return fmt.Errorf("algorithm %q: %w", fields[0], ErrUnknownAlgorithm)
	}

	want, err := base64.StdEncoding.DecodeString(fields[1])
	if err != nil {
		return fmt.Errorf("decode checksum digest: %w", err)
	}

	hasher.Write(data)
	if subtle.ConstantTimeCompare(hasher.Sum(nil), want) != 1 {
		return ErrChecksumMismatch
	}
	return nil
}
