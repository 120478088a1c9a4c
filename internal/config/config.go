package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config 聚合服务启动需要的关键配置。
type Config struct {
	HTTPPort           string
	CORSAllowedOrigins []string
	RateLimitRequests  int
	RateLimitWindow    time.Duration
	MaxChunkSizeBytes  int64
	// 存储后端配置
	StorageDriver string // "file"、"null" 或 "s3"
	DataDir       string
	DirStructure  string // 目录分片模板，如 "{year}/{month}/{day}"
	// 协议能力配置
	Extensions []string
	// 元数据存储配置
	InfoStorage string // "file" 或 "postgres"
	InfoDir     string
	DBHost      string
	DBPort      int
	DBUser      string
	DBPassword  string
	DBName      string
	DBSSLMode   string
	// 鉴权配置
	AuthEnabled bool     // 是否启用 API Key 鉴权
	APIKeys     []string // 有效的 API Keys 列表
	JWTSecret   string   // 非空时启用 Bearer JWT 鉴权（HS256 本地验证）
	JWKSURL     string   // 非空时通过远程 JWKS 验证非对称签名
	// S3 后端配置
	S3Endpoint  string // S3/MinIO 端点，不含协议
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3Region    string
	S3UseSSL    bool // 是否使用 HTTPS
	S3KeyPrefix string
}

// Load 从环境变量加载配置，并提供默认值。
func Load() (*Config, error) {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	corsOrigins := parseList(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if len(corsOrigins) == 0 {
		corsOrigins = []string{"http://localhost:5173"}
	}

	rateLimitRequests, err := parseIntEnv("RATE_LIMIT_REQUESTS", 120)
	if err != nil {
		return nil, err
	}

	rateLimitWindow, err := parseDurationEnv("RATE_LIMIT_WINDOW", time.Minute)
	if err != nil {
		return nil, err
	}

	maxChunk, err := parseIntEnv("MAX_CHUNK_SIZE_MB", 64)
	if err != nil {
		return nil, err
	}

	dbPort, err := parseIntEnv("DB_PORT", 5432)
	if err != nil {
		return nil, err
	}

	extensions := parseList(os.Getenv("TUS_EXTENSIONS"))
	if len(extensions) == 0 {
		extensions = []string{"creation", "termination", "concatenation", "getting", "checksum"}
	}

	// 鉴权配置
	authEnabled := parseBoolEnv("AUTH_ENABLED", false)
	apiKeys := parseList(os.Getenv("API_KEYS"))

	return &Config{
		HTTPPort:           port,
		CORSAllowedOrigins: corsOrigins,
		RateLimitRequests:  rateLimitRequests,
		RateLimitWindow:    rateLimitWindow,
		MaxChunkSizeBytes:  int64(maxChunk) * 1024 * 1024,
		StorageDriver:      envOrDefault("STORAGE_DRIVER", "file"),
		DataDir:            envOrDefault("DATA_DIR", "./data"),
		DirStructure:       envOrDefault("DIR_STRUCTURE", "{year}/{month}/{day}"),
		Extensions:         extensions,
		InfoStorage:        envOrDefault("INFO_STORAGE", "file"),
		InfoDir:            envOrDefault("INFO_DIR", "./data/info"),
		DBHost:             envOrDefault("DB_HOST", "127.0.0.1"),
		DBPort:             dbPort,
		DBUser:             envOrDefault("DB_USER", "tuslite"),
		DBPassword:         envOrDefault("DB_PASSWORD", "tuslite"),
		DBName:             envOrDefault("DB_NAME", "tuslite"),
		DBSSLMode:          envOrDefault("DB_SSL_MODE", "disable"),
		AuthEnabled:        authEnabled,
		APIKeys:            apiKeys,
		JWTSecret:          os.Getenv("JWT_SECRET"),
		JWKSURL:            os.Getenv("JWKS_URL"),
		S3Endpoint:         envOrDefault("S3_ENDPOINT", "localhost:9000"),
		S3AccessKey:        envOrDefault("S3_ACCESS_KEY", "minioadmin"),
		S3SecretKey:        envOrDefault("S3_SECRET_KEY", "minioadmin"),
		S3Bucket:           envOrDefault("S3_BUCKET", "tuslite"),
		S3Region:           envOrDefault("S3_REGION", "us-east-1"),
		S3UseSSL:           parseBoolEnv("S3_USE_SSL", false),
		S3KeyPrefix:        os.Getenv("S3_KEY_PREFIX"),
	}, nil
}

func parseList(raw string) []string {
	if raw == "" {
		return nil
	}

	items := strings.Split(raw, ",")
	out := make([]string, 0, len(items))
	for _, item := range items {
		trimmed := strings.TrimSpace(item)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}
	return out
}

func parseIntEnv(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}

	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("解析 %s 失败: %w", key, err)
	}
	if value <= 0 {
		return defaultValue, nil
	}
	return value, nil
}

func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}

	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("解析 %s 失败: %w", key, err)
	}
	if value <= 0 {
		return defaultValue, nil
	}
	return value, nil
}

func parseBoolEnv(key string, defaultValue bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue
	}
	lower := strings.ToLower(raw)
	return lower == "true" || lower == "1" || lower == "yes"
}

// PostgresDSN 生成标准 postgres:// 连接串，供数据访问层直接使用。
func (c *Config) PostgresDSN() string {
	u := &url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.DBUser, c.DBPassword),
		Host:   fmt.Sprintf("%s:%d", c.DBHost, c.DBPort),
		Path:   c.DBName,
	}

	q := url.Values{}
	if c.DBSSLMode != "" {
		q.Set("sslmode", c.DBSSLMode)
	}
	u.RawQuery = q.Encode()

	return u.String()
}

func envOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
