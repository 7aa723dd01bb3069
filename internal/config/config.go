package config

import (
	"os"
	"strconv"
)

// Config 分析服务配置
type Config struct {
	Database struct {
		Host     string
		Port     int
		User     string
		Password string
		Database string
		SSLMode  string
	}

	Redis struct {
		Addr     string
		Password string
		DB       int
	}

	// 分析特定配置
	Analysis struct {
		// 默认机型预设与分析级别
		ProfileID string // 如 "five_inch"
		Level     string // basic / average / expert

		// 自定义预设文件（YAML），为空时仅用内置预设
		ProfilesFile string

		// Redis 缓存配置（关闭时不连接 Redis）
		Cache struct {
			Enabled         bool
			ReportKeyPrefix string // 分析报告缓存键前缀，如 "blackbox:log:"
			ReportSuffix    string // 分析报告缓存键后缀，如 ":report"
			ReportTTL       int    // 报告缓存 TTL（秒）
		}

		// 报告持久化开关（关闭时不连接 PostgreSQL）
		Storage struct {
			Enabled bool
		}
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load 加载配置
func Load() (*Config, error) {
	cfg := &Config{}

	// 从环境变量加载（默认值）
	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = getEnvInt("DB_PORT", 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "blackbox")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = 0

	// 分析配置
	cfg.Analysis.ProfileID = getEnv("ANALYSIS_PROFILE", "five_inch")
	cfg.Analysis.Level = getEnv("ANALYSIS_LEVEL", "average")
	cfg.Analysis.ProfilesFile = getEnv("ANALYSIS_PROFILES_FILE", "")

	cfg.Analysis.Cache.Enabled = getEnvBool("CACHE_ENABLED", false)
	cfg.Analysis.Cache.ReportKeyPrefix = getEnv("CACHE_REPORT_PREFIX", "blackbox:log:")
	cfg.Analysis.Cache.ReportSuffix = ":report"
	cfg.Analysis.Cache.ReportTTL = getEnvInt("CACHE_REPORT_TTL", 3600)

	cfg.Analysis.Storage.Enabled = getEnvBool("STORAGE_ENABLED", false)

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg, nil
}

// getEnv 读取环境变量，为空时返回默认值
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt 读取整型环境变量，解析失败时返回默认值
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// getEnvBool 读取布尔环境变量，解析失败时返回默认值
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
