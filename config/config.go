package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config 服务配置，全部来自环境变量（支持 .env）
type Config struct {
	HTTPAddr  string
	LogLevel  string
	RedisAddr string // 为空时使用进程内任务存储
	MySQLDSN  string
	RabbitDSN string // 为空时分析/归档退化为日志记录

	ArkAPIKey    string
	GeminiAPIKey string
	OpenAIKey    string

	PrimaryProvider  string
	FallbackProvider string

	WaitBudget time.Duration // 轮询等待上限
	PollTick   time.Duration // 轮询观察粒度
	TaskTTL    time.Duration // 任务兜底过期时间
}

// Load 读取配置，未设置的项取默认值
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		HTTPAddr:  getEnv("HTTP_ADDR", ":8080"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		RedisAddr: getEnv("REDIS_ADDR", ""),
		MySQLDSN:  getEnv("MYSQL_DSN", "root:123456@tcp(localhost:3306)/imagen?parseTime=true&loc=Local"),
		RabbitDSN: getEnv("RABBIT_DSN", ""),

		ArkAPIKey:    os.Getenv("ARK_API_KEY"),
		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		OpenAIKey:    os.Getenv("OPENAI_KEY"),

		PrimaryProvider:  getEnv("PRIMARY_PROVIDER", "doubao"),
		FallbackProvider: getEnv("FALLBACK_PROVIDER", "gemini"),

		WaitBudget: getDurationSec("WAIT_BUDGET_SECONDS", 60),
		PollTick:   getDurationSec("POLL_TICK_SECONDS", 1),
		TaskTTL:    getDurationSec("TASK_TTL_SECONDS", 600),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getDurationSec(key string, def int) time.Duration {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return time.Duration(n) * time.Second
		}
	}
	return time.Duration(def) * time.Second
}
