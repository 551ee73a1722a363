package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Store定数はジョブ進捗の保存先を表す
const (
	// StorePostgres はPostgreSQLに進捗を永続化する（デフォルト）
	StorePostgres = "postgres"
	// StoreMemory はプロセス内メモリに保持する（再起動で失われる）
	StoreMemory = "memory"
)

// Config はアプリケーション全体の設定を保持します
type Config struct {
	// Database設定
	Database DatabaseConfig

	// OpenAI設定（Batch API用）
	OpenAI OpenAIConfig

	// Tracker はポーリング・バックオフの設定
	Tracker TrackerConfig

	// Store はジョブ進捗の保存先（postgres / memory）
	Store string

	// OutputDir は結果ファイルの出力先ディレクトリ
	OutputDir string
}

// DatabaseConfig はデータベース接続設定
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// OpenAIConfig はOpenAI API設定
type OpenAIConfig struct {
	APIKey string
	// Model はprepareで生成するリクエストのモデル名
	Model string
	// Endpoint はバッチ対象のAPIエンドポイント
	Endpoint string
	// CompletionWindow はバッチの完了ウィンドウ
	CompletionWindow string
}

// TrackerConfig はポーリングのバックオフ設定
// 打ち切り条件は固定値ではなく設定で調整する
type TrackerConfig struct {
	// PollBaseInterval はポーリング間隔の基底値
	PollBaseInterval time.Duration
	// PollMaxInterval はポーリング間隔の上限
	PollMaxInterval time.Duration
	// PollMaxAttempts はポーリング試行回数の上限（0で無制限）
	PollMaxAttempts int
	// PollMaxElapsed はポーリング全体の打ち切り時間（0で無制限）
	PollMaxElapsed time.Duration
}

// Load は環境変数または.envファイルから設定を読み込みます
func Load(envFilePath string) (*Config, error) {
	// .envファイルが存在する場合は読み込む
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			// ファイルが存在しない場合はエラーとしない（環境変数のみで動作可能）
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to load .env file: %w", err)
			}
		}
	}

	cfg := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "batchtrack"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "batchtrack"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		OpenAI: OpenAIConfig{
			APIKey:           getEnv("OPENAI_API_KEY", ""),
			Model:            getEnv("OPENAI_BATCH_MODEL", "gpt-4o-mini"),
			Endpoint:         getEnv("BATCH_ENDPOINT", "/v1/chat/completions"),
			CompletionWindow: getEnv("BATCH_COMPLETION_WINDOW", "24h"),
		},
		Tracker: TrackerConfig{
			PollBaseInterval: getEnvAsDuration("BATCH_POLL_BASE_INTERVAL", 60*time.Second),
			PollMaxInterval:  getEnvAsDuration("BATCH_POLL_MAX_INTERVAL", 10*time.Minute),
			PollMaxAttempts:  getEnvAsInt("BATCH_POLL_MAX_ATTEMPTS", 0),
			PollMaxElapsed:   getEnvAsDuration("BATCH_POLL_MAX_ELAPSED", 24*time.Hour),
		},
		Store:     getEnv("BATCH_STORE", StorePostgres),
		OutputDir: getEnv("BATCH_OUTPUT_DIR", "batch_output"),
	}

	if cfg.Store != StorePostgres && cfg.Store != StoreMemory {
		return nil, fmt.Errorf("invalid BATCH_STORE value %q: must be %q or %q",
			cfg.Store, StorePostgres, StoreMemory)
	}

	return cfg, nil
}

// getEnv は環境変数を取得し、存在しない場合はデフォルト値を返します
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt は環境変数を整数として取得します
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration は環境変数をtime.Durationとして取得します
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
