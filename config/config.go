package config

import (
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var once sync.Once

func InitConfig() {
	once.Do(func() {
		// .env is optional, real environment variables win
		_ = godotenv.Load()

		viper.AutomaticEnv()

		viper.BindEnv("metrics_port", "METRICS_PORT")
		viper.BindEnv("telegram_bot_token", "TELEGRAM_BOT_TOKEN")
		viper.BindEnv("telegram_chat_id", "TELEGRAM_CHAT_ID")
		viper.BindEnv("debug", "DEBUG")
		viper.BindEnv("log_format", "LOG_FORMAT")
		viper.BindEnv("lang", "LANG")
		viper.BindEnv("db_path", "DB_PATH")
		viper.BindEnv("store_backend", "STORE_BACKEND")
		viper.BindEnv("redis_addr", "REDIS_ADDR")
		viper.BindEnv("redis_password", "REDIS_PASSWORD")
		viper.BindEnv("redis_db", "REDIS_DB")
		viper.BindEnv("market_provider", "MARKET_PROVIDER")
		viper.BindEnv("coingecko_api_url", "COINGECKO_API_URL")
		viper.BindEnv("coingecko_api_key", "COINGECKO_API_KEY")
		viper.BindEnv("api_pro_key", "API_PRO_KEY")
		viper.BindEnv("market_requests_per_sec", "MARKET_REQUESTS_PER_SEC")
		viper.BindEnv("http_timeout", "HTTP_TIMEOUT")
		viper.BindEnv("llm_api_key", "LLM_API_KEY", "API_KEY")
		viper.BindEnv("llm_base_url", "LLM_BASE_URL")
		viper.BindEnv("llm_model", "LLM_MODEL")
		viper.BindEnv("refresh_interval", "REFRESH_INTERVAL")
		viper.BindEnv("advice_interval", "ADVICE_INTERVAL")
		viper.BindEnv("cooldown_duration", "COOLDOWN_DURATION")
		viper.BindEnv("debounce_delay", "DEBOUNCE_DELAY")
		viper.BindEnv("advice_max_age", "ADVICE_MAX_AGE")
		viper.BindEnv("advice_price_change", "ADVICE_PRICE_CHANGE")
		viper.BindEnv("chart_theme", "CHART_THEME")
		viper.BindEnv("chart_locale", "CHART_LOCALE")
		viper.BindEnv("chart_width", "CHART_WIDTH")
		viper.BindEnv("chart_height", "CHART_HEIGHT")
		viper.BindEnv("initial_asset", "INITIAL_ASSET")

		viper.SetDefault("metrics_port", 9090)
		viper.SetDefault("debug", false)
		viper.SetDefault("log_format", "text")
		viper.SetDefault("lang", "en")
		viper.SetDefault("db_path", "data/advisor.db")
		viper.SetDefault("store_backend", "sqlite")
		viper.SetDefault("redis_addr", "localhost:6379")
		viper.SetDefault("redis_db", 0)
		viper.SetDefault("market_provider", "coingecko")
		viper.SetDefault("coingecko_api_url", "https://api.coingecko.com/api/v3")
		viper.SetDefault("market_requests_per_sec", 5)
		viper.SetDefault("http_timeout", 30*time.Second)
		viper.SetDefault("llm_base_url", "https://api.openai.com/v1")
		viper.SetDefault("llm_model", "gpt-4o-mini")
		viper.SetDefault("refresh_interval", 7*time.Minute)
		viper.SetDefault("advice_interval", 2*time.Hour)
		viper.SetDefault("cooldown_duration", 90*time.Second)
		viper.SetDefault("debounce_delay", 700*time.Millisecond)
		viper.SetDefault("advice_max_age", 4*time.Hour)
		viper.SetDefault("advice_price_change", 10.0)
		viper.SetDefault("chart_theme", "dark")
		viper.SetDefault("chart_locale", "es")
		viper.SetDefault("chart_width", 1200)
		viper.SetDefault("chart_height", 600)
	})
}

func GetString(key string) string {
	InitConfig()
	return viper.GetString(key)
}

func GetInt(key string) int {
	InitConfig()
	return viper.GetInt(key)
}

func GetInt64(key string) int64 {
	InitConfig()
	return viper.GetInt64(key)
}

func GetBool(key string) bool {
	InitConfig()
	return viper.GetBool(key)
}

func GetFloat64(key string) float64 {
	InitConfig()
	return viper.GetFloat64(key)
}

func GetDuration(key string) time.Duration {
	InitConfig()
	return viper.GetDuration(key)
}
