package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
)

// Config carries the pipeline's environment-driven settings.
type Config struct {
	DataDir          string
	RawPrefix        string
	ProcessingPrefix string
	AggregatedKey    string
	AggregatedLogKey string
	ReportPrefix     string
	AnalysisDays     int
	BotMapPath       string
	LogLevel         string
}

// Load reads configuration from the environment, with a best-effort .env
// load first. Every setting has a usable default.
func Load() *Config {
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		log.Printf("error while loading .env file: %v", err)
	}

	return &Config{
		DataDir:          cast.ToString(coalesce("CRAWLYTICS_DATA_DIR", "./data")),
		RawPrefix:        cast.ToString(coalesce("LOG_RAW_PREFIX", "raw")),
		ProcessingPrefix: cast.ToString(coalesce("LOG_PROCESSING_PREFIX", "parsed")),
		AggregatedKey:    cast.ToString(coalesce("LOG_AGGREGATED_KEY", "aggregated/all_logs.csv")),
		AggregatedLogKey: cast.ToString(coalesce("LOG_AGGREGATED_LOG_KEY", "aggregated/all_logs.log")),
		ReportPrefix:     cast.ToString(coalesce("LOG_ANALYSIS_PREFIX", "reports")),
		AnalysisDays:     cast.ToInt(coalesce("LOG_ANALYSIS_DAYS", 365)),
		BotMapPath:       cast.ToString(coalesce("BOT_MAP_PATH", "bot_map.json")),
		LogLevel:         cast.ToString(coalesce("LOG_LEVEL", "info")),
	}
}

func coalesce(key string, value interface{}) interface{} {
	val, exist := os.LookupEnv(key)
	if exist {
		return val
	}
	return value
}
