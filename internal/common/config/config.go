package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// ============================================================
// Configuration
// ============================================================

type Config struct {
	Port         string        `env:"PORT"          envDefault:"3000"`
	Environment  string        `env:"ENV"           envDefault:"development"`
	ReadTimeout  time.Duration `env:"READ_TIMEOUT"  envDefault:"10s"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`
	LogLevel     string        `env:"LOG_LEVEL"     envDefault:"info"`
	CORSOrigins  []string      `env:"CORS_ORIGINS"  envDefault:"*" envSeparator:","`

	DBPath      string `env:"LAYOUT_DB_PATH"      envDefault:"data/layout.db"`
	CatalogPath string `env:"LAYOUT_CATALOG_PATH"`

	RoomWidth   int     `env:"LAYOUT_ROOM_WIDTH"   envDefault:"20"`
	RoomDepth   int     `env:"LAYOUT_ROOM_DEPTH"   envDefault:"15"`
	CellSize    float64 `env:"LAYOUT_CELL_SIZE"    envDefault:"40"`
	StrictMerge bool    `env:"LAYOUT_STRICT_MERGE" envDefault:"false"`
	OutboxSize  int     `env:"LAYOUT_OUTBOX_SIZE"  envDefault:"256"`

	LongPress   time.Duration `env:"INPUT_LONG_PRESS"   envDefault:"500ms"`
	DoubleClick time.Duration `env:"INPUT_DOUBLE_CLICK" envDefault:"300ms"`

	// Пустой адрес отключает статусы столов.
	RedisAddr string `env:"TABLE_STATUS_REDIS_ADDR"`
}

// Load загружает конфигурацию из переменных окружения
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.RoomWidth < 1 || cfg.RoomDepth < 1 {
		return nil, fmt.Errorf("room size must be positive, got %dx%d", cfg.RoomWidth, cfg.RoomDepth)
	}
	if cfg.CellSize <= 0 {
		return nil, fmt.Errorf("cell size must be positive, got %v", cfg.CellSize)
	}
	return &cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
