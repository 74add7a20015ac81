package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	ListenAddr   string
	DBPath       string
	ImageRoot    string
	LogLevel     string
	LogFile      string
	LogFormat    string
	PenWidth     float64
	PenColor     string
	TextColor    string
	CanvasWidth  int
	CanvasHeight int
}

func Load() *Config {
	return &Config{
		ListenAddr:   getEnv("LISTEN_ADDR", ":8080"),
		DBPath:       getEnv("DB_PATH", "pinboard.db"),
		ImageRoot:    getEnv("IMAGE_ROOT", "."),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		LogFile:      getEnv("LOG_FILE", ""),
		LogFormat:    getEnv("LOG_FORMAT", "json"),
		PenWidth:     getEnvFloat("PEN_WIDTH", 3),
		PenColor:     getEnv("PEN_COLOR", "#eaeaea"),
		TextColor:    getEnv("TEXT_COLOR", "#eaeaea"),
		CanvasWidth:  getEnvInt("CANVAS_WIDTH", 1280),
		CanvasHeight: getEnvInt("CANVAS_HEIGHT", 800),
	}
}

// LoadDotEnv copies the KEY=VALUE pairs in path into the process
// environment. Variables that are already set keep their value. A missing
// file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	v, err := strconv.ParseFloat(getEnv(key, ""), 64)
	if err != nil || v <= 0 {
		return defaultVal
	}
	return v
}

func getEnvInt(key string, defaultVal int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil || v <= 0 {
		return defaultVal
	}
	return v
}
