package config

import (
	"flag"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

type Config struct {
	DebugMode           bool   `env:"DEBUG_MODE"`            // Режим дебага
	UserServiceURL      string `env:"USER_SERVICE_URL"`      // Базовый URL сервиса пользователей (регистрация, вход, чаты)
	InferenceServiceURL string `env:"INFERENCE_SERVICE_URL"` // Базовый URL сервиса инференса
	HTTPTimeoutSeconds  int    `env:"HTTP_TIMEOUT_SECONDS"`  // Таймаут HTTP-запросов к сервисам, в секундах
	ImageMaxDimension   int    `env:"IMAGE_MAX_DIMENSION"`   // Предел большей стороны загружаемого изображения, в пикселях
	ImageJPEGQuality    int    `env:"IMAGE_JPEG_QUALITY"`    // Качество JPEG при перекодировании, 1-100
}

// Defaults возвращает конфигурацию с предустановленными значениями по умолчанию.
// Эти значения перекрываются .env, переменными окружения и флагами CLI.
func Defaults() *Config {
	return &Config{
		DebugMode:           false,
		UserServiceURL:      "http://localhost:8003",
		InferenceServiceURL: "http://localhost:8001",
		HTTPTimeoutSeconds:  30,
		ImageMaxDimension:   512,
		ImageJPEGQuality:    70,
	}
}

// NewConfig загружает конфигурацию приложения.
func NewConfig() *Config {
	_ = godotenv.Load()

	// Стартуем с дефолтов, затем перекрываем .env/окружением и флагами
	cfg := Defaults()
	_ = env.Parse(cfg)

	flag.BoolVar(&cfg.DebugMode, "debug-mode", cfg.DebugMode, "включить режим дебага для отображения доп. инфы")
	flag.StringVar(&cfg.UserServiceURL, "user-service-url", cfg.UserServiceURL, "базовый URL сервиса пользователей")
	flag.StringVar(&cfg.InferenceServiceURL, "inference-service-url", cfg.InferenceServiceURL, "базовый URL сервиса инференса")
	flag.IntVar(&cfg.HTTPTimeoutSeconds, "http-timeout-seconds", cfg.HTTPTimeoutSeconds, "таймаут HTTP-запросов в секундах")
	flag.IntVar(&cfg.ImageMaxDimension, "image-max-dimension", cfg.ImageMaxDimension, "предел большей стороны изображения в пикселях")
	flag.IntVar(&cfg.ImageJPEGQuality, "image-jpeg-quality", cfg.ImageJPEGQuality, "качество JPEG при перекодировании (1-100)")
	flag.Parse()

	return cfg
}
