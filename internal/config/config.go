package config

import "github.com/caarlos0/env/v10"

// Config centraliza la configuración del servicio.
type Config struct {
	HTTPPort     string `env:"HTTP_PORT" envDefault:"8080"`
	DatabaseURL  string `env:"DATABASE_URL,required"`
	ClientOrigin string `env:"CLIENT_ORIGIN" envDefault:"http://localhost:5173"`

	JWTSecret            string `env:"JWT_SECRET"`
	JWTAccessTTLMinutes  int    `env:"JWT_ACCESS_TTL_MINUTES" envDefault:"15"`
	JWTRefreshTTLMinutes int    `env:"JWT_REFRESH_TTL_MINUTES" envDefault:"10080"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	MediaUploadURL      string `env:"MEDIA_UPLOAD_URL"`
	MediaAPIKey         string `env:"MEDIA_API_KEY"`
	MediaTimeoutSeconds int    `env:"MEDIA_TIMEOUT_SECONDS" envDefault:"15"`
	MediaMaxUploadBytes int64  `env:"MEDIA_MAX_UPLOAD_BYTES" envDefault:"10485760"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
