package config

import (
	"log"

	"github.com/ilyakaznacheev/cleanenv"
)

type key string

const (
	KeyLogger  = key("logger")
	KeyMetrics = key("metrics")
)

type Config struct {
	Service  Service
	Platform Platform
	Logger   Logger
	Metrics  Metrics
	Chat     Chat
	Archive  Archive
}

type Service struct {
	Name string `env:"CHAT_CLIENT_SERVICE_NAME" env-default:"chat-client"`
}

type Platform struct {
	Env string `env:"CHAT_CLIENT_ENV" env-default:"dev"`
}

type Logger struct {
	Host string `env:"LOGGER_SERVICE_HOST"`
	Port string `env:"LOGGER_SERVICE_PORT"`
}

type Metrics struct {
	Host string `env:"METRICS_SERVICE_HOST"`
	Port int    `env:"METRICS_SERVICE_PORT" env-default:"8125"`
}

type Chat struct {
	BaseURL     string `env:"CHAT_API_BASE_URL" env-default:"http://localhost:3000"`
	SocketURL   string `env:"CHAT_SOCKET_URL" env-default:"ws://localhost:3000/ws"`
	DefaultRoom string `env:"CHAT_DEFAULT_ROOM" env-default:"general"`
	Token       string `env:"CHAT_AUTH_TOKEN"`
	UserUID     string `env:"CHAT_USER_UID"`
	UserName    string `env:"CHAT_USER_NAME"`
}

type Archive struct {
	Path string `env:"CHAT_ARCHIVE_PATH"`
}

func MustLoad() *Config {
	cfg := &Config{}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		log.Fatalf("failed to read config: %v", err)
	}
	return cfg
}
