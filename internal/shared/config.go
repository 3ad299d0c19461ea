package shared

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv         string
	LogLevel       string
	HTTPAddr       string
	MetricsAddr    string
	StoreDriver    string
	MySQLDSN       string
	RedisAddr      string
	RedisDB        int
	RedisPass      string
	CacheTTL       time.Duration
	SessionSecret  string
	SessionTTL     time.Duration
	SessionCookie  string
	SessionSecure  bool
	LoginRPS       float64
	LoginBurst     int
	CORSOrigins    []string
	RequestTimeout time.Duration
}

func Load() Config {
	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
			log.Warn().Str("var", k).Str("value", v).Msg("not an integer, using default")
		}
		return def
	}
	atof := func(k string, def float64) float64 {
		if v := os.Getenv(k); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
				return f
			}
			log.Warn().Str("var", k).Str("value", v).Msg("not a positive number, using default")
		}
		return def
	}
	c := Config{
		AppEnv:         env("APP_ENV", "prod"),
		LogLevel:       env("LOG_LEVEL", "info"),
		HTTPAddr:       env("HTTP_ADDR", ":8080"),
		MetricsAddr:    env("METRICS_ADDR", ""),
		StoreDriver:    strings.ToLower(env("STORE_DRIVER", "mysql")),
		MySQLDSN:       env("MYSQL_DSN", "root:root@tcp(localhost:3306)/myrestaurants?parseTime=true&charset=utf8mb4,utf8&loc=UTC"),
		RedisAddr:      env("REDIS_ADDR", "localhost:6379"),
		RedisPass:      env("REDIS_PASSWORD", ""),
		RedisDB:        atoi("REDIS_DB", 0),
		CacheTTL:       time.Duration(atoi("CACHE_TTL_SECONDS", 900)) * time.Second,
		SessionSecret:  env("SESSION_SECRET", ""),
		SessionTTL:     time.Duration(atoi("SESSION_TTL_MINUTES", 1440)) * time.Minute,
		SessionCookie:  env("SESSION_COOKIE", "sessionid"),
		SessionSecure:  strings.EqualFold(env("SESSION_SECURE", "false"), "true"),
		LoginRPS:       atof("LOGIN_RPS", 5),
		LoginBurst:     atoi("LOGIN_BURST", 10),
		CORSOrigins:    list(env("CORS_ORIGINS", "*")),
		RequestTimeout: time.Duration(atoi("REQUEST_TIMEOUT_SECONDS", 15)) * time.Second,
	}
	if c.StoreDriver != "mysql" && c.StoreDriver != "memory" {
		log.Warn().Str("driver", c.StoreDriver).Msg("unknown STORE_DRIVER, using mysql")
		c.StoreDriver = "mysql"
	}
	if c.SessionSecret == "" {
		log.Warn().Msg("SESSION_SECRET is empty; sessions will not survive a restart")
	}
	return c
}

// Dev reports whether the app runs in a development environment.
func (c Config) Dev() bool { return c.AppEnv == "dev" || c.AppEnv == "development" }

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func list(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
