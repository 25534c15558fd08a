package core

import (
	"fmt"
	"log"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Store drivers
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreMongo    = "mongo"

	LockLocal = "local"
	LockRedis = "redis"
)

type (
	Config struct {
		Env          string
		Debug        bool
		TestMode     bool
		AppName      string
		Build        string
		SecretKey    string
		RollbarToken string
		Server       ServerConfig
		Store        StoreConfig
		Lock         LockConfig
	}

	ServerConfig struct {
		Host            string
		Address         string
		DebugHost       string
		ShutdownTimeout time.Duration
		DisableReqLogs  bool
	}

	StoreConfig struct {
		Driver   string
		Postgres PostgresConfig
		Mongo    MongoConfig
	}

	PostgresConfig struct {
		Engine        string
		Host          string
		Port          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		Name          string
		DisableTLS    bool
	}

	MongoConfig struct {
		URI      string
		Database string
	}

	LockConfig struct {
		Driver string
		TTL    time.Duration
		Wait   time.Duration
		Redis  RedisConfig
	}

	RedisConfig struct {
		Addr     string
		Password string
		DB       int
	}
)

func (c PostgresConfig) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// NewConfig loads the configuration of the current ENV (DEV by default).
// Values come from defaults, then config/.env.<env> (if any), then the environment.
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("appName", "Juku")
	v.SetDefault("build", "dev")
	v.SetDefault("secretKey", "k3x-9wq)pa$+72=mz&ruo2h(j!x)#*d1(#bh^$cefn4wmq")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.debugHost", ":4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.disableReqLogs", false)
	v.SetDefault("store.driver", StoreMemory)
	v.SetDefault("store.postgres.engine", "postgres")
	v.SetDefault("store.postgres.host", "localhost")
	v.SetDefault("store.postgres.port", "5432")
	v.SetDefault("store.postgres.user", "juku")
	v.SetDefault("store.postgres.password", "juku")
	v.SetDefault("store.postgres.adminUser", "")
	v.SetDefault("store.postgres.adminPassword", "")
	v.SetDefault("store.postgres.name", "juku")
	v.SetDefault("store.postgres.disableTLS", true)
	v.SetDefault("store.mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("store.mongo.database", "juku")
	v.SetDefault("lock.driver", LockLocal)
	v.SetDefault("lock.ttl", 10*time.Second)
	v.SetDefault("lock.wait", 3*time.Second)
	v.SetDefault("lock.redis.addr", "localhost:6379")
	v.SetDefault("lock.redis.password", "")
	v.SetDefault("lock.redis.db", 0)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	if env == "" {
		env = "DEV"
	}
	if env == "TEST" {
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	if root, err := ProjectRoot(); err == nil {
		dotEnvPath := filepath.Join(root, "config", ".env."+strings.ToLower(env))
		if _, err := os.Stat(dotEnvPath); err == nil {
			if err := godotenv.Load(dotEnvPath); err != nil {
				log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
			}
		} else if !os.IsNotExist(err) {
			log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
		}
	}
	v.AutomaticEnv()

	return &Config{
		Env:          env,
		Debug:        v.GetBool("debug"),
		TestMode:     v.GetBool("testMode"),
		AppName:      v.GetString("appName"),
		Build:        v.GetString("build"),
		SecretKey:    v.GetString("secretKey"),
		RollbarToken: v.GetString("rollbarToken"),
		Server: ServerConfig{
			Host:            v.GetString("server.host"),
			Address:         v.GetString("server.address"),
			DebugHost:       v.GetString("server.debugHost"),
			ShutdownTimeout: v.GetDuration("server.shutdownTimeout"),
			DisableReqLogs:  v.GetBool("server.disableReqLogs"),
		},
		Store: StoreConfig{
			Driver: strings.ToLower(v.GetString("store.driver")),
			Postgres: PostgresConfig{
				Engine:        v.GetString("store.postgres.engine"),
				Host:          v.GetString("store.postgres.host"),
				Port:          v.GetString("store.postgres.port"),
				User:          v.GetString("store.postgres.user"),
				Password:      v.GetString("store.postgres.password"),
				AdminUser:     v.GetString("store.postgres.adminUser"),
				AdminPassword: v.GetString("store.postgres.adminPassword"),
				Name:          v.GetString("store.postgres.name"),
				DisableTLS:    v.GetBool("store.postgres.disableTLS"),
			},
			Mongo: MongoConfig{
				URI:      v.GetString("store.mongo.uri"),
				Database: v.GetString("store.mongo.database"),
			},
		},
		Lock: LockConfig{
			Driver: strings.ToLower(v.GetString("lock.driver")),
			TTL:    v.GetDuration("lock.ttl"),
			Wait:   v.GetDuration("lock.wait"),
			Redis: RedisConfig{
				Addr:     v.GetString("lock.redis.addr"),
				Password: v.GetString("lock.redis.password"),
				DB:       v.GetInt("lock.redis.db"),
			},
		},
	}
}

// Validate checks the driver selections.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case StoreMemory, StorePostgres, StoreMongo:
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	switch c.Lock.Driver {
	case LockLocal, LockRedis:
	default:
		return fmt.Errorf("unknown lock driver %q", c.Lock.Driver)
	}
	return nil
}
