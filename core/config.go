package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Env              string `mapstructure:"-"`
		Build            string `mapstructure:"build"`
		Debug            bool   `mapstructure:"debug"`
		TestMode         bool   `mapstructure:"testMode"`
		AppName          string `mapstructure:"appName"`
		SecretKey        string `mapstructure:"secretKey"`
		WorkDir          string `mapstructure:"-"`
		FrontendBaseURL  string `mapstructure:"frontendBaseURL"`
		DefaultFromEmail string `mapstructure:"defaultFromEmail"`
		SendgridApiKey   string `mapstructure:"sendgridApiKey"`
		RollbarToken     string `mapstructure:"rollbarToken"`

		Server    ServerConfig    `mapstructure:"server"`
		Database  DatabaseConfig  `mapstructure:"database"`
		Retry     RetryConfig     `mapstructure:"retry"`
		Cache     CacheConfig     `mapstructure:"cache"`
		Scheduler SchedulerConfig `mapstructure:"scheduler"`
		Archive   ArchiveConfig   `mapstructure:"archive"`
	}

	ServerConfig struct {
		Host                      string        `mapstructure:"host"`
		DebugHost                 string        `mapstructure:"debugHost"`
		ShutdownTimeout           time.Duration `mapstructure:"shutdownTimeout"`
		JWTExpirationDelta        time.Duration `mapstructure:"jwtExpirationDelta"`
		JWTRefreshExpirationDelta time.Duration `mapstructure:"jwtRefreshExpirationDelta"`
		TokenCookie               string        `mapstructure:"tokenCookie"`
	}

	DatabaseConfig struct {
		Backend       string `mapstructure:"backend"` // sqlx | gorm | inmem
		Engine        string `mapstructure:"engine"`
		Host          string `mapstructure:"host"`
		Port          string `mapstructure:"port"`
		Name          string `mapstructure:"name"`
		User          string `mapstructure:"user"`
		Password      string `mapstructure:"password"`
		AdminUser     string `mapstructure:"adminUser"`
		AdminPassword string `mapstructure:"adminPassword"`
		DisableTLS    bool   `mapstructure:"disableTLS"`
		MaxOpenConns  int    `mapstructure:"maxOpenConns"`
		MaxIdleConns  int    `mapstructure:"maxIdleConns"`
	}

	RetryConfig struct {
		MaxAttempts     int           `mapstructure:"maxAttempts"`
		InitialInterval time.Duration `mapstructure:"initialInterval"`
		MaxInterval     time.Duration `mapstructure:"maxInterval"`
	}

	CacheConfig struct {
		RedisURL string        `mapstructure:"redisURL"`
		TTL      time.Duration `mapstructure:"ttl"`
	}

	SchedulerConfig struct {
		Enabled         bool   `mapstructure:"enabled"`
		AlertsSpec      string `mapstructure:"alertsSpec"`
		ArchiveSpec     string `mapstructure:"archiveSpec"`
		AlertsThreshold string `mapstructure:"alertsThreshold"` // lowest band that is NOT alerted
	}

	ArchiveConfig struct {
		Bucket   string `mapstructure:"bucket"`
		Region   string `mapstructure:"region"`
		Endpoint string `mapstructure:"endpoint"`
		Prefix   string `mapstructure:"prefix"`
	}
)

// Address returns the database "host:port".
func (c DatabaseConfig) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// FromEmail parses DefaultFromEmail, falling back to a bare address.
func (c *Config) FromEmail() mail.Address {
	addr, err := mail.ParseAddress(c.DefaultFromEmail)
	if err != nil {
		return mail.Address{Name: c.AppName, Address: c.DefaultFromEmail}
	}
	return *addr
}

func (c *Config) RetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     c.Retry.MaxAttempts,
		InitialInterval: c.Retry.InitialInterval,
		MaxInterval:     c.Retry.MaxInterval,
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("build", "develop")
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("appName", "Masomo Attendance")
	v.SetDefault("secretKey", "poq5-wer)enb$+57=dz&uoxh2(h!x)#*c2(#yg4h^$cegm2emy")
	v.SetDefault("frontendBaseURL", "http://localhost:8080")
	v.SetDefault("defaultFromEmail", "Masomo Attendance <noreply@localhost>")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("rollbarToken", "")

	v.SetDefault("server.host", ":8000")
	v.SetDefault("server.debugHost", ":4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.jwtExpirationDelta", 24*time.Hour)
	v.SetDefault("server.jwtRefreshExpirationDelta", 7*24*time.Hour)
	v.SetDefault("server.tokenCookie", "ASM_TOKEN")

	v.SetDefault("database.backend", "sqlx")
	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "asm")
	v.SetDefault("database.user", "asm")
	v.SetDefault("database.password", "asm")
	v.SetDefault("database.adminUser", "postgres")
	v.SetDefault("database.adminPassword", "postgres")
	v.SetDefault("database.disableTLS", true)
	v.SetDefault("database.maxOpenConns", 25)
	v.SetDefault("database.maxIdleConns", 5)

	v.SetDefault("retry.maxAttempts", 3)
	v.SetDefault("retry.initialInterval", 50*time.Millisecond)
	v.SetDefault("retry.maxInterval", time.Second)

	v.SetDefault("cache.redisURL", "")
	v.SetDefault("cache.ttl", 30*time.Second)

	v.SetDefault("scheduler.enabled", false)
	v.SetDefault("scheduler.alertsSpec", "0 0 7 * * MON")
	v.SetDefault("scheduler.archiveSpec", "0 30 0 1 * *")
	v.SetDefault("scheduler.alertsThreshold", "Warning")

	v.SetDefault("archive.bucket", "")
	v.SetDefault("archive.region", "us-east-1")
	v.SetDefault("archive.endpoint", "")
	v.SetDefault("archive.prefix", "reports")
}

// NewConfig loads the configuration of the current ENV: DEV (local; default), TEST, QA or PROD.
// Values come from defaults, then `config/.env.<env>` (if it exists), then the environment, e.g.
// `DEV_DATABASE_HOST` overrides `database.host` in DEV.
func NewConfig() *Config {
	v := viper.New()
	v.SetTypeByDefaultValue(true)
	setDefaults(v)

	env := strings.ToUpper(os.Getenv("ENV"))
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	workDir := Getwd()

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(workDir, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	conf := new(Config)
	if err := v.Unmarshal(conf); err != nil {
		log.Fatalf("config.Unmarshal: %v", err)
	}
	conf.Env = env
	conf.WorkDir = workDir
	return conf
}
