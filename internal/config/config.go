package config // package config loads application configuration from the environment and an optional .env file

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/iliyamo/acdoc-booking/internal/model"
)

// Config holds all runtime configuration values. It is built once in main and
// passed down explicitly; nothing else in the module reads the environment.
type Config struct {
	Env            string // application environment (dev, test, prod)
	Port           string // HTTP port to listen on
	LogLevel       string // logrus level name
	UseMemoryStore bool   // run on in-memory repositories instead of MySQL
	ExposeOTP      bool   // return generated OTP codes in login responses, local use only

	DB          DBConfig
	Redis       RedisConfig
	RabbitMQURL string // empty disables the notification queue
	Twilio      TwilioConfig
	FCM         FCMConfig

	Auth      AuthConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
}

// DBConfig describes the MySQL connection.
type DBConfig struct {
	User string
	Pass string
	Host string
	Port string
	Name string
}

// DSN returns the go-sql-driver DSN for this configuration.
func (d DBConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		d.User, d.Pass, d.Host, d.Port, d.Name)
}

// TwilioConfig holds SMS gateway credentials. When AccountSID is empty OTP
// codes are logged instead of sent.
type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	From       string
}

// FCMConfig points at the Firebase service account used for push
// messages. When CredentialsFile is empty pushes are logged instead.
type FCMConfig struct {
	CredentialsFile string
	ProjectID       string // optional, read from the credentials otherwise
}

// RoleAuth is the per-role part of the auth configuration.
type RoleAuth struct {
	AccessSecret  string
	RefreshSecret string
	SingleUseOTP  bool // delete the OTP once it has been verified
	SetCookie     bool // also return the refresh token as an httpOnly cookie
}

// AuthConfig groups token and OTP settings.
type AuthConfig struct {
	Admin      RoleAuth
	User       RoleAuth
	Technician RoleAuth

	AccessTTL        time.Duration
	RefreshTTL       time.Duration
	RefreshCookieTTL time.Duration
	OTPTTL           time.Duration
	OTPLength        int
	BcryptCost       int
}

// For returns the settings of a single role.
func (a AuthConfig) For(role model.Role) RoleAuth {
	switch role {
	case model.RoleAdmin:
		return a.Admin
	case model.RoleTechnician:
		return a.Technician
	default:
		return a.User
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "prod")
	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("USE_MEMORY_STORE", false)
	v.SetDefault("OTP_EXPOSE", false)

	v.SetDefault("DB_HOST", "127.0.0.1")
	v.SetDefault("DB_PORT", "3306")

	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ACCESS_TOKEN_TTL", 15*time.Minute)
	v.SetDefault("REFRESH_TOKEN_TTL", 30*24*time.Hour)
	v.SetDefault("REFRESH_COOKIE_TTL", 30*time.Minute)
	v.SetDefault("OTP_TTL", 5*time.Minute)
	v.SetDefault("OTP_LENGTH", 6)
	v.SetDefault("BCRYPT_COST", 10)
	v.SetDefault("ADMIN_OTP_SINGLE_USE", false)
	v.SetDefault("USER_OTP_SINGLE_USE", true)
	v.SetDefault("TECHNICIAN_OTP_SINGLE_USE", true)

	v.SetDefault("RATE_LIMIT_ENABLED", true)
	v.SetDefault("RATE_LIMIT_CAPACITY", 5)
	v.SetDefault("RATE_LIMIT_REFILL_TOKENS", 1)
	v.SetDefault("RATE_LIMIT_REFILL_INTERVAL", 12*time.Second)
	v.SetDefault("RATE_LIMIT_TTL", 10*time.Minute)
	v.SetDefault("RATE_LIMIT_KEY_STRATEGY", "ip_route")
	v.SetDefault("RATE_LIMIT_PREFIX", "acdoc:rl")

	v.SetDefault("CACHE_ENABLED", true)
	v.SetDefault("CACHE_TTL", time.Minute)
	v.SetDefault("CACHE_KEY_STRATEGY", "route_query")
	v.SetDefault("CACHE_PREFIX", "acdoc:cache")
	v.SetDefault("CACHE_MAX_BODY_BYTES", 1<<20)
}

// Load reads .env (when present) and the process environment. Missing JWT
// secrets and, unless the memory store is selected, missing database
// settings are reported as a single error.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)
	return fromViper(v)
}

func fromViper(v *viper.Viper) (Config, error) {
	cfg := Config{
		Env:            strings.ToLower(v.GetString("APP_ENV")),
		Port:           v.GetString("APP_PORT"),
		LogLevel:       v.GetString("LOG_LEVEL"),
		UseMemoryStore: v.GetBool("USE_MEMORY_STORE"),
		ExposeOTP:      v.GetBool("OTP_EXPOSE"),
		DB: DBConfig{
			User: v.GetString("DB_USER"),
			Pass: v.GetString("DB_PASS"),
			Host: v.GetString("DB_HOST"),
			Port: v.GetString("DB_PORT"),
			Name: v.GetString("DB_NAME"),
		},
		Redis:       loadRedisConfig(v),
		RabbitMQURL: v.GetString("RABBITMQ_URL"),
		Twilio: TwilioConfig{
			AccountSID: v.GetString("TWILIO_ACCOUNT_SID"),
			AuthToken:  v.GetString("TWILIO_AUTH_TOKEN"),
			From:       v.GetString("TWILIO_FROM_NUMBER"),
		},
		FCM: FCMConfig{
			CredentialsFile: v.GetString("FCM_CREDENTIALS_FILE"),
			ProjectID:       v.GetString("FCM_PROJECT_ID"),
		},
		Auth: AuthConfig{
			Admin: RoleAuth{
				AccessSecret:  v.GetString("ADMIN_ACCESS_SECRET"),
				RefreshSecret: v.GetString("ADMIN_REFRESH_SECRET"),
				SingleUseOTP:  v.GetBool("ADMIN_OTP_SINGLE_USE"),
				SetCookie:     true,
			},
			User: RoleAuth{
				AccessSecret:  v.GetString("USER_ACCESS_SECRET"),
				RefreshSecret: v.GetString("USER_REFRESH_SECRET"),
				SingleUseOTP:  v.GetBool("USER_OTP_SINGLE_USE"),
			},
			Technician: RoleAuth{
				AccessSecret:  v.GetString("TECHNICIAN_ACCESS_SECRET"),
				RefreshSecret: v.GetString("TECHNICIAN_REFRESH_SECRET"),
				SingleUseOTP:  v.GetBool("TECHNICIAN_OTP_SINGLE_USE"),
				SetCookie:     true,
			},
			AccessTTL:        v.GetDuration("ACCESS_TOKEN_TTL"),
			RefreshTTL:       v.GetDuration("REFRESH_TOKEN_TTL"),
			RefreshCookieTTL: v.GetDuration("REFRESH_COOKIE_TTL"),
			OTPTTL:           v.GetDuration("OTP_TTL"),
			OTPLength:        v.GetInt("OTP_LENGTH"),
			BcryptCost:       v.GetInt("BCRYPT_COST"),
		},
		RateLimit: loadRateLimitConfig(v),
		Cache:     loadCacheConfig(v),
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	var errs []error
	secrets := map[string]string{
		"ADMIN_ACCESS_SECRET":       c.Auth.Admin.AccessSecret,
		"ADMIN_REFRESH_SECRET":      c.Auth.Admin.RefreshSecret,
		"USER_ACCESS_SECRET":        c.Auth.User.AccessSecret,
		"USER_REFRESH_SECRET":       c.Auth.User.RefreshSecret,
		"TECHNICIAN_ACCESS_SECRET":  c.Auth.Technician.AccessSecret,
		"TECHNICIAN_REFRESH_SECRET": c.Auth.Technician.RefreshSecret,
	}
	for _, k := range sortedKeys(secrets) {
		if secrets[k] == "" {
			errs = append(errs, fmt.Errorf("missing required env var: %s", k))
		}
	}
	if !c.UseMemoryStore {
		if c.DB.User == "" {
			errs = append(errs, errors.New("missing required env var: DB_USER"))
		}
		if c.DB.Name == "" {
			errs = append(errs, errors.New("missing required env var: DB_NAME"))
		}
	}
	if c.Auth.OTPLength < 4 || c.Auth.OTPLength > 10 {
		errs = append(errs, fmt.Errorf("OTP_LENGTH must be between 4 and 10, got %d", c.Auth.OTPLength))
	}
	if c.Auth.AccessTTL <= 0 || c.Auth.RefreshTTL <= 0 || c.Auth.OTPTTL <= 0 {
		errs = append(errs, errors.New("token and otp TTLs must be positive"))
	}
	return errors.Join(errs...)
}

// IsProd reports whether the service runs in production mode.
func (c Config) IsProd() bool {
	return c.Env == "prod" || c.Env == "production"
}
