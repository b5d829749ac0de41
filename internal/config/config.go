package config // package config loads application configuration from environment variables

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Required values are enforced by must(); the
// remaining ones fall back to defaults suited for local development.
type Config struct {
	Env           string        // application environment (e.g. "dev", "prod")
	Port          string        // HTTP port to listen on
	DBUser        string        // database username
	DBPass        string        // database password (optional)
	DBHost        string        // database host address
	DBPort        string        // database port number
	DBName        string        // database name
	JWTSecret     string        // secret used to sign credentials
	CredentialTTL time.Duration // lifetime of the signed credential
	CookieName    string        // cookie carrying the credential
	CookieSecure  bool          // set the Secure attribute on the cookie
	BcryptCost    int           // bcrypt cost for password hashing
	AMQPURL       string        // broker url; empty disables event publishing
	OTP           OTPConfig
	OAuth         OAuthConfig
	AutoReply     AutoReplyConfig
}

// OTPConfig controls phone login codes and the SMS provider.
type OTPConfig struct {
	TTL         time.Duration
	MaxAttempts int
	SMSURL      string // gateway endpoint accepting {"to","from","text"}
	SMSAPIKey   string
	SMSSender   string
}

// OAuthConfig holds provider endpoints.  They default to the public
// provider URLs and exist so tests can point them at local servers.
type OAuthConfig struct {
	GoogleTokenInfoURL string
	GoogleUserInfoURL  string
	GoogleClientID     string
	FacebookMeURL      string
	AppleKeysURL       string
	AppleClientID      string
}

// AutoReplyConfig controls the automated host reply job run by the worker.
type AutoReplyConfig struct {
	Enabled bool
	Delay   time.Duration
	Text    string
}

// Load reads configuration values from a .env file (when present) and the
// environment.  Missing required variables cause the program to exit with
// a fatal log message.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("config: .env not loaded: %v", err)
	}
	return Config{
		Env:           getenv("APP_ENV", "dev"),
		Port:          getenv("APP_PORT", "8080"),
		DBUser:        must("DB_USER"),
		DBPass:        os.Getenv("DB_PASS"),
		DBHost:        getenv("DB_HOST", "127.0.0.1"),
		DBPort:        getenv("DB_PORT", "3306"),
		DBName:        must("DB_NAME"),
		JWTSecret:     must("JWT_SECRET"),
		CredentialTTL: time.Duration(envInt("CREDENTIAL_TTL_DAYS", 30)) * 24 * time.Hour,
		CookieName:    getenv("COOKIE_NAME", "token"),
		CookieSecure:  envBool("COOKIE_SECURE", false),
		BcryptCost:    envInt("BCRYPT_COST", 10),
		AMQPURL:       firstNonEmpty(os.Getenv("RABBITMQ_URL"), os.Getenv("AMQP_URL")),
		OTP: OTPConfig{
			TTL:         envDur("OTP_TTL", 5*time.Minute),
			MaxAttempts: envInt("OTP_MAX_ATTEMPTS", 5),
			SMSURL:      os.Getenv("SMS_API_URL"),
			SMSAPIKey:   os.Getenv("SMS_API_KEY"),
			SMSSender:   getenv("SMS_SENDER", "Staybook"),
		},
		OAuth: OAuthConfig{
			GoogleTokenInfoURL: getenv("GOOGLE_TOKENINFO_URL", "https://oauth2.googleapis.com/tokeninfo"),
			GoogleUserInfoURL:  getenv("GOOGLE_USERINFO_URL", "https://www.googleapis.com/userinfo/v2/me"),
			GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
			FacebookMeURL:      getenv("FACEBOOK_ME_URL", "https://graph.facebook.com/me"),
			AppleKeysURL:       getenv("APPLE_KEYS_URL", "https://appleid.apple.com/auth/keys"),
			AppleClientID:      os.Getenv("APPLE_CLIENT_ID"),
		},
		AutoReply: AutoReplyConfig{
			Enabled: envBool("AUTO_REPLY_ENABLED", false),
			Delay:   envDur("AUTO_REPLY_DELAY", 10*time.Second),
			Text:    getenv("AUTO_REPLY_TEXT", "Thanks for your message! I'll get back to you shortly."),
		},
	}
}

// LoadDatabase loads the subset of Config needed by the init-db and worker
// commands, which must not require a JWT secret.
func LoadDatabase() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("config: .env not loaded: %v", err)
	}
	return Config{
		Env:     getenv("APP_ENV", "dev"),
		DBUser:  must("DB_USER"),
		DBPass:  os.Getenv("DB_PASS"),
		DBHost:  getenv("DB_HOST", "127.0.0.1"),
		DBPort:  getenv("DB_PORT", "3306"),
		DBName:  must("DB_NAME"),
		AMQPURL: firstNonEmpty(os.Getenv("RABBITMQ_URL"), os.Getenv("AMQP_URL")),
		AutoReply: AutoReplyConfig{
			Enabled: envBool("AUTO_REPLY_ENABLED", false),
			Delay:   envDur("AUTO_REPLY_DELAY", 10*time.Second),
			Text:    getenv("AUTO_REPLY_TEXT", "Thanks for your message! I'll get back to you shortly."),
		},
	}
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
