// Package config resolves runtime configuration from flags, the environment
// and an optional .env file.
package config

import (
	"flag"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port string
	Env  string

	// GeminiAPIKey is required for live generation; without it the server
	// runs against the scripted offline client.
	GeminiAPIKey string

	// ReasoningModel/FastModel/LiteModel override the built-in defaults.
	ReasoningModel string
	FastModel      string
	LiteModel      string

	// JWKSURL enables token verification. Empty means local mode with a
	// static development identity.
	JWKSURL   string
	LocalUser string

	// StorePath is the JSON store location used when no Postgres DSN is set.
	StorePath string

	// AllowedOrigins feeds the CORS middleware.
	AllowedOrigins []string

	DisableGrounding bool

	FileVault FileVaultConfig
}

type FileVaultConfig struct {
	Enabled   bool
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	port := flag.String("port", ":8080", "server port")
	flag.Parse()

	if envPort := os.Getenv("PORT"); envPort != "" {
		if strings.HasPrefix(envPort, ":") {
			*port = envPort
		} else {
			*port = ":" + envPort
		}
	}

	env := strings.TrimSpace(os.Getenv("APP_ENV"))
	if env == "" {
		env = "local"
	}

	origins := []string{"*"}
	if raw := strings.TrimSpace(os.Getenv("ALLOWED_ORIGINS")); raw != "" {
		origins = origins[:0]
		for _, o := range strings.Split(raw, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
	}

	return &Config{
		Port:             *port,
		Env:              env,
		GeminiAPIKey:     strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		ReasoningModel:   strings.TrimSpace(os.Getenv("GEMINI_REASONING_MODEL")),
		FastModel:        strings.TrimSpace(os.Getenv("GEMINI_FAST_MODEL")),
		LiteModel:        strings.TrimSpace(os.Getenv("GEMINI_LITE_MODEL")),
		JWKSURL:          strings.TrimSpace(os.Getenv("AUTH_JWKS_URL")),
		LocalUser:        firstNonEmpty(strings.TrimSpace(os.Getenv("LOCAL_USER_ID")), "local-dev"),
		StorePath:        firstNonEmpty(strings.TrimSpace(os.Getenv("ARTIFACT_STORE_PATH")), "data/projects.json"),
		AllowedOrigins:   origins,
		DisableGrounding: envBool("DISABLE_GROUNDING", false),
		FileVault:        loadFileVaultConfig(env),
	}, nil
}

func loadFileVaultConfig(env string) FileVaultConfig {
	endpoint := resolveVaultEndpoint(env)
	return FileVaultConfig{
		Enabled:   endpoint != "",
		Endpoint:  endpoint,
		Region:    firstNonEmpty(strings.TrimSpace(os.Getenv("FILEVAULT_S3_REGION")), "us-east-1"),
		AccessKey: firstNonEmpty(strings.TrimSpace(os.Getenv("FILEVAULT_S3_ACCESS_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_USER"))),
		SecretKey: firstNonEmpty(strings.TrimSpace(os.Getenv("FILEVAULT_S3_SECRET_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_PASSWORD"))),
		Bucket:    firstNonEmpty(strings.TrimSpace(os.Getenv("FILEVAULT_S3_BUCKET")), "analystpro-files"),
		UseSSL:    resolveVaultUseSSL(env),
	}
}

func resolveVaultEndpoint(env string) string {
	if strings.EqualFold(strings.TrimSpace(env), "local") {
		return strings.TrimSpace(os.Getenv("FILEVAULT_MINIO_ENDPOINT"))
	}
	return strings.TrimSpace(os.Getenv("FILEVAULT_S3_ENDPOINT"))
}

func resolveVaultUseSSL(env string) bool {
	if strings.EqualFold(strings.TrimSpace(env), "local") {
		return false
	}
	return envBool("FILEVAULT_S3_USE_SSL", true)
}

func envBool(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
