// Package config provides centralized default values for intentstack
package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

var envLoaded sync.Once

// loadEnvFile applies .env overrides without clobbering variables already set
// in the process environment.
func loadEnvFile() {
	envLoaded.Do(func() {
		if _, err := os.Stat(".env"); err != nil {
			return
		}
		log.Println("Loading configuration overrides from .env file...")
		if err := godotenv.Load(".env"); err != nil {
			log.Printf("Failed to load .env file: %v", err)
		}
	})
}

func getEnvInt(key string, defaultValue int) int {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := strconv.Atoi(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%d (default: %d)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := strconv.ParseFloat(valStr, 64); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%g (default: %g)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

func getEnvString(key string, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		if val != defaultValue && !isSecretKey(key) {
			log.Printf("Config override: %s=%s (default: %s)", key, val, defaultValue)
		}
		return val
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := strconv.ParseBool(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%t (default: %t)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := time.ParseDuration(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%s (default: %s)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

func isSecretKey(key string) bool {
	k := strings.ToUpper(key)
	return strings.Contains(k, "KEY") || strings.Contains(k, "SECRET") ||
		strings.Contains(k, "TOKEN") || strings.Contains(k, "PASSWORD")
}

var (
	// Server Configuration
	Port               string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration
	ServerIdleTimeout  time.Duration
	AllowedOrigins     []string

	// Database
	DatabaseDriver           string
	SQLitePath               string
	TursoDatabase            string
	TursoToken               string
	DBMaxOpenConns           int
	DBMaxIdleConns           int
	DBConnMaxLifetimeMinutes int
	DBConnMaxIdleMinutes     int
	SlowQueryThreshold       time.Duration
	EventRetentionDays       int
	RetentionSweepInterval   time.Duration

	// Redis score backend (optional)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Decision trigger
	AITriggerThreshold  int
	MinEventsCount      int
	ActivityWindow      time.Duration
	HighIntentDwellTime int

	// Persona thresholds
	PersonaThresholdAuthor         int
	PersonaThresholdBusiness       int
	PersonaThresholdDesigner       int
	PersonaThresholdStudent        int
	PersonaThresholdGeneral        int
	PersonaThresholdPublisher      int
	PersonaThresholdLoyalCustomer  int
	PersonaThresholdCasualBrowser  int
	PersonaThresholdPriceSensitive int
	PersonaUpdateDelta             int

	// Context assembly
	ContextTokenBudget          int
	ContextConversationMessages int
	KnowledgeBasePath           string
	SiteName                    string

	// Generative AI
	GeminiAPIKey          string
	GeminiModel           string
	GeminiBaseURL         string
	AITimeout             time.Duration
	AITemperature         float64
	AITopK                float64
	AITopP                float64
	AIMaxOutputTokens     int
	AIStructuredResponses bool

	// Leads
	LeadHotScoreThreshold int
	ResendAPIKey          string
	LeadNotifyEmail       string
	EmailFrom             string
	EmailFromName         string

	// Voice
	AssemblyAIAPIKey string

	// Admin
	JWTSecret         string
	AdminPasswordHash string
	AdminTokenTTL     time.Duration

	// Logging
	LogDirectory  string
	LogToFile     bool
	LogJSONFormat bool
)

func init() {
	Load()
}

// Load reads every setting from the environment. It runs once at package init
// and may be called again by tests after changing the environment.
func Load() {
	loadEnvFile()

	// Server Configuration
	Port = getEnvString("PORT", "8080")
	ServerReadTimeout = getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second)
	ServerWriteTimeout = getEnvDuration("SERVER_WRITE_TIMEOUT", 45*time.Second)
	ServerIdleTimeout = getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second)
	AllowedOrigins = strings.Split(getEnvString("ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:4321,http://127.0.0.1:3000"), ",")

	// Database
	DatabaseDriver = getEnvString("DATABASE_DRIVER", "sqlite3")
	SQLitePath = getEnvString("SQLITE_PATH", "db/intentstack.db")
	TursoDatabase = getEnvString("TURSO_DATABASE_URL", "")
	TursoToken = getEnvString("TURSO_AUTH_TOKEN", "")
	DBMaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", 10)
	DBMaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", 3)
	DBConnMaxLifetimeMinutes = getEnvInt("DB_CONN_MAX_LIFETIME_MINUTES", 30)
	DBConnMaxIdleMinutes = getEnvInt("DB_CONN_MAX_IDLE_MINUTES", 3)
	SlowQueryThreshold = getEnvDuration("SLOW_QUERY_THRESHOLD", 500*time.Millisecond)
	EventRetentionDays = getEnvInt("EVENT_RETENTION_DAYS", 30)
	RetentionSweepInterval = getEnvDuration("RETENTION_SWEEP_INTERVAL", 6*time.Hour)

	RedisAddr = getEnvString("REDIS_ADDR", "")
	RedisPassword = getEnvString("REDIS_PASSWORD", "")
	RedisDB = getEnvInt("REDIS_DB", 0)

	// Decision trigger
	AITriggerThreshold = getEnvInt("AI_TRIGGER_THRESHOLD", 50)
	MinEventsCount = getEnvInt("MIN_EVENTS_COUNT", 5)
	ActivityWindow = time.Duration(getEnvInt("ACTIVITY_WINDOW", 300)) * time.Second
	HighIntentDwellTime = getEnvInt("HIGH_INTENT_DWELL_TIME", 5000)

	// Persona thresholds
	PersonaThresholdAuthor = getEnvInt("PERSONA_THRESHOLD_AUTHOR", 100)
	PersonaThresholdBusiness = getEnvInt("PERSONA_THRESHOLD_BUSINESS", 80)
	PersonaThresholdDesigner = getEnvInt("PERSONA_THRESHOLD_DESIGNER", 70)
	PersonaThresholdStudent = getEnvInt("PERSONA_THRESHOLD_STUDENT", 50)
	PersonaThresholdGeneral = getEnvInt("PERSONA_THRESHOLD_GENERAL", 0)
	PersonaThresholdPublisher = getEnvInt("PERSONA_THRESHOLD_PUBLISHER", 100)
	PersonaThresholdLoyalCustomer = getEnvInt("PERSONA_THRESHOLD_LOYAL_CUSTOMER", 60)
	PersonaThresholdCasualBrowser = getEnvInt("PERSONA_THRESHOLD_CASUAL_BROWSER", 40)
	PersonaThresholdPriceSensitive = getEnvInt("PERSONA_THRESHOLD_PRICE_SENSITIVE", 60)
	PersonaUpdateDelta = getEnvInt("PERSONA_UPDATE_DELTA", 20)

	// Context assembly
	ContextTokenBudget = getEnvInt("CONTEXT_TOKEN_BUDGET", 500)
	ContextConversationMessages = getEnvInt("CONTEXT_CONVERSATION_MESSAGES", 20)
	KnowledgeBasePath = getEnvString("KNOWLEDGE_BASE_PATH", "config/knowledge.yaml")
	SiteName = getEnvString("SITE_NAME", "Chapkhane")

	// Generative AI
	GeminiAPIKey = getEnvString("GEMINI_API_KEY", "")
	GeminiModel = getEnvString("GEMINI_MODEL", "gemini-2.0-flash")
	GeminiBaseURL = getEnvString("GEMINI_BASE_URL", "")
	AITimeout = getEnvDuration("AI_TIMEOUT", 30*time.Second)
	AITemperature = getEnvFloat("AI_TEMPERATURE", 0.7)
	AITopK = getEnvFloat("AI_TOP_K", 40)
	AITopP = getEnvFloat("AI_TOP_P", 0.95)
	AIMaxOutputTokens = getEnvInt("AI_MAX_OUTPUT_TOKENS", 1024)
	AIStructuredResponses = getEnvBool("AI_STRUCTURED_RESPONSES", true)

	// Leads
	LeadHotScoreThreshold = getEnvInt("LEAD_HOT_SCORE_THRESHOLD", 70)
	ResendAPIKey = getEnvString("RESEND_API_KEY", "")
	LeadNotifyEmail = getEnvString("LEAD_NOTIFY_EMAIL", "")
	EmailFrom = getEnvString("EMAIL_FROM", "noreply@example.com")
	EmailFromName = getEnvString("EMAIL_FROM_NAME", "Intentstack")

	AssemblyAIAPIKey = getEnvString("AAI_API_KEY", "")

	// Admin
	JWTSecret = getEnvString("JWT_SECRET", "")
	AdminPasswordHash = getEnvString("ADMIN_PASSWORD_HASH", "")
	AdminTokenTTL = getEnvDuration("ADMIN_TOKEN_TTL", 12*time.Hour)

	// Logging
	LogDirectory = getEnvString("LOG_DIRECTORY", "logs")
	LogToFile = getEnvBool("LOG_TO_FILE", true)
	LogJSONFormat = getEnvBool("LOG_JSON_FORMAT", true)
}
