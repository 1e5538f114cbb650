package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	APIPort  string
	LogLevel string

	ElasticURL      string
	ElasticIndex    string
	ElasticUsername string
	ElasticPassword string

	WatsonxURL        string
	WatsonxTokenURL   string
	WatsonxAPIKey     string
	WatsonxProjectID  string
	WatsonxGenModel   string
	WatsonxEmbedModel string
	WatsonxVersion    string
	WatsonxMaxTokens  int

	RerankerURL string

	NATSURL     string
	NATSSubject string

	OpenMeteoRequestsPerSec float64
	OpenMeteoBurst          int

	CorpusSnapshotSize    int
	CorpusRefreshInterval time.Duration

	RAGLexicalTopK  int
	RAGSemanticTopK int
	RAGRerankTopK   int

	RateLimitPerSec float64
	RateLimitBurst  int
}

// Load reads configuration from the environment, after loading a local .env
// file when one exists. Every knob has a working default except the watsonx
// credentials.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		APIPort:  env("API_PORT", "8080"),
		LogLevel: env("LOG_LEVEL", "info"),

		ElasticURL:      env("ES_URL", "http://localhost:9200"),
		ElasticIndex:    env("ES_INDEX", "valleyair-pages"),
		ElasticUsername: env("ES_USERNAME", ""),
		ElasticPassword: env("ES_PASSWORD", ""),

		WatsonxURL:        env("WATSONX_URL", "https://us-south.ml.cloud.ibm.com"),
		WatsonxTokenURL:   env("WATSONX_TOKEN_URL", ""),
		WatsonxAPIKey:     env("WATSONX_API_KEY", ""),
		WatsonxProjectID:  env("WATSONX_PROJECT_ID", ""),
		WatsonxGenModel:   env("WATSONX_GEN_MODEL", "ibm/granite-3-8b-instruct"),
		WatsonxEmbedModel: env("WATSONX_EMBED_MODEL", "ibm/slate-125m-english-rtrvr"),
		WatsonxVersion:    env("WATSONX_VERSION", "2024-05-31"),
		WatsonxMaxTokens:  envInt("WATSONX_MAX_NEW_TOKENS", 512),

		RerankerURL: env("RERANKER_URL", "http://localhost:8081"),

		NATSURL:     env("NATS_URL", "nats://localhost:4222"),
		NATSSubject: env("NATS_SUBJECT", "corpus.updated"),

		OpenMeteoRequestsPerSec: envFloat("OPEN_METEO_RPS", 5),
		OpenMeteoBurst:          envInt("OPEN_METEO_BURST", 10),

		CorpusSnapshotSize:    envInt("CORPUS_SNAPSHOT_SIZE", 1000),
		CorpusRefreshInterval: envDuration("CORPUS_REFRESH_INTERVAL", 15*time.Minute),

		RAGLexicalTopK:  envInt("RAG_LEXICAL_TOP_K", 10),
		RAGSemanticTopK: envInt("RAG_SEMANTIC_TOP_K", 10),
		RAGRerankTopK:   envInt("RAG_RERANK_TOP_K", 4),

		RateLimitPerSec: envFloat("RATE_LIMIT_PER_SEC", 10),
		RateLimitBurst:  envInt("RATE_LIMIT_BURST", 20),
	}
}

func env(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
