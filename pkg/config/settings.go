package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Settings is everything the CLI needs to assemble an engine.
type Settings struct {
	LLM          LLMSettings
	Search       SearchSettings
	Catalog      CatalogSettings
	Conversation ConversationSettings
	Session      SessionSettings
	Checkpoint   CheckpointSettings
	Log          LogSettings
	Telemetry    TelemetrySettings
}

// LLMSettings selects the text-generation backend. An empty Model leaves the
// backend's own default in place.
type LLMSettings struct {
	Provider    string `validate:"oneof=openai gemini"`
	Model       string
	APIKey      string  `validate:"required"`
	Temperature float64 `validate:"gte=0,lte=2"`
	MaxTokens   int     `validate:"gte=1"`
}

// SearchSettings configures web search. An empty APIKey disables it.
type SearchSettings struct {
	APIKey     string
	MaxResults int `validate:"gte=1,lte=20"`
}

// CatalogSettings configures the catalog client and the verifier.
type CatalogSettings struct {
	ClientID     string `validate:"required"`
	ClientSecret string `validate:"required"`
	Locale       string `validate:"oneof=ko ja en"`
	MinScore     int    `validate:"gte=0,lte=9"`
	Pace         time.Duration
	MaxResults   int `validate:"gte=1,lte=100"`
}

// ConversationSettings tunes the conversation graph.
type ConversationSettings struct {
	BookRecommendations   int    `validate:"gte=1,lte=10"`
	AuthorRecommendations int    `validate:"gte=1,lte=10"`
	SynopsisSentences     int    `validate:"gte=1"`
	Delimiter             string `validate:"oneof=quote corner bracket guillemet"`
	QueryRewrite          bool
}

// SessionSettings selects where chat history is kept.
type SessionSettings struct {
	Backend  string `validate:"oneof=memory redis"`
	RedisURL string `validate:"required_if=Backend redis"`
	TTL      time.Duration
}

// CheckpointSettings configures turn snapshots.
type CheckpointSettings struct {
	// Path of the SQLite snapshot database. Empty keeps snapshots in memory.
	Path string
}

// LogSettings configures the CLI logger.
type LogSettings struct {
	Level string `validate:"oneof=debug info warn error"`
	File  string
}

// TelemetrySettings configures trace export.
type TelemetrySettings struct {
	OTLPEndpoint string
}

// Defaults returns the settings used for anything not configured.
func Defaults() Settings {
	return Settings{
		LLM: LLMSettings{
			Provider:    "openai",
			Temperature: 0.7,
			MaxTokens:   1024,
		},
		Search:  SearchSettings{MaxResults: 5},
		Catalog: CatalogSettings{Locale: "ko", MinScore: 6, Pace: 150 * time.Millisecond, MaxResults: 10},
		Conversation: ConversationSettings{
			BookRecommendations:   1,
			AuthorRecommendations: 2,
			SynopsisSentences:     2,
			Delimiter:             "quote",
			QueryRewrite:          true,
		},
		Session: SessionSettings{Backend: "memory", TTL: time.Hour},
		Log:     LogSettings{Level: "info"},
	}
}

// Load resolves Settings and validates them.
func Load(path string) (Settings, error) {
	s, err := Resolve(path)
	if err != nil {
		return Settings{}, err
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Resolve builds Settings from defaults, the optional file at path, a .env
// file in the working directory, and the environment, in increasing
// precedence. Commands that need only part of the settings validate
// nothing else.
func Resolve(path string) (Settings, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Settings{}, fmt.Errorf("load .env: %w", err)
	}

	doc := New(nil)
	if path != "" {
		var err error
		if doc, err = FromFile(path); err != nil {
			return Settings{}, err
		}
	}

	s := FromConfig(doc)
	applyEnv(&s, os.LookupEnv)
	return s, nil
}

// FromConfig overlays doc onto Defaults.
func FromConfig(doc Config) Settings {
	s := Defaults()

	llm := doc.Section("llm")
	s.LLM.Provider = llm.String("provider", s.LLM.Provider)
	s.LLM.Model = llm.String("model", s.LLM.Model)
	s.LLM.APIKey = llm.String("api_key", s.LLM.APIKey)
	s.LLM.Temperature = llm.Float("temperature", s.LLM.Temperature)
	s.LLM.MaxTokens = llm.Int("max_tokens", s.LLM.MaxTokens)

	s.Search.APIKey = doc.String("search.api_key", s.Search.APIKey)
	s.Search.MaxResults = doc.Int("search.max_results", s.Search.MaxResults)

	cat := doc.Section("catalog")
	s.Catalog.ClientID = cat.String("client_id", s.Catalog.ClientID)
	s.Catalog.ClientSecret = cat.String("client_secret", s.Catalog.ClientSecret)
	s.Catalog.Locale = cat.String("locale", s.Catalog.Locale)
	s.Catalog.MinScore = cat.Int("min_score", s.Catalog.MinScore)
	s.Catalog.Pace = cat.Duration("pace", s.Catalog.Pace)
	s.Catalog.MaxResults = cat.Int("max_results", s.Catalog.MaxResults)

	conv := doc.Section("conversation")
	s.Conversation.BookRecommendations = conv.Int("book_recommendations", s.Conversation.BookRecommendations)
	s.Conversation.AuthorRecommendations = conv.Int("author_recommendations", s.Conversation.AuthorRecommendations)
	s.Conversation.SynopsisSentences = conv.Int("synopsis_sentences", s.Conversation.SynopsisSentences)
	s.Conversation.Delimiter = conv.String("delimiter", s.Conversation.Delimiter)
	s.Conversation.QueryRewrite = conv.Bool("query_rewrite", s.Conversation.QueryRewrite)

	s.Session.Backend = doc.String("session.backend", s.Session.Backend)
	s.Session.RedisURL = doc.String("session.redis_url", s.Session.RedisURL)
	s.Session.TTL = doc.Duration("session.ttl", s.Session.TTL)

	s.Checkpoint.Path = doc.String("checkpoint.path", s.Checkpoint.Path)

	s.Log.Level = doc.String("log.level", s.Log.Level)
	s.Log.File = doc.String("log.file", s.Log.File)

	s.Telemetry.OTLPEndpoint = doc.String("telemetry.otlp_endpoint", s.Telemetry.OTLPEndpoint)
	return s
}

// applyEnv overrides s from the environment. The provider's key variable is
// picked after BOOKBOT_LLM_PROVIDER has been applied.
func applyEnv(s *Settings, lookup func(string) (string, bool)) {
	str := func(dst *string, names ...string) {
		for _, name := range names {
			if v, ok := lookup(name); ok && v != "" {
				*dst = v
				return
			}
		}
	}
	num := func(dst *int, name string) {
		if v, ok := lookup(name); ok {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	dur := func(dst *time.Duration, name string) {
		if v, ok := lookup(name); ok {
			if d, err := time.ParseDuration(v); err == nil {
				*dst = d
			}
		}
	}

	str(&s.LLM.Provider, "BOOKBOT_LLM_PROVIDER")
	str(&s.LLM.Model, "BOOKBOT_LLM_MODEL")
	switch strings.ToLower(s.LLM.Provider) {
	case "gemini":
		str(&s.LLM.APIKey, "GEMINI_API_KEY", "GOOGLE_API_KEY")
	default:
		str(&s.LLM.APIKey, "OPENAI_API_KEY")
	}

	str(&s.Search.APIKey, "TAVILY_API_KEY")
	str(&s.Catalog.ClientID, "NAVER_CLIENT_ID")
	str(&s.Catalog.ClientSecret, "NAVER_CLIENT_SECRET")
	str(&s.Catalog.Locale, "BOOKBOT_CATALOG_LOCALE")
	num(&s.Catalog.MinScore, "BOOKBOT_CATALOG_MIN_SCORE")
	dur(&s.Catalog.Pace, "BOOKBOT_CATALOG_PACE")

	num(&s.Conversation.BookRecommendations, "BOOKBOT_BOOK_RECOMMENDATIONS")
	num(&s.Conversation.AuthorRecommendations, "BOOKBOT_AUTHOR_RECOMMENDATIONS")
	if v, ok := lookup("BOOKBOT_QUERY_REWRITE"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			s.Conversation.QueryRewrite = b
		}
	}

	str(&s.Session.Backend, "BOOKBOT_SESSION_BACKEND")
	str(&s.Session.RedisURL, "REDIS_URL")
	str(&s.Checkpoint.Path, "BOOKBOT_CHECKPOINT_PATH")
	str(&s.Log.Level, "BOOKBOT_LOG_LEVEL")
	str(&s.Log.File, "BOOKBOT_LOG_FILE")
	str(&s.Telemetry.OTLPEndpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate reports every invalid field at once.
func (s Settings) Validate() error {
	if err := validate.Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("validate settings: %w", err)
		}
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.Tag()))
		}
		return fmt.Errorf("invalid settings: %s", strings.Join(msgs, "; "))
	}
	return nil
}
