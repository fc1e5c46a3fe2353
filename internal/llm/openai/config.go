package openai

import (
	"log/slog"
	"net/http"
	"time"
)

// Config for the OpenAI client. The API key is deliberately absent: it
// arrives on every CompletionRequest instead of being shared client state.
type Config struct {
	BaseURL string        // default https://api.openai.com/v1
	Timeout time.Duration // http client timeout
}

type Client struct {
	cfg        Config
	httpClient *http.Client
	log        *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 45 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        logger,
	}
}
