package config

import (
	"fmt"
	"log"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	// Azure OpenAI (embeddings, chat, question normalization)
	AzureOpenAIEndpoint        string `envconfig:"AZURE_OPENAI_ENDPOINT"`
	AzureOpenAIAPIKey          string `envconfig:"AZURE_OPENAI_API_KEY"`
	AzureOpenAIEmbedDeployment string `envconfig:"AZURE_OPENAI_EMBED_DEPLOYMENT"`
	AzureOpenAIChatDeployment  string `envconfig:"AZURE_OPENAI_CHAT_DEPLOYMENT"`
	AzureOpenAIAPIVersion      string `envconfig:"AZURE_OPENAI_API_VERSION" default:"2024-02-15-preview"`

	// Azure AI Search (external vector index)
	SearchEndpoint  string `envconfig:"SEARCH_ENDPOINT"`
	SearchAdminKey  string `envconfig:"SEARCH_ADMIN_KEY"`
	SearchIndexName string `envconfig:"SEARCH_INDEX_NAME" default:"user-docs"`

	// S3-compatible blob storage for uploaded documents
	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"codeme-user-docs"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	// External indexing pipeline webhook
	IndexWebhookURL    string `envconfig:"INDEX_WEBHOOK_URL"`
	IndexCallbackToken string `envconfig:"INDEX_CALLBACK_TOKEN"`

	// Link sweeper poll interval in seconds (0 disables the sweeper)
	LinkSweepIntervalSec int `envconfig:"LINK_SWEEP_INTERVAL_SEC" default:"300"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("CODEME", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func (c *Config) HasEmbedding() bool {
	return c.AzureOpenAIEndpoint != "" && c.AzureOpenAIAPIKey != "" && c.AzureOpenAIEmbedDeployment != ""
}

func (c *Config) HasChat() bool {
	return c.AzureOpenAIEndpoint != "" && c.AzureOpenAIAPIKey != "" && c.AzureOpenAIChatDeployment != ""
}

func (c *Config) HasSearch() bool {
	return c.SearchEndpoint != "" && c.SearchAdminKey != "" && c.SearchIndexName != ""
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasIndexWebhook() bool {
	return c.IndexWebhookURL != ""
}
