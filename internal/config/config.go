// Package config loads per-binary settings from the environment.
package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"

	"github.com/Lllllllleong/documentmetadata/internal/docmeta"
)

// Pipeline holds the settings shared by every binary that runs extractions.
type Pipeline struct {
	MaxUploadBytes int64  `envconfig:"MAX_UPLOAD_BYTES" default:"16777216" validate:"gt=0"`
	HashChunkSize  int    `envconfig:"HASH_CHUNK_SIZE" default:"65536" validate:"gte=512"`
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
}

// DocmetaConfig converts the settings into a pipeline configuration.
func (p Pipeline) DocmetaConfig() docmeta.Config {
	return docmeta.Config{
		MaxUploadBytes: p.MaxUploadBytes,
		HashChunkSize:  p.HashChunkSize,
	}
}

// Extractor configures the storage-triggered extraction function.
type Extractor struct {
	Pipeline
	ProjectID           string `envconfig:"PROJECT_ID" validate:"required"`
	FirestoreCollection string `envconfig:"FIRESTORE_COLLECTION" default:"document_metadata" validate:"required"`
	// ReportBucket receives <sha256>.json reports. Empty disables reports.
	ReportBucket string `envconfig:"REPORT_BUCKET"`
	// WorkflowID is triggered after each completed extraction. Empty disables it.
	WorkflowID       string `envconfig:"WORKFLOW_ID"`
	WorkflowLocation string `envconfig:"WORKFLOW_LOCATION" default:"us-central1" validate:"required_with=WorkflowID"`
}

// Upload configures the HTTP upload function.
type Upload struct {
	Pipeline
}

// CLI configures the command line tool.
type CLI struct {
	Pipeline
	Parallel int `envconfig:"DOCMETA_PARALLEL" default:"4" validate:"gte=1,lte=64"`
}

var validate = validator.New()

func load(cfg any) error {
	if err := envconfig.Process("", cfg); err != nil {
		return fmt.Errorf("failed to read environment: %w", err)
	}
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func LoadExtractor() (Extractor, error) {
	var cfg Extractor
	err := load(&cfg)
	return cfg, err
}

func LoadUpload() (Upload, error) {
	var cfg Upload
	err := load(&cfg)
	return cfg, err
}

func LoadCLI() (CLI, error) {
	var cfg CLI
	err := load(&cfg)
	return cfg, err
}
