// Package knowledge loads the storefront knowledge base from a YAML file.
package knowledge

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/AtRiskMedia/intentstack/internal/domain/knowledge"
	"github.com/AtRiskMedia/intentstack/internal/infrastructure/observability/logging"
	"gopkg.in/yaml.v3"
)

// Document is the on-disk layout.
type Document struct {
	Site         map[string]any   `yaml:"site"`
	Capabilities []string         `yaml:"capabilities"`
	Facts        []knowledge.Fact `yaml:"facts"`
}

// YAMLBase serves facts from a YAML document held in memory.
type YAMLBase struct {
	mu     sync.RWMutex
	path   string
	doc    Document
	logger *logging.ChanneledLogger
}

// Parse decodes a knowledge document.
func Parse(raw []byte) (Document, error) {
	var doc Document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return Document{}, fmt.Errorf("failed to parse knowledge base: %w", err)
	}
	return doc, nil
}

// NewYAMLBase reads path. A missing file yields an empty base.
func NewYAMLBase(path string, logger *logging.ChanneledLogger) (*YAMLBase, error) {
	b := &YAMLBase{path: path, logger: logger}
	if err := b.Reload(); err != nil {
		return nil, err
	}
	return b, nil
}

// NewStaticBase wraps an already decoded document.
func NewStaticBase(doc Document) *YAMLBase {
	return &YAMLBase{doc: doc, logger: logging.NewNopLogger()}
}

// Reload re-reads the file from disk.
func (b *YAMLBase) Reload() error {
	if b.path == "" {
		return nil
	}
	raw, err := os.ReadFile(b.path)
	if os.IsNotExist(err) {
		b.logger.Context().Warn("Knowledge base file not found, continuing without facts", "path", b.path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read knowledge base: %w", err)
	}
	doc, err := Parse(raw)
	if err != nil {
		return err
	}

	b.mu.Lock()
	b.doc = doc
	b.mu.Unlock()
	b.logger.Context().Info("Knowledge base loaded", "path", b.path, "facts", len(doc.Facts))
	return nil
}

// Relevant implements knowledge.Base.
func (b *YAMLBase) Relevant(_ context.Context, query string, limit int) ([]knowledge.Fact, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return knowledge.Rank(b.doc.Facts, query, limit), nil
}

// Capabilities lists what the assistant may do for visitors.
func (b *YAMLBase) Capabilities() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]string(nil), b.doc.Capabilities...)
}

// Site returns the site metadata block.
func (b *YAMLBase) Site() map[string]any {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[string]any, len(b.doc.Site))
	for k, v := range b.doc.Site {
		out[k] = v
	}
	return out
}
