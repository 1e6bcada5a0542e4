package store

import (
	"context"

	"github.com/The-Clarity-Projekt/chat-client/internal/model"
)

// Sink persists a document at a deterministic path
type Sink interface {
	Write(ctx context.Context, namespace string, doc *model.Document, path string) error
}

// MultiSink writes to each sink in order and stops at the first failure.
// The index sink goes first so a document is never published to object
// storage without being marked processed.
type MultiSink []Sink

// Write implements Sink
func (m MultiSink) Write(ctx context.Context, namespace string, doc *model.Document, path string) error {
	for _, s := range m {
		if err := s.Write(ctx, namespace, doc, path); err != nil {
			return err
		}
	}
	return nil
}
