package chat

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"lichtblick/internal/capability"
	"lichtblick/internal/chunker"
	"lichtblick/internal/session"
)

// maxParallelChunks bounds concurrent extraction calls per upload.
const maxParallelChunks = 4

// Vocabulary extracts the word list of a longer reading text. The text is
// split into sentence-aligned chunks which are extracted concurrently; the
// lists are merged in text order. History is left untouched.
func (s *Service) Vocabulary(ctx context.Context, sess *session.Session, text string) ([]capability.Pair, error) {
	if err := checkCredential(sess.Credential()); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}
	chunks := chunker.ChunkText(text, chunker.Options{MaxWords: s.chunkWords})

	def, ok := s.catalog.Lookup(capability.VocabularyExtraction)
	if !ok {
		return nil, fmt.Errorf("capability %s not in catalog", capability.VocabularyExtraction)
	}
	client, err := s.factory(sess.Credential())
	if err != nil {
		return nil, fmt.Errorf("build llm client: %w", err)
	}
	extractor, err := capability.New(def, client)
	if err != nil {
		return nil, err
	}

	lists := make([][]capability.Pair, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelChunks)
	for i, c := range chunks {
		g.Go(func() error {
			out, err := extractor.Invoke(gctx, c.Text)
			if err != nil {
				return fmt.Errorf("chunk %d: %w", c.Index, err)
			}
			lists[i] = capability.ParseVocabulary(out)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	pairs := capability.MergeVocabulary(lists...)
	s.log.Info("vocabulary extracted", "session_id", sess.ID, "chunks", len(chunks), "pairs", len(pairs))
	return pairs, nil
}
