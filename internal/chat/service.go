// Package chat runs one learner turn: it applies the credential and empty
// input checks, drives the coordinator, converts failures into the fixed
// apology, keeps the session history and announces the finished turn.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"lichtblick/internal/cache"
	"lichtblick/internal/capability"
	"lichtblick/internal/coordinator"
	"lichtblick/internal/llm"
	"lichtblick/internal/prompts"
	"lichtblick/internal/queue"
	"lichtblick/internal/session"
)

const (
	DeciderModel = "model"
	DeciderRules = "rules"
)

// Config wires a Service. Cache and Queue default to no-op implementations.
type Config struct {
	Factory    llm.Factory
	Catalog    prompts.Catalog
	Decider    string
	Model      string
	Cache      cache.Cache
	CacheTTL   time.Duration
	Queue      queue.Queue
	ChunkWords int
	Log        *slog.Logger
}

type Service struct {
	factory    llm.Factory
	catalog    prompts.Catalog
	decider    string
	model      string
	cache      cache.Cache
	cacheTTL   time.Duration
	queue      queue.Queue
	chunkWords int
	log        *slog.Logger
}

func NewService(cfg Config) (*Service, error) {
	if cfg.Factory == nil {
		return nil, errors.New("chat: llm factory is required")
	}
	switch cfg.Decider {
	case "":
		cfg.Decider = DeciderModel
	case DeciderModel, DeciderRules:
	default:
		return nil, fmt.Errorf("chat: unknown decider %q", cfg.Decider)
	}
	if cfg.Cache == nil {
		cfg.Cache = cache.NewNoOpCache()
	}
	if cfg.Queue == nil {
		cfg.Queue = queue.NewNoOp()
	}
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}
	return &Service{
		factory:    cfg.Factory,
		catalog:    cfg.Catalog,
		decider:    cfg.Decider,
		model:      cfg.Model,
		cache:      cfg.Cache,
		cacheTTL:   cfg.CacheTTL,
		queue:      cfg.Queue,
		chunkWords: cfg.ChunkWords,
		log:        cfg.Log,
	}, nil
}

// Stream accepts a turn. Credential and empty-input errors are returned
// before anything is recorded or any completion call is attempted; every
// later failure is folded into the turn result as the apology message.
func (s *Service) Stream(ctx context.Context, sess *session.Session, text string) (*Turn, error) {
	if err := checkCredential(sess.Credential()); err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyInput
	}

	sess.Append(session.RoleUser, text)
	t := newTurn()
	go s.run(ctx, sess, text, t)
	return t, nil
}

// Respond runs a turn to completion.
func (s *Service) Respond(ctx context.Context, sess *session.Session, text string) (Result, error) {
	t, err := s.Stream(ctx, sess, text)
	if err != nil {
		return Result{}, err
	}
	return t.Wait(), nil
}

func (s *Service) run(ctx context.Context, sess *session.Session, text string, t *Turn) {
	defer close(t.out)
	log := s.log.With("session_id", sess.ID, "turn_id", t.ID)
	key := cache.GenerateCacheKey(s.model, text)

	res := s.replay(ctx, t, key)
	if res.Outcome == "" {
		res = s.answer(ctx, sess.Credential(), t, text)
	}

	if ctx.Err() != nil {
		log.Info("turn abandoned", "err", ctx.Err())
		t.result = Result{Outcome: OutcomeAbandoned, Err: ctx.Err()}
		return
	}

	switch res.Outcome {
	case OutcomeFailed:
		log.Error("turn failed", "err", res.Err)
	case OutcomeAnswered:
		s.remember(ctx, log, key, res)
	}
	sess.Append(session.RoleAssistant, res.Reply)
	t.result = res
	log.Info("turn finished", "outcome", res.Outcome, "capabilities", res.Capabilities())

	s.publish(ctx, log, sess, t, text, res)
}

// replay serves a cached reply; a zero Result means a miss.
func (s *Service) replay(ctx context.Context, t *Turn, key string) Result {
	hit, err := s.cache.GetReply(ctx, key)
	if err != nil {
		s.log.Warn("reply cache lookup failed", "err", err)
		return Result{}
	}
	if hit == nil {
		return Result{}
	}
	t.emit(ctx, hit.Text)
	invs := make([]coordinator.InvocationResult, 0, len(hit.Invocations))
	for _, inv := range hit.Invocations {
		invs = append(invs, coordinator.InvocationResult{Name: inv.Name, Input: inv.Input, Output: inv.Output})
	}
	return Result{Reply: hit.Text, Invocations: invs, Outcome: OutcomeCached}
}

func (s *Service) answer(ctx context.Context, apiKey string, t *Turn, text string) Result {
	coord, err := s.coordinator(apiKey)
	if err != nil {
		return failed(err)
	}
	st, err := coord.Stream(ctx, text)
	if err != nil {
		return failed(err)
	}
	for f := range st.Fragments() {
		// keep draining after the consumer left so the producer can finish
		t.emit(ctx, f)
	}
	if err := st.Err(); err != nil {
		return failed(err)
	}
	r := st.Result()
	return Result{Reply: r.Reply, Invocations: r.Invocations, Outcome: OutcomeAnswered}
}

func failed(err error) Result {
	return Result{Reply: ApologyMessage, Outcome: OutcomeFailed, Err: err}
}

// coordinator builds the per-credential pipeline. Clients are bound to the
// learner's key, so nothing is shared between sessions.
func (s *Service) coordinator(apiKey string) (*coordinator.Coordinator, error) {
	client, err := s.factory(apiKey)
	if err != nil {
		return nil, fmt.Errorf("build llm client: %w", err)
	}
	caps, err := capability.FromCatalog(s.catalog, client)
	if err != nil {
		return nil, err
	}
	var decider coordinator.Decider = coordinator.RuleDecider{}
	if s.decider == DeciderModel {
		decider = coordinator.NewModelDecider(client, s.catalog.Coordinator.Instructions, s.log)
	}
	return coordinator.New(caps, decider, client, s.catalog.Coordinator.Compose, s.log)
}

func (s *Service) remember(ctx context.Context, log *slog.Logger, key string, res Result) {
	reply := &cache.Reply{Text: res.Reply}
	for _, inv := range res.Invocations {
		reply.Invocations = append(reply.Invocations, cache.Invocation{Name: inv.Name, Input: inv.Input, Output: inv.Output})
	}
	if err := s.cache.SetReply(ctx, key, reply, s.cacheTTL); err != nil {
		log.Warn("failed to cache reply", "err", err)
	}
}

func (s *Service) publish(ctx context.Context, log *slog.Logger, sess *session.Session, t *Turn, text string, res Result) {
	task, err := queue.NewTranscriptTask(queue.TurnEvent{
		TurnID:       t.ID,
		SessionID:    sess.ID,
		UserMessage:  text,
		Reply:        res.Reply,
		Capabilities: res.Capabilities(),
		Outcome:      string(res.Outcome),
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		log.Error("failed to build turn event", "err", err)
		return
	}
	if err := queue.EnqueueWithRetry(ctx, s.queue, task, 3, 100*time.Millisecond); err != nil {
		log.Warn("failed to publish turn event", "err", err)
	}
}
