// Package service is the receipt client facade. Every operation is routed
// either to the local store (demo mode) or to the backend, and backend
// payloads are normalized before they reach callers.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/receiptos/receiptos/internal/backend"
	"github.com/receiptos/receiptos/internal/normalize"
	"github.com/receiptos/receiptos/internal/receipt"
	"github.com/receiptos/receiptos/internal/revocation"
)

// ErrEmptyText is returned when Create is called without any text
var ErrEmptyText = errors.New("raw text is empty")

// DefaultSourceType is sent when the caller does not name one
const DefaultSourceType = "text"

// Backend is the subset of the backend client the facade uses
type Backend interface {
	ListReceipts(ctx context.Context) ([]normalize.Payload, error)
	GetReceipt(ctx context.Context, id string) (*normalize.Payload, error)
	Ingest(ctx context.Context, req backend.IngestRequest) (*backend.IngestResponse, error)
	DeleteReceipt(ctx context.Context, id string) error
	ListRevocationRequests(ctx context.Context, status revocation.Status) ([]revocation.Request, error)
}

// IDGenerator generates unique IDs for receipts
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type uuidGenerator struct{}

func (g *uuidGenerator) Generate() string {
	return uuid.NewString()
}

type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Result is the outcome of a read. Value is always safe to render; Err is
// set when the read degraded, so "failed" can be told apart from "empty".
type Result[T any] struct {
	Value T
	Err   error
}

// Degraded reports whether the read failed and Value is a fallback
func (r Result[T]) Degraded() bool {
	return r.Err != nil
}

// LocalModeEnabled reports whether a mode flag selects local demo mode.
// Only the exact string "true" does.
func LocalModeEnabled(flag string) bool {
	return flag == "true"
}

// Service handles receipt operations for either mode
type Service struct {
	store       receipt.Store
	backend     Backend
	local       bool
	idGenerator IDGenerator
	timeSource  TimeSource
	normalizer  normalize.Normalizer
}

// NewService creates a new Service with uuid ids and the wall clock
func NewService(store receipt.Store, be Backend, local bool) *Service {
	return NewServiceWithDeps(store, be, local, &uuidGenerator{}, &defaultTimeSource{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(store receipt.Store, be Backend, local bool, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		store:       store,
		backend:     be,
		local:       local,
		idGenerator: idGen,
		timeSource:  timeSrc,
		normalizer: normalize.Normalizer{
			Now:   timeSrc.Now,
			NewID: idGen.Generate,
		},
	}
}

// LocalMode reports whether the service runs against the local store
func (s *Service) LocalMode() bool {
	return s.local
}

func (s *Service) mode() string {
	if s.local {
		return "local"
	}
	return "backend"
}

// List returns every receipt. Failures degrade to an empty list.
func (s *Service) List(ctx context.Context) Result[[]receipt.Receipt] {
	var (
		receipts []receipt.Receipt
		err      error
	)
	if s.local {
		receipts, err = s.store.List()
	} else {
		var payloads []normalize.Payload
		payloads, err = s.backend.ListReceipts(ctx)
		if err == nil {
			receipts = s.normalizer.NormalizeAll(payloads)
		}
	}
	if err != nil {
		slog.Warn("Failed to list receipts", "mode", s.mode(), "error", err)
		return Result[[]receipt.Receipt]{Value: []receipt.Receipt{}, Err: err}
	}
	if receipts == nil {
		receipts = []receipt.Receipt{}
	}
	return Result[[]receipt.Receipt]{Value: receipts}
}

// GetByID returns one receipt, or a nil Value when it does not exist.
// In local mode a receipt missing from the store is looked up remotely
// when a backend is configured.
func (s *Service) GetByID(ctx context.Context, id string) Result[*receipt.Receipt] {
	if !s.local {
		return s.getRemote(ctx, id)
	}

	r, err := s.store.Get(id)
	if err == nil {
		return Result[*receipt.Receipt]{Value: &r}
	}
	if !errors.Is(err, receipt.ErrNotFound) {
		slog.Warn("Failed to get receipt", "mode", s.mode(), "id", id, "error", err)
		return Result[*receipt.Receipt]{Err: err}
	}
	if s.backend == nil {
		return Result[*receipt.Receipt]{}
	}
	return s.getRemote(ctx, id)
}

func (s *Service) getRemote(ctx context.Context, id string) Result[*receipt.Receipt] {
	payload, err := s.backend.GetReceipt(ctx, id)
	if errors.Is(err, backend.ErrNotFound) {
		return Result[*receipt.Receipt]{}
	}
	if err != nil {
		slog.Warn("Failed to get receipt", "mode", "backend", "id", id, "error", err)
		return Result[*receipt.Receipt]{Err: err}
	}
	r := s.normalizer.Normalize(*payload)
	return Result[*receipt.Receipt]{Value: &r}
}

// Create turns raw text into a receipt. Failures are returned to the caller.
func (s *Service) Create(ctx context.Context, rawText, sourceType string) (*receipt.Receipt, error) {
	if strings.TrimSpace(rawText) == "" {
		return nil, ErrEmptyText
	}
	if sourceType == "" {
		sourceType = DefaultSourceType
	}

	if s.local {
		r := receipt.FromText(s.idGenerator.Generate(), rawText, s.timeSource.Now())
		if err := s.store.Save(r); err != nil {
			return nil, fmt.Errorf("saving receipt: %w", err)
		}
		slog.Info("Created receipt", "mode", s.mode(), "id", r.ID, "source_type", sourceType)
		return &r, nil
	}

	resp, err := s.backend.Ingest(ctx, backend.IngestRequest{RawText: rawText, SourceType: sourceType})
	if err != nil {
		return nil, fmt.Errorf("creating receipt: %w", err)
	}
	r := s.normalizer.Normalize(resp.Receipt)
	slog.Info("Created receipt", "mode", s.mode(), "id", r.ID, "source_type", sourceType)
	return &r, nil
}

// Delete removes a receipt. A receipt the backend no longer has counts as deleted.
func (s *Service) Delete(ctx context.Context, id string) error {
	if s.local {
		if err := s.store.Delete(id); err != nil {
			return fmt.Errorf("deleting receipt: %w", err)
		}
		return nil
	}

	err := s.backend.DeleteReceipt(ctx, id)
	if errors.Is(err, backend.ErrNotFound) {
		slog.Info("Receipt already deleted", "id", id)
		return nil
	}
	if err != nil {
		return fmt.Errorf("deleting receipt: %w", err)
	}
	return nil
}

// LoadSamples replaces the local collection with the bundled samples.
// Outside local mode it changes nothing and returns an empty list.
func (s *Service) LoadSamples() ([]receipt.Receipt, error) {
	if !s.local {
		return []receipt.Receipt{}, nil
	}
	samples, err := receipt.Samples()
	if err != nil {
		return nil, fmt.Errorf("loading samples: %w", err)
	}
	if err := s.store.Replace(samples); err != nil {
		return nil, fmt.Errorf("storing samples: %w", err)
	}
	slog.Info("Loaded sample receipts", "count", len(samples))
	return samples, nil
}

// Requests returns the backend's revocation requests. Local mode has none,
// and failures degrade to an empty list.
func (s *Service) Requests(ctx context.Context) Result[[]revocation.Request] {
	if s.local || s.backend == nil {
		return Result[[]revocation.Request]{Value: []revocation.Request{}}
	}
	requests, err := s.backend.ListRevocationRequests(ctx, "")
	if err != nil {
		slog.Warn("Failed to list revocation requests", "error", err)
		return Result[[]revocation.Request]{Value: []revocation.Request{}, Err: err}
	}
	return Result[[]revocation.Request]{Value: requests}
}
