package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/karthik-excrin/shootx-v2/internal/comfyui"
	"github.com/karthik-excrin/shootx-v2/internal/database"
	"github.com/karthik-excrin/shootx-v2/internal/dispatch"
	"github.com/karthik-excrin/shootx-v2/internal/models"
)

// ErrNotEnabled means the shop is unknown or has the try-on feature
// switched off. No request record is created in that case.
var ErrNotEnabled = errors.New("try-on service not available")

type Store interface {
	GetShopByDomain(ctx context.Context, domain string) (*models.Shop, error)
	CreateTryOnRequest(ctx context.Context, r *models.TryOnRequest) error
	GetTryOnRequest(ctx context.Context, id uuid.UUID) (*models.TryOnRequest, error)
	CompleteTryOnRequest(ctx context.Context, id uuid.UUID, resultImage string) (bool, error)
	FailTryOnRequest(ctx context.Context, id uuid.UUID) (bool, error)
	FailStaleProcessing(ctx context.Context, maxAge time.Duration) (int64, error)
}

type Generator interface {
	Generate(ctx context.Context, customerImage, garmentImage string) (string, error)
}

type Queue interface {
	Enqueue(task dispatch.Task) error
}

// TryOnService owns the request lifecycle: create the record, hand the
// generation to the worker pool, apply the single terminal write.
type TryOnService struct {
	store     Store
	generator Generator
	queue     Queue
	logger    *zap.Logger
}

func NewTryOnService(store Store, generator Generator, queue Queue, logger *zap.Logger) *TryOnService {
	return &TryOnService{
		store:     store,
		generator: generator,
		queue:     queue,
		logger:    logger,
	}
}

// Submit validates the tenant, creates the request record and enqueues the
// generation. It returns as soon as the record exists; generation happens on
// the worker pool.
func (s *TryOnService) Submit(ctx context.Context, sub models.TryOnSubmission) (*models.TryOnRequest, error) {
	shop, err := s.store.GetShopByDomain(ctx, sub.Shop)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrNotEnabled
		}
		return nil, err
	}
	if !shop.TryOnEnabled {
		return nil, ErrNotEnabled
	}

	request := &models.TryOnRequest{
		ID:            uuid.New(),
		ShopID:        shop.ShopID,
		ProductID:     sub.ProductID,
		ProductTitle:  sub.ProductTitle,
		ProductImage:  sub.ProductImage,
		CustomerImage: sub.CustomerImage,
		Status:        models.StatusProcessing,
	}

	if err := s.store.CreateTryOnRequest(ctx, request); err != nil {
		return nil, err
	}

	err = s.queue.Enqueue(func(taskCtx context.Context) {
		s.process(taskCtx, request.ID, sub.CustomerImage, sub.ProductImage)
	})
	if err != nil {
		// The record exists but no generation will run; close it out now
		// rather than leaving it for the reaper.
		if _, failErr := s.store.FailTryOnRequest(ctx, request.ID); failErr != nil {
			s.logger.Error("failed to fail rejected request",
				zap.String("request_id", request.ID.String()), zap.Error(failErr))
		}
		return nil, fmt.Errorf("generation queue rejected request: %w", err)
	}

	return request, nil
}

// process runs on a pool worker. Exactly one terminal write lands per
// request: completed with a result on success, failed on any error.
func (s *TryOnService) process(ctx context.Context, id uuid.UUID, customerImage, garmentImage string) {
	resultURL, err := s.generator.Generate(ctx, customerImage, garmentImage)
	if err != nil {
		switch {
		case errors.Is(err, comfyui.ErrGenerationTimeout):
			s.logger.Error("generation timed out", zap.String("request_id", id.String()))
		default:
			s.logger.Error("generation failed", zap.String("request_id", id.String()), zap.Error(err))
		}

		updated, storeErr := s.store.FailTryOnRequest(context.WithoutCancel(ctx), id)
		if storeErr != nil {
			s.logger.Error("failed to record failure",
				zap.String("request_id", id.String()), zap.Error(storeErr))
		} else if !updated {
			s.logger.Warn("request already terminal, failure not recorded",
				zap.String("request_id", id.String()))
		}
		return
	}

	updated, storeErr := s.store.CompleteTryOnRequest(context.WithoutCancel(ctx), id, resultURL)
	if storeErr != nil {
		s.logger.Error("failed to record completion",
			zap.String("request_id", id.String()), zap.Error(storeErr))
		return
	}
	if !updated {
		s.logger.Warn("request already terminal, result dropped",
			zap.String("request_id", id.String()))
		return
	}

	s.logger.Info("try-on completed",
		zap.String("request_id", id.String()), zap.String("result_image", resultURL))
}

// Status looks up a request by its id.
func (s *TryOnService) Status(ctx context.Context, requestID string) (*models.TryOnRequest, error) {
	id, err := uuid.Parse(requestID)
	if err != nil {
		return nil, database.ErrNotFound
	}

	return s.store.GetTryOnRequest(ctx, id)
}

// ReapStale fails requests stuck in processing longer than maxAge. Covers
// generations lost to a process restart, which would otherwise stay
// processing forever.
func (s *TryOnService) ReapStale(ctx context.Context, maxAge time.Duration) {
	reaped, err := s.store.FailStaleProcessing(ctx, maxAge)
	if err != nil {
		s.logger.Error("stale request reap failed", zap.Error(err))
		return
	}
	if reaped > 0 {
		s.logger.Warn("failed stale processing requests", zap.Int64("count", reaped))
	}
}

// StartReaper runs ReapStale on a fixed interval until ctx is cancelled.
func (s *TryOnService) StartReaper(ctx context.Context, interval, maxAge time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.ReapStale(ctx, maxAge)
			}
		}
	}()
}
