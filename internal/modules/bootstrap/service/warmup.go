package service

import (
	"context"
	"fmt"
	"sync"
	"tier_bot/internal/models"
	"tier_bot/pkg/logger"
)

type HoldingLister interface {
	List(ctx context.Context, portfolioID int64) ([]*models.Holding, error)
}

type ServiceNotifier interface {
	SendService(ctx context.Context, format string, args ...any)
}

// WarmupReport: что нашлось в хранилище на старте.
type WarmupReport struct {
	Portfolios int
	Holdings   int
	Armed      int // позиции с записанной последней продажей
}

// Warmuper проверяет хранилище до приёма тиков: читает все портфели
// и сообщает, сколько позиций уже под кулдауном.
type Warmuper struct {
	store HoldingLister
	n     ServiceNotifier

	// ограничитель параллелизма, чтобы не забить пул соединений
	sem chan struct{}
}

func NewWarmuper(store HoldingLister, n ServiceNotifier) *Warmuper {
	return &Warmuper{
		store: store,
		n:     n,
		sem:   make(chan struct{}, 4),
	}
}

func (w *Warmuper) Warmup(ctx context.Context, portfolioIDs []int64) (WarmupReport, error) {
	var rep WarmupReport
	if len(portfolioIDs) == 0 {
		return rep, nil
	}

	var wg sync.WaitGroup
	var firstErr error
	var mu sync.Mutex

	for _, pid := range portfolioIDs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.sem <- struct{}{}
			defer func() { <-w.sem }()

			list, err := w.store.List(ctx, pid)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = fmt.Errorf("warmup portfolio %d: %w", pid, err)
				}
				return
			}
			rep.Portfolios++
			rep.Holdings += len(list)
			for _, h := range list {
				if h.LastSellProfit != nil {
					rep.Armed++
				}
			}
		}()
	}
	wg.Wait()

	if firstErr != nil {
		w.n.SendService(ctx, "❗️ warmup failed: %v", firstErr)
		return rep, firstErr
	}
	logger.Info("[BOOT] warmup: portfolios=%d holdings=%d armed=%d", rep.Portfolios, rep.Holdings, rep.Armed)
	w.n.SendService(ctx, "🔥 warmup done: portfolios=%d holdings=%d in cooldown=%d",
		rep.Portfolios, rep.Holdings, rep.Armed)
	return rep, nil
}
