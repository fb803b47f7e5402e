package service

import (
	"context"
	"tier_bot/pkg/logger"
	"time"

	"github.com/pkg/errors"
)

type SessionStarter interface {
	StartSession(ctx context.Context, portfolioIDs []int64) (int, error)
}

// SessionScheduler раз в сутки в open_at (в своей таймзоне) открывает сессию.
type SessionScheduler struct {
	hour, minute int
	loc          *time.Location
	portfolios   []int64
	starter      SessionStarter
	now          func() time.Time
}

func NewSessionScheduler(openAt, timezone string, portfolios []int64, starter SessionStarter) (*SessionScheduler, error) {
	at, err := time.Parse("15:04", openAt)
	if err != nil {
		return nil, errors.Wrapf(err, "parse open_at %q", openAt)
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, errors.Wrapf(err, "load timezone %q", timezone)
	}
	return &SessionScheduler{
		hour:       at.Hour(),
		minute:     at.Minute(),
		loc:        loc,
		portfolios: portfolios,
		starter:    starter,
		now:        time.Now,
	}, nil
}

// NextOpen: ближайшее открытие строго после now.
func (s *SessionScheduler) NextOpen(now time.Time) time.Time {
	local := now.In(s.loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), s.hour, s.minute, 0, 0, s.loc)
	if !next.After(local) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

func (s *SessionScheduler) Run(ctx context.Context) {
	for {
		next := s.NextOpen(s.now())
		logger.Info("[SESSION] next open at %s", next.Format(time.RFC3339))

		timer := time.NewTimer(next.Sub(s.now()))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			if _, err := s.starter.StartSession(ctx, s.portfolios); err != nil {
				logger.Error("[SESSION] start error: %v", err)
			}
		}
	}
}
