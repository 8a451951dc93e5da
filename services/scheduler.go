package services

import (
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
	"gorm.io/gorm/clause"

	"github.com/Qwizi/cs2-battle-bot/models"
)

// StartExpiryScheduler cancels matches that never filled up. The engine has
// no veto timeout on purpose; this is the external job that sweeps stalled
// CREATED matches after maxAge.
func (s *MatchService) StartExpiryScheduler(maxAge time.Duration) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	_, err = sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			cutoff := time.Now().Add(-maxAge)
			var stale []models.Match
			err := s.DB.
				Where("status = ? AND created_at < ?", models.MatchStatusCreated, cutoff).
				Find(&stale).Error
			if err != nil {
				s.Logger.Error("expiry sweep failed", zap.Error(err))
				return
			}

			for _, match := range stale {
				match.Status = models.MatchStatusCancelled
				if err := s.DB.Omit(clause.Associations).Save(&match).Error; err != nil {
					s.Logger.Error("failed to cancel stale match",
						zap.String("match_id", match.ID),
						zap.Error(err),
					)
					continue
				}
				s.Logger.Info("cancelled stale match",
					zap.String("match_id", match.ID),
					zap.Time("created_at", match.CreatedAt),
				)
			}
		}),
	)
	if err != nil {
		return nil, err
	}

	sched.Start()
	return sched, nil
}
