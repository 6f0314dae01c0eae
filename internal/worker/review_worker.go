package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/thptprep/engprep-backend/internal/config"
	"github.com/thptprep/engprep-backend/internal/model"
	"github.com/thptprep/engprep-backend/internal/repository"
)

const ReviewPollTimeout = 1 * time.Second

// ReviewWorker consumes batches of missed questions after each
// submission and files them into the per-user review pool.
type ReviewWorker struct {
	reviews *repository.ReviewRepository
	rdb     *redis.Client
	log     zerolog.Logger
}

// NewReviewWorker creates a new ReviewWorker.
func NewReviewWorker(reviews *repository.ReviewRepository, rdb *redis.Client, log zerolog.Logger) *ReviewWorker {
	return &ReviewWorker{
		reviews: reviews,
		rdb:     rdb,
		log:     log.With().Str("component", "review_worker").Logger(),
	}
}

type wrongAnswerBatch struct {
	UserID    string                 `json:"user_id"`
	ExamID    int                    `json:"exam_id"`
	Questions []model.StoredQuestion `json:"questions"`
}

// Start begins the infinite worker loop. Call in a goroutine.
func (w *ReviewWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopping...")
			w.drain(context.Background())
			w.log.Info().Msg("Worker stopped")
			return
		default:
			w.processNext(ctx)
		}
	}
}

func (w *ReviewWorker) processNext(ctx context.Context) {
	result, err := w.rdb.BLPop(ctx, ReviewPollTimeout, config.WorkerKey.PersistWrongAnswersQueue).Result()
	if err != nil {
		if err != redis.Nil && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("BLPop error")
		}
		return
	}
	if len(result) < 2 {
		return
	}

	var batch wrongAnswerBatch
	if err := json.Unmarshal([]byte(result[1]), &batch); err != nil {
		w.log.Error().Err(err).Msg("Unmarshal error")
		return
	}

	if err := w.reviews.AddWrongAnswers(ctx, batch.UserID, batch.ExamID, batch.Questions); err != nil {
		w.log.Error().Err(err).
			Str("user_id", batch.UserID).
			Int("exam_id", batch.ExamID).
			Msg("Persist error, retrying in 5s")
		w.rdb.RPush(ctx, config.WorkerKey.PersistWrongAnswersQueue, result[1])
		time.Sleep(5 * time.Second)
	}
}

// drain processes all remaining batches before shutdown.
func (w *ReviewWorker) drain(ctx context.Context) {
	drained := 0
	for {
		result, err := w.rdb.LPop(ctx, config.WorkerKey.PersistWrongAnswersQueue).Result()
		if err != nil {
			break
		}

		var batch wrongAnswerBatch
		if err := json.Unmarshal([]byte(result), &batch); err != nil {
			w.log.Error().Err(err).Msg("Drain unmarshal error")
			continue
		}

		if err := w.reviews.AddWrongAnswers(ctx, batch.UserID, batch.ExamID, batch.Questions); err != nil {
			w.log.Error().Err(err).Msg("Drain persist error")
			w.rdb.RPush(ctx, config.WorkerKey.PersistWrongAnswersQueue, result)
			break
		}
		drained++
	}

	if drained > 0 {
		w.log.Info().Int("count", drained).Msg("Drained remaining batches")
	}
}
