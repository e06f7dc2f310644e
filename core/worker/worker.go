package worker

import (
	"context"

	"meetsync/core/config"
	"meetsync/core/constants"
	"meetsync/core/logger"

	"github.com/hibiken/asynq"
)

// ExpirySweeper flips open proposals whose expiry has passed
type ExpirySweeper interface {
	ExpireDue(ctx context.Context) (int64, error)
}

// Worker runs the background task server: the periodic proposal expiry
// sweep. Reminder dispatch stays synchronous on the request path.
type Worker struct {
	server    *asynq.Server
	scheduler *asynq.Scheduler
	sweeper   ExpirySweeper
}

func NewWorker(cfg config.RedisConfig, sweeper ExpirySweeper) *Worker {
	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}

	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 2,
		Queues:      map[string]int{"default": 1},
	})

	scheduler := asynq.NewScheduler(redisOpt, nil)

	return &Worker{
		server:    server,
		scheduler: scheduler,
		sweeper:   sweeper,
	}
}

// Start registers handlers and the periodic schedule, then runs both loops.
func (w *Worker) Start() error {
	mux := asynq.NewServeMux()
	mux.HandleFunc(constants.TaskProposalExpire, w.handleExpireSweep)

	if _, err := w.scheduler.Register("@every 1m", asynq.NewTask(constants.TaskProposalExpire, nil)); err != nil {
		return err
	}

	go func() {
		if err := w.scheduler.Run(); err != nil {
			logger.Error("Worker:Scheduler:Run:Error:", err)
		}
	}()

	go func() {
		if err := w.server.Run(mux); err != nil {
			logger.Error("Worker:Server:Run:Error:", err)
		}
	}()

	logger.Info("Background worker started")
	return nil
}

func (w *Worker) Shutdown() {
	w.scheduler.Shutdown()
	w.server.Shutdown()
}

func (w *Worker) handleExpireSweep(ctx context.Context, _ *asynq.Task) error {
	count, err := w.sweeper.ExpireDue(ctx)
	if err != nil {
		logger.Error("Worker:ExpireSweep:Error:", err)
		return err
	}
	if count > 0 {
		logger.Info("Worker:ExpireSweep:Expired", "count", count)
	}
	return nil
}
