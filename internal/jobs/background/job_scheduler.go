package background

import (
	"context"
	"log"
	"time"

	"opsbooks/internal/jobs"

	"github.com/go-co-op/gocron/v2"
)

// JobScheduler manages background jobs for the provisioning service
type JobScheduler struct {
	scheduler gocron.Scheduler
	retrier   *jobs.ProvisionRetrier
}

// NewJobScheduler creates a new job scheduler
func NewJobScheduler(retrier *jobs.ProvisionRetrier, retryInterval time.Duration) (*JobScheduler, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	js := &JobScheduler{
		scheduler: scheduler,
		retrier:   retrier,
	}

	if retryInterval <= 0 {
		retryInterval = time.Minute
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(retryInterval),
		gocron.NewTask(js.drainPending, context.Background()),
		gocron.WithName("bootstrap-retry-drain"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return nil, err
	}

	return js, nil
}

func (js *JobScheduler) drainPending(ctx context.Context) {
	js.retrier.Drain(ctx)
}

// Start starts the job scheduler
func (js *JobScheduler) Start() {
	log.Printf("Starting background job scheduler")
	js.scheduler.Start()
}

// Stop stops the job scheduler
func (js *JobScheduler) Stop() error {
	log.Printf("Stopping background job scheduler")
	return js.scheduler.Shutdown()
}
