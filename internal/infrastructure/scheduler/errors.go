package scheduler

import "errors"

var (
	// ErrSchedulerNotRunning is returned when a job is submitted to a stopped scheduler
	ErrSchedulerNotRunning = errors.New("scheduler is not running")

	// ErrJobQueueFull is returned when the job queue is full
	ErrJobQueueFull = errors.New("job queue is full")

	// ErrUnknownJob is returned by executors for job names they do not handle
	ErrUnknownJob = errors.New("unknown job")
)
