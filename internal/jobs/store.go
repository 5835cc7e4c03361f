package jobs

import "context"

// Store persists job states for queue restart recovery.
type Store interface {
	LoadJobs(ctx context.Context) ([]*SaveJob, error)
	UpsertJob(ctx context.Context, job *SaveJob) error
	DeleteJob(ctx context.Context, jobID string) error
}
