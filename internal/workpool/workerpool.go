package workpool

import (
	"context"
	"fmt"
	"time"

	"github.com/AbdulWasayUl/country-explorer/internal/channels"
	"github.com/AbdulWasayUl/country-explorer/internal/logger"
	"github.com/AbdulWasayUl/country-explorer/models"
)

const defaultJobTimeout = 30 * time.Second

type WorkerPool struct {
	WorkerCount int
	Channels    *channels.Channels
	JobTimeout  time.Duration
}

func New(channels *channels.Channels, workerCount int) *WorkerPool {
	return &WorkerPool{
		WorkerCount: workerCount,
		Channels:    channels,
		JobTimeout:  defaultJobTimeout,
	}
}

func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.WorkerCount; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	logger.Debug("Worker %d started.", id)
	for req := range wp.Channels.DataRequest {
		logger.Debug("[%s] Worker %d processing request %s (ticket %d)", req.Service, id, req.ID, req.Ticket)
		if err := Execute(ctx, req, wp.JobTimeout); err != nil {
			logger.Error("[%s] Worker %d failed request %s: %v", req.Service, id, req.ID, err)
		}
		wp.Channels.WG.Done()
	}

	logger.Debug("Worker %d stopped.", id)
}

func (wp *WorkerPool) Stop() {
	wp.Channels.Close()
}

// Execute runs one request's fetch, parse and store steps under timeout.
// A fetch or parse error is handed to FailFunc and returned.
func Execute(ctx context.Context, req models.DataRequest, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = defaultJobTimeout
	}
	opCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	fail := func(err error) error {
		if req.FailFunc != nil {
			req.FailFunc(opCtx, err)
		}
		return err
	}

	// 1. Fetch Data
	data, err := req.FetchFunc(opCtx, req.ID)
	if err != nil {
		return fail(err)
	}

	// 2. Parse Data
	parsed, err := req.ParseFunc(data)
	if err != nil {
		return fail(err)
	}

	// 3. Store Data
	if err := req.StoreFunc(opCtx, parsed); err != nil {
		return fmt.Errorf("store %s: %w", req.ID, err)
	}
	return nil
}

// Dispatch queues req for the pool's workers.
func (wp *WorkerPool) Dispatch(_ context.Context, req models.DataRequest) error {
	return wp.Channels.Submit(req)
}

// Inline runs requests on the caller's goroutine.
type Inline struct {
	Timeout time.Duration
}

func (d Inline) Dispatch(ctx context.Context, req models.DataRequest) error {
	return Execute(ctx, req, d.Timeout)
}
