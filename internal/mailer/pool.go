package mailer

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/launchkit/saas-starter-kit/internal"
)

var ErrQueueFull = errors.New("mail queue full")

type Job struct {
	Message Message
}

type Worker struct {
	ID         int
	WorkerPool chan chan Job
	JobChannel chan Job
	Logger     *slog.Logger
}

func NewWorker(id int, workerPool chan chan Job, logger *slog.Logger) *Worker {
	return &Worker{
		ID:         id,
		WorkerPool: workerPool,
		JobChannel: make(chan Job),
		Logger:     logger,
	}
}

func (w *Worker) Start(ctx context.Context, wg *sync.WaitGroup, processFunc func(Job)) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case w.WorkerPool <- w.JobChannel:
			case <-ctx.Done():
				return
			}

			select {
			case job := <-w.JobChannel:
				processFunc(job)
			case <-ctx.Done():
				w.Logger.Debug("mail worker shutting down", "worker_id", w.ID)
				return
			}
		}
	}()
}

// Pool delivers queued messages through a bounded set of workers.
type Pool struct {
	sender  Sender
	timeout time.Duration
	logger  *slog.Logger

	jobQueue   chan Job
	workerPool chan chan Job
	maxWorkers int
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	once       sync.Once
}

func NewPool(sender Sender, cfg internal.EmailConfig, logger *slog.Logger) *Pool {
	ctx, cancel := context.WithCancel(context.Background())

	maxWorkers := cfg.Workers
	if maxWorkers <= 0 {
		maxWorkers = 2
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 100
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	p := &Pool{
		sender:     sender,
		timeout:    timeout,
		logger:     logger,
		maxWorkers: maxWorkers,
		jobQueue:   make(chan Job, queueSize),
		workerPool: make(chan chan Job, maxWorkers),
		ctx:        ctx,
		cancel:     cancel,
	}
	p.start()
	return p
}

func (p *Pool) start() {
	p.once.Do(func() {
		for i := 0; i < p.maxWorkers; i++ {
			NewWorker(i, p.workerPool, p.logger).Start(p.ctx, &p.wg, p.process)
		}

		p.wg.Add(1)
		go p.dispatch()

		p.logger.Info("mail worker pool started",
			"max_workers", p.maxWorkers,
			"queue_size", cap(p.jobQueue))
	})
}

func (p *Pool) dispatch() {
	defer p.wg.Done()

	for {
		select {
		case job := <-p.jobQueue:
			select {
			case jobChannel := <-p.workerPool:
				select {
				case jobChannel <- job:
				case <-p.ctx.Done():
					return
				}
			case <-p.ctx.Done():
				return
			}
		case <-p.ctx.Done():
			return
		}
	}
}

// Enqueue never blocks; a full queue rejects the message with ErrQueueFull.
func (p *Pool) Enqueue(msg Message) error {
	select {
	case <-p.ctx.Done():
		return ErrQueueFull
	default:
	}

	select {
	case p.jobQueue <- Job{Message: msg}:
		return nil
	default:
		p.logger.Warn("mail queue full, rejecting message",
			"to", msg.To,
			"queue_capacity", cap(p.jobQueue))
		return ErrQueueFull
	}
}

func (p *Pool) process(job Job) {
	ctx, cancel := context.WithTimeout(p.ctx, p.timeout)
	defer cancel()

	if err := p.sender.Send(ctx, job.Message); err != nil {
		p.logger.Warn("failed to send email", "to", job.Message.To, "subject", job.Message.Subject, "error", err)
		return
	}
	p.logger.Debug("email sent", "to", job.Message.To, "subject", job.Message.Subject)
}

func (p *Pool) Shutdown() {
	p.logger.Info("shutting down mail worker pool")
	p.cancel()
	p.wg.Wait()
	p.logger.Info("mail worker pool shutdown complete")
}
