package workers

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/camden-git/echobackend/metrics"
	"github.com/camden-git/echobackend/services"
)

// Processor runs one check-in through to a terminal state
type Processor interface {
	ProcessEntry(ctx context.Context, req services.ProcessRequest) services.Outcome
	// AbandonEntry fails a check-in that will never be processed
	AbandonEntry(entryID, reason string) services.Outcome
}

// AbandonedOnShutdown is recorded on check-ins still queued when the pool stops
const AbandonedOnShutdown = "server shut down before processing started"

// CheckinJob is one queued check-in
type CheckinJob struct {
	Request services.ProcessRequest
}

// CheckinProcessor is a bounded worker pool for check-in orchestrations.
// Jobs for the same entry are deduplicated while pending.
type CheckinProcessor struct {
	JobQueue chan CheckinJob
	Wg       sync.WaitGroup
	StopChan chan struct{}
	Pending  map[string]bool
	Mutex    sync.Mutex

	processor Processor
	ctx       context.Context
	cancel    context.CancelFunc
	stopOnce  sync.Once
	stopped   bool // guarded by Mutex
}

// NewCheckinProcessor starts numWorkers workers reading from a queue of queueSize
func NewCheckinProcessor(processor Processor, queueSize, numWorkers int) *CheckinProcessor {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	if queueSize <= 0 {
		queueSize = 100
	}
	ctx, cancel := context.WithCancel(context.Background())
	proc := &CheckinProcessor{
		JobQueue:  make(chan CheckinJob, queueSize),
		StopChan:  make(chan struct{}),
		Pending:   make(map[string]bool),
		processor: processor,
		ctx:       ctx,
		cancel:    cancel,
	}
	proc.Wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go proc.worker(i)
	}
	log.Infof("Started %d check-in worker(s) with queue size %d", numWorkers, queueSize)
	return proc
}

func (cp *CheckinProcessor) worker(id int) {
	defer cp.Wg.Done()

	log.Debugf("Check-in worker %d started", id)
	for {
		// once stopped, queued jobs are left for Stop to drain
		select {
		case <-cp.StopChan:
			log.Infof("Check-in worker %d stopping: stop signal received", id)
			return
		default:
		}

		select {
		case job, ok := <-cp.JobQueue:
			if !ok {
				log.Infof("Check-in worker %d stopping: job queue closed", id)
				return
			}
			metrics.SetQueueDepth(len(cp.JobQueue))
			cp.run(id, job)

		case <-cp.StopChan:
			log.Infof("Check-in worker %d stopping: stop signal received", id)
			return
		}
	}
}

func (cp *CheckinProcessor) run(id int, job CheckinJob) {
	entryID := job.Request.EntryID
	defer func() {
		cp.Mutex.Lock()
		delete(cp.Pending, entryID)
		cp.Mutex.Unlock()
	}()

	log.WithFields(log.Fields{"worker": id, "entry_id": entryID}).Debug("processing check-in")
	outcome := cp.processor.ProcessEntry(cp.ctx, job.Request)
	log.WithFields(log.Fields{
		"worker":   id,
		"entry_id": entryID,
		"status":   outcome.Status,
	}).Debug("check-in finished")
}

// QueueJob queues a check-in unless one for the same entry is already pending.
// It returns false when the job was not accepted, including when the queue is full.
func (cp *CheckinProcessor) QueueJob(job CheckinJob) bool {
	entryID := job.Request.EntryID

	cp.Mutex.Lock()
	if cp.stopped || cp.Pending[entryID] {
		cp.Mutex.Unlock()
		return false
	}
	cp.Pending[entryID] = true
	// sending under the lock keeps Stop from draining before the job lands
	defer cp.Mutex.Unlock()

	select {
	case cp.JobQueue <- job:
		metrics.SetQueueDepth(len(cp.JobQueue))
		log.WithField("entry_id", entryID).Debug("queued check-in")
		return true
	default:
		log.WithField("entry_id", entryID).Warn("check-in job queue full")
		metrics.IncQueueRejected()
		delete(cp.Pending, entryID)
		return false
	}
}

// IsPending reports whether a job for entryID is queued or running
func (cp *CheckinProcessor) IsPending(entryID string) bool {
	cp.Mutex.Lock()
	defer cp.Mutex.Unlock()
	return cp.Pending[entryID]
}

// Stop cancels in-flight check-ins, waits for the workers to exit and fails
// every check-in still queued. No check-in is left processing.
func (cp *CheckinProcessor) Stop() {
	cp.stopOnce.Do(func() {
		log.Info("Stopping check-in workers...")
		cp.Mutex.Lock()
		cp.stopped = true
		cp.Mutex.Unlock()

		close(cp.StopChan)
		cp.cancel()
		cp.Wg.Wait()

		abandoned := cp.drain()
		if abandoned > 0 {
			log.Warnf("Failed %d queued check-in(s) on shutdown", abandoned)
		}
		metrics.SetQueueDepth(0)
		log.Info("All check-in workers stopped")
	})
}

func (cp *CheckinProcessor) drain() int {
	n := 0
	for {
		select {
		case job := <-cp.JobQueue:
			outcome := cp.processor.AbandonEntry(job.Request.EntryID, AbandonedOnShutdown)
			log.WithFields(log.Fields{"entry_id": outcome.EntryID, "status": outcome.Status}).Debug("abandoned queued check-in")
			cp.Mutex.Lock()
			delete(cp.Pending, job.Request.EntryID)
			cp.Mutex.Unlock()
			n++
		default:
			return n
		}
	}
}
