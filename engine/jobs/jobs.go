package jobs

import (
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/vesta/engine/core"
)

var (
	ErrNoWorkers           = errors.New("attempting to create worker pool with less than 1 worker")
	ErrNegativeChannelSize = errors.New("attempting to create worker pool with a negative channel size")
	ErrShutdown            = errors.New("job system is shut down")
)

// Task is a unit of work. Run executes on a worker goroutine, the callbacks
// on whichever goroutine calls Update.
type Task struct {
	Name       string
	Run        func() (interface{}, error)
	OnComplete func(result interface{})
	OnFailure  func(err error)
}

type result struct {
	task  Task
	value interface{}
	err   error
}

type JobSystem struct {
	numWorkers int
	jobQueue   chan Task
	wg         sync.WaitGroup

	mutex   sync.Mutex
	results []result
	pending int

	// closeMutex keeps Submit from sending on a closed queue.
	closeMutex sync.RWMutex
	isClosed   bool
}

func NewJobSystem(numWorkers int, channelSize int) (*JobSystem, error) {
	if numWorkers <= 0 {
		return nil, ErrNoWorkers
	}
	if channelSize < 0 {
		return nil, ErrNegativeChannelSize
	}

	js := &JobSystem{
		numWorkers: numWorkers,
		jobQueue:   make(chan Task, channelSize),
	}
	js.start()
	return js, nil
}

func (js *JobSystem) start() {
	for i := 0; i < js.numWorkers; i++ {
		js.wg.Add(1)
		go func() {
			defer js.wg.Done()
			for job := range js.jobQueue {
				value, err := js.run(job)
				js.mutex.Lock()
				js.results = append(js.results, result{task: job, value: value, err: err})
				js.mutex.Unlock()
			}
		}()
	}
}

// run turns a panicking task into a failed one.
func (js *JobSystem) run(job Task) (value interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Newf("job %q panicked: %v", job.Name, r)
		}
	}()
	return job.Run()
}

/**
 * @brief Shuts the job system down. Queued jobs still run, their callbacks
 * are dropped.
 */
func (js *JobSystem) Shutdown() error {
	js.closeMutex.Lock()
	if js.isClosed {
		js.closeMutex.Unlock()
		return nil
	}
	js.isClosed = true
	close(js.jobQueue)
	js.closeMutex.Unlock()

	js.wg.Wait()

	js.mutex.Lock()
	if n := len(js.results); n > 0 {
		core.LogDebug("job system dropped %d unclaimed results", n)
	}
	js.results = nil
	js.pending = 0
	js.mutex.Unlock()
	return nil
}

/**
 * @brief Runs the callbacks of finished jobs. Should happen once an update
 * cycle on the thread that owns the data the callbacks touch.
 */
func (js *JobSystem) Update() int {
	js.mutex.Lock()
	done := js.results
	js.results = nil
	js.pending -= len(done)
	js.mutex.Unlock()

	for _, r := range done {
		if r.err != nil {
			core.LogError("job %q failed: %s", r.task.Name, r.err)
			if r.task.OnFailure != nil {
				r.task.OnFailure(r.err)
			}
			continue
		}
		if r.task.OnComplete != nil {
			r.task.OnComplete(r.value)
		}
	}
	return len(done)
}

// Pending counts submitted jobs whose callbacks have not run yet.
func (js *JobSystem) Pending() int {
	js.mutex.Lock()
	defer js.mutex.Unlock()
	return js.pending
}

/**
 * @brief Submits the provided job to be queued for execution. Blocks while
 * the queue is full.
 */
func (js *JobSystem) Submit(jt Task) error {
	if jt.Run == nil {
		return errors.Newf("job %q has nothing to run", jt.Name)
	}
	js.closeMutex.RLock()
	defer js.closeMutex.RUnlock()
	if js.isClosed {
		return ErrShutdown
	}

	js.mutex.Lock()
	js.pending++
	js.mutex.Unlock()

	js.jobQueue <- jt
	return nil
}
