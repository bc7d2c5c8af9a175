package vulkan

import (
	"sync"

	vk "github.com/goki/vulkan"
)

// queueLocks serializes host access to each queue. Vulkan requires
// vkQueueSubmit, vkQueuePresent and vkQueueWaitIdle on one queue to be
// externally synchronized, and graphics and present often share a queue.
type queueLocks struct {
	mu    sync.Mutex
	locks map[vk.Queue]*sync.Mutex
}

func newQueueLocks() *queueLocks {
	return &queueLocks{locks: make(map[vk.Queue]*sync.Mutex)}
}

func (ql *queueLocks) lock(queue vk.Queue) *sync.Mutex {
	ql.mu.Lock()
	defer ql.mu.Unlock()

	l, ok := ql.locks[queue]
	if !ok {
		l = &sync.Mutex{}
		ql.locks[queue] = l
	}
	return l
}

// SafeCall runs fn while holding the lock of queue.
func (ql *queueLocks) SafeCall(queue vk.Queue, fn func() vk.Result) vk.Result {
	l := ql.lock(queue)
	l.Lock()
	defer l.Unlock()
	return fn()
}
