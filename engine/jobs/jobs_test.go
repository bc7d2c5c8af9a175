package jobs

import (
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJobSystemRejects(t *testing.T) {
	_, err := NewJobSystem(0, 1)
	assert.ErrorIs(t, err, ErrNoWorkers)
	_, err = NewJobSystem(1, -1)
	assert.ErrorIs(t, err, ErrNegativeChannelSize)
}

// drain calls Update until every submitted job has reported back.
func drain(t *testing.T, js *JobSystem) int {
	t.Helper()
	total := 0
	assert.Eventually(t, func() bool {
		total += js.Update()
		return js.Pending() == 0
	}, time.Second, time.Millisecond)
	return total
}

func TestJobCallbacksRunOnUpdate(t *testing.T) {
	js, err := NewJobSystem(2, 4)
	require.NoError(t, err)
	defer js.Shutdown()

	var completed []int
	var failed []error
	for i := 0; i < 5; i++ {
		i := i
		require.NoError(t, js.Submit(Task{
			Name:       "square",
			Run:        func() (interface{}, error) { return i * i, nil },
			OnComplete: func(v interface{}) { completed = append(completed, v.(int)) },
		}))
	}
	require.NoError(t, js.Submit(Task{
		Name:      "broken",
		Run:       func() (interface{}, error) { return nil, errors.New("boom") },
		OnFailure: func(err error) { failed = append(failed, err) },
	}))
	require.NoError(t, js.Submit(Task{
		Name:      "panics",
		Run:       func() (interface{}, error) { panic("bad input") },
		OnFailure: func(err error) { failed = append(failed, err) },
	}))

	assert.Equal(t, 7, drain(t, js))
	assert.ElementsMatch(t, []int{0, 1, 4, 9, 16}, completed)
	require.Len(t, failed, 2)
	assert.Equal(t, 0, js.Update())
}

func TestSubmitAfterShutdown(t *testing.T) {
	js, err := NewJobSystem(1, 0)
	require.NoError(t, err)

	assert.Error(t, js.Submit(Task{Name: "empty"}))
	require.NoError(t, js.Shutdown())
	require.NoError(t, js.Shutdown())

	err = js.Submit(Task{Name: "late", Run: func() (interface{}, error) { return nil, nil }})
	assert.ErrorIs(t, err, ErrShutdown)
	assert.Zero(t, js.Pending())
}
