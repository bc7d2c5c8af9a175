package frame

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFence models a fence whose pending GPU work completes when waited on.
type fakeFence struct {
	signaled bool
	frame    int
	waits    int
	waitErr  error
}

func (f *fakeFence) Wait(ctx context.Context, timeout time.Duration) error {
	if f.waitErr != nil {
		return f.waitErr
	}
	if !f.signaled {
		f.waits++
		f.signaled = true
	}
	return nil
}

func (f *fakeFence) Reset() error {
	f.signaled = false
	return nil
}

func newFences() ([]Fence, []*fakeFence) {
	fakes := make([]*fakeFence, MaxFramesInFlight)
	fences := make([]Fence, MaxFramesInFlight)
	for i := range fakes {
		fakes[i] = &fakeFence{signaled: true, frame: -1}
		fences[i] = fakes[i]
	}
	return fences, fakes
}

func TestPacerNeverReusesUnsignaledSlot(t *testing.T) {
	ctx := context.Background()
	fences, fakes := newFences()
	p := NewPacer(fences, 3)

	for n := 0; n < 12; n++ {
		slot := p.Slot()
		require.Equal(t, n%MaxFramesInFlight, slot)

		require.NoError(t, p.WaitSlot(ctx, time.Second))
		f := fakes[slot]
		require.True(t, f.signaled, "frame %d recorded before slot %d signaled", n, slot)
		if n >= MaxFramesInFlight {
			assert.Equal(t, n-MaxFramesInFlight, f.frame)
		}

		require.NoError(t, p.ClaimImage(ctx, uint32(n%3), time.Second))
		assert.False(t, f.signaled)

		// submit
		f.frame = n
		p.Advance()
	}
	assert.EqualValues(t, 12, p.Frame())
	assert.Equal(t, 6, fakes[0].waits)
}

func TestPacerWaitsForImageOwner(t *testing.T) {
	ctx := context.Background()
	fences, fakes := newFences()
	p := NewPacer(fences, 2)

	require.NoError(t, p.WaitSlot(ctx, time.Second))
	require.NoError(t, p.ClaimImage(ctx, 0, time.Second))
	p.Advance()

	// slot 1 acquires the image slot 0 is still rendering to
	require.NoError(t, p.WaitSlot(ctx, time.Second))
	require.Equal(t, 0, fakes[0].waits)
	require.NoError(t, p.ClaimImage(ctx, 0, time.Second))
	assert.Equal(t, 1, fakes[0].waits)
	assert.True(t, fakes[0].signaled)
	assert.Same(t, fakes[1], p.imagesInFlight[0])
}

func TestPacerWaitErrorKeepsSlot(t *testing.T) {
	fences, fakes := newFences()
	p := NewPacer(fences, 2)
	fakes[0].waitErr = errors.New("device lost")

	err := p.WaitSlot(context.Background(), time.Millisecond)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "slot 0")
	assert.Equal(t, 0, p.Slot())
}

func TestPacerClaimOutOfRange(t *testing.T) {
	fences, _ := newFences()
	p := NewPacer(fences, 2)
	assert.Error(t, p.ClaimImage(context.Background(), 2, time.Second))

	p.ResetImages(4)
	assert.NoError(t, p.ClaimImage(context.Background(), 3, time.Second))
}
