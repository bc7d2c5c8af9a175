package frame

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
)

// MaxFramesInFlight is the number of frame slots the CPU may record ahead
// of the GPU.
const MaxFramesInFlight = 2

// Fence is a CPU-waitable signal raised by the GPU when a submission
// completes.
type Fence interface {
	Wait(ctx context.Context, timeout time.Duration) error
	Reset() error
}

// Pacer sequences the double-buffered frame loop. Slot n mod 2 is only
// handed back to the caller after the fence of the frame that last used it
// has signaled, and a swap image is only recorded into after the frame
// that last rendered to it has completed.
type Pacer struct {
	fences         []Fence
	imagesInFlight []Fence
	current        int
	frame          uint64
}

// NewPacer expects one fence per slot, created in the signaled state.
func NewPacer(fences []Fence, imageCount int) *Pacer {
	return &Pacer{
		fences:         fences,
		imagesInFlight: make([]Fence, imageCount),
	}
}

// Slot is the index of the frame slot being recorded.
func (p *Pacer) Slot() int {
	return p.current
}

// Frame is the number of frames advanced so far.
func (p *Pacer) Frame() uint64 {
	return p.frame
}

func (p *Pacer) Fence() Fence {
	return p.fences[p.current]
}

// WaitSlot blocks until the current slot's previous submission finished.
func (p *Pacer) WaitSlot(ctx context.Context, timeout time.Duration) error {
	if err := p.fences[p.current].Wait(ctx, timeout); err != nil {
		return errors.Wrapf(err, "waiting on in-flight fence of slot %d", p.current)
	}
	return nil
}

// ClaimImage waits for the frame that last rendered to image, binds the
// image to the current slot and resets the slot fence so the coming
// submission can signal it.
func (p *Pacer) ClaimImage(ctx context.Context, image uint32, timeout time.Duration) error {
	if int(image) >= len(p.imagesInFlight) {
		return errors.Newf("image index %d out of range (%d images)", image, len(p.imagesInFlight))
	}
	slotFence := p.fences[p.current]
	if prev := p.imagesInFlight[image]; prev != nil && prev != slotFence {
		if err := prev.Wait(ctx, timeout); err != nil {
			return errors.Wrapf(err, "waiting on image %d", image)
		}
	}
	p.imagesInFlight[image] = slotFence
	if err := slotFence.Reset(); err != nil {
		return errors.Wrapf(err, "resetting fence of slot %d", p.current)
	}
	return nil
}

// Advance moves to the next slot once the current frame was submitted or
// dropped.
func (p *Pacer) Advance() {
	p.current = (p.current + 1) % len(p.fences)
	p.frame++
}

// ResetImages forgets image ownership, used after the swapchain is rebuilt.
func (p *Pacer) ResetImages(imageCount int) {
	p.imagesInFlight = make([]Fence, imageCount)
}
