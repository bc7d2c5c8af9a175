package core

import (
	"github.com/cockroachdb/errors"
)

var (
	ErrSwapchainBooting = errors.New("swapchain resized or recreated, booting")
	ErrFrameDropped     = errors.New("frame dropped")
	ErrNoSuitableDevice = errors.New("no suitable physical device")
	ErrNoMemoryType     = errors.New("no suitable memory type")
	ErrPipelineNotFound = errors.New("pipeline not found")
	ErrUnknown          = errors.New("unknown")
)
