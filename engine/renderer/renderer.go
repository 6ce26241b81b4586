package renderer

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"

	"github.com/spaghettifunk/framegraph/engine/core"
	"github.com/spaghettifunk/framegraph/engine/renderer/buffers"
	"github.com/spaghettifunk/framegraph/engine/renderer/metadata"
)

// StreamBufferSize is the capacity of the ring used for transient uploads.
const StreamBufferSize uint64 = 4 * 1024 * 1024

var (
	ErrNotInitialized = errors.New("renderer is not initialized")
	ErrFrameInFlight  = errors.New("frame already begun")
	ErrNoFrame        = errors.New("no frame begun")
)

// Renderer is the frontend of a RendererBackend. It numbers frames and tells
// the streaming ring when the GPU is done with a frame.
type Renderer struct {
	backend     RendererBackend
	config      core.RendererConfig
	stream      *buffers.GPURingBuffer
	width       uint32
	height      uint32
	frameNumber uint64
	inFrame     bool
}

func New(backend RendererBackend, config core.RendererConfig) (*Renderer, error) {
	if backend == nil {
		return nil, fmt.Errorf("renderer.New - backend is nil")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Renderer{
		backend: backend,
		config:  config,
	}, nil
}

/**
 * @brief Initializes the backend and creates the stream ring buffer.
 *
 * @param appName The application name, reported to the backend.
 * @param width The initial width of the presentation surface.
 * @param height The initial height of the presentation surface.
 */
func (r *Renderer) Initialize(appName string, width, height uint32) error {
	err := r.backend.Initialize(&metadata.RendererBackendConfig{
		ApplicationName: appName,
		Width:           width,
		Height:          height,
		Limits: metadata.Limits{
			UniformBufferOffsetAlignment: r.config.UniformBufferOffsetAlignment,
			StorageBufferOffsetAlignment: r.config.StorageBufferOffsetAlignment,
		},
	})
	if err != nil {
		core.LogError("renderer backend failed to initialize: %s", err)
		return err
	}
	r.width, r.height = width, height

	stream, err := buffers.NewGPURingBuffer(r.backend, "stream", metadata.BufferTargetUniform, StreamBufferSize)
	if err != nil {
		return multierr.Append(err, r.backend.Shutdown())
	}
	r.stream = stream
	core.LogInfo("renderer initialized (%dx%d, %d frame resources)", width, height, r.config.FrameResourceCount)
	return nil
}

func (r *Renderer) Shutdown() error {
	var err error
	if r.stream != nil {
		err = multierr.Append(err, r.stream.Release())
		r.stream = nil
	}
	return multierr.Append(err, r.backend.Shutdown())
}

func (r *Renderer) OnResize(width, height uint32) error {
	r.width, r.height = width, height
	return r.backend.Resized(width, height)
}

/**
 * @brief Starts a new frame. Everything streamed during the frame
 * FrameResourceCount frames ago is considered consumed by the GPU.
 *
 * @param deltaTime The time in seconds since the last frame.
 * @return The packet describing the frame.
 */
func (r *Renderer) BeginFrame(deltaTime float64) (*metadata.RenderPacket, error) {
	if r.stream == nil {
		return nil, ErrNotInitialized
	}
	if r.inFrame {
		return nil, fmt.Errorf("%w: %d", ErrFrameInFlight, r.frameNumber)
	}

	packet := &metadata.RenderPacket{DeltaTime: deltaTime, FrameNumber: r.frameNumber}
	latency := uint64(r.config.FrameResourceCount)
	if packet.FrameNumber >= latency {
		r.stream.FrameCompleted(packet.FrameNumber - latency)
	}
	r.stream.SetFrame(packet.FrameNumber)

	if err := r.backend.BeginFrame(packet); err != nil {
		return nil, err
	}
	r.inFrame = true
	return packet, nil
}

func (r *Renderer) EndFrame(packet *metadata.RenderPacket) error {
	if !r.inFrame {
		return ErrNoFrame
	}
	r.inFrame = false
	r.frameNumber++
	return r.backend.EndFrame(packet)
}

// DrawFrame brackets render with BeginFrame and EndFrame. The frame is ended
// even when render fails.
func (r *Renderer) DrawFrame(deltaTime float64, render func(packet *metadata.RenderPacket) error) error {
	packet, err := r.BeginFrame(deltaTime)
	if err != nil {
		core.LogError("renderer BeginFrame failed: %s", err)
		return err
	}
	err = render(packet)
	if endErr := r.EndFrame(packet); endErr != nil {
		core.LogError("renderer EndFrame failed: %s", endErr)
		err = multierr.Append(err, endErr)
	}
	return err
}

func (r *Renderer) Backend() RendererBackend {
	return r.backend
}

func (r *Renderer) Config() core.RendererConfig {
	return r.config
}

// SetConfig replaces the configuration. The frame resource count of
// existing multi buffers is not changed.
func (r *Renderer) SetConfig(config core.RendererConfig) error {
	if err := config.Validate(); err != nil {
		return err
	}
	r.config = config
	return nil
}

// Stream returns the ring buffer for data that lives a single frame.
func (r *Renderer) Stream() *buffers.GPURingBuffer {
	return r.stream
}

// FrameNumber returns the number of the current frame, or of the next one
// between frames.
func (r *Renderer) FrameNumber() uint64 {
	return r.frameNumber
}

// WindowViewport covers the whole presentation surface.
func (r *Renderer) WindowViewport() metadata.Viewport {
	return metadata.Viewport{Width: int32(r.width), Height: int32(r.height)}
}
