// Package memory implements a headless renderer backend. Buffers live in host
// memory and every command is recorded so tests and the testbed can inspect
// what a frame did.
package memory

import (
	"errors"
	"fmt"
	"sync"

	"github.com/spaghettifunk/framegraph/engine/core"
	"github.com/spaghettifunk/framegraph/engine/renderer/metadata"
)

var (
	ErrNotInitialized  = errors.New("backend is not initialized")
	ErrUnknownBuffer   = errors.New("buffer was not created by this backend")
	ErrRangeOutOfBound = errors.New("range exceeds buffer capacity")
	ErrFrameNotStarted = errors.New("no frame in progress")
	ErrPassOpen        = errors.New("render pass already open")
	ErrPassNotOpen     = errors.New("render pass not open")
	ErrUnknownTarget   = errors.New("render target was not created by this backend")
)

type CommandKind int

const (
	CommandBindBufferRange CommandKind = iota
	CommandFlush
	CommandPassBegin
	CommandPassEnd
	CommandDrawIndirect
	CommandPresent
	CommandBindTexture
)

func (k CommandKind) String() string {
	switch k {
	case CommandBindBufferRange:
		return "bind_buffer_range"
	case CommandFlush:
		return "flush"
	case CommandPassBegin:
		return "pass_begin"
	case CommandPassEnd:
		return "pass_end"
	case CommandDrawIndirect:
		return "draw_indirect"
	case CommandPresent:
		return "present"
	case CommandBindTexture:
		return "bind_texture"
	}
	return fmt.Sprintf("CommandKind(%d)", int(k))
}

// Command is one recorded backend call.
type Command struct {
	Kind         CommandKind
	Frame        uint64
	Name         string
	Buffer       string
	Target       string
	BindingPoint uint32
	Range        metadata.BufferRange
	Viewport     metadata.Viewport
	Count        uint32
}

type bufferState struct {
	id uint32
}

type Backend struct {
	mu          sync.Mutex
	limits      metadata.Limits
	initialized bool
	inFrame     bool
	frame       uint64
	width       uint32
	height      uint32
	openPasses  map[string]struct{}
	buffers     map[*metadata.RenderBuffer]*bufferState
	targets     map[*metadata.Texture]struct{}
	commands    []Command
	nextID      uint32
}

// New returns a backend reporting limits. Zero alignments are replaced with
// the values a typical desktop driver reports.
func New(limits metadata.Limits) *Backend {
	if limits.UniformBufferOffsetAlignment == 0 {
		limits.UniformBufferOffsetAlignment = 256
	}
	if limits.StorageBufferOffsetAlignment == 0 {
		limits.StorageBufferOffsetAlignment = 16
	}
	return &Backend{
		limits:     limits,
		buffers:    make(map[*metadata.RenderBuffer]*bufferState),
		targets:    make(map[*metadata.Texture]struct{}),
		openPasses: make(map[string]struct{}),
	}
}

func (b *Backend) Initialize(config *metadata.RendererBackendConfig) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if config.Limits.UniformBufferOffsetAlignment != 0 {
		b.limits.UniformBufferOffsetAlignment = config.Limits.UniformBufferOffsetAlignment
	}
	if config.Limits.StorageBufferOffsetAlignment != 0 {
		b.limits.StorageBufferOffsetAlignment = config.Limits.StorageBufferOffsetAlignment
	}
	b.width = config.Width
	b.height = config.Height
	b.initialized = true
	core.LogDebug("memory backend initialized for '%s' (%dx%d)", config.ApplicationName, b.width, b.height)
	return nil
}

func (b *Backend) Shutdown() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.buffers) > 0 {
		core.LogWarn("memory backend shut down with %d live buffers", len(b.buffers))
	}
	b.buffers = make(map[*metadata.RenderBuffer]*bufferState)
	b.targets = make(map[*metadata.Texture]struct{})
	b.initialized = false
	return nil
}

func (b *Backend) Resized(width, height uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.width = width
	b.height = height
	return nil
}

// WindowSize returns the size of the presentation surface.
func (b *Backend) WindowSize() (uint32, uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.width, b.height
}

func (b *Backend) BeginFrame(packet *metadata.RenderPacket) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.initialized {
		return ErrNotInitialized
	}
	b.inFrame = true
	b.frame = packet.FrameNumber
	return nil
}

func (b *Backend) EndFrame(packet *metadata.RenderPacket) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.inFrame {
		return ErrFrameNotStarted
	}
	if len(b.openPasses) > 0 {
		return fmt.Errorf("%w: %d pass(es) left open at end of frame %d", ErrPassOpen, len(b.openPasses), packet.FrameNumber)
	}
	b.inFrame = false
	return nil
}

func (b *Backend) Limits() metadata.Limits {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.limits
}

func (b *Backend) RenderBufferCreate(info *metadata.BufferCreateInfo) (*metadata.RenderBuffer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.initialized {
		return nil, ErrNotInitialized
	}
	state := &bufferState{id: b.nextID}
	b.nextID++
	buffer := &metadata.RenderBuffer{
		Name:         info.Name,
		Target:       info.Target,
		Capacity:     info.Capacity,
		Memory:       make([]byte, info.Capacity),
		InternalData: state,
	}
	b.buffers[buffer] = state
	core.LogDebug("created %s buffer '%s' (%d bytes)", info.Target, info.Name, info.Capacity)
	return buffer, nil
}

func (b *Backend) RenderBufferDestroy(buffer *metadata.RenderBuffer) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.buffers[buffer]; !ok {
		return ErrUnknownBuffer
	}
	delete(b.buffers, buffer)
	buffer.Memory = nil
	buffer.InternalData = nil
	return nil
}

func (b *Backend) checkRange(buffer *metadata.RenderBuffer, r metadata.BufferRange) error {
	if _, ok := b.buffers[buffer]; !ok {
		return ErrUnknownBuffer
	}
	if r.End() > buffer.Capacity {
		return fmt.Errorf("%w: %s in '%s' (%d bytes)", ErrRangeOutOfBound, r, buffer.Name, buffer.Capacity)
	}
	return nil
}

func (b *Backend) RenderBufferBindRange(buffer *metadata.RenderBuffer, bindingPoint uint32, r metadata.BufferRange) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.checkRange(buffer, r); err != nil {
		return err
	}
	b.record(Command{Kind: CommandBindBufferRange, Buffer: buffer.Name, BindingPoint: bindingPoint, Range: r})
	return nil
}

func (b *Backend) RenderBufferFlush(buffer *metadata.RenderBuffer, r metadata.BufferRange) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.checkRange(buffer, r); err != nil {
		return err
	}
	b.record(Command{Kind: CommandFlush, Buffer: buffer.Name, Range: r})
	return nil
}

func (b *Backend) RenderTargetCreate(texture *metadata.Texture) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.initialized {
		return ErrNotInitialized
	}
	b.targets[texture] = struct{}{}
	return nil
}

func (b *Backend) RenderTargetDestroy(texture *metadata.Texture) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.targets, texture)
}

// TextureBind binds a render target created by RenderTargetCreate to a
// texture unit.
func (b *Backend) TextureBind(texture *metadata.Texture, unit uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.inFrame {
		return ErrFrameNotStarted
	}
	if _, ok := b.targets[texture]; !ok {
		return fmt.Errorf("%w: texture '%s'", ErrUnknownTarget, textureName(texture))
	}
	b.record(Command{Kind: CommandBindTexture, Name: texture.Name, BindingPoint: unit})
	return nil
}

func (b *Backend) RenderPassBegin(name string, target *metadata.Texture, viewport metadata.Viewport) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.inFrame {
		return ErrFrameNotStarted
	}
	if _, ok := b.openPasses[name]; ok {
		return fmt.Errorf("%w: '%s'", ErrPassOpen, name)
	}
	b.openPasses[name] = struct{}{}
	b.record(Command{Kind: CommandPassBegin, Name: name, Target: textureName(target), Viewport: viewport})
	return nil
}

func (b *Backend) RenderPassEnd(name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.openPasses[name]; !ok {
		return fmt.Errorf("%w: '%s'", ErrPassNotOpen, name)
	}
	delete(b.openPasses, name)
	b.record(Command{Kind: CommandPassEnd, Name: name})
	return nil
}

func (b *Backend) DrawIndirect(buffer *metadata.RenderBuffer, r metadata.BufferRange, drawCount uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.checkRange(buffer, r); err != nil {
		return err
	}
	b.record(Command{Kind: CommandDrawIndirect, Buffer: buffer.Name, Range: r, Count: drawCount})
	return nil
}

func (b *Backend) Present(source *metadata.Texture, viewport metadata.Viewport) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.inFrame {
		return ErrFrameNotStarted
	}
	b.record(Command{Kind: CommandPresent, Name: textureName(source), Viewport: viewport})
	return nil
}

func textureName(texture *metadata.Texture) string {
	if texture == nil {
		return ""
	}
	return texture.Name
}

func (b *Backend) record(c Command) {
	c.Frame = b.frame
	b.commands = append(b.commands, c)
}

// Commands returns a copy of everything recorded so far.
func (b *Backend) Commands() []Command {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Command, len(b.commands))
	copy(out, b.commands)
	return out
}

// CommandsOfKind filters Commands by kind.
func (b *Backend) CommandsOfKind(kind CommandKind) []Command {
	var out []Command
	for _, c := range b.Commands() {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}

func (b *Backend) ResetCommands() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.commands = b.commands[:0]
}

// LiveBuffers returns the number of buffers not yet destroyed.
func (b *Backend) LiveBuffers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.buffers)
}
