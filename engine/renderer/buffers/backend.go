package buffers

import "github.com/spaghettifunk/framegraph/engine/renderer/metadata"

// Backend is the part of a renderer backend that creates, flushes and binds
// buffers.
type Backend interface {
	Limits() metadata.Limits
	RenderBufferCreate(info *metadata.BufferCreateInfo) (*metadata.RenderBuffer, error)
	RenderBufferDestroy(buffer *metadata.RenderBuffer) error
	RenderBufferBindRange(buffer *metadata.RenderBuffer, bindingPoint uint32, r metadata.BufferRange) error
	RenderBufferFlush(buffer *metadata.RenderBuffer, r metadata.BufferRange) error
}
