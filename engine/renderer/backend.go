package renderer

import "github.com/spaghettifunk/framegraph/engine/renderer/metadata"

// RendererBackend is the narrow surface of a graphics API the upload paths
// and rendergraph passes need.
type RendererBackend interface {
	Initialize(config *metadata.RendererBackendConfig) error
	Shutdown() error
	Resized(width, height uint32) error
	BeginFrame(packet *metadata.RenderPacket) error
	EndFrame(packet *metadata.RenderPacket) error
	Limits() metadata.Limits
	RenderBufferCreate(info *metadata.BufferCreateInfo) (*metadata.RenderBuffer, error)
	RenderBufferDestroy(buffer *metadata.RenderBuffer) error
	RenderBufferBindRange(buffer *metadata.RenderBuffer, bindingPoint uint32, r metadata.BufferRange) error
	RenderBufferFlush(buffer *metadata.RenderBuffer, r metadata.BufferRange) error
	RenderTargetCreate(texture *metadata.Texture) error
	RenderTargetDestroy(texture *metadata.Texture)
	TextureBind(texture *metadata.Texture, unit uint32) error
	RenderPassBegin(name string, target *metadata.Texture, viewport metadata.Viewport) error
	RenderPassEnd(name string) error
	DrawIndirect(buffer *metadata.RenderBuffer, r metadata.BufferRange, drawCount uint32) error
	Present(source *metadata.Texture, viewport metadata.Viewport) error
}
