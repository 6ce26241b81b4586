package memory

import (
	"errors"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/spaghettifunk/framegraph/engine/renderer/metadata"
)

func newTestBackend(t *testing.T) *Backend {
	t.Helper()
	b := New(metadata.Limits{})
	assert.NoError(t, b.Initialize(&metadata.RendererBackendConfig{ApplicationName: "test", Width: 640, Height: 480}))
	return b
}

func TestBackendBuffers(t *testing.T) {
	b := newTestBackend(t)
	assert.Equal(t, uint64(256), b.Limits().UniformBufferOffsetAlignment)
	assert.Equal(t, uint64(16), b.Limits().StorageBufferOffsetAlignment)

	buf, err := b.RenderBufferCreate(&metadata.BufferCreateInfo{Name: "camera 0", Target: metadata.BufferTargetUniform, Capacity: 512})
	assert.NoError(t, err)
	assert.Equal(t, 512, len(buf.Memory))
	assert.Equal(t, 1, b.LiveBuffers())

	assert.NoError(t, b.RenderBufferBindRange(buf, 2, metadata.BufferRange{FirstByteOffset: 256, ByteCount: 256}))
	err = b.RenderBufferBindRange(buf, 2, metadata.BufferRange{FirstByteOffset: 256, ByteCount: 257})
	assert.True(t, errors.Is(err, ErrRangeOutOfBound))

	binds := b.CommandsOfKind(CommandBindBufferRange)
	assert.Equal(t, 1, len(binds))
	assert.Equal(t, "camera 0", binds[0].Buffer)
	assert.Equal(t, uint32(2), binds[0].BindingPoint)

	assert.NoError(t, b.RenderBufferDestroy(buf))
	assert.True(t, errors.Is(b.RenderBufferDestroy(buf), ErrUnknownBuffer))
	assert.Equal(t, 0, b.LiveBuffers())
}

func TestBackendFrame(t *testing.T) {
	b := newTestBackend(t)
	packet := &metadata.RenderPacket{FrameNumber: 7}

	assert.True(t, errors.Is(b.RenderPassBegin("shadow", nil, metadata.Viewport{}), ErrFrameNotStarted))

	assert.NoError(t, b.BeginFrame(packet))
	assert.NoError(t, b.RenderPassBegin("shadow", nil, metadata.Viewport{Width: 4, Height: 4}))
	assert.True(t, errors.Is(b.RenderPassBegin("shadow", nil, metadata.Viewport{}), ErrPassOpen))
	assert.True(t, errors.Is(b.EndFrame(packet), ErrPassOpen))
	assert.NoError(t, b.RenderPassEnd("shadow"))
	assert.True(t, errors.Is(b.RenderPassEnd("shadow"), ErrPassNotOpen))

	assert.NoError(t, b.Present(&metadata.Texture{Name: "color"}, metadata.Viewport{Width: 640, Height: 480}))
	assert.NoError(t, b.EndFrame(packet))

	presents := b.CommandsOfKind(CommandPresent)
	assert.Equal(t, 1, len(presents))
	assert.Equal(t, uint64(7), presents[0].Frame)
	assert.Equal(t, "color", presents[0].Name)

	b.ResetCommands()
	assert.Equal(t, 0, len(b.Commands()))
}

func TestBackendRequiresInitialize(t *testing.T) {
	b := New(metadata.Limits{})
	_, err := b.RenderBufferCreate(&metadata.BufferCreateInfo{Name: "x", Capacity: 1})
	assert.True(t, errors.Is(err, ErrNotInitialized))
	assert.True(t, errors.Is(b.BeginFrame(&metadata.RenderPacket{}), ErrNotInitialized))
}

func TestBackendTextures(t *testing.T) {
	b := newTestBackend(t)
	shadowMaps := &metadata.Texture{Name: "shadow maps", Width: 1024, Height: 1024, LayerCount: 2}
	assert.NoError(t, b.RenderTargetCreate(shadowMaps))

	assert.True(t, errors.Is(b.TextureBind(shadowMaps, 0), ErrFrameNotStarted))

	packet := &metadata.RenderPacket{FrameNumber: 1}
	assert.NoError(t, b.BeginFrame(packet))
	assert.NoError(t, b.TextureBind(shadowMaps, 3))
	assert.True(t, errors.Is(b.TextureBind(&metadata.Texture{Name: "stray"}, 0), ErrUnknownTarget))

	assert.NoError(t, b.RenderPassBegin("viewport", shadowMaps, metadata.Viewport{Width: 1024, Height: 1024}))
	assert.NoError(t, b.RenderPassEnd("viewport"))
	assert.NoError(t, b.EndFrame(packet))

	binds := b.CommandsOfKind(CommandBindTexture)
	assert.Equal(t, 1, len(binds))
	assert.Equal(t, "shadow maps", binds[0].Name)
	assert.Equal(t, uint32(3), binds[0].BindingPoint)
	assert.Equal(t, "shadow maps", b.CommandsOfKind(CommandPassBegin)[0].Target)

	b.RenderTargetDestroy(shadowMaps)
	assert.NoError(t, b.BeginFrame(packet))
	assert.True(t, errors.Is(b.TextureBind(shadowMaps, 0), ErrUnknownTarget))
}
