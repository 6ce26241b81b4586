package buffers

import (
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/spaghettifunk/framegraph/engine/renderer/memory"
	"github.com/spaghettifunk/framegraph/engine/renderer/metadata"
)

func newTestBackend(t *testing.T) *memory.Backend {
	t.Helper()
	b := memory.New(metadata.Limits{UniformBufferOffsetAlignment: 256, StorageBufferOffsetAlignment: 16})
	assert.NoError(t, b.Initialize(&metadata.RendererBackendConfig{ApplicationName: "buffers"}))
	return b
}

func newTestMultiBuffer(t *testing.T, backend *memory.Backend, slots int, capacity uint64) *MultiBuffer {
	t.Helper()
	mb, err := NewMultiBuffer(backend, "test", slots)
	assert.NoError(t, err)
	assert.NoError(t, mb.Allocate(metadata.BufferTargetUniform, 0, capacity))
	return mb
}
