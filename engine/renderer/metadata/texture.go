package metadata

/** @brief Pixel formats of render target textures. */
type TextureFormat int

const (
	TextureFormatRGBA8 TextureFormat = iota
	TextureFormatRGBA16F
	TextureFormatDepth32F
)

/**
 * @brief Represents various types of textures.
 */
type TextureType int

const (
	/** @brief A standard two-dimensional texture. */
	TextureType2d TextureType = iota
	/** @brief An array of two-dimensional layers, used for shadow maps. */
	TextureType2dArray
)

/**
 * @brief A render target texture exchanged between rendergraph nodes.
 */
type Texture struct {
	/** @brief The texture Name. */
	Name        string
	TextureType TextureType
	Format      TextureFormat
	Width       uint32
	Height      uint32
	/** @brief Layer count for array textures, 1 otherwise. */
	LayerCount  uint32
	SampleCount uint32
	/** @brief The texture Generation. Incremented every time it is resized. */
	Generation uint32
}

// Matches reports whether t already has the given size and format.
func (t *Texture) Matches(width, height uint32, format TextureFormat) bool {
	return t != nil && t.Width == width && t.Height == height && t.Format == format
}
