package metadata

/**
 * @brief Generated by the application once per frame and handed to the
 * renderer. Consists of the timing data every pass may need.
 */
type RenderPacket struct {
	DeltaTime float64
	/** @brief Monotonic frame number, starting at 0. */
	FrameNumber uint64
}

type RendererBackendConfig struct {
	/** @brief The name of the application */
	ApplicationName string
	Width           uint32
	Height          uint32
	Limits          Limits
}
