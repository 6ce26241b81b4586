package math

// Vec3 represents a 3D vector
type Vec3 struct {
	X, Y, Z float32
}

// Vec4 represents a 4D vector
type Vec4 struct {
	X, Y, Z, W float32
}

/** @brief a 4x4 column-major matrix, laid out the way shaders read it. */
type Mat4 struct {
	Data [16]float32
}

const (
	// Vec4Size is the byte size of a Vec4 in an upload buffer.
	Vec4Size = 4 * 4
	// Mat4Size is the byte size of a Mat4 in an upload buffer.
	Mat4Size = 16 * 4
)
