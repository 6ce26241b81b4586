package metadata

import "fmt"

/** @brief A rectangle in framebuffer pixels. */
type Viewport struct {
	X, Y          int32
	Width, Height int32
	ReverseDepth  bool
}

// IsEmpty reports whether nothing can be drawn into v.
func (v Viewport) IsEmpty() bool {
	return v.Width < 1 || v.Height < 1
}

func (v Viewport) AspectRatio() float32 {
	if v.Height == 0 {
		return 1
	}
	return float32(v.Width) / float32(v.Height)
}

func (v Viewport) String() string {
	return fmt.Sprintf("%dx%d+%d+%d", v.Width, v.Height, v.X, v.Y)
}
