package math

import (
	"encoding/binary"
	stdmath "math"
)

const (
	K_PI                 = 3.14159265358979323846
	K_DEG2RAD_MULTIPLIER = K_PI / 180.0
	K_FLOAT_EPSILON      = 1.192092896e-07
)

func DegToRad(degrees float32) float32 {
	return degrees * K_DEG2RAD_MULTIPLIER
}

func NewVec3(x, y, z float32) Vec3 {
	return Vec3{X: x, Y: y, Z: z}
}

func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z}
}

func (v Vec3) Dot(o Vec3) float32 {
	return v.X*o.X + v.Y*o.Y + v.Z*o.Z
}

func (v Vec3) Cross(o Vec3) Vec3 {
	return Vec3{
		X: v.Y*o.Z - v.Z*o.Y,
		Y: v.Z*o.X - v.X*o.Z,
		Z: v.X*o.Y - v.Y*o.X,
	}
}

func (v Vec3) Length() float32 {
	return float32(stdmath.Sqrt(float64(v.Dot(v))))
}

// Normalized returns v scaled to unit length. The zero vector is returned
// unchanged.
func (v Vec3) Normalized() Vec3 {
	l := v.Length()
	if l < K_FLOAT_EPSILON {
		return v
	}
	return Vec3{v.X / l, v.Y / l, v.Z / l}
}

func (v Vec3) ToVec4(w float32) Vec4 {
	return Vec4{v.X, v.Y, v.Z, w}
}

func NewVec4(x, y, z, w float32) Vec4 {
	return Vec4{X: x, Y: y, Z: z, W: w}
}

// AppendBytes appends the little-endian encoding of v to dst.
func (v Vec4) AppendBytes(dst []byte) []byte {
	for _, f := range [4]float32{v.X, v.Y, v.Z, v.W} {
		dst = binary.LittleEndian.AppendUint32(dst, stdmath.Float32bits(f))
	}
	return dst
}

func NewMat4Identity() Mat4 {
	m := Mat4{}
	m.Data[0] = 1
	m.Data[5] = 1
	m.Data[10] = 1
	m.Data[15] = 1
	return m
}

// Mul returns mt * other with both operands read in column-major order.
func (mt Mat4) Mul(other Mat4) Mat4 {
	var out Mat4
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			var sum float32
			for k := 0; k < 4; k++ {
				sum += mt.Data[k*4+row] * other.Data[col*4+k]
			}
			out.Data[col*4+row] = sum
		}
	}
	return out
}

// MulVec4 transforms v by mt.
func (mt Mat4) MulVec4(v Vec4) Vec4 {
	d := mt.Data
	return Vec4{
		X: d[0]*v.X + d[4]*v.Y + d[8]*v.Z + d[12]*v.W,
		Y: d[1]*v.X + d[5]*v.Y + d[9]*v.Z + d[13]*v.W,
		Z: d[2]*v.X + d[6]*v.Y + d[10]*v.Z + d[14]*v.W,
		W: d[3]*v.X + d[7]*v.Y + d[11]*v.Z + d[15]*v.W,
	}
}

func NewMat4Translation(position Vec3) Mat4 {
	m := NewMat4Identity()
	m.Data[12] = position.X
	m.Data[13] = position.Y
	m.Data[14] = position.Z
	return m
}

// NewMat4RotationY rotates counter-clockwise around the Y axis, looking down
// from positive Y.
func NewMat4RotationY(angleRadians float32) Mat4 {
	c := float32(stdmath.Cos(float64(angleRadians)))
	s := float32(stdmath.Sin(float64(angleRadians)))
	m := NewMat4Identity()
	m.Data[0] = c
	m.Data[2] = -s
	m.Data[8] = s
	m.Data[10] = c
	return m
}

func NewMat4Orthographic(left, right, bottom, top, nearClip, farClip float32) Mat4 {
	m := NewMat4Identity()
	m.Data[0] = 2 / (right - left)
	m.Data[5] = 2 / (top - bottom)
	m.Data[10] = -2 / (farClip - nearClip)
	m.Data[12] = -(right + left) / (right - left)
	m.Data[13] = -(top + bottom) / (top - bottom)
	m.Data[14] = -(farClip + nearClip) / (farClip - nearClip)
	return m
}

// NewMat4Perspective builds a right-handed projection with a [-1, 1] depth
// range.
func NewMat4Perspective(fovRadians, aspectRatio, nearClip, farClip float32) Mat4 {
	f := 1 / float32(stdmath.Tan(float64(fovRadians)*0.5))
	m := Mat4{}
	m.Data[0] = f / aspectRatio
	m.Data[5] = f
	m.Data[10] = -(farClip + nearClip) / (farClip - nearClip)
	m.Data[11] = -1
	m.Data[14] = -(2 * farClip * nearClip) / (farClip - nearClip)
	return m
}

// NewMat4LookAt returns the view matrix of an eye at position looking at
// target.
func NewMat4LookAt(position, target, up Vec3) Mat4 {
	forward := target.Sub(position).Normalized()
	right := forward.Cross(up).Normalized()
	trueUp := right.Cross(forward)

	m := NewMat4Identity()
	m.Data[0] = right.X
	m.Data[4] = right.Y
	m.Data[8] = right.Z
	m.Data[1] = trueUp.X
	m.Data[5] = trueUp.Y
	m.Data[9] = trueUp.Z
	m.Data[2] = -forward.X
	m.Data[6] = -forward.Y
	m.Data[10] = -forward.Z
	m.Data[12] = -right.Dot(position)
	m.Data[13] = -trueUp.Dot(position)
	m.Data[14] = forward.Dot(position)
	return m
}

// AppendBytes appends the little-endian encoding of mt to dst.
func (mt Mat4) AppendBytes(dst []byte) []byte {
	for _, f := range mt.Data {
		dst = binary.LittleEndian.AppendUint32(dst, stdmath.Float32bits(f))
	}
	return dst
}
