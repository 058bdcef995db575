package core

import "github.com/go-gl/mathgl/mgl32"

const (
	DefaultViewHeight = 10.0
	orthoNear         = -1.0
	orthoFar          = 100.0
)

// clipDepthFix remaps GL clip depth [-1, 1] to the [0, 1] range WebGPU clips against.
var clipDepthFix = mgl32.Mat4{
	1, 0, 0, 0,
	0, 1, 0, 0,
	0, 0, 0.5, 0,
	0, 0, 0.5, 1,
}

// OrthoViewProjection builds the editor camera: an orthographic box centred on the
// origin, viewHeight world units tall and as wide as the framebuffer aspect demands.
func OrthoViewProjection(width, height int, viewHeight float32) mgl32.Mat4 {
	if width <= 0 || height <= 0 {
		return mgl32.Ident4()
	}
	if viewHeight <= 0 {
		viewHeight = DefaultViewHeight
	}
	aspect := float32(width) / float32(height)
	halfH := viewHeight / 2
	halfW := viewHeight * aspect / 2
	return clipDepthFix.Mul4(mgl32.Ortho(-halfW, halfW, -halfH, halfH, orthoNear, orthoFar))
}
