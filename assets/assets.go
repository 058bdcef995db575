// Package assets carries the files the particle renderer loads at startup.
package assets

import (
	"embed"
	"io/fs"
	"os"
)

const (
	ParticleVertexPath   = "shaders/particle.vert.wgsl"
	ParticleFragmentPath = "shaders/particle.frag.wgsl"
)

//go:embed shaders/*.wgsl
var embedded embed.FS

// FS returns the built-in asset tree.
func FS() fs.FS { return embedded }

// Dir returns the asset tree rooted at dir, or the built-in one when dir is
// empty. Shader edits under dir take effect on the next renderer creation.
func Dir(dir string) fs.FS {
	if dir == "" {
		return embedded
	}
	return os.DirFS(dir)
}
