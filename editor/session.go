// Package editor holds the state of one particle editing session: the
// spawner being tuned, where it sits, and where it was last saved.
package editor

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"

	"github.com/gekko3d/awparticles"
	"github.com/gekko3d/awparticles/core"
	"github.com/gekko3d/awparticles/spawner"
)

// FileDialog asks the user for a path. Both methods return "" and a nil
// error when the user cancels.
type FileDialog interface {
	OpenFile(title string) (string, error)
	SaveFile(title string) (string, error)
}

// PathDialog answers every prompt with a fixed path. An empty path cancels.
type PathDialog struct {
	Open string
	Save string
}

func (d PathDialog) OpenFile(string) (string, error) { return d.Open, nil }
func (d PathDialog) SaveFile(string) (string, error) { return d.Save, nil }

var ErrNoDialog = errors.New("editor: no file dialog")

type Session struct {
	ID       uuid.UUID
	Config   spawner.Config
	Position mgl32.Vec3 // spawner origin in world space

	savePath  string
	dropFrame bool
	log       awparticles.Logger
}

func NewSession(log awparticles.Logger) *Session {
	return &Session{
		ID:     uuid.New(),
		Config: spawner.Default(),
		log:    awparticles.OrNop(log),
	}
}

// SavePath is the path Save writes to without asking, empty until the first save.
func (s *Session) SavePath() string { return s.savePath }

// New resets the spawner to its defaults. The position and save path are kept.
func (s *Session) New() {
	s.Config = spawner.Default()
	s.dropFrame = true
	s.log.Infof("spawner reset to defaults")
}

// Save writes the config to the cached path, asking d for one if there is none.
// It returns the path written, or "" when the user cancelled.
func (s *Session) Save(d FileDialog) (string, error) {
	if s.savePath == "" {
		return s.SaveAs(d)
	}
	s.dropFrame = true
	return s.write(s.savePath)
}

// SaveAs always asks d for the destination.
func (s *Session) SaveAs(d FileDialog) (string, error) {
	if d == nil {
		return "", ErrNoDialog
	}
	s.dropFrame = true
	path, err := d.SaveFile("Save particle spawner")
	if err != nil {
		return "", fmt.Errorf("save dialog: %w", err)
	}
	if path == "" {
		return "", nil
	}
	withExt := spawner.WithExtension(path)
	if withExt != path {
		s.log.Infof("adding %s extension to %s", spawner.Extension, path)
	}
	if _, err := s.write(withExt); err != nil {
		return "", err
	}
	s.savePath = withExt
	return withExt, nil
}

func (s *Session) write(path string) (string, error) {
	if err := spawner.SaveFile(path, s.Config); err != nil {
		s.log.Errorf("save failed: %v", err)
		return "", err
	}
	s.log.Infof("saved spawner to %s", path)
	return path, nil
}

// Load replaces the config with the file d selects. On cancel nothing
// changes; on a read or parse error the current config is kept.
func (s *Session) Load(d FileDialog) (string, error) {
	if d == nil {
		return "", ErrNoDialog
	}
	s.dropFrame = true
	path, err := d.OpenFile("Select particle spawner")
	if err != nil {
		return "", fmt.Errorf("open dialog: %w", err)
	}
	if path == "" {
		return "", nil
	}
	c, err := spawner.LoadFile(path)
	if err != nil {
		s.log.Errorf("load failed: %v", err)
		return "", err
	}
	s.Config = c
	s.log.Infof("loaded spawner from %s", path)
	return path, nil
}

// ConsumeDropFrame reports whether the next simulation step should be skipped
// and clears the flag. File dialogs block the frame loop; stepping with the
// resulting dt would emit a burst of particles.
func (s *Session) ConsumeDropFrame() bool {
	drop := s.dropFrame
	s.dropFrame = false
	return drop
}

func (s *Session) SetColor(stop spawner.GradientStop, c core.Color) error {
	return s.Config.SetColor(stop, c)
}

func (s *Session) SetFadeIn(v float32) error {
	return s.Config.SetFadeIn(v)
}

func (s *Session) MovePosition(delta mgl32.Vec3) {
	s.Position = s.Position.Add(delta)
}

// ActiveParticles is the number shown next to "Active particles".
func ActiveParticles(layers []core.Layer) int {
	return core.CountParticles(layers)
}
