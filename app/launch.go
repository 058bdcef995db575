package app

import (
	"fmt"
	"io/fs"

	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/gekko3d/awparticles"
	"github.com/gekko3d/awparticles/assets"
	"github.com/gekko3d/awparticles/editor"
)

// Launch opens the editor window for sim and blocks until it is closed.
// Call it from main with the OS thread locked (runtime.LockOSThread in init).
// A nil opts.Preferences opens the per-user store; if that fails the editor
// runs with in-memory defaults.
func Launch(sim Simulation, opts Options) error {
	log := awparticles.OrNop(opts.Logger)
	if opts.Preferences == nil {
		store, err := editor.OpenPreferenceStore(editor.AppName)
		if err != nil {
			log.Warnf("preferences store: %v", err)
			opts.Preferences = editor.NewPreferenceManager(nil, log)
		} else {
			opts.Preferences = editor.NewPreferenceManager(store, log)
		}
	}
	prefs := opts.Preferences.Get()
	opts.Assets = assetsFor(opts.Assets, prefs)

	if err := glfw.Init(); err != nil {
		return fmt.Errorf("glfw init: %w", err)
	}
	defer glfw.Terminate()

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	width, height := windowSize(prefs)
	window, err := glfw.CreateWindow(width, height, "awparticles", nil, nil)
	if err != nil {
		return fmt.Errorf("create window: %w", err)
	}
	defer window.Destroy()

	a := NewApp(window, sim, opts)
	defer a.Release()
	if err := a.Init(); err != nil {
		return err
	}
	a.BindInput()
	a.Run()
	return nil
}

// assetsFor picks the shader tree: an explicit FS wins, then the directory
// stored in the preferences, then the built-in shaders.
func assetsFor(explicit fs.FS, prefs editor.Preferences) fs.FS {
	if explicit != nil {
		return explicit
	}
	if prefs.AssetDir != "" {
		return assets.Dir(prefs.AssetDir)
	}
	return nil
}

func windowSize(prefs editor.Preferences) (int, int) {
	def := editor.DefaultPreferences()
	w, h := prefs.WindowWidth, prefs.WindowHeight
	if w <= 0 || h <= 0 {
		return def.WindowWidth, def.WindowHeight
	}
	return w, h
}
