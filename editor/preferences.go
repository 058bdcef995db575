package editor

import (
	"fmt"

	"github.com/quasilyte/gdata/v2"
	"gopkg.in/yaml.v3"

	"github.com/gekko3d/awparticles"
)

const (
	AppName = "awparticles"

	prefsObject   = "editor"
	prefsProperty = "preferences"
)

// Preferences survive between editor runs. They never affect .awps files.
type Preferences struct {
	LastSavePath string `yaml:"lastSavePath"`
	LastOpenPath string `yaml:"lastOpenPath"`
	AssetDir     string `yaml:"assetDir"` // empty uses the built-in shaders
	WindowWidth  int    `yaml:"windowWidth"`
	WindowHeight int    `yaml:"windowHeight"`
	Debug        bool   `yaml:"debug"`
}

func DefaultPreferences() Preferences {
	return Preferences{
		WindowWidth:  1280,
		WindowHeight: 720,
	}
}

// PropStore is the part of gdata.Manager preferences need.
type PropStore interface {
	ObjectPropExists(objectKey, propKey string) bool
	LoadObjectProp(objectKey, propKey string) ([]byte, error)
	SaveObjectProp(objectKey, propKey string, data []byte) error
}

var _ PropStore = (*gdata.Manager)(nil)

// OpenPreferenceStore opens the per-user data directory for the editor.
// Callers may run without one; a nil store keeps preferences in memory.
func OpenPreferenceStore(appName string) (*gdata.Manager, error) {
	if appName == "" {
		appName = AppName
	}
	return gdata.Open(gdata.Config{AppName: appName})
}

type PreferenceManager struct {
	store PropStore
	prefs Preferences
	log   awparticles.Logger
}

// NewPreferenceManager loads stored preferences. Missing or corrupt data
// falls back to the defaults with a warning.
func NewPreferenceManager(store PropStore, log awparticles.Logger) *PreferenceManager {
	m := &PreferenceManager{
		store: store,
		prefs: DefaultPreferences(),
		log:   awparticles.OrNop(log),
	}
	if err := m.Load(); err != nil {
		m.log.Warnf("preferences: %v (using defaults)", err)
	}
	return m
}

func (m *PreferenceManager) Load() error {
	m.prefs = DefaultPreferences()
	if m.store == nil || !m.store.ObjectPropExists(prefsObject, prefsProperty) {
		return nil
	}
	data, err := m.store.LoadObjectProp(prefsObject, prefsProperty)
	if err != nil {
		return fmt.Errorf("load preferences: %w", err)
	}
	loaded := DefaultPreferences()
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return fmt.Errorf("decode preferences: %w", err)
	}
	if loaded.WindowWidth <= 0 || loaded.WindowHeight <= 0 {
		loaded.WindowWidth, loaded.WindowHeight = DefaultPreferences().WindowWidth, DefaultPreferences().WindowHeight
	}
	m.prefs = loaded
	return nil
}

func (m *PreferenceManager) Save() error {
	if m.store == nil {
		return nil
	}
	data, err := yaml.Marshal(m.prefs)
	if err != nil {
		return fmt.Errorf("encode preferences: %w", err)
	}
	if err := m.store.SaveObjectProp(prefsObject, prefsProperty, data); err != nil {
		return fmt.Errorf("save preferences: %w", err)
	}
	m.log.Debugf("preferences saved")
	return nil
}

func (m *PreferenceManager) Get() Preferences { return m.prefs }

func (m *PreferenceManager) Update(fn func(*Preferences)) {
	fn(&m.prefs)
}

// Remember copies the session's file locations into the preferences.
func (m *PreferenceManager) Remember(s *Session, lastOpen string) {
	if p := s.SavePath(); p != "" {
		m.prefs.LastSavePath = p
	}
	if lastOpen != "" {
		m.prefs.LastOpenPath = lastOpen
	}
}
