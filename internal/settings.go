package internal

// settingsKey is the store key for the free-form settings object.
const settingsKey = "rag_settings"

// Settings are the user-tunable flags that survive restarts.
type Settings struct {
	ShowSources bool `json:"showSources"`
	AutoScroll  bool `json:"autoScroll"`
}

// DefaultSettings is what a first run starts with.
func DefaultSettings() Settings {
	return Settings{ShowSources: true, AutoScroll: true}
}

// LoadSettings reads persisted settings, falling back to defaults when
// nothing (or garbage) is stored.
func LoadSettings(store Store) Settings {
	s := DefaultSettings()
	getJSON(store, settingsKey, &s)
	return s
}

// SaveSettings persists the settings object as one value.
func SaveSettings(store Store, s Settings) error {
	return setJSON(store, settingsKey, s)
}
