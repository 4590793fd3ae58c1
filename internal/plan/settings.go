package plan

import (
	models "infinite-experiment/plp/internal/models/gorm"
)

// Settings is an ordered key/value list owned by a plugin, page or section.
type Settings struct {
	names  []string
	values map[string]string
}

func NewSettings(rows []models.Setting) *Settings {
	s := &Settings{values: make(map[string]string, len(rows))}
	for _, r := range rows {
		s.Set(r.Name, r.Value)
	}
	return s
}

func (s *Settings) Get(name string) (string, bool) {
	v, ok := s.values[name]
	return v, ok
}

// Set keeps the position of an existing name and appends a new one.
func (s *Settings) Set(name, value string) {
	if s.values == nil {
		s.values = make(map[string]string)
	}
	if _, ok := s.values[name]; !ok {
		s.names = append(s.names, name)
	}
	s.values[name] = value
}

func (s *Settings) Names() []string {
	return append([]string(nil), s.names...)
}

// Map returns a copy of the settings.
func (s *Settings) Map() map[string]string {
	out := make(map[string]string, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

func (s *Settings) Len() int { return len(s.names) }

// HasSettings is implemented by every tree node that owns settings.
type HasSettings interface {
	Settings() *Settings
	SettingsOwner() (ownerType string, ownerID int64)
}
