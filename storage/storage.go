package storage

import (
	"errors"
	"strings"
	"time"

	"github.com/rodrigo-brito/psviewer/model"
	"github.com/rodrigo-brito/psviewer/tools/log"
)

// KeyFilter selects stored keys.
type KeyFilter func(key string) bool

// Storage persists the named style bundles of the charts.
type Storage interface {
	// Value returns the bundle stored under key, ok is false when absent.
	Value(key string) (props model.Props, ok bool, err error)
	SetValue(key string, props model.Props) error
	Delete(key string) error
	// Keys lists the stored keys in lexical order.
	Keys(filters ...KeyFilter) ([]string, error)
	// LastUpdate returns the key written most recently, empty when nothing
	// is stored.
	LastUpdate() (key string, at time.Time, err error)
	Close() error
}

func WithPrefix(prefix string) KeyFilter {
	return func(key string) bool {
		return strings.HasPrefix(key, prefix)
	}
}

func WithKeyIn(keys ...string) KeyFilter {
	return func(key string) bool {
		for _, k := range keys {
			if k == key {
				return true
			}
		}
		return false
	}
}

func matches(key string, filters []KeyFilter) bool {
	for _, filter := range filters {
		if !filter(key) {
			return false
		}
	}
	return true
}

// Lookup returns the bundle stored under key or its default. Read errors are
// logged and fall back to the default.
func Lookup(s Storage, key string) model.Props {
	props, ok, err := s.Value(key)
	if err != nil {
		log.WithField("key", key).Warnf("settings read failed: %s", err)
		return model.DefaultProps(key)
	}
	if !ok {
		return model.DefaultProps(key)
	}
	return props
}

// LoadSettings reads every chart setting, using defaults for missing keys.
func LoadSettings(s Storage) model.Settings {
	return model.SettingsFrom(func(key string) model.Props {
		return Lookup(s, key)
	})
}

// SaveSettings writes every chart setting. Up replicas provide the shared
// replica bundle.
func SaveSettings(s Storage, settings model.Settings) error {
	bundles := map[string]model.Props{
		model.KeyPoints:        settings.Points,
		model.KeyLines:         settings.Lines,
		model.KeyTrendLines:    settings.TrendLines,
		model.KeyReplicaPoints: settings.UpReplicas,
		model.KeyTitle:         settings.Title,
		model.KeyLabels:        settings.Labels,
	}

	var errs []error
	for _, key := range model.SettingKeys {
		if err := s.SetValue(key, bundles[key]); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Reset removes the chart settings so defaults apply again.
func Reset(s Storage) error {
	keys, err := s.Keys(WithKeyIn(model.SettingKeys...))
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err := s.Delete(key); err != nil {
			return err
		}
	}
	return nil
}
