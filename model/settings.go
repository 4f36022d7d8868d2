package model

import "sort"

// Props is a small property bundle as stored in the settings store, e.g.
// {"marker": "s", "c": "k"} or {"fontsize": "large"}.
type Props map[string]string

// Get returns the property or def when absent or empty.
func (p Props) Get(key, def string) string {
	if v, ok := p[key]; ok && v != "" {
		return v
	}
	return def
}

// Copy returns an independent copy of p.
func (p Props) Copy() Props {
	c := make(Props, len(p))
	for k, v := range p {
		c[k] = v
	}
	return c
}

// Keys returns the property names in lexical order.
func (p Props) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Settings store keys.
const (
	KeyPoints        = "/pstimeseries/pointsProps"
	KeyLines         = "/pstimeseries/linesProps"
	KeyTrendLines    = "/pstimeseries/linesThrendProps"
	KeyReplicaPoints = "/pstimeseries/pointsReplicasProps"
	KeyTitle         = "/pstimeseries/titleProps"
	KeyLabels        = "/pstimeseries/labelsProps"
)

// SettingKeys lists every chart style key in display order.
var SettingKeys = []string{KeyPoints, KeyLines, KeyTrendLines, KeyReplicaPoints, KeyTitle, KeyLabels}

// DefaultProps returns the default bundle for a settings key.
func DefaultProps(key string) Props {
	switch key {
	case KeyPoints:
		return Props{"marker": "s", "c": "k"}
	case KeyLines:
		return Props{"c": "k"}
	case KeyTrendLines:
		return Props{"c": "r"}
	case KeyReplicaPoints:
		return Props{"marker": "s", "c": "b"}
	case KeyTitle:
		return Props{"fontsize": "large"}
	case KeyLabels:
		return Props{"fontsize": "medium"}
	}
	return Props{}
}

// Settings is the visual configuration of a graph. Up and down replicas
// share one stored bundle but are kept apart so they can diverge.
type Settings struct {
	Points       Props
	Lines        Props
	TrendLines   Props
	UpReplicas   Props
	DownReplicas Props
	Title        Props
	Labels       Props
}

// DefaultSettings returns the settings used when nothing is stored.
func DefaultSettings() Settings {
	return SettingsFrom(func(key string) Props { return DefaultProps(key) })
}

// SettingsFrom builds Settings reading each bundle through lookup.
func SettingsFrom(lookup func(key string) Props) Settings {
	return Settings{
		Points:       lookup(KeyPoints),
		Lines:        lookup(KeyLines),
		TrendLines:   lookup(KeyTrendLines),
		UpReplicas:   lookup(KeyReplicaPoints),
		DownReplicas: lookup(KeyReplicaPoints).Copy(),
		Title:        lookup(KeyTitle),
		Labels:       lookup(KeyLabels),
	}
}
