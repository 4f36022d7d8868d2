package storage

import (
	"bytes"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"

	"github.com/rodrigo-brito/psviewer/model"
)

func backends(t *testing.T) map[string]Storage {
	t.Helper()

	bunt, err := FromMemory()
	require.NoError(t, err)

	file, err := FromFile(filepath.Join(t.TempDir(), "settings.db"))
	require.NoError(t, err)

	sql, err := FromSQL(sqlite.Open(filepath.Join(t.TempDir(), "settings.sqlite")))
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, bunt.Close())
		require.NoError(t, file.Close())
		require.NoError(t, sql.Close())
	})
	return map[string]Storage{"bunt": bunt, "file": file, "sql": sql}
}

func TestStorage(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, ok, err := s.Value(model.KeyPoints)
			require.NoError(t, err)
			require.False(t, ok)

			last, _, err := s.LastUpdate()
			require.NoError(t, err)
			require.Empty(t, last)

			props := model.Props{"marker": "o", "c": "g"}
			require.NoError(t, s.SetValue(model.KeyPoints, props))
			require.NoError(t, s.SetValue(model.KeyTitle, model.Props{"fontsize": "x-large"}))
			require.NoError(t, s.SetValue("/other/key", model.Props{}))

			value, ok, err := s.Value(model.KeyPoints)
			require.NoError(t, err)
			require.True(t, ok)
			require.Equal(t, props, value)

			// overwrite
			require.NoError(t, s.SetValue(model.KeyPoints, model.Props{"marker": "x"}))
			value, _, err = s.Value(model.KeyPoints)
			require.NoError(t, err)
			require.Equal(t, model.Props{"marker": "x"}, value)

			keys, err := s.Keys()
			require.NoError(t, err)
			require.Equal(t, []string{"/other/key", model.KeyPoints, model.KeyTitle}, keys)

			keys, err = s.Keys(WithPrefix("/pstimeseries/"))
			require.NoError(t, err)
			require.Equal(t, []string{model.KeyPoints, model.KeyTitle}, keys)

			last, at, err := s.LastUpdate()
			require.NoError(t, err)
			require.Contains(t, []string{model.KeyPoints, model.KeyTitle, "/other/key"}, last)
			require.False(t, at.IsZero())

			require.NoError(t, s.Delete("/other/key"))
			require.NoError(t, s.Delete("/missing"))
			keys, err = s.Keys()
			require.NoError(t, err)
			require.Len(t, keys, 2)
		})
	}
}

func TestLastUpdateOrder(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			keys := []string{model.KeyPoints, model.KeyLines, model.KeyTitle, model.KeyPoints}
			var previous time.Time
			for _, key := range keys {
				// writes close in time must still sort by their order
				time.Sleep(time.Millisecond)
				require.NoError(t, s.SetValue(key, model.Props{"c": "r"}))

				last, at, err := s.LastUpdate()
				require.NoError(t, err)
				require.Equal(t, key, last)
				require.True(t, at.After(previous))
				previous = at
			}
		})
	}
}

func TestSettings(t *testing.T) {
	s, err := FromMemory()
	require.NoError(t, err)

	require.Equal(t, model.DefaultSettings(), LoadSettings(s))

	settings := model.DefaultSettings()
	settings.Lines = model.Props{"c": "#336699", "lw": "2"}
	settings.UpReplicas = model.Props{"marker": "^", "c": "m"}
	require.NoError(t, SaveSettings(s, settings))

	loaded := LoadSettings(s)
	require.Equal(t, settings.Lines, loaded.Lines)
	require.Equal(t, settings.UpReplicas, loaded.UpReplicas)
	require.Equal(t, settings.UpReplicas, loaded.DownReplicas)

	require.NoError(t, Reset(s))
	require.Equal(t, model.DefaultSettings(), LoadSettings(s))
}

func TestExportImport(t *testing.T) {
	source, err := FromMemory()
	require.NoError(t, err)
	require.NoError(t, SaveSettings(source, model.DefaultSettings()))
	require.NoError(t, source.SetValue("/other/key", model.Props{"a": "b"}))

	var buf bytes.Buffer
	require.NoError(t, Export(&buf, source, WithPrefix("/pstimeseries/")))
	require.Contains(t, buf.String(), "/pstimeseries/pointsProps:")
	require.NotContains(t, buf.String(), "/other/key")

	target, err := FromMemory()
	require.NoError(t, err)
	keys, err := Import(&buf, target)
	require.NoError(t, err)
	sort.Strings(keys)
	expected := append([]string(nil), model.SettingKeys...)
	sort.Strings(expected)
	require.Equal(t, expected, keys)
	require.Equal(t, model.DefaultSettings(), LoadSettings(target))

	_, err = Import(strings.NewReader("- not\n- a mapping\n"), target)
	require.Error(t, err)

	keys, err = Import(strings.NewReader(""), target)
	require.NoError(t, err)
	require.Empty(t, keys)
}
