package storage

import (
	"encoding/json"
	"time"

	"github.com/tidwall/buntdb"

	"github.com/rodrigo-brito/psviewer/model"
)

// Bunt keeps the settings in a buntdb key/value file, one JSON document
// per key.
type Bunt struct {
	db *buntdb.DB
}

type buntEntry struct {
	Props model.Props `json:"props"`
	// UpdatedAt is in Unix nanoseconds so the index orders it numerically.
	UpdatedAt int64 `json:"updated_at"`
}

func FromMemory() (Storage, error) {
	return newBunt(":memory:")
}

func FromFile(file string) (Storage, error) {
	return newBunt(file)
}

func newBunt(sourceFile string) (Storage, error) {
	db, err := buntdb.Open(sourceFile)
	if err != nil {
		return nil, err
	}

	err = db.CreateIndex("update_index", "*", buntdb.IndexJSON("updated_at"))
	if err != nil {
		return nil, err
	}
	return &Bunt{
		db: db,
	}, nil
}

func (b *Bunt) Value(key string) (model.Props, bool, error) {
	var entry buntEntry
	err := b.db.View(func(tx *buntdb.Tx) error {
		content, err := tx.Get(key)
		if err != nil {
			return err
		}
		return json.Unmarshal([]byte(content), &entry)
	})
	if err == buntdb.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return entry.Props, true, nil
}

func (b *Bunt) SetValue(key string, props model.Props) error {
	return b.db.Update(func(tx *buntdb.Tx) error {
		content, err := json.Marshal(buntEntry{Props: props, UpdatedAt: time.Now().UnixNano()})
		if err != nil {
			return err
		}

		_, _, err = tx.Set(key, string(content), nil)
		return err
	})
}

func (b *Bunt) Delete(key string) error {
	err := b.db.Update(func(tx *buntdb.Tx) error {
		_, err := tx.Delete(key)
		return err
	})
	if err == buntdb.ErrNotFound {
		return nil
	}
	return err
}

func (b *Bunt) Keys(filters ...KeyFilter) ([]string, error) {
	keys := make([]string, 0)
	err := b.db.View(func(tx *buntdb.Tx) error {
		return tx.AscendKeys("*", func(key, _ string) bool {
			if matches(key, filters) {
				keys = append(keys, key)
			}
			return true
		})
	})
	return keys, err
}

func (b *Bunt) LastUpdate() (key string, at time.Time, err error) {
	err = b.db.View(func(tx *buntdb.Tx) error {
		return tx.Descend("update_index", func(k, value string) bool {
			var entry buntEntry
			if err := json.Unmarshal([]byte(value), &entry); err != nil {
				return true
			}
			key, at = k, time.Unix(0, entry.UpdatedAt)
			return false
		})
	})
	return key, at, err
}

func (b *Bunt) Close() error {
	return b.db.Close()
}
