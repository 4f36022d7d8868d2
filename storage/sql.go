package storage

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/samber/lo"
	"gorm.io/gorm"

	"github.com/rodrigo-brito/psviewer/model"
)

// SQL keeps the settings in a table of a gorm database.
type SQL struct {
	db *gorm.DB
}

type setting struct {
	Name      string `gorm:"primaryKey"`
	Props     string
	UpdatedAt int64 `gorm:"autoUpdateTime:nano"`
}

func (setting) TableName() string {
	return "settings"
}

func FromSQL(dialect gorm.Dialector, opts ...gorm.Option) (Storage, error) {
	db, err := gorm.Open(dialect, opts...)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	err = db.AutoMigrate(&setting{})
	if err != nil {
		return nil, err
	}

	return &SQL{
		db: db,
	}, nil
}

func (s *SQL) Value(key string) (model.Props, bool, error) {
	var row setting
	result := s.db.First(&row, "name = ?", key)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if result.Error != nil {
		return nil, false, result.Error
	}

	props := make(model.Props)
	if err := json.Unmarshal([]byte(row.Props), &props); err != nil {
		return nil, false, err
	}
	return props, true, nil
}

func (s *SQL) SetValue(key string, props model.Props) error {
	content, err := json.Marshal(props)
	if err != nil {
		return err
	}
	return s.db.Save(&setting{Name: key, Props: string(content)}).Error
}

func (s *SQL) Delete(key string) error {
	return s.db.Delete(&setting{}, "name = ?", key).Error
}

func (s *SQL) Keys(filters ...KeyFilter) ([]string, error) {
	keys := make([]string, 0)
	result := s.db.Model(&setting{}).Order("name").Pluck("name", &keys)
	if result.Error != nil {
		return nil, result.Error
	}

	return lo.Filter(keys, func(key string, _ int) bool {
		return matches(key, filters)
	}), nil
}

func (s *SQL) LastUpdate() (string, time.Time, error) {
	var row setting
	err := s.db.Order("updated_at desc").First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", time.Time{}, nil
	}
	if err != nil {
		return "", time.Time{}, err
	}
	return row.Name, time.Unix(0, row.UpdatedAt), nil
}

func (s *SQL) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
