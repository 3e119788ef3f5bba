package db

import (
	"fmt"

	"github.com/arencloud/strata/internal/errs"
	"github.com/arencloud/strata/internal/models"

	"gorm.io/gorm"
)

// GormStore keeps records in the connections table of a sqlite or postgres
// database.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore migrates the schema and wraps gdb.
func NewGormStore(gdb *gorm.DB) (*GormStore, error) {
	if err := gdb.AutoMigrate(&models.Connection{}); err != nil {
		return nil, errs.IO(fmt.Errorf("migrate connections: %w", err))
	}
	return &GormStore{db: gdb}, nil
}

func (s *GormStore) Load() (map[string]models.Connection, error) {
	var rows []models.Connection
	if err := s.db.Order("created_at").Find(&rows).Error; err != nil {
		return nil, errs.IO(fmt.Errorf("load connections: %w", err))
	}
	out := make(map[string]models.Connection, len(rows))
	for _, c := range rows {
		out[c.ID] = c
	}
	return out, nil
}

// SaveAll replaces the table contents in one transaction.
func (s *GormStore) SaveAll(conns map[string]models.Connection) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&models.Connection{}).Error; err != nil {
			return err
		}
		for _, c := range conns {
			c := c
			if err := tx.Create(&c).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return errs.IO(fmt.Errorf("save connections: %w", err))
	}
	return nil
}

func (s *GormStore) Put(conn models.Connection) error {
	if err := s.db.Save(&conn).Error; err != nil {
		return errs.IO(fmt.Errorf("save connection %s: %w", conn.ID, err))
	}
	return nil
}

func (s *GormStore) Remove(id string) error {
	if err := s.db.Delete(&models.Connection{}, "id = ?", id).Error; err != nil {
		return errs.IO(fmt.Errorf("delete connection %s: %w", id, err))
	}
	return nil
}
