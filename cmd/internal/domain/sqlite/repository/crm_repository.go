package repository

import (
	"errors"
	"pipevine/cmd/internal/domain/entity"

	"gorm.io/gorm"
)

type DefaultLeadRepository struct {
	db *gorm.DB
}

func NewLeadRepository(db *gorm.DB) *DefaultLeadRepository {
	return &DefaultLeadRepository{db: db}
}

func (l *DefaultLeadRepository) FindByID(id int) (*entity.Lead, error) {
	var lead entity.Lead
	err := l.db.First(&lead, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &lead, err
}

type DefaultContactRepository struct {
	db *gorm.DB
}

func NewContactRepository(db *gorm.DB) *DefaultContactRepository {
	return &DefaultContactRepository{db: db}
}

func (c *DefaultContactRepository) FindByID(id int) (*entity.Contact, error) {
	var contact entity.Contact
	err := c.db.First(&contact, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &contact, err
}
