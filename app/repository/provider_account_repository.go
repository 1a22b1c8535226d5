package repository

import (
	"github.com/chainletter/ChainLetter/app/models"
	"gorm.io/gorm"
)

// providerAccountRepository implements the ProviderAccountRepository interface
type providerAccountRepository struct {
	db *gorm.DB
}

// NewProviderAccountRepository creates a new provider account repository instance
func NewProviderAccountRepository(db *gorm.DB) ProviderAccountRepository {
	return &providerAccountRepository{db: db}
}

// Create creates a new provider account mapping
func (r *providerAccountRepository) Create(account *models.ProviderAccount) error {
	return r.db.Create(account).Error
}

// GetByProviderUserID resolves a provider identity to its local mapping
func (r *providerAccountRepository) GetByProviderUserID(provider, providerUserID string) (*models.ProviderAccount, error) {
	var account models.ProviderAccount
	err := r.db.Where("provider = ? AND provider_user_id = ?", provider, providerUserID).First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// GetByUserID lists all provider identities linked to a user
func (r *providerAccountRepository) GetByUserID(userID uint) ([]models.ProviderAccount, error) {
	var accounts []models.ProviderAccount
	err := r.db.Where("user_id = ?", userID).Find(&accounts).Error
	return accounts, err
}

// Delete removes a provider account mapping
func (r *providerAccountRepository) Delete(id uint) error {
	return r.db.Delete(&models.ProviderAccount{}, id).Error
}
