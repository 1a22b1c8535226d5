package repository

import (
	"github.com/chainletter/ChainLetter/app/models"
	"gorm.io/gorm"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	Update(user *models.User) error
	Delete(id uint) error
	List(offset, limit int) ([]models.User, error)
	Count() (int64, error)
}

// ProviderAccountRepository defines the interface for OAuth identity mappings
type ProviderAccountRepository interface {
	Create(account *models.ProviderAccount) error
	GetByProviderUserID(provider, providerUserID string) (*models.ProviderAccount, error)
	GetByUserID(userID uint) ([]models.ProviderAccount, error)
	Delete(id uint) error
}

// PageRepository defines the interface for static page operations
type PageRepository interface {
	Create(page *models.Page) error
	GetByID(id uint) (*models.Page, error)
	GetBySlug(slug string) (*models.Page, error)
	GetAll() ([]models.Page, error)
	GetActive() ([]models.Page, error)
	Update(page *models.Page) error
	Delete(id uint) error
	SlugExists(slug string) (bool, error)
}

// Repositories holds all repository instances
type Repositories struct {
	User            UserRepository
	ProviderAccount ProviderAccountRepository
	Page            PageRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:            NewUserRepository(db),
		ProviderAccount: NewProviderAccountRepository(db),
		Page:            NewPageRepository(db),
	}
}
