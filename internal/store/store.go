package store

import (
	"errors"
	"time"

	"notesapp/internal/models"
)

// Duplicate-key errors surfaced to registration and profile forms.
var (
	ErrDuplicateName  = errors.New("name already in use")
	ErrDuplicateEmail = errors.New("email already in use")
)

// Store defines the interface for all database operations. Every read,
// update or delete of a category, note or picture is scoped by the owning
// user's id; a miss is reported as sql.ErrNoRows.
type Store interface {
	// Users
	CreateUser(name, email, passwordHash string) (int, error)
	GetUserByEmail(email string) (*models.User, error)
	GetUserByID(id int) (*models.User, error)
	NameTaken(name string, excludeUserID int) (bool, error)
	EmailTaken(email string, excludeUserID int) (bool, error)
	UpdateUserProfile(id int, name, email, image string) error
	UpdateUserPassword(id int, passwordHash string) error

	// Sessions
	CreateSession(id string, userID int, expiresAt time.Time) error
	GetSession(id string) (*models.Session, error)
	DeleteSession(id string) error

	// Categories
	CreateCategory(userID int, name string) (int, error)
	GetCategory(categoryID, userID int) (*models.Category, error)
	ListCategories(userID, page, perPage int) ([]models.Category, int, error)
	UpdateCategory(categoryID, userID int, name string) error
	DeleteCategory(categoryID, userID int) error

	// Notes
	CreateNote(userID, categoryID int, title, body string) (int, error)
	GetNote(noteID, userID int) (*models.Note, error)
	ListNotes(userID, page, perPage int) ([]models.Note, int, error)
	ListCategoryNotes(categoryID, userID, page, perPage int) ([]models.Note, int, error)
	ListCategoryNoteIDs(categoryID, userID int) ([]int, error)
	UpdateNote(noteID, userID int, title, body string) error
	DeleteNote(noteID, userID int) error
	SearchNotes(userID int, query string) ([]models.Note, error)

	// Pictures
	CreatePicture(noteID, userID int, filename string) (int, error)
	ListPictures(noteID, userID int) ([]models.Picture, error)
	GetPictureOwner(pictureID int) (int, error)
	DeletePicture(pictureID, userID int) (string, error)

	Close() error
}
