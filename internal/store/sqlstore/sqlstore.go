package sqlstore

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"notesapp/internal/models"
	"notesapp/internal/store"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// DBType represents the type of database
type DBType string

const (
	SQLite   DBType = "sqlite3"
	Postgres DBType = "postgres"
)

// SQLStore implements the Store interface for SQL databases
type SQLStore struct {
	db     *sql.DB
	dbType DBType
}

// New creates a new SQLStore with the given driver and connection string
func New(driver, connStr string) (*SQLStore, error) {
	db, err := sql.Open(driver, connStr)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	s := &SQLStore{
		db:     db,
		dbType: DBType(driver),
	}

	if err := s.initSchema(); err != nil {
		return nil, err
	}

	return s, nil
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL
func (s *SQLStore) rebind(query string) string {
	if s.dbType == SQLite {
		return query
	}
	var result strings.Builder
	argNum := 1
	for _, c := range query {
		if c == '?' {
			result.WriteString(fmt.Sprintf("$%d", argNum))
			argNum++
		} else {
			result.WriteRune(c)
		}
	}
	return result.String()
}

func (s *SQLStore) initSchema() error {
	var stmts []string

	if s.dbType == Postgres {
		stmts = []string{
			`CREATE TABLE IF NOT EXISTS users (
				id SERIAL PRIMARY KEY,
				name TEXT NOT NULL UNIQUE,
				email TEXT NOT NULL UNIQUE,
				password_hash TEXT NOT NULL,
				image TEXT NOT NULL DEFAULT 'default.jpg',
				created_at TIMESTAMP NOT NULL
			);`,
			`CREATE TABLE IF NOT EXISTS sessions (
				id TEXT PRIMARY KEY,
				user_id INTEGER NOT NULL REFERENCES users(id),
				created_at TIMESTAMP NOT NULL,
				expires_at TIMESTAMP NOT NULL
			);`,
			`CREATE TABLE IF NOT EXISTS categories (
				id SERIAL PRIMARY KEY,
				user_id INTEGER NOT NULL REFERENCES users(id),
				name TEXT NOT NULL,
				created_at TIMESTAMP NOT NULL
			);`,
			`CREATE TABLE IF NOT EXISTS notes (
				id SERIAL PRIMARY KEY,
				user_id INTEGER NOT NULL REFERENCES users(id),
				category_id INTEGER NOT NULL DEFAULT 0,
				title TEXT NOT NULL,
				body TEXT NOT NULL,
				created_at TIMESTAMP NOT NULL
			);`,
			`CREATE TABLE IF NOT EXISTS pictures (
				id SERIAL PRIMARY KEY,
				note_id INTEGER NOT NULL,
				user_id INTEGER NOT NULL REFERENCES users(id),
				filename TEXT NOT NULL,
				created_at TIMESTAMP NOT NULL
			);`,
		}
	} else {
		stmts = []string{
			`CREATE TABLE IF NOT EXISTS users (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				name TEXT NOT NULL UNIQUE,
				email TEXT NOT NULL UNIQUE,
				password_hash TEXT NOT NULL,
				image TEXT NOT NULL DEFAULT 'default.jpg',
				created_at DATETIME NOT NULL
			);`,
			`CREATE TABLE IF NOT EXISTS sessions (
				id TEXT PRIMARY KEY,
				user_id INTEGER NOT NULL,
				created_at DATETIME NOT NULL,
				expires_at DATETIME NOT NULL,
				FOREIGN KEY(user_id) REFERENCES users(id)
			);`,
			`CREATE TABLE IF NOT EXISTS categories (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				user_id INTEGER NOT NULL,
				name TEXT NOT NULL,
				created_at DATETIME NOT NULL,
				FOREIGN KEY(user_id) REFERENCES users(id)
			);`,
			`CREATE TABLE IF NOT EXISTS notes (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				user_id INTEGER NOT NULL,
				category_id INTEGER NOT NULL DEFAULT 0,
				title TEXT NOT NULL,
				body TEXT NOT NULL,
				created_at DATETIME NOT NULL,
				FOREIGN KEY(user_id) REFERENCES users(id)
			);`,
			`CREATE TABLE IF NOT EXISTS pictures (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				note_id INTEGER NOT NULL,
				user_id INTEGER NOT NULL,
				filename TEXT NOT NULL,
				created_at DATETIME NOT NULL,
				FOREIGN KEY(user_id) REFERENCES users(id)
			);`,
		}
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

// mapUniqueViolation translates driver unique-constraint errors into the
// store's duplicate errors. SQLite reports the column as users.name, lib/pq
// reports the constraint as users_name_key.
func mapUniqueViolation(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "users.name") || strings.Contains(msg, "users_name_key"):
		return store.ErrDuplicateName
	case strings.Contains(msg, "users.email") || strings.Contains(msg, "users_email_key"):
		return store.ErrDuplicateEmail
	}
	return err
}

// User functions
func (s *SQLStore) CreateUser(name, email, passwordHash string) (int, error) {
	if s.dbType == Postgres {
		var id int
		err := s.db.QueryRow(s.rebind("INSERT INTO users (name, email, password_hash, created_at) VALUES (?, ?, ?, ?) RETURNING id"), name, email, passwordHash, time.Now()).Scan(&id)
		return id, mapUniqueViolation(err)
	}
	result, err := s.db.Exec(s.rebind("INSERT INTO users (name, email, password_hash, created_at) VALUES (?, ?, ?, ?)"), name, email, passwordHash, time.Now())
	if err != nil {
		return 0, mapUniqueViolation(err)
	}
	id, err := result.LastInsertId()
	return int(id), err
}

func (s *SQLStore) GetUserByEmail(email string) (*models.User, error) {
	var u models.User
	err := s.db.QueryRow(s.rebind("SELECT id, name, email, password_hash, image, created_at FROM users WHERE email = ?"), email).
		Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Image, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *SQLStore) GetUserByID(id int) (*models.User, error) {
	var u models.User
	err := s.db.QueryRow(s.rebind("SELECT id, name, email, password_hash, image, created_at FROM users WHERE id = ?"), id).
		Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Image, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *SQLStore) NameTaken(name string, excludeUserID int) (bool, error) {
	var n int
	err := s.db.QueryRow(s.rebind("SELECT COUNT(*) FROM users WHERE name = ? AND id != ?"), name, excludeUserID).Scan(&n)
	return n > 0, err
}

func (s *SQLStore) EmailTaken(email string, excludeUserID int) (bool, error) {
	var n int
	err := s.db.QueryRow(s.rebind("SELECT COUNT(*) FROM users WHERE email = ? AND id != ?"), email, excludeUserID).Scan(&n)
	return n > 0, err
}

func (s *SQLStore) UpdateUserProfile(id int, name, email, image string) error {
	result, err := s.db.Exec(s.rebind("UPDATE users SET name = ?, email = ?, image = ? WHERE id = ?"), name, email, image, id)
	if err != nil {
		return mapUniqueViolation(err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *SQLStore) UpdateUserPassword(id int, passwordHash string) error {
	result, err := s.db.Exec(s.rebind("UPDATE users SET password_hash = ? WHERE id = ?"), passwordHash, id)
	if err != nil {
		return err
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Session functions
func (s *SQLStore) CreateSession(id string, userID int, expiresAt time.Time) error {
	_, err := s.db.Exec(s.rebind("INSERT INTO sessions (id, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)"), id, userID, time.Now(), expiresAt)
	return err
}

func (s *SQLStore) GetSession(id string) (*models.Session, error) {
	var sess models.Session
	err := s.db.QueryRow(s.rebind("SELECT id, user_id, created_at, expires_at FROM sessions WHERE id = ?"), id).
		Scan(&sess.ID, &sess.UserID, &sess.CreatedAt, &sess.ExpiresAt)
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *SQLStore) DeleteSession(id string) error {
	_, err := s.db.Exec(s.rebind("DELETE FROM sessions WHERE id = ?"), id)
	return err
}

// Category functions
func (s *SQLStore) CreateCategory(userID int, name string) (int, error) {
	if s.dbType == Postgres {
		var id int
		err := s.db.QueryRow(s.rebind("INSERT INTO categories (user_id, name, created_at) VALUES (?, ?, ?) RETURNING id"), userID, name, time.Now()).Scan(&id)
		return id, err
	}
	result, err := s.db.Exec(s.rebind("INSERT INTO categories (user_id, name, created_at) VALUES (?, ?, ?)"), userID, name, time.Now())
	if err != nil {
		return 0, err
	}
	id, err := result.LastInsertId()
	return int(id), err
}

func (s *SQLStore) GetCategory(categoryID, userID int) (*models.Category, error) {
	var c models.Category
	err := s.db.QueryRow(s.rebind("SELECT id, user_id, name, created_at FROM categories WHERE id = ? AND user_id = ?"), categoryID, userID).
		Scan(&c.ID, &c.UserID, &c.Name, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *SQLStore) ListCategories(userID, page, perPage int) ([]models.Category, int, error) {
	var total int
	if err := s.db.QueryRow(s.rebind("SELECT COUNT(*) FROM categories WHERE user_id = ?"), userID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.db.Query(s.rebind("SELECT id, user_id, name, created_at FROM categories WHERE user_id = ? ORDER BY created_at DESC LIMIT ? OFFSET ?"), userID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var categories []models.Category
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.CreatedAt); err != nil {
			continue
		}
		categories = append(categories, c)
	}
	return categories, total, rows.Err()
}

func (s *SQLStore) UpdateCategory(categoryID, userID int, name string) error {
	result, err := s.db.Exec(s.rebind("UPDATE categories SET name = ? WHERE id = ? AND user_id = ?"), name, categoryID, userID)
	if err != nil {
		return err
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *SQLStore) DeleteCategory(categoryID, userID int) error {
	result, err := s.db.Exec(s.rebind("DELETE FROM categories WHERE id = ? AND user_id = ?"), categoryID, userID)
	if err != nil {
		return err
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Note functions
func (s *SQLStore) CreateNote(userID, categoryID int, title, body string) (int, error) {
	if s.dbType == Postgres {
		var id int
		err := s.db.QueryRow(s.rebind("INSERT INTO notes (user_id, category_id, title, body, created_at) VALUES (?, ?, ?, ?, ?) RETURNING id"), userID, categoryID, title, body, time.Now()).Scan(&id)
		return id, err
	}
	result, err := s.db.Exec(s.rebind("INSERT INTO notes (user_id, category_id, title, body, created_at) VALUES (?, ?, ?, ?, ?)"), userID, categoryID, title, body, time.Now())
	if err != nil {
		return 0, err
	}
	id, err := result.LastInsertId()
	return int(id), err
}

func (s *SQLStore) GetNote(noteID, userID int) (*models.Note, error) {
	var n models.Note
	err := s.db.QueryRow(s.rebind("SELECT id, user_id, category_id, title, body, created_at FROM notes WHERE id = ? AND user_id = ?"), noteID, userID).
		Scan(&n.ID, &n.UserID, &n.CategoryID, &n.Title, &n.Body, &n.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (s *SQLStore) scanNotes(rows *sql.Rows) []models.Note {
	var notes []models.Note
	for rows.Next() {
		var n models.Note
		if err := rows.Scan(&n.ID, &n.UserID, &n.CategoryID, &n.Title, &n.Body, &n.CreatedAt); err != nil {
			continue
		}
		notes = append(notes, n)
	}
	return notes
}

func (s *SQLStore) ListNotes(userID, page, perPage int) ([]models.Note, int, error) {
	var total int
	if err := s.db.QueryRow(s.rebind("SELECT COUNT(*) FROM notes WHERE user_id = ?"), userID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.db.Query(s.rebind("SELECT id, user_id, category_id, title, body, created_at FROM notes WHERE user_id = ? ORDER BY created_at DESC LIMIT ? OFFSET ?"), userID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return s.scanNotes(rows), total, rows.Err()
}

func (s *SQLStore) ListCategoryNotes(categoryID, userID, page, perPage int) ([]models.Note, int, error) {
	var total int
	if err := s.db.QueryRow(s.rebind("SELECT COUNT(*) FROM notes WHERE category_id = ? AND user_id = ?"), categoryID, userID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.db.Query(s.rebind("SELECT id, user_id, category_id, title, body, created_at FROM notes WHERE category_id = ? AND user_id = ? ORDER BY created_at DESC LIMIT ? OFFSET ?"), categoryID, userID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return s.scanNotes(rows), total, rows.Err()
}

func (s *SQLStore) ListCategoryNoteIDs(categoryID, userID int) ([]int, error) {
	rows, err := s.db.Query(s.rebind("SELECT id FROM notes WHERE category_id = ? AND user_id = ?"), categoryID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQLStore) UpdateNote(noteID, userID int, title, body string) error {
	result, err := s.db.Exec(s.rebind("UPDATE notes SET title = ?, body = ? WHERE id = ? AND user_id = ?"), title, body, noteID, userID)
	if err != nil {
		return err
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *SQLStore) DeleteNote(noteID, userID int) error {
	result, err := s.db.Exec(s.rebind("DELETE FROM notes WHERE id = ? AND user_id = ?"), noteID, userID)
	if err != nil {
		return err
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SearchNotes matches the query as a case-sensitive substring of the title.
// LIKE is case-insensitive for ASCII on SQLite, so substring position
// functions are used on both dialects instead.
func (s *SQLStore) SearchNotes(userID int, query string) ([]models.Note, error) {
	matchFn := "instr(title, ?)"
	if s.dbType == Postgres {
		matchFn = "strpos(title, ?)"
	}
	q := "SELECT id, user_id, category_id, title, body, created_at FROM notes WHERE user_id = ? AND " + matchFn + " > 0 ORDER BY created_at ASC"
	rows, err := s.db.Query(s.rebind(q), userID, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return s.scanNotes(rows), rows.Err()
}

// Picture functions
func (s *SQLStore) CreatePicture(noteID, userID int, filename string) (int, error) {
	if s.dbType == Postgres {
		var id int
		err := s.db.QueryRow(s.rebind("INSERT INTO pictures (note_id, user_id, filename, created_at) VALUES (?, ?, ?, ?) RETURNING id"), noteID, userID, filename, time.Now()).Scan(&id)
		return id, err
	}
	result, err := s.db.Exec(s.rebind("INSERT INTO pictures (note_id, user_id, filename, created_at) VALUES (?, ?, ?, ?)"), noteID, userID, filename, time.Now())
	if err != nil {
		return 0, err
	}
	id, err := result.LastInsertId()
	return int(id), err
}

func (s *SQLStore) ListPictures(noteID, userID int) ([]models.Picture, error) {
	rows, err := s.db.Query(s.rebind("SELECT id, note_id, user_id, filename, created_at FROM pictures WHERE note_id = ? AND user_id = ? ORDER BY created_at ASC"), noteID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pictures []models.Picture
	for rows.Next() {
		var p models.Picture
		if err := rows.Scan(&p.ID, &p.NoteID, &p.UserID, &p.Filename, &p.CreatedAt); err != nil {
			continue
		}
		pictures = append(pictures, p)
	}
	return pictures, rows.Err()
}

func (s *SQLStore) GetPictureOwner(pictureID int) (int, error) {
	var userID int
	err := s.db.QueryRow(s.rebind("SELECT user_id FROM pictures WHERE id = ?"), pictureID).Scan(&userID)
	return userID, err
}

func (s *SQLStore) DeletePicture(pictureID, userID int) (string, error) {
	var filename string
	err := s.db.QueryRow(s.rebind("SELECT filename FROM pictures WHERE id = ? AND user_id = ?"), pictureID, userID).Scan(&filename)
	if err != nil {
		return "", err
	}
	if _, err := s.db.Exec(s.rebind("DELETE FROM pictures WHERE id = ? AND user_id = ?"), pictureID, userID); err != nil {
		return "", err
	}
	return filename, nil
}
