package models

import "time"

// UncategorizedID is the sentinel category reference for notes that do not
// belong to any category.
const UncategorizedID = 0

type User struct {
	ID           int
	Name         string
	Email        string
	PasswordHash string
	Image        string
	CreatedAt    time.Time
}

type Category struct {
	ID        int
	UserID    int
	Name      string
	CreatedAt time.Time
}

type Note struct {
	ID         int
	UserID     int
	CategoryID int
	Title      string
	Body       string
	CreatedAt  time.Time
}

type Picture struct {
	ID        int
	NoteID    int
	UserID    int
	Filename  string
	CreatedAt time.Time
}

type Session struct {
	ID        string
	UserID    int
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Pagination describes one page of a list. Page is 1-indexed.
type Pagination struct {
	Page    int
	PerPage int
	Total   int
}

func (p Pagination) TotalPages() int {
	if p.Total == 0 || p.PerPage == 0 {
		return 1
	}
	return (p.Total + p.PerPage - 1) / p.PerPage
}

func (p Pagination) HasPrev() bool { return p.Page > 1 }

func (p Pagination) HasNext() bool { return p.Page < p.TotalPages() }

func (p Pagination) PrevPage() int { return p.Page - 1 }

func (p Pagination) NextPage() int { return p.Page + 1 }
