package api

import (
	"database/sql"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"go.uber.org/zap"

	"notesapp/internal/auth"
	"notesapp/internal/images"
	"notesapp/internal/models"
)

// Fixed page sizes for the list pages.
const (
	listPerPage          = 6
	categoryNotesPerPage = 3
)

func (h *Handlers) profilePictureDir() string {
	return filepath.Join(h.cfg.StaticDir, "profile_pictures")
}

func (h *Handlers) notePictureDir() string {
	return filepath.Join(h.cfg.StaticDir, "note_pictures")
}

func pageParam(r *http.Request) int {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

func idParam(r *http.Request, name string) (int, bool) {
	id, err := strconv.Atoi(r.PathValue(name))
	return id, err == nil && id > 0
}

func (h *Handlers) myCategories(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.GetUserIDFromContext(r.Context())
	page := pageParam(r)

	categories, total, err := h.store.ListCategories(userID, page, listPerPage)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	h.render(w, r, "my_categories", map[string]any{
		"Categories": categories,
		"Pagination": models.Pagination{Page: page, PerPage: listPerPage, Total: total},
	})
}

func (h *Handlers) myNotes(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.GetUserIDFromContext(r.Context())
	page := pageParam(r)

	notes, total, err := h.store.ListNotes(userID, page, listPerPage)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	h.render(w, r, "my_notes", map[string]any{
		"Notes":      notes,
		"Pagination": models.Pagination{Page: page, PerPage: listPerPage, Total: total},
	})
}

func (h *Handlers) newCategory(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.GetUserIDFromContext(r.Context())

	switch r.Method {
	case http.MethodGet:
		h.render(w, r, "new_category", nil)

	case http.MethodPost:
		name := r.FormValue("category_name")
		if name == "" {
			h.setFlash(w, "danger", "Category name is required.")
			http.Redirect(w, r, "/new_category", http.StatusSeeOther)
			return
		}
		if _, err := h.store.CreateCategory(userID, name); err != nil {
			h.serverError(w, r, err)
			return
		}
		h.setFlash(w, "success", "New category has been added.")
		http.Redirect(w, r, "/my_categories", http.StatusSeeOther)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handlers) categoryNotes(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.GetUserIDFromContext(r.Context())
	categoryID, ok := idParam(r, "id")
	if !ok {
		h.notFound(w, r)
		return
	}

	category, err := h.store.GetCategory(categoryID, userID)
	if err != nil {
		h.notFound(w, r)
		return
	}

	page := pageParam(r)
	notes, total, err := h.store.ListCategoryNotes(categoryID, userID, page, categoryNotesPerPage)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	h.render(w, r, "category_notes", map[string]any{
		"Category":   category,
		"Notes":      notes,
		"Pagination": models.Pagination{Page: page, PerPage: categoryNotesPerPage, Total: total},
	})
}

func (h *Handlers) noteView(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.GetUserIDFromContext(r.Context())
	noteID, ok := idParam(r, "id")
	if !ok {
		h.notFound(w, r)
		return
	}

	note, err := h.store.GetNote(noteID, userID)
	if err != nil {
		h.notFound(w, r)
		return
	}
	pictures, err := h.store.ListPictures(noteID, userID)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	h.render(w, r, "note", map[string]any{
		"Note":     note,
		"Pictures": pictures,
	})
}

func (h *Handlers) newCategoryNote(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.GetUserIDFromContext(r.Context())
	categoryID, ok := idParam(r, "id")
	if !ok {
		h.notFound(w, r)
		return
	}

	category, err := h.store.GetCategory(categoryID, userID)
	if err != nil {
		h.notFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.render(w, r, "new_category_note", map[string]any{"Category": category})

	case http.MethodPost:
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			h.setFlash(w, "danger", "Upload too large.")
			http.Redirect(w, r, r.URL.Path, http.StatusSeeOther)
			return
		}
		title := r.FormValue("note_title")
		body := r.FormValue("note_information")
		if title == "" || body == "" {
			h.setFlash(w, "danger", "Title and text are required.")
			http.Redirect(w, r, r.URL.Path, http.StatusSeeOther)
			return
		}

		noteID, err := h.store.CreateNote(userID, categoryID, title, body)
		if err != nil {
			h.serverError(w, r, err)
			return
		}

		withPicture, err := h.attachPicture(r, noteID, userID)
		if err != nil {
			h.setFlash(w, "danger", "Could not save the picture.")
			http.Redirect(w, r, "/category_notes/"+strconv.Itoa(categoryID), http.StatusSeeOther)
			return
		}
		if withPicture {
			h.setFlash(w, "success", "New note has been added to category "+category.Name+".")
		} else {
			h.setFlash(w, "success", "New note has been added to category "+category.Name+". You did not add any pictures.")
		}
		http.Redirect(w, r, "/category_notes/"+strconv.Itoa(categoryID), http.StatusSeeOther)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// attachPicture stores an optional uploaded note image and records it.
// Reports whether a picture was part of the submission.
func (h *Handlers) attachPicture(r *http.Request, noteID, userID int) (bool, error) {
	file, header, err := r.FormFile("note_image")
	if err != nil {
		return false, nil
	}
	defer file.Close()

	filename, err := images.Save(file, header.Filename, h.notePictureDir(), images.NoteBox)
	if err != nil {
		return true, err
	}
	if _, err := h.store.CreatePicture(noteID, userID, filename); err != nil {
		return true, err
	}
	return true, nil
}

func (h *Handlers) updateNote(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.GetUserIDFromContext(r.Context())
	noteID, ok := idParam(r, "id")
	if !ok {
		h.notFound(w, r)
		return
	}

	note, err := h.store.GetNote(noteID, userID)
	if err != nil {
		h.notFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		pictures, err := h.store.ListPictures(noteID, userID)
		if err != nil {
			h.serverError(w, r, err)
			return
		}
		h.render(w, r, "update_note", map[string]any{
			"Note":     note,
			"Pictures": pictures,
		})

	case http.MethodPost:
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			h.setFlash(w, "danger", "Upload too large.")
			http.Redirect(w, r, r.URL.Path, http.StatusSeeOther)
			return
		}
		title := r.FormValue("note_title")
		body := r.FormValue("note_information")
		if title == "" || body == "" {
			h.setFlash(w, "danger", "Title and text are required.")
			http.Redirect(w, r, r.URL.Path, http.StatusSeeOther)
			return
		}
		if err := h.store.UpdateNote(noteID, userID, title, body); err != nil {
			h.serverError(w, r, err)
			return
		}
		if _, err := h.attachPicture(r, noteID, userID); err != nil {
			h.setFlash(w, "danger", "Could not save the picture.")
			http.Redirect(w, r, "/note/"+strconv.Itoa(noteID), http.StatusSeeOther)
			return
		}
		h.setFlash(w, "success", "Your note has been updated!")
		http.Redirect(w, r, "/note/"+strconv.Itoa(noteID), http.StatusSeeOther)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handlers) updateCategory(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.GetUserIDFromContext(r.Context())
	categoryID, ok := idParam(r, "id")
	if !ok {
		h.notFound(w, r)
		return
	}

	category, err := h.store.GetCategory(categoryID, userID)
	if err != nil {
		h.notFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.render(w, r, "update_category", map[string]any{"Category": category})

	case http.MethodPost:
		name := r.FormValue("category_name")
		if name == "" {
			h.setFlash(w, "danger", "Category name is required.")
			http.Redirect(w, r, r.URL.Path, http.StatusSeeOther)
			return
		}
		if err := h.store.UpdateCategory(categoryID, userID, name); err != nil {
			h.serverError(w, r, err)
			return
		}
		h.setFlash(w, "success", "Your category has been updated!")
		http.Redirect(w, r, "/category_notes/"+strconv.Itoa(categoryID), http.StatusSeeOther)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handlers) search(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.GetUserIDFromContext(r.Context())

	switch r.Method {
	case http.MethodGet:
		h.render(w, r, "search", nil)

	case http.MethodPost:
		searched := r.FormValue("searched")
		notes, err := h.store.SearchNotes(userID, searched)
		if err != nil {
			h.serverError(w, r, err)
			return
		}
		h.render(w, r, "search", map[string]any{
			"Searched": searched,
			"Notes":    notes,
		})

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handlers) deleteNote(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.GetUserIDFromContext(r.Context())
	noteID, ok := idParam(r, "id")
	if !ok {
		h.notFound(w, r)
		return
	}

	note, err := h.store.GetNote(noteID, userID)
	if err != nil {
		h.notFound(w, r)
		return
	}
	if err := h.deleteNoteCascade(noteID, userID); err != nil {
		h.serverError(w, r, err)
		return
	}

	h.setFlash(w, "success", "Note has been deleted.")
	if note.CategoryID == models.UncategorizedID {
		http.Redirect(w, r, "/my_notes", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/category_notes/"+strconv.Itoa(note.CategoryID), http.StatusSeeOther)
}

func (h *Handlers) deleteCategory(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.GetUserIDFromContext(r.Context())
	categoryID, ok := idParam(r, "id")
	if !ok {
		h.notFound(w, r)
		return
	}

	if _, err := h.store.GetCategory(categoryID, userID); err != nil {
		h.notFound(w, r)
		return
	}
	if err := h.deleteCategoryCascade(categoryID, userID); err != nil {
		h.serverError(w, r, err)
		return
	}

	h.setFlash(w, "success", "Category has been deleted.")
	http.Redirect(w, r, "/my_categories", http.StatusSeeOther)
}

func (h *Handlers) deleteImage(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.GetUserIDFromContext(r.Context())
	pictureID, ok := idParam(r, "id")
	if !ok {
		h.notFound(w, r)
		return
	}
	noteID, ok := idParam(r, "note_id")
	if !ok {
		h.notFound(w, r)
		return
	}

	owner, err := h.store.GetPictureOwner(pictureID)
	if errors.Is(err, sql.ErrNoRows) {
		h.notFound(w, r)
		return
	}
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	if owner != userID {
		h.forbidden(w, r)
		return
	}

	filename, err := h.store.DeletePicture(pictureID, userID)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	h.removePictureFile(filename)

	h.setFlash(w, "success", "Image has been deleted.")
	http.Redirect(w, r, "/update_note/"+strconv.Itoa(noteID), http.StatusSeeOther)
}

// deleteNoteCascade removes the note row first, then each picture row
// followed by its backing file. A missing file is a warning, never an abort.
func (h *Handlers) deleteNoteCascade(noteID, userID int) error {
	if err := h.store.DeleteNote(noteID, userID); err != nil {
		return err
	}
	pictures, err := h.store.ListPictures(noteID, userID)
	if err != nil {
		return err
	}
	for _, p := range pictures {
		filename, err := h.store.DeletePicture(p.ID, userID)
		if err != nil {
			h.log.Error("deleting picture row", zap.Int("picture_id", p.ID), zap.Error(err))
			continue
		}
		h.removePictureFile(filename)
	}
	return nil
}

// deleteCategoryCascade removes the category row, then runs the full note
// cascade for every note that referenced it.
func (h *Handlers) deleteCategoryCascade(categoryID, userID int) error {
	if err := h.store.DeleteCategory(categoryID, userID); err != nil {
		return err
	}
	noteIDs, err := h.store.ListCategoryNoteIDs(categoryID, userID)
	if err != nil {
		return err
	}
	for _, noteID := range noteIDs {
		if err := h.deleteNoteCascade(noteID, userID); err != nil {
			h.log.Error("cascading note delete", zap.Int("note_id", noteID), zap.Error(err))
		}
	}
	return nil
}

func (h *Handlers) removePictureFile(filename string) {
	path := filepath.Join(h.notePictureDir(), filename)
	if err := os.Remove(path); err != nil {
		h.log.Warn("the file does not exist", zap.String("path", path), zap.Error(err))
	}
}
