package api

import (
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"notesapp/internal/auth"
	"notesapp/internal/config"
	"notesapp/internal/images"
	"notesapp/internal/mail"
	"notesapp/internal/middleware"
	"notesapp/internal/store"
)

// Handlers serves every page of the application.
type Handlers struct {
	store  store.Store
	cfg    *config.Config
	log    *zap.Logger
	mailer mail.Mailer
	tmpl   map[string]*template.Template
}

func New(s store.Store, cfg *config.Config, log *zap.Logger, mailer mail.Mailer) (*Handlers, error) {
	tmpl, err := parseTemplates(cfg.TemplateDir)
	if err != nil {
		return nil, err
	}
	return &Handlers{store: s, cfg: cfg, log: log, mailer: mailer, tmpl: tmpl}, nil
}

// Routes builds the explicit route table. Authenticated routes are wrapped
// with the session check which places the user id in the request context.
func (h *Handlers) Routes() http.Handler {
	gated := func(fn http.HandlerFunc) http.HandlerFunc {
		return middleware.RequireAuth(h.store, fn)
	}

	mux := http.NewServeMux()
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(h.cfg.StaticDir))))

	mux.HandleFunc("/{$}", h.index)
	mux.HandleFunc("/register", h.register)
	mux.HandleFunc("/login", h.login)
	mux.HandleFunc("GET /logout", h.logout)
	mux.HandleFunc("/reset_password", h.resetRequest)
	mux.HandleFunc("/reset_password/{token}", h.resetPassword)

	mux.HandleFunc("/my_profile", gated(h.myProfile))
	mux.HandleFunc("/my_categories", gated(h.myCategories))
	mux.HandleFunc("/my_notes", gated(h.myNotes))
	mux.HandleFunc("/new_category", gated(h.newCategory))
	mux.HandleFunc("/category_notes/{id}", gated(h.categoryNotes))
	mux.HandleFunc("/note/{id}", gated(h.noteView))
	mux.HandleFunc("/new_category_note/{id}", gated(h.newCategoryNote))
	mux.HandleFunc("/update_note/{id}", gated(h.updateNote))
	mux.HandleFunc("/update_category/{id}", gated(h.updateCategory))
	mux.HandleFunc("/search", gated(h.search))
	mux.HandleFunc("GET /delete_note/{id}", gated(h.deleteNote))
	mux.HandleFunc("GET /delete_category/{id}", gated(h.deleteCategory))
	mux.HandleFunc("GET /delete_image/{id}/{note_id}", gated(h.deleteImage))

	// Anything else renders the 404 page.
	mux.HandleFunc("/", h.notFound)

	return mux
}

func (h *Handlers) index(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "index", nil)
}

func (h *Handlers) register(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.render(w, r, "register", nil)

	case http.MethodPost:
		name := r.FormValue("name")
		email := r.FormValue("email")
		password := r.FormValue("password")
		confirmed := r.FormValue("confirmed_password")

		if name == "" || email == "" || password == "" {
			h.setFlash(w, "danger", "All fields are required.")
			http.Redirect(w, r, "/register", http.StatusSeeOther)
			return
		}
		if password != confirmed {
			h.setFlash(w, "danger", "Passwords do not match!")
			http.Redirect(w, r, "/register", http.StatusSeeOther)
			return
		}
		if taken, err := h.store.NameTaken(name, 0); err != nil {
			h.serverError(w, r, err)
			return
		} else if taken {
			h.setFlash(w, "danger", "This name is already in use. Please choose another one!")
			http.Redirect(w, r, "/register", http.StatusSeeOther)
			return
		}
		if taken, err := h.store.EmailTaken(email, 0); err != nil {
			h.serverError(w, r, err)
			return
		} else if taken {
			h.setFlash(w, "danger", "This e-mail is already in use. Please use different e-mail!")
			http.Redirect(w, r, "/register", http.StatusSeeOther)
			return
		}

		hash, err := auth.HashPassword(password)
		if err != nil {
			h.serverError(w, r, err)
			return
		}
		if _, err := h.store.CreateUser(name, email, hash); err != nil {
			switch err {
			case store.ErrDuplicateName, store.ErrDuplicateEmail:
				h.setFlash(w, "danger", err.Error())
				http.Redirect(w, r, "/register", http.StatusSeeOther)
			default:
				h.serverError(w, r, err)
			}
			return
		}

		h.setFlash(w, "success", "You have successfully registered. Please login.")
		http.Redirect(w, r, "/login", http.StatusSeeOther)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handlers) login(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.render(w, r, "login", nil)

	case http.MethodPost:
		email := r.FormValue("email")
		password := r.FormValue("password")
		remember := r.FormValue("remember") != ""

		user, err := h.store.GetUserByEmail(email)
		if err != nil || !auth.CheckPassword(user.PasswordHash, password) {
			// Same message for unknown email and wrong password.
			h.setFlash(w, "danger", "Could not login. Please try again!")
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}

		ttl := auth.SessionTTL
		if remember {
			ttl = auth.RememberSessionTTL
		}
		sessionID := uuid.NewString()
		if err := h.store.CreateSession(sessionID, user.ID, time.Now().Add(ttl)); err != nil {
			h.serverError(w, r, err)
			return
		}
		auth.SetSessionCookie(w, sessionID, remember)
		http.Redirect(w, r, "/my_categories", http.StatusSeeOther)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handlers) logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(auth.SessionCookieName); err == nil {
		if err := h.store.DeleteSession(cookie.Value); err != nil {
			h.log.Warn("deleting session", zap.Error(err))
		}
	}
	auth.ClearSessionCookie(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handlers) resetRequest(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.render(w, r, "password_reset_request", nil)

	case http.MethodPost:
		email := r.FormValue("email")
		user, err := h.store.GetUserByEmail(email)
		if err != nil {
			h.setFlash(w, "danger", "There is no account registered with this e-mail. Please register.")
			http.Redirect(w, r, "/reset_password", http.StatusSeeOther)
			return
		}

		token, err := auth.NewResetToken([]byte(h.cfg.SecretKey), user.ID, h.cfg.ResetTokenTTL)
		if err != nil {
			h.serverError(w, r, err)
			return
		}
		body := fmt.Sprintf("Please follow this link to renew your password:\n%s/reset_password/%s\nPlease do nothing if you did not send this request.\n",
			h.cfg.BaseURL, token)
		if err := h.mailer.Send(user.Email, "Renew password request", body); err != nil {
			h.serverError(w, r, err)
			return
		}

		h.setFlash(w, "info", "We have sent you an e-mail. Please follow the instructions.")
		http.Redirect(w, r, "/login", http.StatusSeeOther)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handlers) resetPassword(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")
	userID, err := auth.VerifyResetToken([]byte(h.cfg.SecretKey), token)
	if err != nil {
		h.setFlash(w, "warning", "Token has expired!")
		http.Redirect(w, r, "/reset_password", http.StatusSeeOther)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.render(w, r, "reset_password", map[string]any{"Token": token})

	case http.MethodPost:
		password := r.FormValue("password")
		confirmed := r.FormValue("confirmed_password")
		if password == "" || password != confirmed {
			h.setFlash(w, "danger", "Passwords do not match!")
			http.Redirect(w, r, "/reset_password/"+token, http.StatusSeeOther)
			return
		}

		hash, err := auth.HashPassword(password)
		if err != nil {
			h.serverError(w, r, err)
			return
		}
		if err := h.store.UpdateUserPassword(userID, hash); err != nil {
			h.serverError(w, r, err)
			return
		}

		h.setFlash(w, "success", "Your password has been renewed! Now you can login.")
		http.Redirect(w, r, "/login", http.StatusSeeOther)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handlers) myProfile(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.GetUserIDFromContext(r.Context())
	user, err := h.store.GetUserByID(userID)
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.render(w, r, "my_profile", map[string]any{
			"User":         user,
			"ProfileImage": "/static/profile_pictures/" + user.Image,
		})

	case http.MethodPost:
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			h.setFlash(w, "danger", "Upload too large.")
			http.Redirect(w, r, "/my_profile", http.StatusSeeOther)
			return
		}
		name := r.FormValue("name")
		email := r.FormValue("email")
		if name == "" || email == "" {
			h.setFlash(w, "danger", "All fields are required.")
			http.Redirect(w, r, "/my_profile", http.StatusSeeOther)
			return
		}
		if taken, err := h.store.NameTaken(name, userID); err != nil {
			h.serverError(w, r, err)
			return
		} else if taken {
			h.setFlash(w, "danger", "This name is already in use. Please choose another one!")
			http.Redirect(w, r, "/my_profile", http.StatusSeeOther)
			return
		}
		if taken, err := h.store.EmailTaken(email, userID); err != nil {
			h.serverError(w, r, err)
			return
		} else if taken {
			h.setFlash(w, "danger", "This e-mail is already in use. Please use different e-mail!")
			http.Redirect(w, r, "/my_profile", http.StatusSeeOther)
			return
		}

		image := user.Image
		if file, header, err := r.FormFile("profile_image"); err == nil {
			defer file.Close()
			filename, err := images.Save(file, header.Filename, h.profilePictureDir(), images.ProfileBox)
			if err != nil {
				h.setFlash(w, "danger", "Could not save the picture.")
				http.Redirect(w, r, "/my_profile", http.StatusSeeOther)
				return
			}
			image = filename
		}

		if err := h.store.UpdateUserProfile(userID, name, email, image); err != nil {
			h.serverError(w, r, err)
			return
		}
		h.setFlash(w, "success", "Your profile has been updated!")
		http.Redirect(w, r, "/my_profile", http.StatusSeeOther)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}
