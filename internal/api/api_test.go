package api

import (
	"bytes"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"notesapp/internal/auth"
	"notesapp/internal/config"
	"notesapp/internal/mail"
	"notesapp/internal/store"
	"notesapp/internal/store/sqlstore"
)

func newTestHandlers(t *testing.T) (*Handlers, store.Store, string) {
	t.Helper()
	dir := t.TempDir()

	st, err := sqlstore.New("sqlite3", filepath.Join(dir, "notes.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	cfg := &config.Config{
		SecretKey:     "test-secret",
		BaseURL:       "http://example.com",
		TemplateDir:   "../../web/templates",
		StaticDir:     filepath.Join(dir, "static"),
		ResetTokenTTL: 30 * time.Minute,
	}
	logger := zap.NewNop()
	h, err := New(st, cfg, logger, &mail.LogMailer{From: "notes@localhost", Log: logger})
	require.NoError(t, err)
	return h, st, cfg.StaticDir
}

func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar}
}

func registerAndLogin(t *testing.T, client *http.Client, baseURL, name, email string) {
	t.Helper()
	resp, err := client.PostForm(baseURL+"/register", url.Values{
		"name":               {name},
		"email":              {email},
		"password":           {"password123"},
		"confirmed_password": {"password123"},
	})
	require.NoError(t, err)
	resp.Body.Close()

	resp, err = client.PostForm(baseURL+"/login", url.Values{
		"email":    {email},
		"password": {"password123"},
	})
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func notePayload(t *testing.T, title, body string, imgW, imgH int) (string, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("note_title", title))
	require.NoError(t, w.WriteField("note_information", body))

	fw, err := w.CreateFormFile("note_image", "picture.png")
	require.NoError(t, err)
	require.NoError(t, png.Encode(fw, image.NewRGBA(image.Rect(0, 0, imgW, imgH))))
	require.NoError(t, w.Close())
	return w.FormDataContentType(), &buf
}

func TestRegisterDuplicateEmail(t *testing.T) {
	h, st, _ := newTestHandlers(t)
	srv := httptest.NewServer(h.Routes())
	defer srv.Close()

	client := newClient(t)
	registerAndLogin(t, client, srv.URL, "alice", "alice@example.com")

	resp, err := newClient(t).PostForm(srv.URL+"/register", url.Values{
		"name":               {"alice2"},
		"email":              {"alice@example.com"},
		"password":           {"password123"},
		"confirmed_password": {"password123"},
	})
	require.NoError(t, err)
	resp.Body.Close()

	taken, err := st.NameTaken("alice2", 0)
	require.NoError(t, err)
	assert.False(t, taken, "second registration with a taken email must not create a user")
}

func TestCategoryCascadeEndToEnd(t *testing.T) {
	h, st, staticDir := newTestHandlers(t)
	srv := httptest.NewServer(h.Routes())
	defer srv.Close()

	client := newClient(t)
	registerAndLogin(t, client, srv.URL, "alice", "alice@example.com")

	// Create category "Work".
	resp, err := client.PostForm(srv.URL+"/new_category", url.Values{"category_name": {"Work"}})
	require.NoError(t, err)
	resp.Body.Close()

	user, err := st.GetUserByEmail("alice@example.com")
	require.NoError(t, err)
	cats, _, err := st.ListCategories(user.ID, 1, 6)
	require.NoError(t, err)
	require.Len(t, cats, 1)
	catID := cats[0].ID

	// Add note "Plan" with one oversized image.
	ctype, body := notePayload(t, "Plan", "quarterly planning", 600, 600)
	resp, err = client.Post(srv.URL+"/new_category_note/"+strconv.Itoa(catID), ctype, body)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// The image landed on disk, downscaled into the 400x400 box.
	picDir := filepath.Join(staticDir, "note_pictures")
	entries, err := os.ReadDir(picDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	f, err := os.Open(filepath.Join(picDir, entries[0].Name()))
	require.NoError(t, err)
	img, _, err := image.Decode(f)
	f.Close()
	require.NoError(t, err)
	assert.LessOrEqual(t, img.Bounds().Dx(), 400)
	assert.LessOrEqual(t, img.Bounds().Dy(), 400)

	// Delete the category: notes, pictures and files must all go.
	resp, err = client.Get(srv.URL + "/delete_category/" + strconv.Itoa(catID))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	_, total, err := st.ListCategories(user.ID, 1, 6)
	require.NoError(t, err)
	assert.Zero(t, total)
	_, total, err = st.ListNotes(user.ID, 1, 6)
	require.NoError(t, err)
	assert.Zero(t, total)

	entries, err = os.ReadDir(picDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "backing image files must be removed")
}

func TestDeleteNoteWithMissingFile(t *testing.T) {
	h, st, _ := newTestHandlers(t)
	srv := httptest.NewServer(h.Routes())
	defer srv.Close()

	client := newClient(t)
	registerAndLogin(t, client, srv.URL, "alice", "alice@example.com")

	user, err := st.GetUserByEmail("alice@example.com")
	require.NoError(t, err)
	noteID, err := st.CreateNote(user.ID, 0, "Plan", "body")
	require.NoError(t, err)
	// Picture row without a backing file.
	_, err = st.CreatePicture(noteID, user.ID, "ghost.png")
	require.NoError(t, err)

	resp, err := client.Get(srv.URL + "/delete_note/" + strconv.Itoa(noteID))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	_, err = st.GetNote(noteID, user.ID)
	assert.Error(t, err, "note row must be gone despite the missing file")
	pics, err := st.ListPictures(noteID, user.ID)
	require.NoError(t, err)
	assert.Empty(t, pics)
}

func TestCrossUserNoteIsNotFound(t *testing.T) {
	h, st, _ := newTestHandlers(t)
	srv := httptest.NewServer(h.Routes())
	defer srv.Close()

	alice := newClient(t)
	registerAndLogin(t, alice, srv.URL, "alice", "alice@example.com")
	bob := newClient(t)
	registerAndLogin(t, bob, srv.URL, "bob", "bob@example.com")

	user, err := st.GetUserByEmail("alice@example.com")
	require.NoError(t, err)
	noteID, err := st.CreateNote(user.ID, 0, "Secret", "alice only")
	require.NoError(t, err)

	resp, err := bob.Get(srv.URL + "/note/" + strconv.Itoa(noteID))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = alice.Get(srv.URL + "/note/" + strconv.Itoa(noteID))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestLoginBadCredentials(t *testing.T) {
	h, _, _ := newTestHandlers(t)
	srv := httptest.NewServer(h.Routes())
	defer srv.Close()

	client := newClient(t)
	registerAndLogin(t, client, srv.URL, "alice", "alice@example.com")

	fresh := newClient(t)
	resp, err := fresh.PostForm(srv.URL+"/login", url.Values{
		"email":    {"alice@example.com"},
		"password": {"wrong"},
	})
	require.NoError(t, err)
	resp.Body.Close()
	// Bounced back to the login page, not into the account.
	assert.Equal(t, "/login", resp.Request.URL.Path)

	resp2, err := fresh.Get(srv.URL + "/my_categories")
	require.NoError(t, err)
	resp2.Body.Close()
	assert.Equal(t, "/login", resp2.Request.URL.Path)
}

func TestPasswordResetFlow(t *testing.T) {
	h, st, _ := newTestHandlers(t)
	srv := httptest.NewServer(h.Routes())
	defer srv.Close()

	client := newClient(t)
	registerAndLogin(t, client, srv.URL, "alice", "alice@example.com")

	// Unknown email bounces back to the request form.
	fresh := newClient(t)
	resp, err := fresh.PostForm(srv.URL+"/reset_password", url.Values{"email": {"nobody@example.com"}})
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "/reset_password", resp.Request.URL.Path)

	user, err := st.GetUserByEmail("alice@example.com")
	require.NoError(t, err)
	token, err := auth.NewResetToken([]byte("test-secret"), user.ID, 30*time.Minute)
	require.NoError(t, err)

	resp, err = fresh.PostForm(srv.URL+"/reset_password/"+token, url.Values{
		"password":           {"newpassword"},
		"confirmed_password": {"newpassword"},
	})
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "/login", resp.Request.URL.Path)

	// The new password works, the old one does not.
	updated, err := st.GetUserByEmail("alice@example.com")
	require.NoError(t, err)
	assert.True(t, auth.CheckPassword(updated.PasswordHash, "newpassword"))
	assert.False(t, auth.CheckPassword(updated.PasswordHash, "password123"))

	// A tampered token bounces back to the request form.
	resp, err = fresh.Get(srv.URL + "/reset_password/" + token + "x")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "/reset_password", resp.Request.URL.Path)
}

func TestUnauthenticatedRedirect(t *testing.T) {
	h, _, _ := newTestHandlers(t)
	srv := httptest.NewServer(h.Routes())
	defer srv.Close()

	resp, err := newClient(t).Get(srv.URL + "/my_notes")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "/login", resp.Request.URL.Path)
}
