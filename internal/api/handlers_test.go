package api

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/marmos91/dittodrive/internal/auth"
	"github.com/marmos91/dittodrive/pkg/hierarchy"
	"github.com/marmos91/dittodrive/pkg/metadata/memory"
	"github.com/marmos91/dittodrive/pkg/physical/fs"
)

var testJWTSecret = []byte("test-secret")

// newTestRouter wires a full API over in-memory metadata and a temp-dir
// filesystem store, with users alice and bob provisioned.
func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	phys, err := fs.NewFSStore(t.Context(), t.TempDir())
	require.NoError(t, err)
	meta := memory.NewMemoryStore()
	t.Cleanup(func() {
		_ = meta.Close()
		_ = phys.Close()
	})

	hash, err := auth.HashPassword("s3cret")
	require.NoError(t, err)

	return SetupRouter(RouterConfig{
		Service: hierarchy.NewService(meta, phys, zap.NewNop()),
		Registry: auth.NewRegistry([]auth.User{
			{ID: "alice", Username: "alice", PasswordHash: hash},
			{ID: "bob", Username: "bob", PasswordHash: hash},
		}),
		JWTSecret: testJWTSecret,
		TokenTTL:  time.Hour,
		Logger:    zap.NewNop(),
	})
}

// login fetches a token for the given user through the real endpoint.
func login(t *testing.T, router *gin.Engine, username string) string {
	t.Helper()

	body, _ := json.Marshal(gin.H{"username": username, "password": "s3cret"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func doJSON(router *gin.Engine, method, url, token string, payload any) *httptest.ResponseRecorder {
	var body io.Reader
	if payload != nil {
		b, _ := json.Marshal(payload)
		body = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, url, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// upload posts a multipart file and returns the response recorder.
func upload(t *testing.T, router *gin.Engine, token, name, folderPath, content string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("path", folderPath))
	part, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/files/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// uploadedID extracts the node id from a successful upload response.
func uploadedID(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()

	var resp struct {
		File struct {
			ID string `json:"id"`
		} `json:"file"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.File.ID)
	return resp.File.ID
}

func TestLogin_WrongPassword(t *testing.T) {
	router := newTestRouter(t)

	body, _ := json.Marshal(gin.H{"username": "alice", "password": "wrong"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestFiles_RequireToken(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(router, http.MethodGet, "/api/files", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(router, http.MethodGet, "/api/files", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUploadDownloadRoundTrip(t *testing.T) {
	router := newTestRouter(t)
	token := login(t, router, "alice")

	w := upload(t, router, token, "report.txt", "docs/2026", "quarterly numbers")
	require.Equal(t, http.StatusOK, w.Code)
	id := uploadedID(t, w)

	w = doJSON(router, http.MethodGet, "/api/files/"+id+"/download", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "quarterly numbers", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "report.txt")
}

func TestUpload_DuplicateName(t *testing.T) {
	router := newTestRouter(t)
	token := login(t, router, "alice")

	w := upload(t, router, token, "report.txt", "docs", "v1")
	require.Equal(t, http.StatusOK, w.Code)

	w = upload(t, router, token, "report.txt", "docs", "v2")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestListFiles(t *testing.T) {
	router := newTestRouter(t)
	token := login(t, router, "alice")

	w := doJSON(router, http.MethodGet, "/api/files", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Total)

	w = upload(t, router, token, "report.txt", "docs", "data")
	require.Equal(t, http.StatusOK, w.Code)

	// The folder and the file.
	w = doJSON(router, http.MethodGet, "/api/files", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Total)
}

func TestCreatePath(t *testing.T) {
	router := newTestRouter(t)
	token := login(t, router, "alice")

	w := doJSON(router, http.MethodPost, "/api/files/path", token, gin.H{"path": "docs/2026/q1"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Folder struct {
			Name string `json:"name"`
			Kind string `json:"kind"`
		} `json:"folder"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "q1", resp.Folder.Name)
	assert.Equal(t, "folder", resp.Folder.Kind)
}

func TestCreatePath_Invalid(t *testing.T) {
	router := newTestRouter(t)
	token := login(t, router, "alice")

	w := doJSON(router, http.MethodPost, "/api/files/path", token, gin.H{"path": "docs/../etc"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDownload_ForeignOwnerLooksMissing(t *testing.T) {
	router := newTestRouter(t)
	aliceToken := login(t, router, "alice")
	bobToken := login(t, router, "bob")

	w := upload(t, router, aliceToken, "secret.txt", "", "alice's bytes")
	require.Equal(t, http.StatusOK, w.Code)
	id := uploadedID(t, w)

	// Bob probing alice's id gets the same 404 as a missing node.
	w = doJSON(router, http.MethodGet, "/api/files/"+id+"/download", bobToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(router, http.MethodGet, "/api/files/no-such-id/download", bobToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteFile(t *testing.T) {
	router := newTestRouter(t)
	token := login(t, router, "alice")

	w := upload(t, router, token, "report.txt", "docs", "data")
	require.Equal(t, http.StatusOK, w.Code)
	id := uploadedID(t, w)

	w = doJSON(router, http.MethodDelete, "/api/files/"+id, token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Removed int `json:"removed"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Removed)

	// Idempotent: deleting again succeeds with nothing removed.
	w = doJSON(router, http.MethodDelete, "/api/files/"+id, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Removed)
}

func TestDelete_ForeignOwnerLooksMissing(t *testing.T) {
	router := newTestRouter(t)
	aliceToken := login(t, router, "alice")
	bobToken := login(t, router, "bob")

	w := upload(t, router, aliceToken, "secret.txt", "", "data")
	require.Equal(t, http.StatusOK, w.Code)
	id := uploadedID(t, w)

	w = doJSON(router, http.MethodDelete, "/api/files/"+id, bobToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Alice still sees her file.
	w = doJSON(router, http.MethodGet, "/api/files/"+id+"/download", aliceToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
