package api

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/image-browser/config"
	"github.com/example/image-browser/storage"
)

const (
	testUser     = "admin"
	testPassword = "secret"
)

func testConfig() *config.Config {
	return &config.Config{
		Server:  config.ServerConfig{Port: 8080, PublicURL: "https://img.example.com"},
		Storage: config.StorageConfig{Type: "memory", Bucket: "images"},
		Auth: config.AuthConfig{
			Username: testUser,
			Password: testPassword,
			Realm:    "R2 Image Browser",
		},
		Limits: config.LimitsConfig{
			MaxPathLength:  1024,
			MaxUploadSize:  10 << 20,
			BatchSize:      50,
			MaxListObjects: 50000,
			PageSize:       1000,
			RenameAttempts: 1000,
			ReportCap:      100,
		},
		Upload:  config.UploadConfig{DefaultConflictPolicy: "rename"},
		Log:     config.LogConfig{Level: "info", Format: "json"},
		Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"},
	}
}

type testServer struct {
	server *Server
	store  *storage.MemoryStorage
}

func newTestServer(t *testing.T, mutate ...func(*config.Config)) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := testConfig()
	for _, m := range mutate {
		m(cfg)
	}
	store := storage.NewMemoryStorage()
	return &testServer{server: NewServerWithStorage(cfg, store), store: store}
}

func (ts *testServer) seed(t *testing.T, key, content string) {
	t.Helper()
	require.NoError(t, ts.store.Put(context.Background(), key, strings.NewReader(content), int64(len(content)),
		storage.PutOptions{ContentType: "image/png"}))
}

func (ts *testServer) do(t *testing.T, method, target string, body io.Reader, contentType string, auth bool) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if auth {
		req.SetBasicAuth(testUser, testPassword)
	}
	w := httptest.NewRecorder()
	ts.server.Handler().ServeHTTP(w, req)
	return w
}

func (ts *testServer) doJSON(t *testing.T, method, target string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	return ts.do(t, method, target, body, "application/json", true)
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

type formFile struct {
	field       string
	name        string
	contentType string
	content     string
}

func multipartBody(t *testing.T, fields map[string]string, files []formFile) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, f.field, f.name))
		h.Set("Content-Type", f.contentType)
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write([]byte(f.content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(t, http.MethodGet, "/health", nil, "", false)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "memory", body["storage"])
}

func TestAdminRequiresBasicAuth(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/api/admin/stats", nil, "", false)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, `Basic realm="R2 Image Browser"`, w.Header().Get("WWW-Authenticate"))
	body := decode(t, w)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Authentication required", body["error"])

	req := httptest.NewRequest(http.MethodGet, "/api/admin/stats", nil)
	req.SetBasicAuth(testUser, "wrong")
	w = httptest.NewRecorder()
	ts.server.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.do(t, http.MethodGet, "/api/admin/stats", nil, "", true)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestReadsProtectedOnlyWhenConfigured(t *testing.T) {
	open := newTestServer(t)
	assert.Equal(t, http.StatusOK, open.do(t, http.MethodGet, "/api/folders", nil, "", false).Code)

	protected := newTestServer(t, func(c *config.Config) { c.Auth.ProtectReads = true })
	assert.Equal(t, http.StatusUnauthorized, protected.do(t, http.MethodGet, "/api/folders", nil, "", false).Code)
	assert.Equal(t, http.StatusUnauthorized, protected.do(t, http.MethodGet, "/api/images?folder=a", nil, "", false).Code)
	assert.Equal(t, http.StatusOK, protected.do(t, http.MethodGet, "/api/folders", nil, "", true).Code)
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/admin/folders/move", nil)
	req.Header.Set("Origin", "https://browser.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPut)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type, Authorization")
	w := httptest.NewRecorder()
	ts.server.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Authorization")
}

func TestCreateAndListFolders(t *testing.T) {
	ts := newTestServer(t)

	w := ts.doJSON(t, http.MethodPost, "/api/admin/folders", map[string]string{"name": "photos"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "photos", decode(t, w)["folder"])

	w = ts.doJSON(t, http.MethodPost, "/api/admin/folders", map[string]string{"name": "photos"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Folder already exists", decode(t, w)["error"])

	w = ts.doJSON(t, http.MethodPost, "/api/admin/folders", map[string]string{"name": "bad name"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	ts.seed(t, "archive/old.png", "x")
	ts.seed(t, ".thumb/old.png", "x")
	ts.seed(t, "root.png", "xyz")

	w = ts.do(t, http.MethodGet, "/api/folders?include_files=true", nil, "", false)
	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].(map[string]interface{})

	folders := data["folders"].([]interface{})
	require.Len(t, folders, 2)
	assert.Equal(t, "archive", folders[0].(map[string]interface{})["path"])
	assert.Equal(t, "photos", folders[1].(map[string]interface{})["path"])

	files := data["files"].([]interface{})
	require.Len(t, files, 1)
	assert.Equal(t, "https://img.example.com/root.png", files[0].(map[string]interface{})["url"])

	pagination := data["pagination"].(map[string]interface{})
	assert.Equal(t, false, pagination["hasMore"])
}

func TestListFoldersCursorPagination(t *testing.T) {
	ts := newTestServer(t)
	for _, name := range []string{"a", "b", "c"} {
		ts.seed(t, name+"/img.png", "x")
	}

	w := ts.do(t, http.MethodGet, "/api/folders?limit=2", nil, "", false)
	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].(map[string]interface{})
	assert.Len(t, data["folders"], 2)
	pagination := data["pagination"].(map[string]interface{})
	require.Equal(t, true, pagination["hasMore"])
	cursor := pagination["cursor"].(string)
	require.NotEmpty(t, cursor)

	w = ts.do(t, http.MethodGet, "/api/folders?limit=2&cursor="+cursor, nil, "", false)
	require.Equal(t, http.StatusOK, w.Code)
	data = decode(t, w)["data"].(map[string]interface{})
	folders := data["folders"].([]interface{})
	require.Len(t, folders, 1)
	assert.Equal(t, "c", folders[0].(map[string]interface{})["path"])
}

func TestListFoldersDepth(t *testing.T) {
	ts := newTestServer(t)
	ts.seed(t, "a/b/c/file.jpg", strings.Repeat("x", 100))
	ts.seed(t, "a/b/d/file2.png", strings.Repeat("y", 200))

	w := ts.do(t, http.MethodGet, "/api/folders?path=a&depth=2&include_files=true&include_previews=true", nil, "", false)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data := decode(t, w)["data"].(map[string]interface{})

	folders := data["folders"].([]interface{})
	require.Len(t, folders, 1)
	b := folders[0].(map[string]interface{})
	assert.Equal(t, "a/b", b["path"])
	assert.Equal(t, float64(2), b["fileCount"])
	assert.Equal(t, float64(300), b["totalSize"])
	assert.Len(t, b["previews"], 2)
	assert.Empty(t, data["files"])

	pagination := data["pagination"].(map[string]interface{})
	assert.Equal(t, float64(1), pagination["total"])
	assert.Equal(t, false, pagination["hasMore"])
	assert.Equal(t, false, pagination["truncated"])
}

func TestListFoldersValidation(t *testing.T) {
	ts := newTestServer(t)

	for _, target := range []string{
		"/api/folders?depth=0",
		"/api/folders?depth=11",
		"/api/folders?depth=two",
		"/api/folders?path=../etc",
		"/api/folders?path=a//b",
	} {
		w := ts.do(t, http.MethodGet, target, nil, "", false)
		assert.Equal(t, http.StatusBadRequest, w.Code, target)
		assert.Equal(t, false, decode(t, w)["success"])
	}

	w := ts.do(t, http.MethodGet, "/api/folders?path=a//b", nil, "", false)
	assert.Equal(t, "Double slashes not allowed", decode(t, w)["error"])
}

func TestListImages(t *testing.T) {
	ts := newTestServer(t)
	ts.seed(t, "icons/a.png", "aa")
	ts.seed(t, "icons/b.svg", "bbb")
	ts.seed(t, "icons/readme.txt", "t")
	ts.seed(t, "icons/.folder-placeholder", "")
	ts.seed(t, "icons/.thumb/a.png", "a")
	ts.seed(t, "icons/nested/c.png", "c")

	w := ts.do(t, http.MethodGet, "/api/images", nil, "", false)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode(t, w)["images"])

	w = ts.do(t, http.MethodGet, "/api/images?folder=icons", nil, "", false)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	images := body["images"].([]interface{})
	require.Len(t, images, 2)
	first := images[0].(map[string]interface{})
	assert.Equal(t, "icons/a.png", first["key"])
	assert.Equal(t, "a.png", first["name"])
	assert.Equal(t, float64(2), first["size"])
	assert.Equal(t, "https://img.example.com/icons/a.png", first["url"])
}

func TestUploadBatch(t *testing.T) {
	ts := newTestServer(t)
	body, contentType := multipartBody(t, map[string]string{
		"targetPath":         "gallery",
		"folderStructure":    `{"two.jpg":"2024/two.jpg"}`,
		"conflictResolution": "rename",
	}, []formFile{
		{field: "files", name: "one.png", contentType: "image/png", content: "1"},
		{field: "files", name: "two.jpg", contentType: "image/jpeg", content: "22"},
		{field: "files", name: "evil.png", contentType: "application/x-executable", content: "bad"},
	})

	w := ts.do(t, http.MethodPost, "/api/admin/upload/batch", body, contentType, true)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data := decode(t, w)["data"].(map[string]interface{})
	summary := data["summary"].(map[string]interface{})
	assert.Equal(t, float64(3), summary["totalFiles"])
	assert.Equal(t, float64(2), summary["successfulUploads"])
	assert.Equal(t, float64(1), summary["failedUploads"])
	assert.NotEmpty(t, data["batchId"])

	var images []string
	for _, k := range ts.store.Keys() {
		if !strings.HasSuffix(k, ".folder-placeholder") {
			images = append(images, k)
		}
	}
	assert.Equal(t, []string{"gallery/2024/two.jpg", "gallery/one.png"}, images)

	// A second identical upload is renamed rather than overwritten
	body, contentType = multipartBody(t, map[string]string{"targetPath": "gallery"}, []formFile{
		{field: "files[]", name: "one.png", contentType: "image/png", content: "1"},
	})
	w = ts.do(t, http.MethodPost, "/api/admin/upload/batch", body, contentType, true)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	results := decode(t, w)["data"].(map[string]interface{})["results"].([]interface{})
	require.Len(t, results, 1)
	assert.Equal(t, "gallery/one-1.png", results[0].(map[string]interface{})["finalPath"])
}

func TestUploadBatchAllFailed(t *testing.T) {
	ts := newTestServer(t)
	body, contentType := multipartBody(t, map[string]string{"targetPath": "gallery"}, []formFile{
		{field: "files", name: "evil.png", contentType: "application/x-executable", content: "bad"},
	})

	w := ts.do(t, http.MethodPost, "/api/admin/upload/batch", body, contentType, true)
	require.Equal(t, http.StatusInternalServerError, w.Code, w.Body.String())
	resp := decode(t, w)
	assert.Equal(t, false, resp["success"])
	assert.Equal(t, "Upload failed for all 1 files", resp["error"])
	summary := resp["data"].(map[string]interface{})["summary"].(map[string]interface{})
	assert.Equal(t, float64(1), summary["totalFiles"])
	assert.Equal(t, float64(1), summary["failedUploads"])
	assert.Zero(t, ts.store.Len())
}

func TestUploadBatchRejectsBadInput(t *testing.T) {
	ts := newTestServer(t)

	body, contentType := multipartBody(t, map[string]string{"folderStructure": "{not json"}, []formFile{
		{field: "files", name: "one.png", contentType: "image/png", content: "1"},
	})
	w := ts.do(t, http.MethodPost, "/api/admin/upload/batch", body, contentType, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid folder structure JSON", decode(t, w)["error"])

	body, contentType = multipartBody(t, map[string]string{"conflictResolution": "merge"}, []formFile{
		{field: "files", name: "one.png", contentType: "image/png", content: "1"},
	})
	w = ts.do(t, http.MethodPost, "/api/admin/upload/batch", body, contentType, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.doJSON(t, http.MethodPost, "/api/admin/upload/batch", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, ts.store.Len())
}

func TestUploadSimpleOverwrites(t *testing.T) {
	ts := newTestServer(t)
	ts.seed(t, "icons/logo.png", "old")

	body, contentType := multipartBody(t, map[string]string{"folder": "icons"}, []formFile{
		{field: "files", name: "logo.png", contentType: "image/png", content: "new!"},
		{field: "files", name: "notes.txt", contentType: "text/plain", content: "n"},
	})
	w := ts.do(t, http.MethodPost, "/api/admin/upload", body, contentType, true)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	results := decode(t, w)["results"].([]interface{})
	require.Len(t, results, 2)
	ok := results[0].(map[string]interface{})
	assert.Equal(t, true, ok["success"])
	assert.Equal(t, "icons/logo.png", ok["key"])
	bad := results[1].(map[string]interface{})
	assert.Equal(t, false, bad["success"])
	assert.Equal(t, "Invalid file type. Only images are allowed.", bad["error"])

	info, err := ts.store.Head(context.Background(), "icons/logo.png")
	require.NoError(t, err)
	assert.Equal(t, int64(4), info.Size)
}

func TestNestedMoveRenameDelete(t *testing.T) {
	ts := newTestServer(t)

	w := ts.doJSON(t, http.MethodPost, "/api/admin/folders/nested", map[string]interface{}{
		"path": "a/b/c", "createParents": true,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, []interface{}{"a", "a/b", "a/b/c"}, decode(t, w)["created"])

	ts.seed(t, "a/b/c/pic.png", "12345")

	w = ts.doJSON(t, http.MethodPut, "/api/admin/folders/move", map[string]interface{}{
		"source": "a/b", "targetPath": "z/b", "createParents": true,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	report := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, float64(1), report["movedFiles"])
	assert.Equal(t, float64(0), report["failed"])
	assert.Equal(t, float64(5), report["totalSize"])

	_, err := ts.store.Head(context.Background(), "z/b/c/pic.png")
	require.NoError(t, err)
	_, err = ts.store.Head(context.Background(), "a/b/c/pic.png")
	assert.True(t, storage.IsNotFound(err))

	w = ts.doJSON(t, http.MethodPut, "/api/admin/folders/move", map[string]interface{}{
		"sourcePath": "missing", "targetPath": "elsewhere",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.doJSON(t, http.MethodPut, "/api/admin/folders/z", map[string]string{"name": "y"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	_, err = ts.store.Head(context.Background(), "y/b/c/pic.png")
	require.NoError(t, err)

	w = ts.doJSON(t, http.MethodDelete, "/api/admin/folders/recursive", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.doJSON(t, http.MethodDelete, "/api/admin/folders/recursive?path=y/b", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	report = decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, float64(1), report["deletedFiles"])

	w = ts.doJSON(t, http.MethodDelete, "/api/admin/folders/a", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = ts.doJSON(t, http.MethodDelete, "/api/admin/folders/a", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Folder not found", decode(t, w)["error"])
}

func TestStats(t *testing.T) {
	ts := newTestServer(t)
	ts.seed(t, "a/one.png", "12")
	ts.seed(t, "a/b/two.jpg", "345")
	ts.seed(t, "a/.folder-placeholder", "")

	w := ts.do(t, http.MethodGet, "/api/admin/stats", nil, "", true)
	require.Equal(t, http.StatusOK, w.Code)
	stats := decode(t, w)["stats"].(map[string]interface{})
	assert.Equal(t, float64(2), stats["totalFiles"])
	assert.Equal(t, float64(5), stats["totalSize"])
	assert.Equal(t, float64(2), stats["folderCount"])
	assert.Equal(t, map[string]interface{}{"png": float64(1), "jpg": float64(1)}, stats["fileTypes"])
	assert.Equal(t, false, stats["truncated"])
}

func TestComputeStatsExcludesPrefixes(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	objects := []storage.ObjectInfo{
		{Key: "a/x.png", Size: 1 << 20},
		{Key: "a/.thumb/x.png", Size: 10},
		{Key: ".thumb/y.png", Size: 10},
		{Key: "b/readme", Size: 1},
	}

	all := computeStats(objects, nil, now)
	assert.Equal(t, 4, all.TotalFiles)
	assert.Equal(t, map[string]int{"png": 3, "unknown": 1}, all.FileTypes)
	assert.Equal(t, "2024-05-01T12:00:00Z", all.LastUpdated)

	filtered := computeStats(objects, []string{".thumb/"}, now)
	assert.Equal(t, 2, filtered.TotalFiles)
	assert.Equal(t, int64(1<<20+1), filtered.TotalSize)
	assert.Equal(t, 1.0, filtered.TotalSizeMB)
	assert.Equal(t, "1.0 MiB", filtered.TotalSizeHuman)
	assert.Equal(t, 2, filtered.FolderCount)
	assert.Equal(t, map[string]int{"png": 1, "unknown": 1}, filtered.FileTypes)
}

func TestServeFileAndDownloadFolder(t *testing.T) {
	ts := newTestServer(t, func(c *config.Config) { c.Server.PublicURL = "" })
	ts.seed(t, "gallery/my pic.png", "png-bytes")
	ts.seed(t, "gallery/sub/b.png", "b")
	ts.seed(t, "gallery/.folder-placeholder", "")

	w := ts.do(t, http.MethodGet, "/api/images?folder=gallery", nil, "", false)
	require.Equal(t, http.StatusOK, w.Code)
	images := decode(t, w)["images"].([]interface{})
	require.Len(t, images, 1)
	url := images[0].(map[string]interface{})["url"].(string)
	assert.Equal(t, "/files/gallery/my%20pic.png", url)

	w = ts.do(t, http.MethodGet, url, nil, "", false)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "png-bytes", w.Body.String())
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))

	w = ts.do(t, http.MethodGet, "/files/gallery/missing.png", nil, "", false)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(t, http.MethodGet, "/api/admin/folders/download?path=gallery", nil, "", true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/zip", w.Header().Get("Content-Type"))

	archive, err := zip.NewReader(bytes.NewReader(w.Body.Bytes()), int64(w.Body.Len()))
	require.NoError(t, err)
	var names []string
	for _, f := range archive.File {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"my pic.png", "sub/b.png"}, names)
}

func TestServeFileKeepsUploadedNames(t *testing.T) {
	ts := newTestServer(t, func(c *config.Config) { c.Server.PublicURL = "" })
	names := []string{"my..photo.png", "a:b.png", "what?.png"}
	var files []formFile
	for _, name := range names {
		files = append(files, formFile{field: "files", name: name, contentType: "image/png", content: "bytes of " + name})
	}
	body, contentType := multipartBody(t, map[string]string{"targetPath": "pics"}, files)

	w := ts.do(t, http.MethodPost, "/api/admin/upload/batch", body, contentType, true)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	results := decode(t, w)["data"].(map[string]interface{})["results"].([]interface{})
	require.Len(t, results, len(names))

	for i, r := range results {
		result := r.(map[string]interface{})
		require.Equal(t, "success", result["status"], names[i])
		w := ts.do(t, http.MethodGet, result["url"].(string), nil, "", false)
		require.Equal(t, http.StatusOK, w.Code, "%s: %s", names[i], w.Body.String())
		assert.Equal(t, "bytes of "+names[i], w.Body.String())
	}

	for _, target := range []string{"/files/pics/../secret.png", "/files/pics/%2e%2e/secret.png", "/files/"} {
		w := ts.do(t, http.MethodGet, target, nil, "", false)
		assert.NotEqual(t, http.StatusOK, w.Code, target)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodGet, "/api/folders", nil, "", false)

	w := ts.do(t, http.MethodGet, "/metrics", nil, "", false)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `image_browser_store_operations_total{operation="list",outcome="success"}`)

	disabled := newTestServer(t, func(c *config.Config) { c.Metrics.Enabled = false })
	assert.Equal(t, http.StatusNotFound, disabled.do(t, http.MethodGet, "/metrics", nil, "", false).Code)
}

func TestCreateStorage(t *testing.T) {
	cfg := testConfig()
	store, err := createStorage(cfg)
	require.NoError(t, err)
	assert.IsType(t, &storage.MemoryStorage{}, store)

	cfg.Storage.Type = "ftp"
	_, err = createStorage(cfg)
	assert.Error(t, err)
}
