package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"convertly/internal/config"
	"convertly/internal/convert"
	"convertly/internal/model"
	"convertly/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		UploadDir:         t.TempDir(),
		MaxFileSize:       100 << 20,
		MaxFileCount:      10,
		ConversionTimeout: time.Minute,
	}
}

func newTestRouter(t *testing.T, cfg *config.Config, dispatcher Converter) (http.Handler, repository.ConversionRepository) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	if dispatcher == nil {
		dispatcher = convert.NewDispatcher("", "")
	}
	repo := repository.NewMemory()
	h := NewHandler(cfg, repo, dispatcher, nil)

	r := gin.New()
	h.RegisterRoutes(r)
	return r, repo
}

type filePart struct {
	field   string
	name    string
	content []byte
}

func multipartBody(t *testing.T, settings string, files ...filePart) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for _, f := range files {
		part, err := w.CreateFormFile(f.field, f.name)
		require.NoError(t, err)
		_, err = part.Write(f.content)
		require.NoError(t, err)
	}
	if settings != "" {
		require.NoError(t, w.WriteField("settings", settings))
	}
	require.NoError(t, w.Close())

	return body, w.FormDataContentType()
}

func postConvert(t *testing.T, router http.Handler, settings string, files ...filePart) *httptest.ResponseRecorder {
	t.Helper()

	body, contentType := multipartBody(t, settings, files...)
	req := httptest.NewRequest(http.MethodPost, "/convert", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func repoCount(t *testing.T, repo repository.ConversionRepository) int {
	t.Helper()
	all, err := repo.List(context.Background(), 100)
	require.NoError(t, err)
	return len(all)
}

func TestConvertFallbackPassthrough(t *testing.T) {
	router, repo := newTestRouter(t, testConfig(t), nil)

	content := []byte("one kilobyte of nothing in particular")
	rec := postConvert(t, router, `{"outputFormat":"json","quality":"high"}`,
		filePart{field: "files", name: "notes.txt", content: content})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, content, rec.Body.Bytes())
	assert.Equal(t, `attachment; filename="converted.json"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "true", rec.Header().Get("X-Conversion-Fallback"))

	id := rec.Header().Get("X-Conversion-Id")
	require.NotEmpty(t, id)

	conv, err := repo.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, conv.Status)
	assert.Equal(t, "notes.txt", conv.FileName)
	assert.Equal(t, "txt", conv.OriginalFormat)
	assert.Equal(t, "json", conv.TargetFormat)
	require.NotNil(t, conv.CompletedAt)
}

func TestConvertNoFiles(t *testing.T) {
	router, repo := newTestRouter(t, testConfig(t), nil)

	rec := postConvert(t, router, `{"outputFormat":"json"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "No files provided")
	assert.Zero(t, repoCount(t, repo))
}

func TestConvertInvalidQuality(t *testing.T) {
	router, repo := newTestRouter(t, testConfig(t), nil)

	rec := postConvert(t, router, `{"outputFormat":"mp4","quality":"bogus"}`,
		filePart{field: "files", name: "clip.mov", content: []byte("data")})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "quality")
	assert.Zero(t, repoCount(t, repo))
}

func TestConvertMalformedSettings(t *testing.T) {
	router, repo := newTestRouter(t, testConfig(t), nil)

	rec := postConvert(t, router, `{{{`,
		filePart{field: "files", name: "notes.txt", content: []byte("data")})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid conversion settings")
	assert.Zero(t, repoCount(t, repo))
}

func TestConvertFileTooLarge(t *testing.T) {
	cfg := testConfig(t)
	cfg.MaxFileSize = 16
	router, repo := newTestRouter(t, cfg, nil)

	rec := postConvert(t, router, `{"outputFormat":"json"}`,
		filePart{field: "files", name: "big.txt", content: bytes.Repeat([]byte("x"), 64)})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "limit")
	assert.Zero(t, repoCount(t, repo))
}

func TestConvertLaterFileTooLarge(t *testing.T) {
	cfg := testConfig(t)
	cfg.MaxFileSize = 16
	router, repo := newTestRouter(t, cfg, nil)

	rec := postConvert(t, router, `{"outputFormat":"json"}`,
		filePart{field: "files", name: "tiny.txt", content: []byte("ok")},
		filePart{field: "files", name: "big.txt", content: bytes.Repeat([]byte("x"), 1024)})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "limit")
	assert.Zero(t, repoCount(t, repo))
}

func TestConvertTooManyFiles(t *testing.T) {
	cfg := testConfig(t)
	cfg.MaxFileCount = 2
	router, repo := newTestRouter(t, cfg, nil)

	rec := postConvert(t, router, `{"outputFormat":"json"}`,
		filePart{field: "files", name: "a.txt", content: []byte("a")},
		filePart{field: "files", name: "b.txt", content: []byte("b")},
		filePart{field: "files", name: "c.txt", content: []byte("c")})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "too many files")
	assert.Zero(t, repoCount(t, repo))
}

func TestConvertUnsupportedType(t *testing.T) {
	router, repo := newTestRouter(t, testConfig(t), nil)

	rec := postConvert(t, router, `{"outputFormat":"json"}`,
		filePart{field: "files", name: "setup.exe", content: []byte("MZ")})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unsupported file type")
	assert.Zero(t, repoCount(t, repo))
}

func TestConvertFirstFileOnly(t *testing.T) {
	router, _ := newTestRouter(t, testConfig(t), nil)

	first := []byte("first file wins")
	rec := postConvert(t, router, `{"outputFormat":"json"}`,
		filePart{field: "files", name: "one.txt", content: first},
		filePart{field: "files", name: "two.txt", content: []byte("second file ignored")})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, first, rec.Body.Bytes())
}

type failingConverter struct{}

func (failingConverter) Convert(ctx context.Context, inputPath string, settings model.ConversionSettings) (convert.Result, error) {
	return convert.Result{}, errors.New("filesystem exploded")
}

func TestConvertDispatchFailureMarksFailed(t *testing.T) {
	router, repo := newTestRouter(t, testConfig(t), failingConverter{})

	rec := postConvert(t, router, `{"outputFormat":"json"}`,
		filePart{field: "files", name: "notes.txt", content: []byte("data")})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Conversion failed"}`, rec.Body.String())

	all, err := repo.List(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, model.StatusFailed, all[0].Status)
	assert.Nil(t, all[0].CompletedAt)
}

type vanishingOutputConverter struct {
	dir string
}

func (v vanishingOutputConverter) Convert(ctx context.Context, inputPath string, settings model.ConversionSettings) (convert.Result, error) {
	return convert.Result{OutputPath: filepath.Join(v.dir, "gone.json"), Strategy: "fallback"}, nil
}

func TestConvertMissingOutputMarksFailed(t *testing.T) {
	cfg := testConfig(t)
	router, repo := newTestRouter(t, cfg, vanishingOutputConverter{dir: cfg.UploadDir})

	rec := postConvert(t, router, `{"outputFormat":"json"}`,
		filePart{field: "files", name: "notes.txt", content: []byte("data")})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Conversion failed"}`, rec.Body.String())

	all, err := repo.List(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, model.StatusFailed, all[0].Status)
	assert.Nil(t, all[0].CompletedAt)
}

// ctxBoundRepo refuses writes once the supplied context is done, the way
// the postgres and redis stores do.
type ctxBoundRepo struct {
	repository.ConversionRepository
}

func (r ctxBoundRepo) Update(ctx context.Context, id string, upd repository.ConversionUpdate) (*model.Conversion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.ConversionRepository.Update(ctx, id, upd)
}

type disconnectingConverter struct {
	cancel context.CancelFunc
}

func (d disconnectingConverter) Convert(ctx context.Context, inputPath string, settings model.ConversionSettings) (convert.Result, error) {
	d.cancel()
	return convert.Result{}, errors.New("stream interrupted")
}

func TestConvertClientDisconnectStillMarksFailed(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cfg := testConfig(t)
	repo := ctxBoundRepo{repository.NewMemory()}

	reqCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := NewHandler(cfg, repo, disconnectingConverter{cancel: cancel}, nil)
	router := gin.New()
	h.RegisterRoutes(router)

	body, contentType := multipartBody(t, `{"outputFormat":"json"}`,
		filePart{field: "files", name: "notes.txt", content: []byte("data")})
	req := httptest.NewRequest(http.MethodPost, "/convert", body).WithContext(reqCtx)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	all, err := repo.List(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, model.StatusFailed, all[0].Status)
}

func TestGetConversionUnknown(t *testing.T) {
	router, _ := newTestRouter(t, testConfig(t), nil)

	req := httptest.NewRequest(http.MethodGet, "/conversions/unknown-id", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Conversion not found"}`, rec.Body.String())
}

func TestGetConversionIdempotent(t *testing.T) {
	router, _ := newTestRouter(t, testConfig(t), nil)

	rec := postConvert(t, router, `{"outputFormat":"json"}`,
		filePart{field: "files", name: "notes.txt", content: []byte("data")})
	require.Equal(t, http.StatusOK, rec.Code)
	id := rec.Header().Get("X-Conversion-Id")

	get := func() string {
		req := httptest.NewRequest(http.MethodGet, "/conversions/"+id, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		return rec.Body.String()
	}

	first := get()
	second := get()
	assert.JSONEq(t, first, second)

	var conv model.Conversion
	require.NoError(t, json.Unmarshal([]byte(first), &conv))
	assert.Equal(t, model.StatusCompleted, conv.Status)
	assert.NotNil(t, conv.CompletedAt)
	assert.Equal(t, "json", conv.Settings.OutputFormat)
}

func TestListConversions(t *testing.T) {
	router, _ := newTestRouter(t, testConfig(t), nil)

	rec := postConvert(t, router, `{"outputFormat":"json"}`,
		filePart{field: "files", name: "notes.txt", content: []byte("data")})
	require.Equal(t, http.StatusOK, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/conversions", nil)
	listRec := httptest.NewRecorder()
	router.ServeHTTP(listRec, req)

	require.Equal(t, http.StatusOK, listRec.Code)

	var resp struct {
		Items []model.Conversion `json:"items"`
		Count int                `json:"count"`
	}
	require.NoError(t, json.Unmarshal(listRec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "notes.txt", resp.Items[0].FileName)
}

func TestHealthCheck(t *testing.T) {
	router, _ := newTestRouter(t, testConfig(t), nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}
