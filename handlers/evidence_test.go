package handlers

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"milestone_dashboard/config"
	"milestone_dashboard/middleware"
	"milestone_dashboard/services"
)

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 64)...)

func multipartBody(t *testing.T, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for name, content := range files {
		part, err := w.CreateFormFile(EvidenceFormField, name)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestUploadPhotos(t *testing.T) {
	f := newFixture(t, Limits{UploadBody: "2M"})

	body, contentType := multipartBody(t, map[string][]byte{"site.png": pngBytes})
	rec := f.do(http.MethodPost, "/contractor/projects/3/milestones/7/photos", body, map[string]string{
		echo.HeaderContentType: contentType,
		"HX-Request":           "true",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	out := rec.Body.String()
	assert.Contains(t, out, `id="evidence-3-7"`)
	assert.Contains(t, out, "site.png")
	assert.Contains(t, out, `hx-swap-oob="beforeend:#toasts"`)
	assert.Contains(t, out, "Files Uploaded")
	assert.Contains(t, out, "1 file(s) attached to the milestone.")

	list := f.do(http.MethodGet, "/contractor/projects/3/milestones/7/evidence", nil, htmxHeaders)
	assert.Contains(t, list.Body.String(), "site.png")
	assert.Contains(t, list.Body.String(), `data-icon="camera"`)
}

func TestUploadRejectsWrongType(t *testing.T) {
	f := newFixture(t, Limits{})

	body, contentType := multipartBody(t, map[string][]byte{"notes.txt": []byte("plain text notes")})
	rec := f.do(http.MethodPost, "/contractor/projects/3/milestones/7/documents", body, map[string]string{
		echo.HeaderContentType: contentType,
		"HX-Request":           "true",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	out := rec.Body.String()
	assert.Contains(t, out, "toast-destructive")
	assert.Contains(t, out, "Could not upload:")
	assert.Contains(t, out, "No files uploaded yet.")
}

func TestUploadWithoutFiles(t *testing.T) {
	f := newFixture(t, Limits{})

	body, contentType := multipartBody(t, nil)
	rec := f.do(http.MethodPost, "/contractor/projects/3/milestones/7/photos", body, map[string]string{
		echo.HeaderContentType: contentType,
		"HX-Request":           "true",
	})

	assert.Contains(t, rec.Body.String(), "no files selected")
}

func TestUploadWithoutHTMXRedirects(t *testing.T) {
	f := newFixture(t, Limits{})

	body, contentType := multipartBody(t, map[string][]byte{"site.png": pngBytes})
	rec := f.do(http.MethodPost, "/contractor/projects/3/milestones/7/photos", body, map[string]string{
		echo.HeaderContentType: contentType,
	})

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/contractor", rec.Header().Get("Location"))
}

func TestEvidenceListEmpty(t *testing.T) {
	f := newFixture(t, Limits{})

	rec := f.do(http.MethodGet, "/contractor/projects/3/milestones/8/evidence", nil, htmxHeaders)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "No files uploaded yet.")
}

func TestUploadChecksMilestoneFirst(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		status  int
		message string
	}{
		{"Unknown milestone", "/contractor/projects/3/milestones/8/photos", http.StatusNotFound, "This milestone is not part of your projects."},
		{"Unknown project", "/contractor/projects/4/milestones/7/photos", http.StatusNotFound, "This milestone is not part of your projects."},
		{"Completed milestone", "/contractor/projects/3/milestones/6/photos", http.StatusConflict, "only be added while a milestone is in progress"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, Limits{})

			body, contentType := multipartBody(t, map[string][]byte{"site.png": pngBytes})
			rec := f.do(http.MethodPost, tt.path, body, map[string]string{
				echo.HeaderContentType: contentType,
				"HX-Request":           "true",
			})

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, "#toasts", rec.Header().Get("HX-Retarget"))
			assert.Contains(t, rec.Body.String(), "toast-destructive")
			assert.Contains(t, rec.Body.String(), tt.message)
			assert.NotContains(t, rec.Body.String(), "site.png")

			files, err := f.handler.evidence.List(t.Context(), 3, 8)
			require.NoError(t, err)
			assert.Empty(t, files)
		})
	}

	t.Run("Without htmx", func(t *testing.T) {
		f := newFixture(t, Limits{})

		body, contentType := multipartBody(t, map[string][]byte{"site.png": pngBytes})
		rec := f.do(http.MethodPost, "/contractor/projects/3/milestones/6/documents", body, map[string]string{
			echo.HeaderContentType: contentType,
		})

		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Contains(t, rec.Body.String(), "only be added while a milestone is in progress")
	})

	t.Run("Backend down", func(t *testing.T) {
		f := newFixture(t, Limits{})
		f.backend.fail("/contractor/projects")

		body, contentType := multipartBody(t, map[string][]byte{"site.png": pngBytes})
		rec := f.do(http.MethodPost, "/contractor/projects/3/milestones/7/photos", body, map[string]string{
			echo.HeaderContentType: contentType,
			"HX-Request":           "true",
		})

		assert.Equal(t, http.StatusBadGateway, rec.Code)
		assert.Contains(t, rec.Body.String(), "toast-destructive")
	})
}

func TestEvidenceFileIsServedAsDownload(t *testing.T) {
	f := newFixture(t, Limits{})

	body, contentType := multipartBody(t, map[string][]byte{"site.png": pngBytes})
	rec := f.do(http.MethodPost, "/contractor/projects/3/milestones/7/photos", body, map[string]string{
		echo.HeaderContentType: contentType,
		"HX-Request":           "true",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	files, err := f.handler.evidence.List(t.Context(), 3, 7)
	require.NoError(t, err)
	require.Len(t, files, 1)
	require.True(t, strings.HasPrefix(files[0].URL, "/evidence/files/projects/3/milestones/7/photos/"), files[0].URL)
	assert.Contains(t, rec.Body.String(), `href="`+files[0].URL+`"`)

	got := f.do(http.MethodGet, files[0].URL, nil, nil)
	require.Equal(t, http.StatusOK, got.Code)
	assert.Equal(t, "image/png", got.Header().Get(echo.HeaderContentType))
	assert.Equal(t, "nosniff", got.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "attachment; filename=site.png", got.Header().Get(echo.HeaderContentDisposition))
	assert.Contains(t, got.Header().Get("Content-Security-Policy"), "sandbox")
	assert.Equal(t, pngBytes, got.Body.Bytes())
}

func TestEvidenceFileNotFound(t *testing.T) {
	f := newFixture(t, Limits{})

	for _, p := range []string{
		"/evidence/files/projects/3/milestones/7/photos/missing.png",
		"/evidence/files/" + url.PathEscape("../config.env"),
		"/evidence/files/uploads.db",
	} {
		rec := f.do(http.MethodGet, p, nil, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code, p)
	}
}

func TestStoredScriptIsNotServedAsHTML(t *testing.T) {
	f := newFixture(t, Limits{})
	storage := services.NewLocalStorage(t.TempDir(), "/evidence/files")
	f.handler.evidence = services.NewEvidenceService(storage, 1<<20, nil)

	_, err := storage.Put(t.Context(), "projects/3/milestones/7/documents/x/page.html",
		strings.NewReader("<script>alert(1)</script>"), "text/html", 25)
	require.NoError(t, err)

	rec := f.do(http.MethodGet, "/evidence/files/projects/3/milestones/7/documents/x/page.html", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/octet-stream", rec.Header().Get(echo.HeaderContentType))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.True(t, strings.HasPrefix(rec.Header().Get(echo.HeaderContentDisposition), "attachment"))
}

func TestBodyLimitRunsBeforeCSRF(t *testing.T) {
	f := newFixture(t, Limits{FormBody: "1K"})
	f.e.Use(middleware.CSRF(&config.Config{Environment: "test"}))

	form := url.Values{"name": {strings.Repeat("a", 4096)}, "budget": {"100"}}
	rec := f.do(http.MethodPost, "/government/projects", strings.NewReader(form.Encode()), formHeaders(false))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Empty(t, f.backend.postBodies("/government/projects"))

	small := url.Values{"name": {"Road"}, "budget": {"100"}}
	rec = f.do(http.MethodPost, "/government/projects", strings.NewReader(small.Encode()), formHeaders(false))
	assert.NotEqual(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Empty(t, f.backend.postBodies("/government/projects"))
}

func TestUploadBodyLimitOnlyAppliesToUploads(t *testing.T) {
	f := newFixture(t, Limits{FormBody: "1K", UploadBody: "1M"})

	body, contentType := multipartBody(t, map[string][]byte{"site.png": append(pngBytes, bytes.Repeat([]byte{0}, 8192)...)})
	rec := f.do(http.MethodPost, "/contractor/projects/3/milestones/7/photos", body, map[string]string{
		echo.HeaderContentType: contentType,
		"HX-Request":           "true",
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "site.png")
}
