package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/ls5986/habexa2.0-sub002/internal/api/middleware"
	"github.com/ls5986/habexa2.0-sub002/internal/domain"
	"github.com/ls5986/habexa2.0-sub002/internal/queue"
)

type memJobCreator struct {
	created []*domain.UploadJob
}

func (c *memJobCreator) Create(_ context.Context, job *domain.UploadJob) error {
	c.created = append(c.created, job)
	return nil
}

type memObjectStore struct {
	objects map[string][]byte
}

func (s *memObjectStore) Upload(_ context.Context, key string, body io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	s.objects[key] = data
	return nil
}

func (s *memObjectStore) Download(_ context.Context, key string) (io.ReadCloser, error) {
	data, ok := s.objects[key]
	if !ok {
		return nil, errors.New("object not found")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *memObjectStore) Delete(_ context.Context, key string) error {
	delete(s.objects, key)
	return nil
}

type memEnqueuer struct {
	payloads []queue.CatalogProcessPayload
	err      error
}

func (e *memEnqueuer) EnqueueCatalogProcess(payload queue.CatalogProcessPayload) error {
	if e.err != nil {
		return e.err
	}
	e.payloads = append(e.payloads, payload)
	return nil
}

func uploadRouter(h *UploadHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	group := router.Group("/api/v1")
	group.Use(middleware.RequireUser())
	group.POST("/catalogs", h.Upload)
	group.POST("/catalogs/preview", h.Preview)
	return router
}

func multipartFile(t *testing.T, fieldName, fileName string, content []byte, extra map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile(fieldName, fileName)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatal(err)
	}
	for k, v := range extra {
		if err := writer.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	writer.Close()
	return body, writer.FormDataContentType()
}

func TestUploadCreatesJobAndEnqueues(t *testing.T) {
	jobs := &memJobCreator{}
	store := &memObjectStore{objects: map[string][]byte{}}
	enqueuer := &memEnqueuer{}
	router := uploadRouter(NewUploadHandler(jobs, store, enqueuer))

	body, contentType := multipartFile(t, "file", "supplier.csv",
		[]byte("ASIN,Cost\nB000000001,1.00\n"),
		map[string]string{"supplier_id": "sup-1"})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/catalogs", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-User-ID", "user-1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if len(jobs.created) != 1 {
		t.Fatalf("created %d jobs", len(jobs.created))
	}
	job := jobs.created[0]
	if job.Status != domain.JobStatusPending || job.UserID != "user-1" {
		t.Fatalf("job = %+v", job)
	}
	if _, ok := store.objects[job.ObjectKey]; !ok {
		t.Fatalf("file not stored under %q", job.ObjectKey)
	}
	if len(enqueuer.payloads) != 1 || enqueuer.payloads[0].JobID != job.ID || enqueuer.payloads[0].SupplierID != "sup-1" {
		t.Fatalf("enqueued = %+v", enqueuer.payloads)
	}
}

func TestUploadRejectsUnsupportedExtension(t *testing.T) {
	router := uploadRouter(NewUploadHandler(&memJobCreator{}, &memObjectStore{objects: map[string][]byte{}}, &memEnqueuer{}))

	body, contentType := multipartFile(t, "file", "catalog.pdf", []byte("%PDF"), nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/catalogs", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-User-ID", "user-1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestUploadRequiresUserIdentity(t *testing.T) {
	router := uploadRouter(NewUploadHandler(&memJobCreator{}, &memObjectStore{objects: map[string][]byte{}}, &memEnqueuer{}))

	body, contentType := multipartFile(t, "file", "catalog.csv", []byte("ASIN,Cost\n"), nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/catalogs", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestPreviewReturnsInferredMapping(t *testing.T) {
	router := uploadRouter(NewUploadHandler(&memJobCreator{}, &memObjectStore{objects: map[string][]byte{}}, &memEnqueuer{}))

	body, contentType := multipartFile(t, "file", "supplier.csv",
		[]byte("ASIN,Wholesale Price,Qty\nB000000001,1.00,5\n"), nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/catalogs/preview", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-User-ID", "user-1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp struct {
		Headers []string `json:"headers"`
		Mapping struct {
			Columns map[string]struct {
				Header string `json:"header"`
				Index  int    `json:"index"`
			} `json:"columns"`
		} `json:"mapping"`
		Warnings []string `json:"warnings"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Headers) != 3 {
		t.Fatalf("headers = %v", resp.Headers)
	}
	if col, ok := resp.Mapping.Columns["buy_cost"]; !ok || col.Index != 1 {
		t.Fatalf("buy_cost mapping = %+v", resp.Mapping.Columns)
	}
	// No title column, so exactly one advisory warning.
	if len(resp.Warnings) != 1 {
		t.Fatalf("warnings = %v", resp.Warnings)
	}
}
