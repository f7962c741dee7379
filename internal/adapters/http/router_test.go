package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kirillkom/docflow/internal/core/domain"
)

type ingestorFake struct {
	item     domain.IntakeItem
	err      error
	lastName string
	lastChan string
}

func (f *ingestorFake) Upload(_ context.Context, filename, channelName string, _ map[string]string, body io.Reader) (domain.IntakeItem, error) {
	f.lastName = filename
	f.lastChan = channelName
	if f.err != nil {
		return domain.IntakeItem{}, f.err
	}
	_, _ = io.Copy(io.Discard, body)
	return f.item, nil
}

type readerFake struct {
	doc        *domain.Document
	getErr     error
	summaries  []domain.DocumentSummary
	searchErr  error
	lastFilter domain.SearchFilter
}

func (f *readerFake) GetByID(context.Context, string) (*domain.Document, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.doc, nil
}

func (f *readerFake) Search(_ context.Context, filter domain.SearchFilter) ([]domain.DocumentSummary, error) {
	f.lastFilter = filter
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.summaries, nil
}

type statsRepoFake struct {
	snap domain.StatisticsSnapshot
	err  error
}

func (f *statsRepoFake) Create(context.Context, *domain.Document) error { return nil }
func (f *statsRepoFake) GetByID(context.Context, string) (*domain.Document, error) {
	return nil, domain.ErrDocumentNotFound
}
func (f *statsRepoFake) UpdateStatus(context.Context, string, domain.DocumentStatus, string) error {
	return nil
}
func (f *statsRepoFake) Finalize(context.Context, *domain.Document) error { return nil }
func (f *statsRepoFake) Search(context.Context, domain.SearchFilter) ([]domain.DocumentSummary, error) {
	return nil, nil
}
func (f *statsRepoFake) Stats(context.Context) (domain.StatisticsSnapshot, error) {
	if f.err != nil {
		return domain.StatisticsSnapshot{}, f.err
	}
	return f.snap, nil
}

func newTestHandler(ingestor *ingestorFake, reader *readerFake, repo *statsRepoFake, cfg RouterConfig) http.Handler {
	if ingestor == nil {
		ingestor = &ingestorFake{}
	}
	if reader == nil {
		reader = &readerFake{}
	}
	if repo == nil {
		repo = &statsRepoFake{}
	}
	return NewRouter(ingestor, reader, repo, nil, cfg).Handler()
}

func multipartBody(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func TestUploadDocumentAccepted(t *testing.T) {
	ingestor := &ingestorFake{item: domain.IntakeItem{
		StorageKey: "abc_invoice.pdf",
		Filename:   "invoice.pdf",
		Channel:    "MANUAL_UPLOAD",
	}}
	handler := newTestHandler(ingestor, nil, nil, RouterConfig{})

	body, contentType := multipartBody(t, "invoice.pdf", "%PDF-1.4")
	req := httptest.NewRequest(http.MethodPost, "/v1/documents", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", res.Code, res.Body.String())
	}
	if ingestor.lastName != "invoice.pdf" || ingestor.lastChan != "MANUAL_UPLOAD" {
		t.Fatalf("unexpected upload call: %q via %q", ingestor.lastName, ingestor.lastChan)
	}

	var item domain.IntakeItem
	if err := json.NewDecoder(res.Body).Decode(&item); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if item.StorageKey != "abc_invoice.pdf" {
		t.Fatalf("unexpected response item %+v", item)
	}
	if res.Header().Get("X-Request-Id") == "" {
		t.Fatal("expected request id header")
	}
}

func TestUploadDocumentMissingFile(t *testing.T) {
	handler := newTestHandler(nil, nil, nil, RouterConfig{})

	req := httptest.NewRequest(http.MethodPost, "/v1/documents", bytes.NewBufferString("not multipart"))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestGetDocumentNotFoundMapsTo404(t *testing.T) {
	reader := &readerFake{getErr: domain.ErrDocumentNotFound}
	handler := newTestHandler(nil, reader, nil, RouterConfig{})

	req := httptest.NewRequest(http.MethodGet, "/v1/documents/missing-id", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}

func TestSearchDocumentsForwardsFilters(t *testing.T) {
	reader := &readerFake{summaries: []domain.DocumentSummary{
		{ID: "doc-1", Department: "SAFETY"},
	}}
	handler := newTestHandler(nil, reader, nil, RouterConfig{})

	req := httptest.NewRequest(http.MethodGet, "/v1/documents?text=incident&department=SAFETY&limit=5", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if reader.lastFilter.Text != "incident" || reader.lastFilter.Department != "SAFETY" || reader.lastFilter.Limit != 5 {
		t.Fatalf("filters not forwarded: %+v", reader.lastFilter)
	}

	var resp struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Count != 1 {
		t.Fatalf("expected count 1, got %d", resp.Count)
	}
}

func TestSearchDocumentsRejectsBadLimit(t *testing.T) {
	handler := newTestHandler(nil, nil, nil, RouterConfig{})

	req := httptest.NewRequest(http.MethodGet, "/v1/documents?limit=zero", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestStatsEndpoint(t *testing.T) {
	repo := &statsRepoFake{snap: domain.StatisticsSnapshot{
		TotalProcessed: 3,
		Successful:     2,
		Failed:         1,
		ByChannel:      map[string]int64{"EMAIL": 3},
		ByType:         map[string]int64{"PDF": 3},
		ByDepartment:   map[string]int64{"FINANCE": 2, "UNKNOWN": 1},
	}}
	handler := newTestHandler(nil, nil, repo, RouterConfig{})

	req := httptest.NewRequest(http.MethodGet, "/v1/stats", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	var snap domain.StatisticsSnapshot
	if err := json.NewDecoder(res.Body).Decode(&snap); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if snap.TotalProcessed != 3 || snap.Successful != 2 || snap.ByChannel["EMAIL"] != 3 {
		t.Fatalf("unexpected stats %+v", snap)
	}
}

func TestRateLimitMiddlewareReturns429(t *testing.T) {
	handler := newTestHandler(nil, nil, nil, RouterConfig{
		RateLimitRPS:   1,
		RateLimitBurst: 1,
	})

	req1 := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	res1 := httptest.NewRecorder()
	handler.ServeHTTP(res1, req1)
	if res1.Code != http.StatusOK {
		t.Fatalf("first request expected 200, got %d", res1.Code)
	}

	req2 := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	res2 := httptest.NewRecorder()
	handler.ServeHTTP(res2, req2)
	if res2.Code != http.StatusTooManyRequests {
		t.Fatalf("second request expected 429, got %d", res2.Code)
	}
	if res2.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header for 429 response")
	}
}
