package web

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"constitution-rag/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type askerFunc func(ctx context.Context, query string) (*models.PromptResponse, error)

func (f askerFunc) Query(ctx context.Context, query string) (*models.PromptResponse, error) {
	return f(ctx, query)
}

func newTestServer(t *testing.T, asker Asker) http.Handler {
	t.Helper()
	s, err := NewServer(asker, "Ask about Pakistan's Constitution")
	require.NoError(t, err)
	return s.Handler()
}

func post(h http.Handler, question string) *httptest.ResponseRecorder {
	form := url.Values{"question": {question}}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestIndex(t *testing.T) {
	h := newTestServer(t, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	body := rec.Body.String()
	assert.Contains(t, body, "Ask about Pakistan&#39;s Constitution")
	assert.Contains(t, body, "Enter your question:")
	assert.NotContains(t, body, "<strong>Answer:</strong>")
}

func TestUnknownPath(t *testing.T) {
	h := newTestServer(t, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEmptyQuestionStaysIdle(t *testing.T) {
	var calls atomic.Int32
	h := newTestServer(t, askerFunc(func(context.Context, string) (*models.PromptResponse, error) {
		calls.Add(1)
		return &models.PromptResponse{}, nil
	}))

	for _, q := range []string{"", "   "} {
		rec := post(h, q)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.NotContains(t, rec.Body.String(), "<strong>Answer:</strong>")
	}
	assert.Zero(t, calls.Load())
}

func TestAnswer(t *testing.T) {
	var got string
	h := newTestServer(t, askerFunc(func(_ context.Context, q string) (*models.PromptResponse, error) {
		got = q
		return &models.PromptResponse{
			Query:   q,
			Content: "Islam is the **State religion** & <script>alert(1)</script>",
			Sources: []models.SearchResult{
				{ID: "x", Metadata: map[string]string{models.MetaSource: "constitution.pdf", models.MetaPage: "2"}},
			},
		}, nil
	}))

	rec := post(h, "  What is the State religion?  ")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "What is the State religion?", got)

	body := rec.Body.String()
	assert.Contains(t, body, "<strong>Answer:</strong>")
	assert.Contains(t, body, "<strong>State religion</strong>")
	assert.Contains(t, body, "&amp;")
	assert.NotContains(t, body, "<script>alert(1)</script>")
	assert.Contains(t, body, "constitution.pdf p.2")
	assert.Contains(t, body, `value="What is the State religion?"`)
}

func TestAnswerError(t *testing.T) {
	h := newTestServer(t, askerFunc(func(context.Context, string) (*models.PromptResponse, error) {
		return nil, errors.New("model deepseek-r1:1.5b not found")
	}))

	rec := post(h, "What is the capital?")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "model deepseek-r1:1.5b not found")
	assert.NotContains(t, body, "<strong>Answer:</strong>")
}

func TestCanceledRequestRunsToCompletion(t *testing.T) {
	h := newTestServer(t, askerFunc(func(ctx context.Context, _ string) (*models.PromptResponse, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return &models.PromptResponse{Content: "done"}, nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	form := url.Values{"question": {"Article 1?"}}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode())).WithContext(ctx)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "done")
}

func TestOneQuestionAtATime(t *testing.T) {
	var active, maxActive atomic.Int32
	h := newTestServer(t, askerFunc(func(context.Context, string) (*models.PromptResponse, error) {
		n := active.Add(1)
		defer active.Add(-1)
		for {
			m := maxActive.Load()
			if n <= m || maxActive.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		return &models.PromptResponse{Content: "ok"}, nil
	}))

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			post(h, "Article 1?")
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxActive.Load())
}

func TestHealthz(t *testing.T) {
	h := newTestServer(t, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestListenAndServeStopsOnCancel(t *testing.T) {
	s, err := NewServer(nil, "t")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx, "127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
