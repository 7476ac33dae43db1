package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coursescout/coursescout-api/pkg/config"
	appErrors "github.com/coursescout/coursescout-api/pkg/errors"
)

func testScraperConfig(baseURL string) config.ScraperConfig {
	return config.ScraperConfig{
		BaseURL:            baseURL,
		TermSelectPath:     "/term",
		SearchPath:         "/search",
		UserAgent:          "coursescout-test",
		Timeout:            2 * time.Second,
		MaxRetries:         3,
		RetryDelay:         time.Millisecond,
		MaxRetryDelay:      2 * time.Millisecond,
		RequestsPerSecond:  1000,
		ConcurrentRequests: 4,
	}
}

func TestClientFetchSubjectTwoStepSequence(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		paths = append(paths, r.URL.Path)

		switch r.URL.Path {
		case "/term":
			assert.Equal(t, "202508", r.PostForm.Get("p_term"))
			assert.Equal(t, "bwckschd.p_disp_dyn_sched", r.PostForm.Get("p_calling_proc"))
			w.Write([]byte("ok"))
		case "/search":
			assert.Equal(t, "202508", r.PostForm.Get("term_in"))
			assert.Equal(t, []string{"dummy", "CSC"}, r.PostForm["sel_subj"])
			assert.Equal(t, "%", r.PostForm.Get("sel_camp"))
			assert.Equal(t, "coursescout-test", r.UserAgent())
			w.Write([]byte("<html>schedule</html>"))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	client := NewClient(testScraperConfig(srv.URL), nil)
	body, err := client.FetchSubject(context.Background(), "202508", "csc")
	require.NoError(t, err)
	assert.Equal(t, "<html>schedule</html>", body)
	assert.Equal(t, []string{"/term", "/search"}, paths, "term context must precede the search")
}

func TestClientRetriesTransientFailures(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) <= 2 {
			hj, ok := w.(http.Hijacker)
			require.True(t, ok)
			conn, _, err := hj.Hijack()
			require.NoError(t, err)
			conn.Close()
			return
		}
		w.Write([]byte("recovered"))
	}))
	defer srv.Close()

	client := NewClient(testScraperConfig(srv.URL), nil)
	body, err := client.FetchSubject(context.Background(), "202508", "CSC")
	require.NoError(t, err)
	assert.Equal(t, "recovered", body)
	assert.GreaterOrEqual(t, atomic.LoadInt32(&calls), int32(3))
}

func TestClientDoesNotRetryHTTPStatusErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(testScraperConfig(srv.URL), nil)
	_, err := client.FetchSubject(context.Background(), "202508", "CSC")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrUpstreamStatus))
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls), "status errors are structural, not transient")
}

func TestClientRejectsInvalidSubjectCode(t *testing.T) {
	client := NewClient(testScraperConfig("http://unreachable.invalid"), nil)

	for _, subject := range []string{"", "C", "TOOLONG", "CS1", "cs-c"} {
		_, err := client.FetchSubject(context.Background(), "202508", subject)
		require.Error(t, err, subject)
		assert.True(t, appErrors.Is(err, appErrors.ErrValidation), subject)
	}
}
