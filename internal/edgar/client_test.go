package edgar

import (
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakline-research/rating-cli/internal/model"
)

func newTestClient(srvURL string) *Client {
	return NewClient(Options{
		BaseURL:    srvURL,
		UserAgent:  "rating-cli-test/1.0",
		RatePerSec: 100,
		Timeout:    5 * time.Second,
		MaxRetries: 3,
	})
}

func TestResolveCIK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/files/company_tickers.json", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.Write([]byte(`{"0":{"cik_str":320193,"ticker":"AAPL","title":"Apple Inc."},"1":{"cik_str":789019,"ticker":"MSFT","title":"Microsoft Corp"}}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	cik, err := c.ResolveCIK(context.Background(), "aapl")
	require.NoError(t, err)
	assert.Equal(t, "0000320193", cik)

	_, err = c.ResolveCIK(context.Background(), "NOPE")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ticker not found")
}

func TestResolveCIKGzippedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// EDGAR compresses whenever the request allows it. The client
		// must leave Accept-Encoding to the transport so net/http
		// decodes the body transparently.
		require.Contains(t, r.Header.Get("Accept-Encoding"), "gzip")

		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		_, err := gz.Write([]byte(`{"0":{"cik_str":320193,"ticker":"AAPL","title":"Apple Inc."}}`))
		require.NoError(t, err)
		require.NoError(t, gz.Close())
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	cik, err := c.ResolveCIK(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "0000320193", cik)
}

func TestSubmissions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/submissions/CIK0000320193.json", r.URL.Path)
		w.Write([]byte(`{
			"cik": "320193",
			"name": "Acme Corp",
			"sicDescription": "Prepackaged Software",
			"filings": {"recent": {
				"accessionNumber": ["0001-25-000001", "0001-25-000002"],
				"filingDate": ["2025-08-01", "2025-05-01"],
				"form": ["10-Q", "20-F"],
				"primaryDocument": ["acme-10q.htm", "acme-20f.htm"]
			}}
		}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	profile, filings, err := c.Submissions(context.Background(), "320193")
	require.NoError(t, err)

	assert.Equal(t, "Acme Corp", profile.Name)
	assert.Equal(t, "Prepackaged Software", profile.Sector)
	assert.True(t, profile.ForeignFiler, "a 20-F in the index marks a foreign filer")

	require.Len(t, filings, 2)
	assert.Equal(t, "10-Q", filings[0].Form)
	assert.Equal(t, time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC), filings[0].Filed)
	assert.Contains(t, filings[0].DocURL, "/Archives/edgar/data/320193/000125000001/acme-10q.htm")
}

func TestDocumentStripsHTML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><p>substantial doubt about going concern</p><script>x()</script></body></html>`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	text, err := c.Document(context.Background(), model.Filing{
		Accession: "0001-25-000001",
		DocURL:    srv.URL + "/doc.htm",
	})
	require.NoError(t, err)
	assert.Contains(t, text, "substantial doubt about going concern")
	assert.NotContains(t, text, "x()")
}

func TestDocument_NoURL(t *testing.T) {
	c := newTestClient("http://127.0.0.1:1")
	_, err := c.Document(context.Background(), model.Filing{Accession: "0001"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no document URL")
}

func TestGetRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`ok`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	body, err := c.get(context.Background(), srv.URL+"/x")
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
	assert.Equal(t, int32(2), calls.Load())
}

func TestGetDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	_, err := c.get(context.Background(), srv.URL+"/missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 404")
	assert.Equal(t, int32(1), calls.Load())
}

func TestCompanyFactsEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/xbrl/companyfacts/CIK0000320193.json", r.URL.Path)
		w.Write([]byte(`{"cik":320193,"entityName":"Acme Corp","facts":{}}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	facts, err := c.CompanyFacts(context.Background(), "320193")
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", facts.EntityName)
}

func TestPadCIK(t *testing.T) {
	assert.Equal(t, "0000320193", padCIK("320193"))
	assert.Equal(t, "0000320193", padCIK("0000320193"))
	assert.Equal(t, "not-a-cik", padCIK("not-a-cik"))
}
