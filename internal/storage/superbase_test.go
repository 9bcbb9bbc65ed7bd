package storage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSupabaseFetchKeysPagesInKeyOrder(t *testing.T) {
	var got *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Clone(context.Background())
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"job_title":"AI Engineer","company_name":"Acme"}]`))
	}))
	defer srv.Close()

	store, err := NewSupabaseStore(srv.URL, "anon-key")
	require.NoError(t, err)

	keys, err := store.Table("jobs_singapore").FetchKeys(context.Background(), 2000, PageSize)

	require.NoError(t, err)
	assert.Equal(t, []KeyPair{{Title: "AI Engineer", Company: "Acme"}}, keys)
	require.NotNil(t, got)
	assert.Equal(t, "/rest/v1/jobs_singapore", got.URL.Path)
	assert.Equal(t, "job_title,company_name", got.URL.Query().Get("select"))
	assert.Equal(t, "job_title,company_name.asc", got.URL.Query().Get("order"))
	assert.Equal(t, "2000-2999", got.Header.Get("Range"))
}
