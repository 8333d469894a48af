package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalog-export/internal/common/errors"
)

func TestCount(t *testing.T) {
	var gotPath, gotKey string
	var gotBody countRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("X-Api-Key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(countResponse{Total: 1234})
	}))
	defer server.Close()

	client := NewClient(server.URL, "secret", 5*time.Second)
	total, err := client.Count(context.Background(), Filter{ContentStates: []string{"published"}})
	require.NoError(t, err)

	assert.Equal(t, 1234, total)
	assert.Equal(t, "/assets/count", gotPath)
	assert.Equal(t, "secret", gotKey)
	assert.Equal(t, []string{"published"}, gotBody.Filter.ContentStates)
}

func TestPageSendsPagination(t *testing.T) {
	var gotBody searchRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write([]byte(`{"items": [{"contentId": "ast-1"}, {"contentId": "ast-2"}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "", 5*time.Second)
	items, err := client.Page(context.Background(), Filter{}, []string{"contentId", "mainTitle"}, 500, 1500)
	require.NoError(t, err)

	require.Len(t, items, 2)
	assert.Equal(t, "ast-1", items[0].Attribute("contentId"))
	assert.Equal(t, 500, gotBody.Pagination.Limit)
	assert.Equal(t, 1500, gotBody.Pagination.Offset)
	assert.Equal(t, []string{"contentId", "mainTitle"}, gotBody.Columns)
}

func TestCountServerErrorCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "backend down", http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(server.URL, "", 5*time.Second)
	_, err := client.Count(context.Background(), Filter{})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeCatalogCountFailed, errors.CodeOf(err))
}

func TestPageServerErrorCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "backend down", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, "", 5*time.Second)
	_, err := client.Page(context.Background(), Filter{}, nil, 10, 0)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeCatalogPageFailed, errors.CodeOf(err))
}

func TestPageTimeoutCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	client := NewClient(server.URL, "", 20*time.Millisecond)
	_, err := client.Page(context.Background(), Filter{}, nil, 10, 0)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeCatalogTimeout, errors.CodeOf(err))
}

func TestAssetRecordUnmarshalSplitsNestedLists(t *testing.T) {
	payload := `{
		"contentId": "ast-9",
		"mainTitle": "The Long Haul",
		"releaseYear": 2021,
		"cast": [{"name": "A. Actor", "character": "Lead", "role": "actor"}],
		"ratings": [{"body": "FSK", "value": "12"}],
		"licenseWindows": [{"start": "2024-01-01", "end": "2024-12-31"}],
		"eventWindows": [{"start": "2024-06-01"}],
		"geoRestrictions": [{"accessType": "allow", "restrictionType": "geo", "region": "DE"}],
		"externalIds": [{"provider": "imdb", "id": "tt0000001"}]
	}`

	var rec AssetRecord
	require.NoError(t, json.Unmarshal([]byte(payload), &rec))

	assert.Equal(t, "ast-9", rec.Attribute("contentId"))
	assert.Equal(t, float64(2021), rec.Attribute("releaseYear"))
	require.Len(t, rec.Cast, 1)
	assert.Equal(t, "A. Actor", rec.Cast[0].Name)
	require.Len(t, rec.Ratings, 1)
	require.Len(t, rec.LicenseWindows, 1)
	assert.Equal(t, "2024-12-31", rec.LicenseWindows[0].End)
	require.Len(t, rec.EventWindows, 1)
	assert.Empty(t, rec.EventWindows[0].End)
	require.Len(t, rec.GeoRestrictions, 1)
	require.Len(t, rec.ExternalIDs, 1)

	// nested keys must not leak into the scalar attribute map
	assert.Nil(t, rec.Attribute("cast"))
	assert.Nil(t, rec.Attribute("licenseWindows"))
}

func TestAssetRecordUnmarshalDegradesOnBadNestedList(t *testing.T) {
	payload := `{"contentId": "ast-10", "cast": "not a list"}`

	var rec AssetRecord
	require.NoError(t, json.Unmarshal([]byte(payload), &rec))

	assert.Equal(t, "ast-10", rec.Attribute("contentId"))
	assert.Empty(t, rec.Cast, "a malformed nested list leaves the record usable")
}
