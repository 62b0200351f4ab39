package metadata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOpenLibraryTestClient(handler http.Handler) (*OpenLibraryClient, *httptest.Server) {
	server := httptest.NewServer(handler)
	client := NewOpenLibraryClient(false)
	client.SetBaseURLs(server.URL, server.URL)
	return client, server
}

func TestOpenLibraryFetchByISBN(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/isbn/9780131103627.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"title": "The C Programming Language",
			"authors": [{"key": "/authors/OL1A"}, {"key": "/authors/OL2A"}],
			"publishers": ["Prentice Hall"],
			"number_of_pages": 272,
			"description": {"type": "/type/text", "value": "The classic."},
			"publish_date": "1988",
			"languages": [{"key": "/languages/eng"}],
			"covers": [240727]
		}`))
	})
	mux.HandleFunc("/authors/OL1A.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"name": "Brian W. Kernighan"}`))
	})
	mux.HandleFunc("/authors/OL2A.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"name": "Dennis M. Ritchie"}`))
	})

	client, server := newOpenLibraryTestClient(mux)
	defer server.Close()

	record, err := client.FetchByISBN(context.Background(), "978-0-13-110362-7")
	require.NoError(t, err)
	require.NotNil(t, record)

	assert.Equal(t, "9780131103627", *record.ISBN)
	assert.Equal(t, "The C Programming Language", *record.Title)
	assert.Equal(t, "Brian W. Kernighan, Dennis M. Ritchie", *record.Author)
	assert.Equal(t, "Prentice Hall", *record.Publisher)
	assert.Equal(t, "The classic.", *record.Summary)
	assert.Equal(t, 272, *record.PageCount)
	assert.Equal(t, "1988-01-01", record.PublicationDate.Format("2006-01-02"))
	assert.Equal(t, "eng", *record.Language)
	assert.Nil(t, record.CoverImage)
}

func TestOpenLibraryFetchByISBNFailedAuthorLookupDropsName(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/isbn/9780131103627.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"title": "The C Programming Language",
			"authors": [{"key": "/authors/OL1A"}, {"key": "/authors/BROKEN"}]
		}`))
	})
	mux.HandleFunc("/authors/OL1A.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"name": "Brian W. Kernighan"}`))
	})
	mux.HandleFunc("/authors/BROKEN.json", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	client, server := newOpenLibraryTestClient(mux)
	defer server.Close()

	record, err := client.FetchByISBN(context.Background(), "9780131103627")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, "Brian W. Kernighan", *record.Author)
}

func TestOpenLibraryFetchByISBNNotFound(t *testing.T) {
	client, server := newOpenLibraryTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	record, err := client.FetchByISBN(context.Background(), "9780131103627")
	assert.NoError(t, err)
	assert.Nil(t, record)
}

func TestOpenLibraryFetchByISBNMalformedPayload(t *testing.T) {
	client, server := newOpenLibraryTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"title": `))
	}))
	defer server.Close()

	record, err := client.FetchByISBN(context.Background(), "9780131103627")
	assert.Error(t, err)
	assert.Nil(t, record)
}

func TestOpenLibraryFetchCover(t *testing.T) {
	coverBytes := []byte("fake-jpeg-bytes")

	mux := http.NewServeMux()
	mux.HandleFunc("/isbn/9780131103627.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"title": "The C Programming Language", "covers": [240727]}`))
	})
	mux.HandleFunc("/b/id/240727-L.jpg", func(w http.ResponseWriter, r *http.Request) {
		w.Write(coverBytes)
	})

	server := httptest.NewServer(mux)
	defer server.Close()
	client := NewOpenLibraryClient(true)
	client.SetBaseURLs(server.URL, server.URL)

	record, err := client.FetchByISBN(context.Background(), "9780131103627")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, coverBytes, record.CoverImage)
}

func TestOpenLibrarySearch(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/search.json", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "el nombre del viento", r.URL.Query().Get("q"))
		assert.Equal(t, "spa", r.URL.Query().Get("language"))
		w.Write([]byte(`{
			"numFound": 1,
			"docs": [{
				"title": "El nombre del viento",
				"author_name": ["Patrick Rothfuss"],
				"isbn": ["9788401352836", "8401352835"],
				"publisher": ["Plaza & Janes"],
				"first_sentence": ["Era una noche de silencio."],
				"language": ["spa"],
				"number_of_pages_median": 880,
				"publish_date": ["2009"],
				"cover_i": 0
			}]
		}`))
	})

	client, server := newOpenLibraryTestClient(mux)
	defer server.Close()

	records, err := client.Search(context.Background(), "el nombre del viento", "", "es")
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, "El nombre del viento", *rec.Title)
	assert.Equal(t, "Patrick Rothfuss", *rec.Author)
	assert.Equal(t, "9788401352836", *rec.ISBN)
	assert.Equal(t, "Era una noche de silencio.", *rec.Summary)
	assert.Equal(t, 880, *rec.PageCount)
}

func TestOpenLibrarySearchSwallowsFailures(t *testing.T) {
	client, server := newOpenLibraryTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`definitely not json`))
	}))
	defer server.Close()

	records, err := client.Search(context.Background(), "dune", "", "")
	assert.NoError(t, err)
	assert.Empty(t, records)
}

func TestOpenLibrarySearchBlankQuery(t *testing.T) {
	client := NewOpenLibraryClient(false)
	records, err := client.Search(context.Background(), "", "  ", "")
	assert.NoError(t, err)
	assert.Nil(t, records)
}

func TestOpenLibraryTextUnmarshal(t *testing.T) {
	var text openLibraryText
	require.NoError(t, text.UnmarshalJSON([]byte(`"plain string"`)))
	assert.Equal(t, "plain string", text.Value)

	require.NoError(t, text.UnmarshalJSON([]byte(`{"type": "/type/text", "value": "wrapped"}`)))
	assert.Equal(t, "wrapped", text.Value)
}

func TestOpenLibraryListUnmarshal(t *testing.T) {
	var list openLibraryList
	require.NoError(t, list.UnmarshalJSON([]byte(`"one"`)))
	assert.Equal(t, "one", list.Value)

	require.NoError(t, list.UnmarshalJSON([]byte(`["first", "second"]`)))
	assert.Equal(t, "first", list.Value)
}
