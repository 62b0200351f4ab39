package metadata

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

func TestNormalizeISBN(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"978-0-13-468599-1", "9780134685991"},
		{"0-13-468599-6", "0134685996"},
		{"978 0 13 468599 1", "9780134685991"},
		{"9780134685991", "9780134685991"},
		{"  978-0-13-468599-1  ", "9780134685991"},
		{"123", ""},
		{"12345678901234", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeISBN(tt.input))
		})
	}
}

func TestParseProviderDate(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"2019-05-14", "2019-05-14"},
		{"2019-05", "2019-05-01"},
		{"2019", "2019-01-01"},
		{"May 14, 2019", "2019-05-14"},
		{"14 May 2019", "2019-05-14"},
		{"May 2019", "2019-05-01"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := parseProviderDate(tt.input)
			require.NotNil(t, got)
			assert.Equal(t, tt.expected, got.Format("2006-01-02"))
			assert.Equal(t, time.UTC, got.Location())
		})
	}

	assert.Nil(t, parseProviderDate(""))
	assert.Nil(t, parseProviderDate("   "))
	assert.Nil(t, parseProviderDate("sometime in the nineties"))
}

func TestMergePrimaryWins(t *testing.T) {
	date := time.Date(2001, 3, 1, 0, 0, 0, 0, time.UTC)
	primary := &BookRecord{
		Title:     strPtr("American Gods"),
		Author:    strPtr("Neil Gaiman"),
		PageCount: intPtr(465),
	}
	secondary := &BookRecord{
		Title:           strPtr("American gods: a novel"),
		Publisher:       strPtr("William Morrow"),
		PageCount:       intPtr(500),
		PublicationDate: &date,
	}

	merged := Merge(primary, secondary)

	assert.Equal(t, "American Gods", *merged.Title)
	assert.Equal(t, "Neil Gaiman", *merged.Author)
	// Secondary fills the gaps the primary left.
	assert.Equal(t, "William Morrow", *merged.Publisher)
	assert.Equal(t, 465, *merged.PageCount)
	require.NotNil(t, merged.PublicationDate)
	assert.True(t, merged.PublicationDate.Equal(date))
}

func TestMergeBlankPrimaryLosesToSecondary(t *testing.T) {
	primary := &BookRecord{Title: strPtr("   ")}
	secondary := &BookRecord{Title: strPtr("Dune")}

	merged := Merge(primary, secondary)
	assert.Equal(t, "Dune", *merged.Title)
}

func TestMergeDefaults(t *testing.T) {
	merged := Merge(nil, nil)

	assert.Equal(t, DefaultTitle, *merged.Title)
	assert.Equal(t, DefaultAuthor, *merged.Author)
	assert.Equal(t, DefaultCoverURL, *merged.CoverURL)
	assert.Equal(t, DefaultThumbnailURL, *merged.ThumbnailURL)
	assert.Nil(t, merged.Publisher)
	assert.Nil(t, merged.PageCount)
}

func TestMergeOwnerAndCoverImage(t *testing.T) {
	primary := &BookRecord{OwnerUserID: 7}
	secondary := &BookRecord{OwnerUserID: 9, CoverImage: []byte{0x1}}

	merged := Merge(primary, secondary)
	assert.Equal(t, uint(7), merged.OwnerUserID)
	assert.Equal(t, []byte{0x1}, merged.CoverImage)
}

func TestHasMissingFields(t *testing.T) {
	date := time.Now()
	complete := &BookRecord{
		Title:           strPtr("t"),
		Author:          strPtr("a"),
		Summary:         strPtr("s"),
		Publisher:       strPtr("p"),
		Genre:           strPtr("g"),
		PageCount:       intPtr(10),
		PublicationDate: &date,
	}
	assert.False(t, HasMissingFields(complete))

	assert.True(t, HasMissingFields(nil))
	assert.True(t, HasMissingFields(&BookRecord{}))

	noGenre := *complete
	noGenre.Genre = nil
	assert.True(t, HasMissingFields(&noGenre))

	blankSummary := *complete
	blankSummary.Summary = strPtr("  ")
	assert.True(t, HasMissingFields(&blankSummary))
}

func TestJoinNonEmpty(t *testing.T) {
	assert.Nil(t, joinNonEmpty(nil))
	assert.Nil(t, joinNonEmpty([]string{"", "  "}))
	assert.Equal(t, "a, b", *joinNonEmpty([]string{"a", "", "b"}))
}
