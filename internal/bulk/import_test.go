package bulk

import (
	"bytes"
	"context"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/openshelf/openshelf/internal/database/books"
	"github.com/openshelf/openshelf/internal/entities"
)

const testHeader = "Title;ISBN;Author;Publisher;Genre;Summary;PageCount;PublicationDate;Language;Country;CoverUrl;ThumbnailUrl;AddedDate;StartReadingDate;EndReadingDate;Status;LentTo\n"

func setupTestDB(t *testing.T) *books.Repository {
	t.Helper()
	dbPath := "./test_bulk_" + t.Name() + ".db"

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&entities.User{}, &entities.Book{}))

	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
		os.Remove(dbPath)
	})
	return books.NewRepository(db)
}

func TestImportAddsRows(t *testing.T) {
	repo := setupTestDB(t)
	importer := NewImporter(repo)

	csvData := testHeader +
		"Dune;9780441172719;Frank Herbert;Ace;Science Fiction;Spice.;412;1990-09-01;en;US;;;2020-01-02T00:00:00Z;;;finished;\n" +
		"Hyperion;9780553283686;Dan Simmons;;;;;;;;;;;;;;\n"

	result, err := importer.Import(context.Background(), strings.NewReader(csvData), 1)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Added)
	assert.Equal(t, 0, result.Updated)
	assert.Equal(t, 0, result.Skipped)

	book, err := repo.GetByISBNAndUser("9780441172719", 1)
	require.NoError(t, err)
	require.NotNil(t, book)
	assert.Equal(t, "Dune", book.Title)
	assert.Equal(t, "Frank Herbert", book.Author)
	assert.Equal(t, 412, book.PageCount)
	assert.Equal(t, entities.ReadingStatusFinished, book.Status)
	assert.Equal(t, "2020-01-02", book.AddedDate.Format("2006-01-02"))
}

func TestImportSkipsRowsWithoutTitleOrAuthor(t *testing.T) {
	repo := setupTestDB(t)
	importer := NewImporter(repo)

	csvData := testHeader +
		";9780441172719;Frank Herbert\n" +
		"Dune;9780441172719;\n" +
		"Dune;9780441172719;Frank Herbert\n"

	result, err := importer.Import(context.Background(), strings.NewReader(csvData), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Added)
	assert.Equal(t, 2, result.Skipped)
}

func TestImportUpdatesExistingISBN(t *testing.T) {
	repo := setupTestDB(t)
	importer := NewImporter(repo)

	first := testHeader + "Dune;9780441172719;Frank Herbert;Ace\n"
	_, err := importer.Import(context.Background(), strings.NewReader(first), 1)
	require.NoError(t, err)

	second := testHeader + "Dune (reissue);9780441172719;Frank Herbert\n"
	result, err := importer.Import(context.Background(), strings.NewReader(second), 1)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Added)
	assert.Equal(t, 1, result.Updated)

	book, err := repo.GetByISBNAndUser("9780441172719", 1)
	require.NoError(t, err)
	assert.Equal(t, "Dune (reissue)", book.Title)
	// Absent publisher column keeps the stored value.
	assert.Equal(t, "Ace", book.Publisher)
}

func TestImportBlankISBNAlwaysInserts(t *testing.T) {
	repo := setupTestDB(t)
	importer := NewImporter(repo)

	csvData := testHeader + "Notebook;;Me\n"
	_, err := importer.Import(context.Background(), strings.NewReader(csvData), 1)
	require.NoError(t, err)
	_, err = importer.Import(context.Background(), strings.NewReader(csvData), 1)
	require.NoError(t, err)

	list, err := repo.GetAllForUser(1)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestImportRequiresOwner(t *testing.T) {
	importer := NewImporter(setupTestDB(t))
	_, err := importer.Import(context.Background(), strings.NewReader(testHeader), 0)
	assert.Error(t, err)
}

func TestImportEmptyFile(t *testing.T) {
	importer := NewImporter(setupTestDB(t))
	result, err := importer.Import(context.Background(), strings.NewReader(""), 1)
	require.NoError(t, err)
	assert.Equal(t, ImportResult{}, result)
}

func TestImportDayFirstDatesWin(t *testing.T) {
	repo := setupTestDB(t)
	importer := NewImporter(repo)

	// 03/04/2021 is ambiguous; the day-first layout is tried before the
	// month-first one.
	csvData := testHeader + "Dune;9780441172719;Frank Herbert;;;;;03/04/2021\n"
	_, err := importer.Import(context.Background(), strings.NewReader(csvData), 1)
	require.NoError(t, err)

	book, err := repo.GetByISBNAndUser("9780441172719", 1)
	require.NoError(t, err)
	require.NotNil(t, book.PublicationDate)
	assert.Equal(t, "2021-04-03", book.PublicationDate.Format("2006-01-02"))
}

func TestPreviewTouchesNothing(t *testing.T) {
	repo := setupTestDB(t)
	importer := NewImporter(repo)

	csvData := testHeader +
		"Dune;9780441172719;Frank Herbert\n" +
		";;missing-title\n"

	result, err := importer.Preview(context.Background(), strings.NewReader(csvData))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Added)
	assert.Equal(t, 1, result.Skipped)

	list, err := repo.GetAllForUser(1)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestExportRoundTrip(t *testing.T) {
	repo := setupTestDB(t)
	importer := NewImporter(repo)
	exporter := NewExporter(repo)

	csvData := testHeader +
		"Dune;9780441172719;Frank Herbert;Ace;Science Fiction;Spice.;412;1990-09-01;en;US;;;2020-01-02T00:00:00Z;2020-02-01;2020-03-01;finished;Alice\n"
	_, err := importer.Import(context.Background(), strings.NewReader(csvData), 1)
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, exporter.Export(&out, 1))

	// Re-import the export into a second user's catalog.
	result, err := importer.Import(context.Background(), strings.NewReader(out.String()), 2)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Added)

	original, err := repo.GetByISBNAndUser("9780441172719", 1)
	require.NoError(t, err)
	copied, err := repo.GetByISBNAndUser("9780441172719", 2)
	require.NoError(t, err)

	assert.Equal(t, original.Title, copied.Title)
	assert.Equal(t, original.Author, copied.Author)
	assert.Equal(t, original.Publisher, copied.Publisher)
	assert.Equal(t, original.PageCount, copied.PageCount)
	assert.Equal(t, original.Status, copied.Status)
	assert.Equal(t, original.LentTo, copied.LentTo)
	assert.True(t, original.PublicationDate.Equal(*copied.PublicationDate))
	assert.True(t, original.AddedDate.Equal(copied.AddedDate))
}

func TestExportHeaderOnlyForEmptyCatalog(t *testing.T) {
	exporter := NewExporter(setupTestDB(t))

	var out bytes.Buffer
	require.NoError(t, exporter.Export(&out, 1))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 1)
	assert.Equal(t, strings.TrimSpace(testHeader), lines[0])
}
