package http

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/openshelf/openshelf/internal/catalog"
	"github.com/openshelf/openshelf/internal/covers"
	"github.com/openshelf/openshelf/internal/database/books"
	"github.com/openshelf/openshelf/internal/entities"
	"github.com/openshelf/openshelf/internal/metadata"
)

const maxCoverUploadBytes = 5 << 20

type BooksController struct {
	repo       *books.Repository
	resolver   *catalog.Resolver
	coverStore *covers.Store
}

func NewBooksController(repo *books.Repository, resolver *catalog.Resolver, coverStore *covers.Store) *BooksController {
	return &BooksController{
		repo:       repo,
		resolver:   resolver,
		coverStore: coverStore,
	}
}

// GetMyBooks lists all books of the authenticated user.
func (controller *BooksController) GetMyBooks(c *gin.Context) {
	userID := GetUserID(c)

	list, err := controller.repo.GetAllForUser(userID)
	if err != nil {
		respondInternalError(c, err, "list books")
		return
	}
	c.IndentedJSON(http.StatusOK, gin.H{"books": list, "count": len(list)})
}

type importFromISBNRequest struct {
	ISBN string `json:"isbn" binding:"required"`
}

// ImportFromISBN resolves external metadata for an ISBN and upserts the
// resulting book into the caller's library.
func (controller *BooksController) ImportFromISBN(c *gin.Context) {
	var req importFromISBNRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "isbn is required")
		return
	}
	if metadata.NormalizeISBN(req.ISBN) == "" {
		respondBadRequest(c, "invalid ISBN")
		return
	}

	book, created, err := controller.resolver.ImportByISBN(c.Request.Context(), GetUserID(c), req.ISBN)
	if err != nil {
		respondInternalError(c, err, "import from ISBN")
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.IndentedJSON(status, gin.H{"book": book, "created": created})
}

// ProviderSearch queries the metadata providers by title and/or author.
func (controller *BooksController) ProviderSearch(c *gin.Context) {
	title := c.Query("title")
	author := c.Query("author")
	language := c.Query("language")

	if title == "" && author == "" {
		respondBadRequest(c, "title or author query parameter is required")
		return
	}

	results, err := controller.resolver.Search(c.Request.Context(), title, author, language)
	if err != nil {
		respondInternalError(c, err, "provider search")
		return
	}
	c.IndentedJSON(http.StatusOK, gin.H{"results": results, "count": len(results)})
}

type manualUpdateRequest struct {
	Title            *string                 `json:"title"`
	Author           *string                 `json:"author"`
	Publisher        *string                 `json:"publisher"`
	Genre            *string                 `json:"genre"`
	Summary          *string                 `json:"summary"`
	PageCount        *int                    `json:"page_count"`
	PublicationDate  *time.Time              `json:"publication_date"`
	Language         *string                 `json:"language"`
	Country          *string                 `json:"country"`
	Status           *entities.ReadingStatus `json:"status"`
	LentTo           *string                 `json:"lent_to"`
	StartReadingDate *time.Time              `json:"start_reading_date"`
	EndReadingDate   *time.Time              `json:"end_reading_date"`
}

// ManualUpdate applies user-supplied edits to an owned book. Absent fields
// are left untouched.
func (controller *BooksController) ManualUpdate(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	book, err := controller.ownedBook(c, id)
	if book == nil {
		if err != nil {
			respondInternalError(c, err, "load book")
		}
		return
	}

	var req manualUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	applyManualUpdate(book, &req)

	if err := controller.repo.Update(book); err != nil {
		respondInternalError(c, err, "update book")
		return
	}
	c.IndentedJSON(http.StatusOK, book)
}

// UploadCover attaches an uploaded image file to an owned book. The target
// book id arrives as the book_id form field next to the cover file.
func (controller *BooksController) UploadCover(c *gin.Context) {
	id, err := strconv.ParseUint(c.PostForm("book_id"), 10, 64)
	if err != nil {
		respondBadRequest(c, "book_id form field is required")
		return
	}

	book, err := controller.ownedBook(c, uint(id))
	if book == nil {
		if err != nil {
			respondInternalError(c, err, "load book")
		}
		return
	}

	fileHeader, err := c.FormFile("cover")
	if err != nil {
		respondBadRequest(c, "cover file is required")
		return
	}
	if fileHeader.Size > maxCoverUploadBytes {
		respondBadRequest(c, "cover file too large")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respondInternalError(c, err, "open uploaded cover")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondInternalError(c, err, "read uploaded cover")
		return
	}

	name := book.ISBN
	if name == "" {
		name = "book-" + strconv.FormatUint(id, 10)
	}
	ext := covers.ExtensionFor(fileHeader.Header.Get("Content-Type"))
	coverPath, thumbPath := controller.coverStore.SaveImage(data, ext, name)
	if coverPath == "" {
		respondBadRequest(c, "could not process cover image")
		return
	}

	book.CoverURL = coverPath
	book.ThumbnailURL = thumbPath
	if err := controller.repo.Update(book); err != nil {
		respondInternalError(c, err, "update book cover")
		return
	}
	c.IndentedJSON(http.StatusOK, gin.H{"cover_url": coverPath, "thumbnail_url": thumbPath})
}

// ownedBook loads a book by id and enforces that it belongs to the caller.
// A missing or foreign book responds 404 and returns (nil, nil).
func (controller *BooksController) ownedBook(c *gin.Context, id uint) (*entities.Book, error) {
	book, err := controller.repo.GetByID(id)
	if err != nil {
		if err == books.ErrNotFound {
			respondNotFound(c, "book")
			return nil, nil
		}
		return nil, err
	}
	if book.UserID != GetUserID(c) {
		respondNotFound(c, "book")
		return nil, nil
	}
	return book, nil
}

func applyManualUpdate(book *entities.Book, req *manualUpdateRequest) {
	if req.Title != nil {
		book.Title = *req.Title
	}
	if req.Author != nil {
		book.Author = *req.Author
	}
	if req.Publisher != nil {
		book.Publisher = *req.Publisher
	}
	if req.Genre != nil {
		book.Genre = *req.Genre
	}
	if req.Summary != nil {
		book.Summary = *req.Summary
	}
	if req.PageCount != nil {
		book.PageCount = *req.PageCount
	}
	if req.PublicationDate != nil {
		d := req.PublicationDate.UTC()
		book.PublicationDate = &d
	}
	if req.Language != nil {
		book.Language = *req.Language
	}
	if req.Country != nil {
		book.Country = *req.Country
	}
	if req.Status != nil {
		book.Status = *req.Status
	}
	if req.LentTo != nil {
		book.LentTo = *req.LentTo
	}
	if req.StartReadingDate != nil {
		d := req.StartReadingDate.UTC()
		book.StartReadingDate = &d
	}
	if req.EndReadingDate != nil {
		d := req.EndReadingDate.UTC()
		book.EndReadingDate = &d
	}
}
