package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openshelf/openshelf/internal/bulk"
	"github.com/openshelf/openshelf/internal/database/books"
	"github.com/openshelf/openshelf/internal/entities"
)

const maxCSVUploadBytes = 32 << 20

// ToolsController exposes library maintenance operations: bulk CSV
// import/export and author/publisher merges.
type ToolsController struct {
	repo     *books.Repository
	importer *bulk.Importer
	exporter *bulk.Exporter
}

func NewToolsController(repo *books.Repository, importer *bulk.Importer, exporter *bulk.Exporter) *ToolsController {
	return &ToolsController{
		repo:     repo,
		importer: importer,
		exporter: exporter,
	}
}

// ImportCSV ingests a semicolon-delimited CSV file into the caller's library.
func (controller *ToolsController) ImportCSV(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		respondBadRequest(c, "file is required")
		return
	}
	if fileHeader.Size > maxCSVUploadBytes {
		respondBadRequest(c, "file too large")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respondInternalError(c, err, "open uploaded CSV")
		return
	}
	defer file.Close()

	result, err := controller.importer.Import(c.Request.Context(), file, GetUserID(c))
	if err != nil {
		respondInternalError(c, err, "import CSV")
		return
	}

	c.IndentedJSON(http.StatusOK, gin.H{
		"added":   result.Added,
		"updated": result.Updated,
		"skipped": result.Skipped,
	})
}

// ExportCSV streams the caller's full library as a CSV download.
func (controller *ToolsController) ExportCSV(c *gin.Context) {
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="library.csv"`)

	if err := controller.exporter.Export(c.Writer, GetUserID(c)); err != nil {
		respondInternalError(c, err, "export CSV")
		return
	}
}

type mergeRequest struct {
	From string `json:"from" binding:"required"`
	To   string `json:"to" binding:"required"`
}

// MergeAuthor renames every book by one author to another author name.
func (controller *ToolsController) MergeAuthor(c *gin.Context) {
	controller.merge(c, func(repo *books.Repository, userID uint, req mergeRequest) (int, error) {
		list, err := repo.GetByAuthorForUser(req.From, userID)
		if err != nil {
			return 0, err
		}
		return updateEach(repo, list, func(b *entities.Book) { b.Author = req.To })
	})
}

// MergePublisher renames every book from one publisher to another.
func (controller *ToolsController) MergePublisher(c *gin.Context) {
	controller.merge(c, func(repo *books.Repository, userID uint, req mergeRequest) (int, error) {
		list, err := repo.GetByPublisherForUser(req.From, userID)
		if err != nil {
			return 0, err
		}
		return updateEach(repo, list, func(b *entities.Book) { b.Publisher = req.To })
	})
}

func (controller *ToolsController) merge(c *gin.Context, apply func(*books.Repository, uint, mergeRequest) (int, error)) {
	var req mergeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "from and to are required")
		return
	}

	var merged int
	err := controller.repo.WithTransaction(func(tx *books.Repository) error {
		var err error
		merged, err = apply(tx, GetUserID(c), req)
		return err
	})
	if err != nil {
		respondInternalError(c, err, "merge")
		return
	}

	c.IndentedJSON(http.StatusOK, gin.H{"merged": merged})
}

func updateEach(repo *books.Repository, list []entities.Book, mutate func(*entities.Book)) (int, error) {
	for idx := range list {
		mutate(&list[idx])
		if err := repo.Update(&list[idx]); err != nil {
			return 0, err
		}
	}
	return len(list), nil
}
