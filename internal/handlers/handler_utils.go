package handlers

import (
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/Sweily-fr/newbi-api-sub001/internal/extraction"
	"github.com/Sweily-fr/newbi-api-sub001/internal/matching"
	"github.com/Sweily-fr/newbi-api-sub001/internal/ocr"
	"github.com/Sweily-fr/newbi-api-sub001/internal/reconcile"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Services built in main and shared by the handlers, the same way the
// config package shares the DB handle.
var (
	OcrRouter  *ocr.Router
	Normalizer *extraction.Normalizer
	Matcher    *matching.Matcher
	Linker     *reconcile.Linker
)

// SetupServices wires the constructed services into the handler layer.
func SetupServices(router *ocr.Router, normalizer *extraction.Normalizer, matcher *matching.Matcher, linker *reconcile.Linker) {
	OcrRouter = router
	Normalizer = normalizer
	Matcher = matcher
	Linker = linker
}

// PaginatedResponse defines the structure for any paginated API response.
type PaginatedResponse struct {
	Data        interface{} `json:"data"`
	TotalRows   int64       `json:"totalRows"`
	TotalPages  int         `json:"totalPages"`
	CurrentPage int         `json:"currentPage"`
	PageSize    int         `json:"pageSize"`
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Paginate is a GORM scope that applies offset and limit from the
// "page" and "pageSize" query parameters.
func Paginate(c *gin.Context) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		page, _ := strconv.Atoi(c.Query("page"))
		if page <= 0 {
			page = 1
		}

		pageSize, _ := strconv.Atoi(c.Query("pageSize"))
		switch {
		case pageSize > MaxPageSize:
			pageSize = MaxPageSize
		case pageSize <= 0:
			pageSize = DefaultPageSize
		}

		offset := (page - 1) * pageSize
		return db.Offset(offset).Limit(pageSize)
	}
}

// CreatePaginatedResponse constructs the standard paginated response object.
func CreatePaginatedResponse(c *gin.Context, data interface{}, totalRows int64) PaginatedResponse {
	page, _ := strconv.Atoi(c.Query("page"))
	if page <= 0 {
		page = 1
	}

	pageSize, _ := strconv.Atoi(c.Query("pageSize"))
	switch {
	case pageSize > MaxPageSize:
		pageSize = MaxPageSize
	case pageSize <= 0:
		pageSize = DefaultPageSize
	}

	totalPages := 0
	if totalRows > 0 {
		totalPages = int(math.Ceil(float64(totalRows) / float64(pageSize)))
	}

	return PaginatedResponse{
		Data:        data,
		TotalRows:   totalRows,
		TotalPages:  totalPages,
		CurrentPage: page,
		PageSize:    pageSize,
	}
}

// workspaceID reads the authenticated workspace from the context.
func workspaceID(c *gin.Context) uint {
	value, _ := c.Get("workspace_id")
	id, _ := value.(uint)
	return id
}

// uploadDir returns the root of the local receipt store.
func uploadDir() string {
	dir := os.Getenv("UPLOAD_DIR")
	if dir == "" {
		dir = filepath.Join("static", "uploads")
	}
	return dir
}

// saveUploadedFile stores a multipart file under the upload dir with a
// unique name and returns its public path. A missing optional file
// returns an empty path without error.
func saveUploadedFile(c *gin.Context, formKey, subDir string) (string, error) {
	file, header, err := c.Request.FormFile(formKey)
	if err != nil {
		if err == http.ErrMissingFile {
			return "", nil
		}
		return "", fmt.Errorf("error getting file from form '%s': %v", formKey, err)
	}
	defer file.Close()

	dir := filepath.Join(uploadDir(), subDir)
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %v", err)
	}

	fileName := fmt.Sprintf("%s-%s", uuid.New().String(), filepath.Base(header.Filename))
	filePath := filepath.Join(dir, fileName)

	out, err := os.Create(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to create file on server: %v", err)
	}
	defer out.Close()

	if _, err = io.Copy(out, file); err != nil {
		return "", fmt.Errorf("failed to copy file content: %v", err)
	}

	return "/" + filepath.ToSlash(filePath), nil
}
