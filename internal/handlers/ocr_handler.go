package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/Sweily-fr/newbi-api-sub001/config"
	"github.com/Sweily-fr/newbi-api-sub001/internal/extraction"
	"github.com/Sweily-fr/newbi-api-sub001/internal/ocr"
	"github.com/Sweily-fr/newbi-api-sub001/models"
	"github.com/gin-gonic/gin"
)

// defaultProviderFor returns the workspace's preferred OCR provider, or
// empty to keep the chain's fixed order.
func defaultProviderFor(workspaceID uint) string {
	var workspace models.Workspace
	if err := config.DB.Select("default_ocr_provider").First(&workspace, workspaceID).Error; err != nil {
		slog.Warn("Failed to load workspace OCR preference", "workspace_id", workspaceID, "error", err)
		return ""
	}
	return workspace.DefaultOcrProvider
}

// loadCategorizer builds a categorizer from the workspace's enabled
// rules. Rule loading failures degrade to the keyword table only.
func loadCategorizer(workspaceID uint) *extraction.Categorizer {
	var rules []models.CategoryRule
	err := config.DB.Where("workspace_id = ? AND is_enabled = ?", workspaceID, true).Find(&rules).Error
	if err != nil {
		slog.Warn("Failed to load category rules", "workspace_id", workspaceID, "error", err)
	}
	return extraction.NewCategorizer(rules)
}

// ProcessDocumentHandler runs a receipt through the OCR provider chain
// and the field normalizer. The document arrives either as a multipart
// "document" file or as a form/query "url" pointing at a stored file.
func ProcessDocumentHandler(c *gin.Context) {
	wsID := workspaceID(c)

	doc, err := documentFromRequest(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := OcrRouter.Process(c.Request.Context(), wsID, defaultProviderFor(wsID), doc)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{
			"error":  err.Error(),
			"errors": result.Errors,
		})
		return
	}

	categorizer := loadCategorizer(wsID)
	invoice := Normalizer.Normalize(c.Request.Context(), result.ExtractedText, result.Partial, categorizer)

	c.JSON(http.StatusOK, gin.H{
		"provider": result.Provider,
		"cacheHit": result.CacheHit,
		"invoice":  invoice,
	})
}

// documentFromRequest builds an OCR document from the upload or URL.
// URL-addressed documents are fetched once here so every backend in
// the chain receives the bytes; the URL stays on the document as the
// cache key.
func documentFromRequest(c *gin.Context) (ocr.Document, error) {
	file, header, err := c.Request.FormFile("document")
	if err == nil {
		defer file.Close()
		data, readErr := io.ReadAll(file)
		if readErr != nil {
			return ocr.Document{}, readErr
		}
		return ocr.Document{
			FileName: header.Filename,
			MimeType: header.Header.Get("Content-Type"),
			Data:     data,
		}, nil
	}

	url := strings.TrimSpace(c.PostForm("url"))
	if url == "" {
		url = strings.TrimSpace(c.Query("url"))
	}
	if url == "" {
		return ocr.Document{}, errMissingDocument
	}
	return fetchRemoteDocument(c.Request.Context(), url)
}

var errMissingDocument = errors.New("provide a 'document' file or a 'url' field")

// maxRemoteDocumentSize bounds how much of a remote document is read.
const maxRemoteDocumentSize = 20 << 20

var documentClient = &http.Client{Timeout: 30 * time.Second}

func fetchRemoteDocument(ctx context.Context, url string) (ocr.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return ocr.Document{}, fmt.Errorf("invalid document url: %w", err)
	}

	resp, err := documentClient.Do(req)
	if err != nil {
		return ocr.Document{}, fmt.Errorf("document fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ocr.Document{}, fmt.Errorf("document fetch returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteDocumentSize+1))
	if err != nil {
		return ocr.Document{}, fmt.Errorf("document read failed: %w", err)
	}
	if len(data) > maxRemoteDocumentSize {
		return ocr.Document{}, fmt.Errorf("document exceeds the %d byte limit", maxRemoteDocumentSize)
	}

	return ocr.Document{
		URL:      url,
		FileName: path.Base(url),
		MimeType: resp.Header.Get("Content-Type"),
		Data:     data,
	}, nil
}

// GetOcrUsageHandler reports the current month's per-provider counters
// for the workspace.
func GetOcrUsageHandler(c *gin.Context) {
	month := time.Now().UTC().Format("2006-01")

	var counters []models.OcrUsageCounter
	err := config.DB.Where("workspace_id = ? AND month = ?", workspaceID(c), month).
		Order("provider").Find(&counters).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch usage counters"})
		return
	}
	if counters == nil {
		counters = make([]models.OcrUsageCounter, 0)
	}

	c.JSON(http.StatusOK, gin.H{"month": month, "usage": counters})
}
