package api

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"cvforge/internal/api/middleware"
	"cvforge/internal/intake"
	"cvforge/internal/storage"
)

// ProfileImageHandler 负责简历头像的上传与访问。
// 上传前过病毒扫描，对象按用户前缀隔离。
type ProfileImageHandler struct {
	storage *storage.Client
	scanner *intake.Scanner
	logger  *slog.Logger
}

func NewProfileImageHandler(storageClient *storage.Client, scanner *intake.Scanner, logger *slog.Logger) *ProfileImageHandler {
	return &ProfileImageHandler{
		storage: storageClient,
		scanner: scanner,
		logger:  logger,
	}
}

// POST /v1/profile-image
// 上传头像，返回对象键与临时访问链接。
func (h *ProfileImageHandler) Upload(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, "missing file")
		return
	}

	logger := middleware.LoggerFromContext(c)

	file, err := fileHeader.Open()
	if err != nil {
		Internal(c, "failed to open file")
		return
	}
	data, err := io.ReadAll(file)
	file.Close()
	if err != nil {
		Internal(c, "failed to read file")
		return
	}

	if h.scanner != nil {
		if err := h.scanner.Scan(data); err != nil {
			if err == intake.ErrMaliciousFile {
				BadRequest(c, "malicious file detected")
				return
			}
			logger.Error("scan file failed", slog.Any("error", err))
			Internal(c, "failed to scan file")
			return
		}
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	objectKey := fmt.Sprintf("profile-images/%d/%s.png", userID, uuid.NewString())
	if _, err := h.storage.UploadFile(c.Request.Context(), objectKey, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		logger.Error("upload profile image failed", slog.Any("error", err))
		Internal(c, "failed to upload file")
		return
	}

	url, err := h.storage.GeneratePresignedURL(c.Request.Context(), objectKey, 15*time.Minute)
	if err != nil {
		logger.Error("generate profile image url failed", slog.Any("error", err))
		Internal(c, "failed to generate url")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"object_key": objectKey, "url": url})
}

// GET /v1/profile-image/url?key=...
// 返回头像的临时预签名 URL。只允许访问自己前缀下的对象。
func (h *ProfileImageHandler) GetURL(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	objectKey := c.Query("key")
	if objectKey == "" {
		BadRequest(c, "missing key")
		return
	}

	if !isValidProfileImageKey(userID, objectKey) {
		Forbidden(c, "access denied")
		return
	}

	signedURL, err := h.storage.GeneratePresignedURL(c.Request.Context(), objectKey, 15*time.Minute)
	if err != nil {
		middleware.LoggerFromContext(c).Error("generate presigned url failed", slog.Any("error", err))
		Internal(c, "failed to generate url")
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": signedURL})
}
