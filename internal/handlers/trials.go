// internal/handlers/trials.go
package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"flare-backend/internal/apperr"
	"flare-backend/internal/middleware"
	"flare-backend/internal/models"
	"flare-backend/internal/storage"
	"flare-backend/pkg/archive"
	"flare-backend/pkg/enhance"
)

const (
	maxZipSize   = 50 << 20 // one archive per upload
	maxPhotoSize = 10 << 20 // per raw image
	maxPhotos    = 5

	// DownloadTTL is how long a processed archive stays downloadable.
	DownloadTTL = 7 * 24 * time.Hour
)

var zipMIMETypes = map[string]bool{
	"application/zip":              true,
	"application/x-zip-compressed": true,
	"application/octet-stream":     true,
}

// trialUpload is the validated input to the ledger transaction: the
// already-stored original object plus the enhanced image sequence.
type trialUpload struct {
	trialID          uuid.UUID
	uploadedAt       time.Time
	originalFilename string
	originalObject   string
	fileSize         int64
	source           string
	items            []archive.Item
}

// consumeQuota atomically takes one upload slot. The conditional update
// locks the user row for the rest of the transaction, so concurrent
// uploads from the same user cannot both pass the limit check.
func consumeQuota(tx *gorm.DB, userID uuid.UUID) error {
	res := tx.Model(&models.User{}).
		Where("id = ? AND trial_uploads_count < trial_uploads_limit", userID).
		UpdateColumn("trial_uploads_count", gorm.Expr("trial_uploads_count + 1"))
	if res.Error != nil {
		return apperr.Internal("Upload failed. Please try again.", res.Error)
	}
	if res.RowsAffected == 0 {
		var user models.User
		if err := tx.First(&user, "id = ?", userID).Error; err != nil {
			return apperr.NotFound("User not found")
		}
		return apperr.QuotaExceeded(user.TrialUploadsLimit, user.TrialUploadsCount)
	}
	return nil
}

// quotaExhausted is a read-only pre-check so over-quota users are
// rejected before any image work. consumeQuota inside the transaction
// remains the authoritative enforcement.
func quotaExhausted(db *gorm.DB, userID uuid.UUID) error {
	var user models.User
	if err := db.First(&user, "id = ?", userID).Error; err != nil {
		return apperr.NotFound("User not found")
	}
	if user.TrialUploadsCount >= user.TrialUploadsLimit {
		return apperr.QuotaExceeded(user.TrialUploadsLimit, user.TrialUploadsCount)
	}
	return nil
}

// finishTrial runs the ledger transaction: quota slot, processed archive
// assembly and storage, and the completed trial row with its 7-day
// download expiry. Any failure rolls the whole thing back, leaving no
// ledger row and no quota consumption.
func finishTrial(c *gin.Context, db *gorm.DB, store *storage.Client, userID uuid.UUID, up *trialUpload) {
	ctx := c.Request.Context()

	var user models.User
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := consumeQuota(tx, userID); err != nil {
			return err
		}

		processed, err := archive.Assemble(up.items)
		if err != nil {
			return apperr.Internal("Upload failed. Please try again.", err)
		}

		processedObject := storage.ProcessedObjectName(userID, up.trialID, up.uploadedAt)
		if err := store.PutBytes(ctx, processedObject, processed, "application/zip"); err != nil {
			return apperr.Internal("Upload failed. Please try again.", err)
		}

		now := time.Now()
		expires := up.uploadedAt.Add(DownloadTTL)

		metadata, err := json.Marshal(map[string]any{
			"originalSize":    up.fileSize,
			"processedImages": len(up.items),
			"source":          up.source,
			"uploadIp":        c.ClientIP(),
			"userAgent":       c.Request.UserAgent(),
		})
		if err != nil {
			return apperr.Internal("Upload failed. Please try again.", err)
		}

		trial := models.Trial{
			ID:                up.trialID,
			UserID:            userID,
			OriginalFilename:  up.originalFilename,
			OriginalObject:    up.originalObject,
			ProcessedObject:   processedObject,
			FileSize:          up.fileSize,
			ImagesCount:       len(up.items),
			Status:            models.TrialStatusCompleted,
			UploadedAt:        up.uploadedAt,
			ProcessedAt:       &now,
			DownloadExpiresAt: &expires,
			Metadata:          datatypes.JSON(metadata),
		}
		if err := tx.Create(&trial).Error; err != nil {
			return apperr.Internal("Upload failed. Please try again.", err)
		}

		return tx.First(&user, "id = ?", userID).Error
	})
	if err != nil {
		writeError(c, err)
		return
	}

	logrus.WithFields(logrus.Fields{
		"trialId": up.trialID,
		"userId":  userID,
		"images":  len(up.items),
		"source":  up.source,
	}).Info("Trial processed")

	c.JSON(http.StatusOK, gin.H{
		"message":          uploadMessage(up.source),
		"status":           models.TrialStatusCompleted,
		"trialId":          up.trialID,
		"imagesProcessed":  len(up.items),
		"downloadUrl":      "/api/trials/download/" + up.trialID.String(),
		"expiresAt":        up.uploadedAt.Add(DownloadTTL),
		"remainingUploads": user.TrialUploadsLimit - user.TrialUploadsCount,
	})
}

// UploadZip accepts one ZIP archive, enhances every qualifying image in
// it and returns the trial's download handle.
func UploadZip(db *gorm.DB, store *storage.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.UserID(c)
		if !ok {
			writeError(c, apperr.Auth("Access token required"))
			return
		}

		file, err := c.FormFile("zipFile")
		if err != nil {
			writeError(c, apperr.Validation("No ZIP file uploaded"))
			return
		}
		if file.Size > maxZipSize {
			writeError(c, apperr.Validation("ZIP file exceeds the 50MB limit"))
			return
		}
		if !isZipUpload(file) {
			writeError(c, apperr.Validation("Invalid file type. Only ZIP files are allowed."))
			return
		}

		if err := quotaExhausted(db, userID); err != nil {
			writeError(c, err)
			return
		}

		zipData, err := readUpload(file)
		if err != nil {
			writeError(c, apperr.Internal("Upload failed. Please try again.", err))
			return
		}

		trialID := uuid.New()
		uploadedAt := time.Now()

		// The source archive is persisted before any processing so a
		// crash mid-enhancement leaves it recoverable.
		originalObject := storage.OriginalObjectName(userID, trialID, uploadedAt)
		if err := store.PutBytes(c.Request.Context(), originalObject, zipData, "application/zip"); err != nil {
			writeError(c, apperr.Internal("Upload failed. Please try again.", err))
			return
		}

		items, err := archive.Process(zipData, enhance.Image)
		if err != nil {
			writeError(c, apperr.Validation("Invalid or corrupted ZIP file"))
			return
		}
		if len(items) == 0 {
			writeError(c, apperr.Validation("No valid images found in ZIP file"))
			return
		}

		finishTrial(c, db, store, userID, &trialUpload{
			trialID:          trialID,
			uploadedAt:       uploadedAt,
			originalFilename: file.Filename,
			originalObject:   originalObject,
			fileSize:         file.Size,
			source:           "zip",
			items:            items,
		})
	}
}

// UploadPhotos accepts up to five raw images and runs them through the
// same pipeline and ledger as a ZIP upload.
func UploadPhotos(db *gorm.DB, store *storage.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.UserID(c)
		if !ok {
			writeError(c, apperr.Auth("Access token required"))
			return
		}

		form, err := c.MultipartForm()
		if err != nil {
			writeError(c, apperr.Validation("Invalid multipart form"))
			return
		}
		files := form.File["photos"]
		if len(files) == 0 {
			writeError(c, apperr.Validation("No photos uploaded"))
			return
		}
		if len(files) > maxPhotos {
			writeError(c, apperr.Validation(fmt.Sprintf("A maximum of %d photos per upload is allowed", maxPhotos)))
			return
		}

		if err := quotaExhausted(db, userID); err != nil {
			writeError(c, err)
			return
		}

		var (
			originals []archive.Item
			totalSize int64
		)
		for _, file := range files {
			if file.Size > maxPhotoSize {
				writeError(c, apperr.Validation(fmt.Sprintf("%s exceeds the 10MB per-photo limit", file.Filename)))
				return
			}
			if !archive.IsImageName(file.Filename) {
				writeError(c, apperr.Validation(fmt.Sprintf("%s is not a supported image type", file.Filename)))
				return
			}

			data, err := readUpload(file)
			if err != nil {
				writeError(c, apperr.Internal("Upload failed. Please try again.", err))
				return
			}
			if err := enhance.SniffImage(data); err != nil {
				writeError(c, apperr.Validation(fmt.Sprintf("%s is not a valid image", file.Filename)))
				return
			}

			originals = append(originals, archive.Item{Name: filepath.Base(file.Filename), Data: data})
			totalSize += file.Size
		}

		trialID := uuid.New()
		uploadedAt := time.Now()

		originalZip, err := archive.Assemble(originals)
		if err != nil {
			writeError(c, apperr.Internal("Upload failed. Please try again.", err))
			return
		}
		originalObject := storage.OriginalObjectName(userID, trialID, uploadedAt)
		if err := store.PutBytes(c.Request.Context(), originalObject, originalZip, "application/zip"); err != nil {
			writeError(c, apperr.Internal("Upload failed. Please try again.", err))
			return
		}

		var items []archive.Item
		for _, original := range originals {
			enhanced, err := enhance.Image(original.Data)
			if err != nil {
				logrus.WithError(err).WithField("photo", original.Name).Warn("Skipping photo that failed enhancement")
				continue
			}
			items = append(items, archive.Item{Name: original.Name, Data: enhanced})
		}
		if len(items) == 0 {
			writeError(c, apperr.Validation("No valid images found in upload"))
			return
		}

		finishTrial(c, db, store, userID, &trialUpload{
			trialID:          trialID,
			uploadedAt:       uploadedAt,
			originalFilename: photosArchiveName(len(files)),
			originalObject:   originalObject,
			fileSize:         totalSize,
			source:           "photos",
			items:            items,
		})
	}
}

// Download streams a completed trial's processed archive. Trials owned
// by other users are indistinguishable from missing ones.
func Download(db *gorm.DB, store *storage.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.UserID(c)
		if !ok {
			writeError(c, apperr.Auth("Access token required"))
			return
		}

		trialID, err := uuid.Parse(c.Param("trialId"))
		if err != nil {
			writeError(c, apperr.NotFound("Download not found"))
			return
		}

		var trial models.Trial
		err = db.Where("id = ? AND user_id = ? AND status = ?", trialID, userID, models.TrialStatusCompleted).
			First(&trial).Error
		if err != nil {
			writeError(c, apperr.NotFound("Download not found"))
			return
		}

		if trial.DownloadExpiresAt == nil || time.Now().After(*trial.DownloadExpiresAt) {
			writeError(c, apperr.Expired("Download link has expired"))
			return
		}

		ctx := c.Request.Context()
		info, err := store.StatObject(ctx, trial.ProcessedObject)
		if err != nil {
			// Ledger row without a backing object: inconsistent state,
			// logged but not auto-repaired.
			logrus.WithError(err).WithFields(logrus.Fields{
				"trialId": trial.ID,
				"object":  trial.ProcessedObject,
			}).Error("Processed archive missing from storage")
			writeError(c, apperr.NotFound("Download file not found"))
			return
		}

		object, err := store.GetObject(ctx, trial.ProcessedObject)
		if err != nil {
			writeError(c, apperr.Internal("Failed to download file", err))
			return
		}
		defer object.Close()

		filename := "enhanced_" + sanitizeFilename(trial.OriginalFilename)
		c.Header("Cache-Control", "no-cache")
		c.DataFromReader(http.StatusOK, info.Size, "application/zip", object, map[string]string{
			"Content-Disposition": fmt.Sprintf(`attachment; filename="%s"`, filename),
		})
	}
}

// TrialsHealth reports database reachability.
func TrialsHealth(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"status": "unhealthy"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now().UTC()})
	}
}

func uploadMessage(source string) string {
	if source == "photos" {
		return "Photos processed successfully"
	}
	return "ZIP file processed successfully"
}

// photosArchiveName names the synthesized archive for a direct photo
// upload. It has to survive a Content-Disposition header, so no spaces.
func photosArchiveName(count int) string {
	return fmt.Sprintf("photos_%d.zip", count)
}

func isZipUpload(file *multipart.FileHeader) bool {
	if strings.HasSuffix(strings.ToLower(file.Filename), ".zip") {
		return true
	}
	return zipMIMETypes[file.Header.Get("Content-Type")]
}

func readUpload(file *multipart.FileHeader) ([]byte, error) {
	f, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	return strings.Map(func(r rune) rune {
		switch r {
		case '"', '\\', '\n', '\r':
			return '_'
		}
		return r
	}, name)
}
