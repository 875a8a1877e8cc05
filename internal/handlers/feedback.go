// internal/handlers/feedback.go
package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"flare-backend/internal/apperr"
	"flare-backend/internal/auth"
	"flare-backend/internal/models"
)

// validUserTypes is the allow-list for the one required survey answer.
var validUserTypes = map[string]bool{
	"Regular person who just wants better photos": true,
	"Content creator or social media person":      true,
	"Photographer / photo-adjacent pro":           true,
	"I work on or manage a product/business":      true,
	"I'm in tech or just curious":                 true,
}

type FeedbackRequest struct {
	UserType        string `json:"userType"`
	WhatMatters     string `json:"whatMatters"`
	WhichBetter     string `json:"whichBetter"`
	UseOverPhone    string `json:"useOverPhone"`
	CurrentBehavior string `json:"currentBehavior"`
	Thoughts        string `json:"thoughts"`
	SessionID       string `json:"sessionId"`
}

// optionalUserID resolves the caller's identity from a bearer token when
// one is present. The route itself is unauthenticated, so a missing or
// invalid token is not an error.
func optionalUserID(c *gin.Context, jwtSecret string) *uuid.UUID {
	header := c.GetHeader("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil
	}
	userID, _, err := auth.ParseToken(parts[1], jwtSecret)
	if err != nil {
		return nil
	}
	return &userID
}

// SubmitFeedback stores one survey response. Deliberately unauthenticated
// and not rate limited, so nothing discourages submissions.
func SubmitFeedback(db *gorm.DB, jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req FeedbackRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, apperr.Validation("Invalid request body"))
			return
		}

		if req.UserType == "" {
			writeError(c, apperr.Validation("User type is required").WithContext("field", "userType"))
			return
		}
		if !validUserTypes[req.UserType] {
			writeError(c, apperr.Validation("Invalid user type").WithContext("field", "userType"))
			return
		}

		entry := models.Feedback{
			UserType:        req.UserType,
			WhatMatters:     req.WhatMatters,
			WhichBetter:     req.WhichBetter,
			UseOverPhone:    req.UseOverPhone,
			CurrentBehavior: req.CurrentBehavior,
			Thoughts:        req.Thoughts,
			IPAddress:       c.ClientIP(),
			UserAgent:       c.Request.UserAgent(),
			SessionID:       req.SessionID,
		}

		// Link the entry to a user when the caller happens to carry a
		// valid token; the endpoint itself stays open.
		entry.UserID = optionalUserID(c, jwtSecret)

		if err := db.Create(&entry).Error; err != nil {
			writeError(c, apperr.Internal("Failed to submit feedback. Please try again.", err))
			return
		}

		logrus.WithFields(logrus.Fields{
			"feedbackId": entry.ID,
			"ip":         entry.IPAddress,
		}).Info("New feedback submitted")

		c.JSON(http.StatusCreated, gin.H{
			"message":     "Feedback submitted successfully",
			"feedbackId":  entry.ID,
			"submittedAt": entry.SubmittedAt,
		})
	}
}

type answerCount struct {
	Answer string `json:"answer"`
	Count  int64  `json:"count"`
}

func groupCounts(db *gorm.DB, column string) ([]answerCount, error) {
	var rows []answerCount
	err := db.Model(&models.Feedback{}).
		Select(column+" AS answer, COUNT(*) AS count").
		Where(column+" <> ''").
		Group(column).
		Order("count DESC").
		Scan(&rows).Error
	return rows, err
}

// FeedbackAnalytics returns grouped counts per answer field.
func FeedbackAnalytics(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var total int64
		if err := db.Model(&models.Feedback{}).Count(&total).Error; err != nil {
			writeError(c, apperr.Internal("Failed to fetch analytics", err))
			return
		}

		var recent int64
		if err := db.Model(&models.Feedback{}).
			Where("submitted_at > ?", time.Now().Add(-24*time.Hour)).
			Count(&recent).Error; err != nil {
			writeError(c, apperr.Internal("Failed to fetch analytics", err))
			return
		}

		userTypes, err := groupCounts(db, "user_type")
		if err != nil {
			writeError(c, apperr.Internal("Failed to fetch analytics", err))
			return
		}
		whatMatters, err := groupCounts(db, "what_matters")
		if err != nil {
			writeError(c, apperr.Internal("Failed to fetch analytics", err))
			return
		}
		useOverPhone, err := groupCounts(db, "use_over_phone")
		if err != nil {
			writeError(c, apperr.Internal("Failed to fetch analytics", err))
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"total":        total,
			"recent24h":    recent,
			"userTypes":    userTypes,
			"whatMatters":  whatMatters,
			"useOverPhone": useOverPhone,
			"generatedAt":  time.Now().UTC(),
		})
	}
}

// FeedbackEntries lists responses newest-first with pagination.
func FeedbackEntries(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
		if page < 1 {
			page = 1
		}
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
		if limit < 1 {
			limit = 50
		}
		if limit > 100 {
			limit = 100
		}
		offset := (page - 1) * limit

		var entries []models.Feedback
		if err := db.Order("submitted_at DESC").Limit(limit).Offset(offset).Find(&entries).Error; err != nil {
			writeError(c, apperr.Internal("Failed to fetch feedback entries", err))
			return
		}

		var total int64
		if err := db.Model(&models.Feedback{}).Count(&total).Error; err != nil {
			writeError(c, apperr.Internal("Failed to fetch feedback entries", err))
			return
		}

		totalPages := total / int64(limit)
		if total%int64(limit) != 0 {
			totalPages++
		}

		c.JSON(http.StatusOK, gin.H{
			"entries": entries,
			"pagination": gin.H{
				"page":       page,
				"limit":      limit,
				"total":      total,
				"totalPages": totalPages,
				"hasNext":    int64(offset+limit) < total,
				"hasPrev":    page > 1,
			},
		})
	}
}

// FeedbackHealth probes the feedback table.
func FeedbackHealth(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var probe []models.Feedback
		if err := db.Limit(1).Find(&probe).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"status": "unhealthy", "service": "feedback"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"service":   "feedback",
			"timestamp": time.Now().UTC(),
		})
	}
}
