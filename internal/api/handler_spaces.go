package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"space-booking-backend/internal/store"
)

// GetSpaces handles the GET /api/spaces request.
func GetSpaces(s store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		spaces, err := s.ListSpaces(c.Request.Context())
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve spaces"})
			return
		}
		c.JSON(http.StatusOK, spaces)
	}
}

// GetSpace handles the GET /api/spaces/:id request.
func GetSpace(s store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid space id"})
			return
		}

		space, err := s.GetSpace(c.Request.Context(), id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "space not found"})
			} else {
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve space"})
			}
			return
		}
		c.JSON(http.StatusOK, space)
	}
}
