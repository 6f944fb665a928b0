package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/HenryAG36/online-mini-golf-sub000/internal/levels"
)

// ListLevels returns the level summaries in course order.
func ListLevels(src levels.Source, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := src.List(c.Request.Context())
		if err != nil {
			log.Error("list levels", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list levels"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"levels": list})
	}
}

// GetLevel returns one level with its full course geometry.
func GetLevel(src levels.Source, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		lvl, err := src.Get(c.Request.Context(), c.Param("slug"))
		switch {
		case err == nil:
			c.JSON(http.StatusOK, lvl)
		case errors.Is(err, levels.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Level not found"})
		default:
			log.Error("get level", zap.String("slug", c.Param("slug")), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load level"})
		}
	}
}
