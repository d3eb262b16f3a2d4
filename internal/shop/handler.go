package shop

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

const defaultListLimit = 200

// Handler serves the shop CRUD, search, stats and metadata endpoints.
type Handler struct {
	db  *gorm.DB
	log zerolog.Logger
}

// NewHandler returns the shop endpoint handler.
func NewHandler(db *gorm.DB, log zerolog.Logger) *Handler {
	return &Handler{db: db, log: log}
}

func (h *Handler) internalError(c *gin.Context, err error, msg string) {
	h.log.Error().Err(err).Msg(msg)
	c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal error"})
}
