package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"example.com/auctionhouse/services/indexer/domain"
	"example.com/auctionhouse/services/indexer/models"
)

func (s *Server) getStats(c *gin.Context) {
	if cached, err := s.cache.GetStats(c.Request.Context()); err == nil {
		c.JSON(http.StatusOK, cached)
		return
	}

	var stats models.Stats
	err := s.db.Where("key = ?", domain.StatsKey).First(&stats).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// No event processed yet: serve zeroed counters.
		c.JSON(http.StatusOK, models.Stats{Key: domain.StatsKey})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load stats"})
		return
	}

	if err := s.cache.SetStats(c.Request.Context(), &stats); err != nil {
		log.Warn().Err(err).Msg("Failed to cache stats")
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) getAuction(c *gin.Context) {
	lot := c.Param("lot")

	// The auction entity is cacheable; bid data and runes change on every
	// event and are always read fresh.
	auction, cacheErr := s.cache.GetAuction(c.Request.Context(), lot)
	if cacheErr != nil {
		var loaded models.Auction
		err := s.db.Where("lot = ?", lot).First(&loaded).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "auction not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load auction"})
			return
		}
		auction = &loaded

		if err := s.cache.SetAuction(c.Request.Context(), auction); err != nil {
			log.Warn().Err(err).Msg("Failed to cache auction")
		}
	}

	var bidData models.AuctionBidData
	if err := s.db.Where("lot = ?", lot).First(&bidData).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load bid data"})
		return
	}

	var runes []models.AuctionRune
	if auction.HasRunes {
		if err := s.db.Where("lot = ?", lot).Order("rune ASC").Find(&runes).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load runes"})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"auction": auction, "bid_data": bidData, "runes": runes})
}

func (s *Server) getAuctionLog(c *gin.Context) {
	lot := c.Param("lot")

	var messages []models.AuctionMessage
	if err := s.db.
		Where("lot = ?", lot).
		Order("index ASC").
		Find(&messages).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load auction log"})
		return
	}

	c.JSON(http.StatusOK, messages)
}

func (s *Server) getUser(c *gin.Context) {
	address, err := domain.NormalizeAddress(c.Param("address"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed address"})
		return
	}

	var user models.User
	dbErr := s.db.Where("address = ?", address).First(&user).Error
	if errors.Is(dbErr, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	if dbErr != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load user"})
		return
	}

	c.JSON(http.StatusOK, user)
}
