package handlers

import (
	"net/http"
	"time"

	"graminstore-backend/internal/cache"
	"graminstore-backend/internal/database"
	"graminstore-backend/internal/models"

	"github.com/gin-gonic/gin"
)

const marketplaceStatsTTL = 5 * time.Minute

// merchantCard is the public projection of a merchant. Contact and
// identity fields never leave the server here.
func merchantCard(m models.Merchant) gin.H {
	return gin.H{
		"id":            m.ID,
		"business_name": m.BusinessName,
		"business_type": m.BusinessType,
		"city":          m.City,
		"state":         m.State,
	}
}

// MarketplaceMerchants lists storefronts, grouped by business type.
// Optional filters: business_type, city, search (matches business name).
func MarketplaceMerchants(c *gin.Context) {
	query := database.DB.Model(&models.Merchant{})
	if bt := c.Query("business_type"); bt != "" {
		query = query.Where("business_type = ?", bt)
	}
	if city := c.Query("city"); city != "" {
		query = query.Where("city = ?", city)
	}
	if search := c.Query("search"); search != "" {
		query = query.Where("business_name LIKE ?", "%"+search+"%")
	}

	var merchants []models.Merchant
	if err := query.Order("business_name asc").Find(&merchants).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch merchants"})
		return
	}

	grouped := map[string][]gin.H{}
	for _, m := range merchants {
		key := m.BusinessType
		if key == "" {
			key = "other"
		}
		grouped[key] = append(grouped[key], merchantCard(m))
	}

	c.JSON(http.StatusOK, gin.H{
		"merchants_by_type": grouped,
		"total_merchants":   len(merchants),
	})
}

// MarketplaceSearch finds items across every storefront by name,
// description or SKU.
func MarketplaceSearch(c *gin.Context) {
	term := c.Query("q")
	if term == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q is required"})
		return
	}

	pattern := "%" + term + "%"
	query := database.DB.
		Where("is_active = ?", true).
		Where("name LIKE ? OR description LIKE ? OR sku LIKE ?", pattern, pattern, pattern)
	if category := c.Query("category"); category != "" {
		query = query.Where("category = ?", category)
	}

	var items []models.InventoryItem
	if err := query.Limit(100).Find(&items).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Search failed"})
		return
	}

	merchantIDs := make([]uint, 0, len(items))
	seen := map[uint]bool{}
	for _, item := range items {
		if !seen[item.MerchantID] {
			seen[item.MerchantID] = true
			merchantIDs = append(merchantIDs, item.MerchantID)
		}
	}

	names := map[uint]string{}
	if len(merchantIDs) > 0 {
		var merchants []models.Merchant
		database.DB.Where("id IN ?", merchantIDs).Find(&merchants)
		for _, m := range merchants {
			names[m.ID] = m.BusinessName
		}
	}

	out := make([]gin.H, 0, len(items))
	for _, item := range items {
		out = append(out, gin.H{
			"id":            item.ID,
			"name":          item.Name,
			"description":   item.Description,
			"category":      item.Category,
			"unit_price":    item.UnitPrice,
			"unit":          item.Unit,
			"in_stock":      item.CurrentQuantity > 0,
			"merchant_id":   item.MerchantID,
			"merchant_name": names[item.MerchantID],
		})
	}

	c.JSON(http.StatusOK, gin.H{"results": out, "count": len(out)})
}

// MarketplaceCategories lists the business types with storefronts.
func MarketplaceCategories(c *gin.Context) {
	var categories []string
	err := database.DB.Model(&models.Merchant{}).
		Where("business_type != ''").
		Distinct("business_type").
		Order("business_type asc").
		Pluck("business_type", &categories).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch categories"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

// MerchantStorefront returns one merchant's public card with its active
// items, optionally filtered by category or name search.
func MerchantStorefront(c *gin.Context) {
	var merchant models.Merchant
	if err := database.DB.First(&merchant, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Merchant not found"})
		return
	}

	query := database.DB.
		Where("merchant_id = ? AND is_active = ?", merchant.ID, true)
	if category := c.Query("category"); category != "" {
		query = query.Where("category = ?", category)
	}
	if search := c.Query("search"); search != "" {
		query = query.Where("name LIKE ?", "%"+search+"%")
	}

	var items []models.InventoryItem
	if err := query.Order("name asc").Find(&items).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch items"})
		return
	}

	out := make([]gin.H, 0, len(items))
	for _, item := range items {
		out = append(out, gin.H{
			"id":          item.ID,
			"name":        item.Name,
			"description": item.Description,
			"category":    item.Category,
			"unit_price":  item.UnitPrice,
			"unit":        item.Unit,
			"in_stock":    item.CurrentQuantity > 0,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"merchant": merchantCard(merchant),
		"items":    out,
		"count":    len(out),
	})
}

// MerchantItemCategories lists the item categories of one storefront.
func MerchantItemCategories(c *gin.Context) {
	var merchant models.Merchant
	if err := database.DB.First(&merchant, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Merchant not found"})
		return
	}

	var categories []string
	err := database.DB.Model(&models.InventoryItem{}).
		Where("merchant_id = ? AND is_active = ? AND category != ''", merchant.ID, true).
		Distinct("category").
		Order("category asc").
		Pluck("category", &categories).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch categories"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

// MarketplaceStats reports marketplace-wide counts. The result is
// cached briefly since every visitor hits this on the landing page.
func MarketplaceStats(store *cache.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		var cached map[string]interface{}
		if store.Get(ctx, "marketplace:stats", &cached) {
			c.JSON(http.StatusOK, cached)
			return
		}

		var totalMerchants int64
		if err := database.DB.Model(&models.Merchant{}).Count(&totalMerchants).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch stats"})
			return
		}

		var totalItems int64
		database.DB.Model(&models.InventoryItem{}).
			Where("is_active = ?", true).
			Count(&totalItems)

		var businessTypes int64
		database.DB.Model(&models.Merchant{}).
			Where("business_type != ''").
			Distinct("business_type").
			Count(&businessTypes)

		var totalOrders int64
		database.DB.Model(&models.Order{}).Count(&totalOrders)

		var avgPrice float64
		database.DB.Model(&models.InventoryItem{}).
			Where("is_active = ?", true).
			Select("COALESCE(AVG(unit_price), 0)").
			Scan(&avgPrice)

		stats := map[string]interface{}{
			"total_merchants": totalMerchants,
			"total_items":     totalItems,
			"business_types":  businessTypes,
			"total_orders":    totalOrders,
			"avg_item_price":  avgPrice,
			"generated_at":    time.Now().UTC().Format(time.RFC3339),
		}
		store.Set(ctx, "marketplace:stats", stats, marketplaceStatsTTL)

		c.JSON(http.StatusOK, stats)
	}
}
