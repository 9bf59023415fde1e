package handlers

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"graminstore-backend/internal/database"
	"graminstore-backend/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type CreateItemRequest struct {
	Name            string  `json:"name" binding:"required"`
	Description     string  `json:"description"`
	Category        string  `json:"category" binding:"required"`
	SKU             string  `json:"sku"`
	CurrentQuantity int     `json:"current_quantity" binding:"gte=0"`
	MinQuantity     int     `json:"min_quantity" binding:"gte=0"`
	UnitPrice       float64 `json:"unit_price" binding:"gte=0"`
	Unit            string  `json:"unit"`
}

type UpdateItemRequest struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Category    *string  `json:"category"`
	SKU         *string  `json:"sku"`
	MinQuantity *int     `json:"min_quantity"`
	UnitPrice   *float64 `json:"unit_price"`
	Unit        *string  `json:"unit"`
	IsActive    *bool    `json:"is_active"`
}

type UpdateQuantityRequest struct {
	QuantityChange  int    `json:"quantity_change" binding:"required"`
	TransactionType string `json:"transaction_type" binding:"required,oneof=in out adjustment"`
	Reason          string `json:"reason"`
}

type AddToPurchaseListRequest struct {
	InventoryItemID uint `json:"inventory_item_id" binding:"required"`
	QuantityNeeded  int  `json:"quantity_needed" binding:"required,gt=0"`
}

func itemJSON(item models.InventoryItem) gin.H {
	return gin.H{
		"id":               item.ID,
		"name":             item.Name,
		"description":      item.Description,
		"category":         item.Category,
		"sku":              item.SKU,
		"current_quantity": item.CurrentQuantity,
		"min_quantity":     item.MinQuantity,
		"unit_price":       item.UnitPrice,
		"unit":             item.Unit,
		"is_active":        item.IsActive,
		"is_low_stock":     item.IsLowStock(),
		"created_at":       item.CreatedAt,
		"updated_at":       item.UpdatedAt,
	}
}

// ownItem loads an inventory item scoped to the authenticated merchant.
func ownItem(c *gin.Context, itemID string) (models.InventoryItem, bool) {
	merchantID := c.MustGet("userID").(uint)

	var item models.InventoryItem
	err := database.DB.Where("id = ? AND merchant_id = ?", itemID, merchantID).First(&item).Error
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Item not found"})
		return models.InventoryItem{}, false
	}
	return item, true
}

// CreateInventoryItem adds a stock record. A non-empty SKU must be
// unique within the merchant's inventory.
func CreateInventoryItem(c *gin.Context) {
	merchantID := c.MustGet("userID").(uint)

	var input CreateItemRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	if input.SKU != "" {
		var count int64
		database.DB.Model(&models.InventoryItem{}).
			Where("merchant_id = ? AND sku = ?", merchantID, input.SKU).
			Count(&count)
		if count > 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "An item with this SKU already exists"})
			return
		}
	}

	unit := input.Unit
	if unit == "" {
		unit = "pieces"
	}

	item := models.InventoryItem{
		MerchantID:      merchantID,
		Name:            input.Name,
		Description:     input.Description,
		Category:        input.Category,
		SKU:             input.SKU,
		CurrentQuantity: input.CurrentQuantity,
		MinQuantity:     input.MinQuantity,
		UnitPrice:       input.UnitPrice,
		Unit:            unit,
		IsActive:        true,
	}

	if err := database.DB.Create(&item).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create item"})
		return
	}

	if input.CurrentQuantity > 0 {
		database.DB.Create(&models.InventoryTransaction{
			MerchantID:      merchantID,
			InventoryItemID: item.ID,
			TransactionType: "in",
			QuantityChange:  input.CurrentQuantity,
			NewQuantity:     input.CurrentQuantity,
			Reason:          "Initial stock",
		})
	}

	c.JSON(http.StatusCreated, itemJSON(item))
}

// ListInventory returns the merchant's items, optionally filtered by
// category or low-stock state. Inactive items are hidden by default.
func ListInventory(c *gin.Context) {
	merchantID := c.MustGet("userID").(uint)

	query := database.DB.Where("merchant_id = ?", merchantID)
	if c.Query("include_inactive") != "true" {
		query = query.Where("is_active = ?", true)
	}
	if category := c.Query("category"); category != "" {
		query = query.Where("category = ?", category)
	}
	if c.Query("low_stock") == "true" {
		query = query.Where("current_quantity <= min_quantity")
	}

	var items []models.InventoryItem
	if err := query.Order("name asc").Find(&items).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch inventory"})
		return
	}

	out := make([]gin.H, 0, len(items))
	for _, item := range items {
		out = append(out, itemJSON(item))
	}

	c.JSON(http.StatusOK, gin.H{"items": out, "count": len(out)})
}

// GetInventoryItem returns one item owned by the merchant.
func GetInventoryItem(c *gin.Context) {
	item, ok := ownItem(c, c.Param("id"))
	if !ok {
		return
	}
	c.JSON(http.StatusOK, itemJSON(item))
}

// UpdateInventoryItem applies a partial update. Quantity is changed
// through UpdateQuantity only, so every delta leaves an audit row.
func UpdateInventoryItem(c *gin.Context) {
	merchantID := c.MustGet("userID").(uint)

	item, ok := ownItem(c, c.Param("id"))
	if !ok {
		return
	}

	var input UpdateItemRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	if input.SKU != nil && *input.SKU != "" && *input.SKU != item.SKU {
		var count int64
		database.DB.Model(&models.InventoryItem{}).
			Where("merchant_id = ? AND sku = ? AND id != ?", merchantID, *input.SKU, item.ID).
			Count(&count)
		if count > 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "An item with this SKU already exists"})
			return
		}
	}

	updates := map[string]interface{}{}
	if input.Name != nil {
		updates["name"] = *input.Name
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.Category != nil {
		updates["category"] = *input.Category
	}
	if input.SKU != nil {
		updates["sku"] = *input.SKU
	}
	if input.MinQuantity != nil {
		updates["min_quantity"] = *input.MinQuantity
	}
	if input.UnitPrice != nil {
		updates["unit_price"] = *input.UnitPrice
	}
	if input.Unit != nil {
		updates["unit"] = *input.Unit
	}
	if input.IsActive != nil {
		updates["is_active"] = *input.IsActive
	}

	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No fields to update"})
		return
	}

	if err := database.DB.Model(&item).Updates(updates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update item"})
		return
	}

	c.JSON(http.StatusOK, itemJSON(item))
}

// DeleteInventoryItem deactivates an item. History stays intact.
func DeleteInventoryItem(c *gin.Context) {
	item, ok := ownItem(c, c.Param("id"))
	if !ok {
		return
	}

	if err := database.DB.Model(&item).Update("is_active", false).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete item"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Item deactivated"})
}

// UpdateQuantity applies a signed stock delta and appends the audit
// transaction in the same database transaction. Stock never goes
// negative.
func UpdateQuantity(c *gin.Context) {
	merchantID := c.MustGet("userID").(uint)

	item, ok := ownItem(c, c.Param("id"))
	if !ok {
		return
	}

	var input UpdateQuantityRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	newQuantity := item.CurrentQuantity + input.QuantityChange
	if newQuantity < 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("Insufficient stock: have %d, change %d", item.CurrentQuantity, input.QuantityChange),
		})
		return
	}

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.InventoryItem{}).
			Where("id = ?", item.ID).
			Update("current_quantity", newQuantity).Error; err != nil {
			return err
		}
		return tx.Create(&models.InventoryTransaction{
			MerchantID:       merchantID,
			InventoryItemID:  item.ID,
			TransactionType:  input.TransactionType,
			QuantityChange:   input.QuantityChange,
			PreviousQuantity: item.CurrentQuantity,
			NewQuantity:      newQuantity,
			Reason:           input.Reason,
		}).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update quantity"})
		return
	}

	item.CurrentQuantity = newQuantity
	c.JSON(http.StatusOK, itemJSON(item))
}

// ItemTransactions lists the audit trail of one item, newest first.
func ItemTransactions(c *gin.Context) {
	merchantID := c.MustGet("userID").(uint)

	item, ok := ownItem(c, c.Param("id"))
	if !ok {
		return
	}

	limit := clamp(queryInt(c, "limit", 50), 1, 200)

	var txns []models.InventoryTransaction
	err := database.DB.
		Where("merchant_id = ? AND inventory_item_id = ?", merchantID, item.ID).
		Order("created_at desc").
		Limit(limit).
		Find(&txns).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch transactions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"transactions": txns, "count": len(txns)})
}

// InventoryStats summarizes the merchant's active inventory.
func InventoryStats(c *gin.Context) {
	merchantID := c.MustGet("userID").(uint)

	var items []models.InventoryItem
	err := database.DB.
		Where("merchant_id = ? AND is_active = ?", merchantID, true).
		Find(&items).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch inventory"})
		return
	}

	var totalValue float64
	lowStock := 0
	outOfStock := 0
	categories := map[string]struct{}{}
	for _, item := range items {
		totalValue += float64(item.CurrentQuantity) * item.UnitPrice
		if item.CurrentQuantity == 0 {
			outOfStock++
		} else if item.IsLowStock() {
			lowStock++
		}
		if item.Category != "" {
			categories[item.Category] = struct{}{}
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"total_items":        len(items),
		"total_value":        totalValue,
		"low_stock_items":    lowStock,
		"out_of_stock_items": outOfStock,
		"categories":         len(categories),
	})
}

// InventoryCategories lists the distinct categories in use.
func InventoryCategories(c *gin.Context) {
	merchantID := c.MustGet("userID").(uint)

	var categories []string
	err := database.DB.Model(&models.InventoryItem{}).
		Where("merchant_id = ? AND is_active = ? AND category != ''", merchantID, true).
		Distinct("category").
		Order("category asc").
		Pluck("category", &categories).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch categories"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

// GetPurchaseList regenerates reorder suggestions from low-stock items
// and returns all open entries. Regeneration is an upsert, one open
// entry per item at most, so repeated calls do not duplicate rows.
func GetPurchaseList(c *gin.Context) {
	merchantID := c.MustGet("userID").(uint)

	var lowStock []models.InventoryItem
	err := database.DB.
		Where("merchant_id = ? AND is_active = ? AND current_quantity <= min_quantity", merchantID, true).
		Find(&lowStock).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch inventory"})
		return
	}

	for _, item := range lowStock {
		needed := item.MinQuantity*2 - item.CurrentQuantity
		if needed < 1 {
			needed = 1
		}
		upsertPurchaseEntry(merchantID, item.ID, needed, false)
	}

	var entries []models.PurchaseListItem
	err = database.DB.
		Preload("InventoryItem").
		Where("merchant_id = ? AND is_purchased = ?", merchantID, false).
		Order("created_at asc").
		Find(&entries).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch purchase list"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": entries, "count": len(entries)})
}

// upsertPurchaseEntry creates or updates the single open purchase-list
// entry for an item. When overwrite is false an existing entry's
// quantity is kept.
func upsertPurchaseEntry(merchantID, itemID uint, quantityNeeded int, overwrite bool) {
	var existing models.PurchaseListItem
	err := database.DB.
		Where("merchant_id = ? AND inventory_item_id = ? AND is_purchased = ?", merchantID, itemID, false).
		First(&existing).Error
	if err == nil {
		if overwrite {
			database.DB.Model(&existing).Update("quantity_needed", quantityNeeded)
		}
		return
	}

	database.DB.Create(&models.PurchaseListItem{
		MerchantID:      merchantID,
		InventoryItemID: itemID,
		QuantityNeeded:  quantityNeeded,
	})
}

// AddToPurchaseList adds or updates a manual reorder entry.
func AddToPurchaseList(c *gin.Context) {
	merchantID := c.MustGet("userID").(uint)

	var input AddToPurchaseListRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	if _, ok := ownItem(c, strconv.FormatUint(uint64(input.InventoryItemID), 10)); !ok {
		return
	}

	upsertPurchaseEntry(merchantID, input.InventoryItemID, input.QuantityNeeded, true)

	c.JSON(http.StatusOK, gin.H{"message": "Added to purchase list"})
}

// MarkPurchased closes a purchase-list entry.
func MarkPurchased(c *gin.Context) {
	merchantID := c.MustGet("userID").(uint)

	var entry models.PurchaseListItem
	err := database.DB.
		Where("id = ? AND merchant_id = ?", c.Param("id"), merchantID).
		First(&entry).Error
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Purchase list entry not found"})
		return
	}

	if err := database.DB.Model(&entry).Update("is_purchased", true).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update entry"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Marked as purchased"})
}

// DownloadPurchaseList streams the open purchase list as CSV.
func DownloadPurchaseList(c *gin.Context) {
	merchantID := c.MustGet("userID").(uint)

	var entries []models.PurchaseListItem
	err := database.DB.
		Preload("InventoryItem").
		Where("merchant_id = ? AND is_purchased = ?", merchantID, false).
		Order("created_at asc").
		Find(&entries).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch purchase list"})
		return
	}

	merchant, ok := currentMerchant(c)
	if !ok {
		return
	}

	totalQuantity := 0
	for _, entry := range entries {
		totalQuantity += entry.QuantityNeeded
	}

	filename := fmt.Sprintf("purchase_list_%s.csv", time.Now().UTC().Format("2006-01-02"))
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", "attachment; filename="+filename)

	w := csv.NewWriter(c.Writer)
	defer w.Flush()

	w.Write([]string{"Purchase List", merchant.BusinessName})
	w.Write([]string{"Generated", time.Now().UTC().Format(time.RFC3339)})
	w.Write([]string{"Total Items", strconv.Itoa(len(entries))})
	w.Write([]string{"Total Quantity", strconv.Itoa(totalQuantity)})
	w.Write([]string{})
	w.Write([]string{"Item Name", "Category", "SKU", "Current Quantity", "Quantity Needed", "Unit", "Unit Price", "Estimated Cost"})
	for _, entry := range entries {
		item := entry.InventoryItem
		w.Write([]string{
			item.Name,
			item.Category,
			item.SKU,
			strconv.Itoa(item.CurrentQuantity),
			strconv.Itoa(entry.QuantityNeeded),
			item.Unit,
			strconv.FormatFloat(item.UnitPrice, 'f', 2, 64),
			strconv.FormatFloat(float64(entry.QuantityNeeded)*item.UnitPrice, 'f', 2, 64),
		})
	}
}
