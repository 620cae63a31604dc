package admin

import (
	"errors"
	"strconv"

	"github.com/couponstore/internal/http/response"
	"github.com/couponstore/internal/models"
	"github.com/couponstore/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// ProductRequest 创建/更新商品请求
type ProductRequest struct {
	Name          string  `json:"name" binding:"required"`
	Description   string  `json:"description"`
	Price         float64 `json:"price" binding:"required"`
	Category      string  `json:"category" binding:"required"`
	Brand         string  `json:"brand"`
	SKU           string  `json:"sku" binding:"required"`
	StockQuantity int     `json:"stock_quantity"`
	ImageURL      string  `json:"image_url"`
	IsActive      *bool   `json:"is_active"`
}

func (r ProductRequest) toInput() service.ProductInput {
	return service.ProductInput{
		Name:          r.Name,
		Description:   r.Description,
		Price:         models.NewMoneyFromDecimal(decimal.NewFromFloat(r.Price)),
		Category:      r.Category,
		Brand:         r.Brand,
		SKU:           r.SKU,
		StockQuantity: r.StockQuantity,
		ImageURL:      r.ImageURL,
		IsActive:      r.IsActive,
	}
}

func respondProductAdminError(c *gin.Context, err error, fallbackMsg string) {
	switch {
	case errors.Is(err, service.ErrProductNotFound):
		respondError(c, response.CodeNotFound, "product not found", nil)
	case errors.Is(err, service.ErrProductInvalid):
		respondError(c, response.CodeBadRequest, "product invalid", nil)
	case errors.Is(err, service.ErrProductSKUExists):
		respondError(c, response.CodeConflict, "product sku exists", nil)
	default:
		respondError(c, response.CodeInternal, fallbackMsg, err)
	}
}

// CreateProduct 创建商品
func (h *Handler) CreateProduct(c *gin.Context) {
	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}
	product, err := h.ProductService.Create(req.toInput())
	if err != nil {
		respondProductAdminError(c, err, "create product failed")
		return
	}
	response.Success(c, product)
}

// UpdateProduct 更新商品
func (h *Handler) UpdateProduct(c *gin.Context) {
	productID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || productID == 0 {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}
	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}
	product, err := h.ProductService.Update(uint(productID), req.toInput())
	if err != nil {
		respondProductAdminError(c, err, "update product failed")
		return
	}
	response.Success(c, product)
}

// DeleteProduct 删除商品
func (h *Handler) DeleteProduct(c *gin.Context) {
	productID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || productID == 0 {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}
	if err := h.ProductService.Delete(uint(productID)); err != nil {
		respondProductAdminError(c, err, "delete product failed")
		return
	}
	response.Success(c, gin.H{"deleted": true})
}

// GetAdminProduct 获取商品详情
func (h *Handler) GetAdminProduct(c *gin.Context) {
	productID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || productID == 0 {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}
	product, err := h.ProductService.GetAdminByID(uint(productID))
	if err != nil {
		respondProductAdminError(c, err, "get product failed")
		return
	}
	response.Success(c, product)
}

// GetAdminProducts 获取商品列表（含下架商品）
func (h *Handler) GetAdminProducts(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	products, total, err := h.ProductService.ListAdmin(c.Query("category"), c.Query("q"), page, pageSize)
	if err != nil {
		respondError(c, response.CodeInternal, "list products failed", err)
		return
	}
	response.SuccessWithPage(c, products, response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: (total + int64(pageSize) - 1) / int64(pageSize),
	})
}
