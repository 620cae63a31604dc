package service

import (
	"strings"

	"github.com/couponstore/internal/logger"
	"github.com/couponstore/internal/models"
	"github.com/couponstore/internal/repository"

	"github.com/shopspring/decimal"
)

// ProductService 商品业务服务
type ProductService struct {
	repo repository.ProductRepository
}

// NewProductService 创建商品服务
func NewProductService(repo repository.ProductRepository) *ProductService {
	return &ProductService{repo: repo}
}

// ProductInput 创建/更新商品输入
type ProductInput struct {
	Name          string
	Description   string
	Price         models.Money
	Category      string
	Brand         string
	SKU           string
	StockQuantity int
	ImageURL      string
	IsActive      *bool
}

// ListPublic 获取公开商品列表（仅上架商品）
func (s *ProductService) ListPublic(category, search string, page, pageSize int) ([]models.Product, int64, error) {
	return s.repo.List(repository.ProductListFilter{
		Page:       page,
		PageSize:   pageSize,
		Category:   strings.ToLower(strings.TrimSpace(category)),
		Search:     strings.TrimSpace(search),
		OnlyActive: true,
	})
}

// GetPublicByID 获取公开商品详情
func (s *ProductService) GetPublicByID(id uint) (*models.Product, error) {
	product, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if product == nil || !product.IsActive {
		return nil, ErrProductNotFound
	}
	return product, nil
}

// ListAdmin 获取后台商品列表
func (s *ProductService) ListAdmin(category, search string, page, pageSize int) ([]models.Product, int64, error) {
	return s.repo.List(repository.ProductListFilter{
		Page:       page,
		PageSize:   pageSize,
		Category:   strings.ToLower(strings.TrimSpace(category)),
		Search:     strings.TrimSpace(search),
		OnlyActive: false,
	})
}

// GetAdminByID 获取后台商品详情
func (s *ProductService) GetAdminByID(id uint) (*models.Product, error) {
	product, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	return product, nil
}

func validateProductInput(input ProductInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return ErrProductInvalid
	}
	if strings.TrimSpace(input.SKU) == "" {
		return ErrProductInvalid
	}
	if strings.TrimSpace(input.Category) == "" {
		return ErrProductInvalid
	}
	if input.Price.Decimal.LessThanOrEqual(decimal.Zero) {
		return ErrProductInvalid
	}
	if input.StockQuantity < 0 {
		return ErrProductInvalid
	}
	return nil
}

// Create 创建商品
func (s *ProductService) Create(input ProductInput) (*models.Product, error) {
	if err := validateProductInput(input); err != nil {
		return nil, err
	}
	sku := strings.ToUpper(strings.TrimSpace(input.SKU))
	count, err := s.repo.CountBySKU(sku, 0)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrProductSKUExists
	}

	isActive := true
	if input.IsActive != nil {
		isActive = *input.IsActive
	}

	product := models.Product{
		Name:          strings.TrimSpace(input.Name),
		Description:   strings.TrimSpace(input.Description),
		Price:         models.NewMoneyFromDecimal(input.Price.Decimal.Round(2)),
		Category:      strings.ToLower(strings.TrimSpace(input.Category)),
		Brand:         strings.TrimSpace(input.Brand),
		SKU:           sku,
		StockQuantity: input.StockQuantity,
		ImageURL:      strings.TrimSpace(input.ImageURL),
		IsActive:      isActive,
	}
	if err := s.repo.Create(&product); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrProductSKUExists
		}
		return nil, err
	}
	logger.Infow("product_created", "product_id", product.ID, "sku", product.SKU)
	return &product, nil
}

// Update 更新商品
func (s *ProductService) Update(id uint, input ProductInput) (*models.Product, error) {
	if err := validateProductInput(input); err != nil {
		return nil, err
	}
	product, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}

	sku := strings.ToUpper(strings.TrimSpace(input.SKU))
	count, err := s.repo.CountBySKU(sku, id)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrProductSKUExists
	}

	product.Name = strings.TrimSpace(input.Name)
	product.Description = strings.TrimSpace(input.Description)
	product.Price = models.NewMoneyFromDecimal(input.Price.Decimal.Round(2))
	product.Category = strings.ToLower(strings.TrimSpace(input.Category))
	product.Brand = strings.TrimSpace(input.Brand)
	product.SKU = sku
	product.StockQuantity = input.StockQuantity
	product.ImageURL = strings.TrimSpace(input.ImageURL)
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}

	if err := s.repo.Update(product); err != nil {
		return nil, err
	}
	return product, nil
}

// Delete 删除商品
func (s *ProductService) Delete(id uint) error {
	product, err := s.repo.GetByID(id)
	if err != nil {
		return err
	}
	if product == nil {
		return ErrProductNotFound
	}
	if err := s.repo.Delete(id); err != nil {
		return err
	}
	logger.Infow("product_deleted", "product_id", id, "sku", product.SKU)
	return nil
}
