package repository

import (
	"fmt"
	"strings"
	"testing"

	"github.com/couponstore/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupProductRepositoryTest(t *testing.T) (*gorm.DB, *GormProductRepository) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.Product{}); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	return db, NewProductRepository(db)
}

func seedProduct(t *testing.T, db *gorm.DB, name, sku, category string, stock int, active bool) *models.Product {
	t.Helper()
	product := &models.Product{
		Name:          name,
		Price:         models.NewMoneyFromDecimal(decimal.NewFromInt(50)),
		Category:      category,
		SKU:           sku,
		StockQuantity: stock,
		IsActive:      active,
	}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("seed product %s failed: %v", sku, err)
	}
	return product
}

func TestDecrementStockConditional(t *testing.T) {
	db, repo := setupProductRepositoryTest(t)
	product := seedProduct(t, db, "Earphones", "SKU-1", "electronics", 3, true)

	affected, err := repo.DecrementStock(product.ID, 2)
	if err != nil {
		t.Fatalf("decrement failed: %v", err)
	}
	if affected != 1 {
		t.Fatalf("affected want 1 got %d", affected)
	}

	// 余量不足时不扣减
	affected, err = repo.DecrementStock(product.ID, 2)
	if err != nil {
		t.Fatalf("decrement over stock failed: %v", err)
	}
	if affected != 0 {
		t.Fatalf("affected want 0 got %d", affected)
	}

	var stored models.Product
	if err := db.First(&stored, product.ID).Error; err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if stored.StockQuantity != 1 {
		t.Fatalf("stock want 1 got %d", stored.StockQuantity)
	}

	if _, err := repo.DecrementStock(product.ID, 0); err == nil {
		t.Fatalf("zero quantity must be rejected")
	}
}

func TestCountBySKU(t *testing.T) {
	db, repo := setupProductRepositoryTest(t)
	product := seedProduct(t, db, "Earphones", "SKU-1", "electronics", 3, true)

	count, err := repo.CountBySKU("SKU-1", 0)
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("count want 1 got %d", count)
	}

	count, err = repo.CountBySKU("SKU-1", product.ID)
	if err != nil {
		t.Fatalf("count exclude failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("count with exclude want 0 got %d", count)
	}
}

func TestProductListFilters(t *testing.T) {
	db, repo := setupProductRepositoryTest(t)
	seedProduct(t, db, "Earphones", "SKU-1", "electronics", 3, true)
	seedProduct(t, db, "Backpack", "SKU-2", "lifestyle", 5, true)
	seedProduct(t, db, "Old Lamp", "SKU-3", "lifestyle", 0, false)

	products, total, err := repo.List(ProductListFilter{OnlyActive: true, Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("list active failed: %v", err)
	}
	if total != 2 {
		t.Fatalf("active total want 2 got %d", total)
	}

	products, total, err = repo.List(ProductListFilter{Category: "lifestyle", Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("list category failed: %v", err)
	}
	if total != 2 {
		t.Fatalf("lifestyle total want 2 got %d", total)
	}

	products, total, err = repo.List(ProductListFilter{Search: "backpack", Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("list search failed: %v", err)
	}
	if total != 1 || products[0].SKU != "SKU-2" {
		t.Fatalf("search want SKU-2 got total=%d", total)
	}
}

func TestListByIDs(t *testing.T) {
	db, repo := setupProductRepositoryTest(t)
	p1 := seedProduct(t, db, "Earphones", "SKU-1", "electronics", 3, true)
	seedProduct(t, db, "Backpack", "SKU-2", "lifestyle", 5, true)

	products, err := repo.ListByIDs([]uint{p1.ID})
	if err != nil {
		t.Fatalf("list by ids failed: %v", err)
	}
	if len(products) != 1 || products[0].ID != p1.ID {
		t.Fatalf("want only product %d got %d rows", p1.ID, len(products))
	}

	products, err = repo.ListByIDs(nil)
	if err != nil {
		t.Fatalf("list by empty ids failed: %v", err)
	}
	if len(products) != 0 {
		t.Fatalf("empty ids want 0 rows got %d", len(products))
	}
}
