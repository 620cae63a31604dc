package main

import (
	"fmt"
	"time"

	"github.com/couponstore/internal/config"
	"github.com/couponstore/internal/logger"
	"github.com/couponstore/internal/models"

	"github.com/shopspring/decimal"
)

func main() {
	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	// 添加商品
	products := []models.Product{
		{
			Name:          "Wireless Bluetooth Earphones",
			Description:   "High quality sound, long battery life, comfortable to wear",
			Price:         models.NewMoneyFromDecimal(decimal.NewFromFloat(99.99)),
			Category:      "electronics",
			Brand:         "AudioMax",
			SKU:           "SKU-EARPHONES-001",
			StockQuantity: 120,
			ImageURL:      "https://images.unsplash.com/photo-1590658268037-6bf12165a8df?w=800",
			IsActive:      true,
		},
		{
			Name:          "Smart Watch",
			Description:   "Health monitoring, fitness tracking, message notifications",
			Price:         models.NewMoneyFromDecimal(decimal.NewFromFloat(199.99)),
			Category:      "electronics",
			Brand:         "PulseWear",
			SKU:           "SKU-WATCH-001",
			StockQuantity: 60,
			ImageURL:      "https://images.unsplash.com/photo-1579586337278-3befd40fd17a?w=800",
			IsActive:      true,
		},
		{
			Name:          "Portable Power Bank",
			Description:   "High capacity, fast charging, multi-device compatible",
			Price:         models.NewMoneyFromDecimal(decimal.NewFromFloat(49.99)),
			Category:      "accessories",
			Brand:         "ChargeGo",
			SKU:           "SKU-POWERBANK-001",
			StockQuantity: 200,
			ImageURL:      "https://images.unsplash.com/photo-1609091839311-d5365f9ff1c5?w=800",
			IsActive:      true,
		},
		{
			Name:          "Multi-function Backpack",
			Description:   "Large capacity, waterproof and anti-theft, USB charging port",
			Price:         models.NewMoneyFromDecimal(decimal.NewFromFloat(79.99)),
			Category:      "lifestyle",
			Brand:         "TrailPack",
			SKU:           "SKU-BACKPACK-001",
			StockQuantity: 85,
			ImageURL:      "https://images.unsplash.com/photo-1553062407-98eeb64c6a62?w=800",
			IsActive:      true,
		},
		{
			Name:          "Mechanical Keyboard",
			Description:   "Hot-swappable switches, RGB backlight, aluminum frame",
			Price:         models.NewMoneyFromDecimal(decimal.NewFromFloat(129.99)),
			Category:      "electronics",
			Brand:         "KeyForge",
			SKU:           "SKU-KEYBOARD-001",
			StockQuantity: 45,
			ImageURL:      "https://images.unsplash.com/photo-1511467687858-23d96c32e4ae?w=800",
			IsActive:      true,
		},
		{
			Name:          "Ceramic Pour-over Set",
			Description:   "Hand drip coffee set with double-wall mug",
			Price:         models.NewMoneyFromDecimal(decimal.NewFromFloat(39.99)),
			Category:      "lifestyle",
			Brand:         "SlowBrew",
			SKU:           "SKU-COFFEE-001",
			StockQuantity: 150,
			ImageURL:      "https://images.unsplash.com/photo-1495474472287-4d71bcdd2085?w=800",
			IsActive:      true,
		},
		{
			Name:          "Discontinued Desk Lamp",
			Description:   "Previous generation desk lamp, no longer for sale",
			Price:         models.NewMoneyFromDecimal(decimal.NewFromFloat(24.99)),
			Category:      "lifestyle",
			Brand:         "Lumo",
			SKU:           "SKU-LAMP-OLD-001",
			StockQuantity: 0,
			ImageURL:      "https://images.unsplash.com/photo-1507473885765-e6ed057f782c?w=800",
			IsActive:      false,
		},
	}

	for _, prod := range products {
		var existing models.Product
		if err := models.DB.Where("sku = ?", prod.SKU).First(&existing).Error; err != nil {
			if err := models.DB.Create(&prod).Error; err != nil {
				stdLog.Printf("Failed to create product %s: %v", prod.SKU, err)
			} else {
				stdLog.Printf("Created product: %s", prod.SKU)
			}
		} else {
			existing.Name = prod.Name
			existing.Description = prod.Description
			existing.Price = prod.Price
			existing.Category = prod.Category
			existing.Brand = prod.Brand
			existing.StockQuantity = prod.StockQuantity
			existing.ImageURL = prod.ImageURL
			existing.IsActive = prod.IsActive
			if err := models.DB.Save(&existing).Error; err != nil {
				stdLog.Printf("Failed to update product %s: %v", prod.SKU, err)
			} else {
				stdLog.Printf("Updated product: %s", prod.SKU)
			}
		}
	}

	// 添加优惠券
	now := time.Now()
	saveCap := models.NewMoneyFromDecimal(decimal.NewFromInt(100))
	welcomeStart := now.Add(-24 * time.Hour)
	welcomeEnd := now.AddDate(0, 3, 0)
	saveStart := now.Add(-24 * time.Hour)
	saveEnd := now.AddDate(0, 1, 0)
	flatStart := now.Add(-12 * time.Hour)
	flatEnd := now.AddDate(0, 0, 14)
	expiredStart := now.AddDate(0, -2, 0)
	expiredEnd := now.AddDate(0, -1, 0)

	coupons := []models.Coupon{
		{
			Code:          "SAVE20",
			Title:         "20% off electronics",
			Description:   "20% off orders of $50 or more, electronics only, capped at $100",
			DiscountType:  "percentage",
			DiscountValue: models.NewMoneyFromDecimal(decimal.NewFromInt(20)),
			MinOrderValue: models.NewMoneyFromDecimal(decimal.NewFromInt(50)),
			MaxDiscountAmount: &saveCap,
			Categories:    models.StringArray{"electronics"},
			IsPublic:      true,
			MaxUses:       500,
			StartsAt:      saveStart,
			EndsAt:        saveEnd,
			IsActive:      true,
		},
		{
			Code:          "WELCOME10",
			Title:         "First order 10% off",
			Description:   "10% off your first order, any category",
			DiscountType:  "percentage",
			DiscountValue: models.NewMoneyFromDecimal(decimal.NewFromInt(10)),
			MinOrderValue: models.NewMoneyFromDecimal(decimal.Zero),
			FirstTimeOnly: true,
			IsPublic:      true,
			MaxUses:       1000,
			StartsAt:      welcomeStart,
			EndsAt:        welcomeEnd,
			IsActive:      true,
		},
		{
			Code:          "FLAT15",
			Title:         "$15 off $80",
			Description:   "Fixed $15 off orders of $80 or more",
			DiscountType:  "fixed",
			DiscountValue: models.NewMoneyFromDecimal(decimal.NewFromInt(15)),
			MinOrderValue: models.NewMoneyFromDecimal(decimal.NewFromInt(80)),
			IsPublic:      false,
			MaxUses:       200,
			StartsAt:      flatStart,
			EndsAt:        flatEnd,
			IsActive:      true,
		},
		{
			Code:          "SPRING5",
			Title:         "Spring sale $5 off",
			Description:   "Expired spring promotion, kept for history",
			DiscountType:  "fixed",
			DiscountValue: models.NewMoneyFromDecimal(decimal.NewFromInt(5)),
			MinOrderValue: models.NewMoneyFromDecimal(decimal.NewFromInt(20)),
			IsPublic:      true,
			MaxUses:       300,
			StartsAt:      expiredStart,
			EndsAt:        expiredEnd,
			IsActive:      false,
		},
	}

	for _, coupon := range coupons {
		var existing models.Coupon
		if err := models.DB.Where("code = ?", coupon.Code).First(&existing).Error; err != nil {
			if err := models.DB.Create(&coupon).Error; err != nil {
				stdLog.Printf("Failed to create coupon %s: %v", coupon.Code, err)
			} else {
				stdLog.Printf("Created coupon: %s", coupon.Code)
			}
		} else {
			existing.Title = coupon.Title
			existing.Description = coupon.Description
			existing.DiscountType = coupon.DiscountType
			existing.DiscountValue = coupon.DiscountValue
			existing.MinOrderValue = coupon.MinOrderValue
			existing.MaxDiscountAmount = coupon.MaxDiscountAmount
			existing.Categories = coupon.Categories
			existing.IsPublic = coupon.IsPublic
			existing.FirstTimeOnly = coupon.FirstTimeOnly
			existing.MaxUses = coupon.MaxUses
			existing.StartsAt = coupon.StartsAt
			existing.EndsAt = coupon.EndsAt
			existing.IsActive = coupon.IsActive
			if err := models.DB.Save(&existing).Error; err != nil {
				stdLog.Printf("Failed to update coupon %s: %v", coupon.Code, err)
			} else {
				stdLog.Printf("Updated coupon: %s", coupon.Code)
			}
		}
	}

	fmt.Println("\n✅ Test data created successfully!")
	fmt.Println("Summary:")
	fmt.Println("- 7 Products (electronics / lifestyle / accessories)")
	fmt.Println("- 4 Coupons (SAVE20, WELCOME10, FLAT15, SPRING5)")
}
