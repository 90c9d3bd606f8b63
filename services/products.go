// services/products.go
package services

import (
	"errors"
	"fmt"
	"path/filepath"

	"anime-loyalty-system/models"
	"anime-loyalty-system/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type ProductService struct {
	DB *gorm.DB
}

func NewProductService(db *gorm.DB) *ProductService {
	return &ProductService{DB: db}
}

// --- Public Handlers ---

// ListProducts returns the catalog, newest first, optionally by category.
func (s *ProductService) ListProducts(c *fiber.Ctx) error {
	db := s.DB.Order("created_at DESC")
	if category := c.Query("category"); category != "" {
		db = db.Where("category = ?", category)
	}

	var products []models.Product
	if err := db.Find(&products).Error; err != nil {
		logrus.WithError(err).Error("failed to list products")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to list products"})
	}
	return c.JSON(products)
}

// GetProduct fetches one product by id or slug.
func (s *ProductService) GetProduct(c *fiber.Ctx) error {
	id := c.Params("id")

	var product models.Product
	err := s.DB.First(&product, "id = ? OR slug = ?", id, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Product not found"})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}
	return c.JSON(product)
}

// --- Admin Handlers ---

// CreateProduct creates a catalog item (Admin only).
func (s *ProductService) CreateProduct(c *fiber.Ctx) error {
	var req struct {
		Name           string   `json:"name"`
		Description    string   `json:"description"`
		Price          float64  `json:"price"`
		Sizes          []string `json:"sizes"`
		Category       string   `json:"category"`
		PointsRequired *int     `json:"points_required"`
		Stock          int      `json:"stock"`
		ImageURL       string   `json:"image_url"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Name is required"})
	}
	if req.Price < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Price cannot be negative"})
	}

	productSlug, err := s.uniqueSlug(req.Name)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to generate slug"})
	}

	product := models.Product{
		ID:             uuid.NewString(),
		Name:           req.Name,
		Slug:           productSlug,
		Description:    req.Description,
		Price:          req.Price,
		Sizes:          req.Sizes,
		Category:       req.Category,
		PointsRequired: req.PointsRequired,
		Stock:          req.Stock,
		ImageURL:       req.ImageURL,
	}
	if err := s.DB.Create(&product).Error; err != nil {
		logrus.WithError(err).Error("failed to create product")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create product"})
	}
	return c.Status(fiber.StatusCreated).JSON(product)
}

// UpdateProduct applies partial updates (Admin only).
func (s *ProductService) UpdateProduct(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid product ID"})
	}

	var existing models.Product
	if err := s.DB.First(&existing, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Product not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	var req struct {
		Name           *string   `json:"name"`
		Description    *string   `json:"description"`
		Price          *float64  `json:"price"`
		Sizes          *[]string `json:"sizes"`
		Category       *string   `json:"category"`
		PointsRequired *int      `json:"points_required"`
		Stock          *int      `json:"stock"`
		ImageURL       *string   `json:"image_url"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if req.Name != nil && *req.Name != existing.Name {
		existing.Name = *req.Name
		newSlug, err := s.uniqueSlug(*req.Name)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to generate slug"})
		}
		existing.Slug = newSlug
	}
	if req.Description != nil {
		existing.Description = *req.Description
	}
	if req.Price != nil {
		existing.Price = *req.Price
	}
	if req.Sizes != nil {
		existing.Sizes = *req.Sizes
	}
	if req.Category != nil {
		existing.Category = *req.Category
	}
	if req.PointsRequired != nil {
		existing.PointsRequired = req.PointsRequired
	}
	if req.Stock != nil {
		existing.Stock = *req.Stock
	}
	if req.ImageURL != nil {
		existing.ImageURL = *req.ImageURL
	}

	if err := s.DB.Save(&existing).Error; err != nil {
		logrus.WithError(err).Error("failed to update product")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update product"})
	}
	return c.JSON(existing)
}

// DeleteProduct soft-deletes a product (Admin only).
func (s *ProductService) DeleteProduct(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid product ID"})
	}

	var product models.Product
	if err := s.DB.First(&product, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Product not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	if err := s.DB.Delete(&product).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete product"})
	}
	return c.JSON(fiber.Map{"message": "Product deleted successfully"})
}

// UploadProductImage stores a product image in R2 and saves the public URL
// (Admin only).
func (s *ProductService) UploadProductImage(c *fiber.Ctx) error {
	id := c.Params("id")

	var product models.Product
	if err := s.DB.First(&product, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Product not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	if !utils.R2Enabled() {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "Image storage is not configured"})
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "image file is required"})
	}

	key := fmt.Sprintf("products/%s%s", uuid.NewString(), filepath.Ext(fileHeader.Filename))
	url, err := utils.UploadFileToR2(fileHeader, key)
	if err != nil {
		logrus.WithError(err).Error("product image upload failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to upload image"})
	}

	if err := s.DB.Model(&product).Update("image_url", url).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to save image URL"})
	}

	product.ImageURL = url
	return c.JSON(product)
}

func (s *ProductService) uniqueSlug(name string) (string, error) {
	base := slug.Make(name)
	candidate := base
	for i := 2; ; i++ {
		var n int64
		if err := s.DB.Model(&models.Product{}).Unscoped().Where("slug = ?", candidate).Count(&n).Error; err != nil {
			return "", err
		}
		if n == 0 {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
}
