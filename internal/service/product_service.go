package service

import (
	"strings"

	"github.com/fenxiao-next/internal/models"
	"github.com/fenxiao-next/internal/repository"

	"github.com/shopspring/decimal"
)

// ProductService 商品服务
type ProductService struct {
	repo         repository.ProductRepository
	categoryRepo repository.CategoryRepository
}

// NewProductService 创建商品服务
func NewProductService(repo repository.ProductRepository, categoryRepo repository.CategoryRepository) *ProductService {
	return &ProductService{repo: repo, categoryRepo: categoryRepo}
}

// ProductInput 商品创建/更新入参
type ProductInput struct {
	CategoryID         uint               `json:"category_id"`
	Slug               string             `json:"slug"`
	Title              models.JSON        `json:"title"`
	Description        models.JSON        `json:"description"`
	PriceAmount        decimal.Decimal    `json:"price_amount"`
	CostAmount         decimal.Decimal    `json:"cost_amount"`
	Images             models.StringArray `json:"images"`
	Tags               models.StringArray `json:"tags"`
	IsAffiliateEnabled *bool              `json:"is_affiliate_enabled"`
	IsActive           *bool              `json:"is_active"`
	SortOrder          int                `json:"sort_order"`
}

// GetProduct 获取商品详情
func (s *ProductService) GetProduct(id uint) (*models.Product, error) {
	product, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrNotFound
	}
	return product, nil
}

// GetProductBySlug 根据 slug 获取上架商品
func (s *ProductService) GetProductBySlug(slug string) (*models.Product, error) {
	product, err := s.repo.GetBySlug(slug)
	if err != nil {
		return nil, err
	}
	if product == nil || !product.IsActive {
		return nil, ErrNotFound
	}
	return product, nil
}

// ListProducts 商品列表
func (s *ProductService) ListProducts(filter repository.ProductListFilter) ([]models.Product, int64, error) {
	return s.repo.List(filter)
}

// CreateProduct 创建商品
func (s *ProductService) CreateProduct(input ProductInput) (*models.Product, error) {
	slug := strings.ToLower(strings.TrimSpace(input.Slug))
	if slug == "" || len(input.Title) == 0 {
		return nil, ErrNotFound
	}
	category, err := s.categoryRepo.GetByID(input.CategoryID)
	if err != nil {
		return nil, err
	}
	if category == nil {
		return nil, ErrNotFound
	}
	product := &models.Product{
		CategoryID:         input.CategoryID,
		Slug:               slug,
		TitleJSON:          input.Title,
		DescriptionJSON:    input.Description,
		PriceAmount:        models.NewMoneyFromDecimal(input.PriceAmount),
		CostAmount:         models.NewMoneyFromDecimal(input.CostAmount),
		Images:             input.Images,
		Tags:               input.Tags,
		IsAffiliateEnabled: true,
		IsActive:           true,
		SortOrder:          input.SortOrder,
	}
	if input.IsAffiliateEnabled != nil {
		product.IsAffiliateEnabled = *input.IsAffiliateEnabled
	}
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}
	if err := s.repo.Create(product); err != nil {
		return nil, err
	}
	return product, nil
}

// UpdateProduct 更新商品
func (s *ProductService) UpdateProduct(id uint, input ProductInput) (*models.Product, error) {
	product, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrNotFound
	}
	if input.CategoryID != 0 && input.CategoryID != product.CategoryID {
		category, err := s.categoryRepo.GetByID(input.CategoryID)
		if err != nil {
			return nil, err
		}
		if category == nil {
			return nil, ErrNotFound
		}
		product.CategoryID = input.CategoryID
	}
	if slug := strings.ToLower(strings.TrimSpace(input.Slug)); slug != "" {
		product.Slug = slug
	}
	if len(input.Title) > 0 {
		product.TitleJSON = input.Title
	}
	if input.Description != nil {
		product.DescriptionJSON = input.Description
	}
	product.PriceAmount = models.NewMoneyFromDecimal(input.PriceAmount)
	product.CostAmount = models.NewMoneyFromDecimal(input.CostAmount)
	if input.Images != nil {
		product.Images = input.Images
	}
	if input.Tags != nil {
		product.Tags = input.Tags
	}
	if input.IsAffiliateEnabled != nil {
		product.IsAffiliateEnabled = *input.IsAffiliateEnabled
	}
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}
	product.SortOrder = input.SortOrder
	if err := s.repo.Update(product); err != nil {
		return nil, err
	}
	return product, nil
}

// DeleteProduct 删除商品
func (s *ProductService) DeleteProduct(id uint) error {
	product, err := s.repo.GetByID(id)
	if err != nil {
		return err
	}
	if product == nil {
		return ErrNotFound
	}
	return s.repo.Delete(id)
}
