package service

import (
	"strings"

	"github.com/fenxiao-next/internal/models"
	"github.com/fenxiao-next/internal/repository"
)

// CategoryService 分类服务
type CategoryService struct {
	repo        repository.CategoryRepository
	productRepo repository.ProductRepository
}

// NewCategoryService 创建分类服务
func NewCategoryService(repo repository.CategoryRepository, productRepo repository.ProductRepository) *CategoryService {
	return &CategoryService{repo: repo, productRepo: productRepo}
}

// CategoryInput 分类创建/更新入参
type CategoryInput struct {
	Slug      string      `json:"slug"`
	Name      models.JSON `json:"name"`
	SortOrder int         `json:"sort_order"`
}

// GetCategory 获取分类详情
func (s *CategoryService) GetCategory(id uint) (*models.Category, error) {
	category, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if category == nil {
		return nil, ErrNotFound
	}
	return category, nil
}

// ListCategories 分类列表
func (s *CategoryService) ListCategories(filter repository.CategoryListFilter) ([]models.Category, int64, error) {
	return s.repo.List(filter)
}

// CreateCategory 创建分类
func (s *CategoryService) CreateCategory(input CategoryInput) (*models.Category, error) {
	slug := strings.ToLower(strings.TrimSpace(input.Slug))
	if slug == "" || len(input.Name) == 0 {
		return nil, ErrNotFound
	}
	category := &models.Category{
		Slug:      slug,
		NameJSON:  input.Name,
		SortOrder: input.SortOrder,
	}
	if err := s.repo.Create(category); err != nil {
		return nil, err
	}
	return category, nil
}

// UpdateCategory 更新分类
func (s *CategoryService) UpdateCategory(id uint, input CategoryInput) (*models.Category, error) {
	category, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if category == nil {
		return nil, ErrNotFound
	}
	if slug := strings.ToLower(strings.TrimSpace(input.Slug)); slug != "" {
		category.Slug = slug
	}
	if len(input.Name) > 0 {
		category.NameJSON = input.Name
	}
	category.SortOrder = input.SortOrder
	if err := s.repo.Update(category); err != nil {
		return nil, err
	}
	return category, nil
}

// DeleteCategory 删除分类
func (s *CategoryService) DeleteCategory(id uint) error {
	category, err := s.repo.GetByID(id)
	if err != nil {
		return err
	}
	if category == nil {
		return ErrNotFound
	}
	return s.repo.Delete(id)
}
