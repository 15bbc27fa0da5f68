package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"cretan-guru/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const productCacheTTL = 5 * time.Minute

type ProductReader interface {
	GetAllProducts(ctx context.Context, page, limit int) ([]models.Product, int, error)
	GetProductByID(ctx context.Context, id string) (*models.Product, error)
}

// ProductService reads the catalog through an optional redis cache.
type ProductService struct {
	products ProductReader
	cache    *redis.Client
	logger   *zap.Logger
}

func NewProductService(products ProductReader, cache *redis.Client, logger *zap.Logger) *ProductService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProductService{products: products, cache: cache, logger: logger}
}

func productListCacheKey(page, limit int) string {
	return fmt.Sprintf("products_list_p%d_l%d", page, limit)
}

func productCacheKey(id string) string {
	return "product_" + id
}

func (s *ProductService) GetAllProducts(ctx context.Context, page, limit int) (*models.PaginationResponse, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}

	key := productListCacheKey(page, limit)
	var cached models.PaginationResponse
	if s.getCached(ctx, key, &cached) {
		return &cached, nil
	}

	products, total, err := s.products.GetAllProducts(ctx, page, limit)
	if err != nil {
		return nil, err
	}

	resp := &models.PaginationResponse{
		Success: true,
		Message: "Products retrieved successfully",
		Data:    products,
		Meta: models.MetaData{
			Page:       page,
			Limit:      limit,
			TotalItems: total,
			TotalPages: int(math.Ceil(float64(total) / float64(limit))),
		},
	}
	s.setCached(ctx, key, resp)
	return resp, nil
}

func (s *ProductService) GetProductByID(ctx context.Context, id string) (*models.Product, error) {
	key := productCacheKey(id)
	var cached models.Product
	if s.getCached(ctx, key, &cached) {
		return &cached, nil
	}

	product, err := s.products.GetProductByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.setCached(ctx, key, product)
	return product, nil
}

func (s *ProductService) getCached(ctx context.Context, key string, dst interface{}) bool {
	if s.cache == nil {
		return false
	}
	raw, err := s.cache.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			s.logger.Debug("product cache read failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	return json.Unmarshal(raw, dst) == nil
}

func (s *ProductService) setCached(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, raw, productCacheTTL).Err(); err != nil {
		s.logger.Debug("product cache write failed", zap.String("key", key), zap.Error(err))
	}
}
