package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/archsaint/storefront/internal/domain/product"
	"github.com/archsaint/storefront/internal/port/blobstore"
	"github.com/archsaint/storefront/internal/port/database"
)

// ProductService is the application service for the catalog. Reads go
// through the cache; writes upload staged images, persist the record, and
// invalidate the cache. Staged temp files are always handed to the cleanup
// queue, whether the write succeeded or not.
type ProductService struct {
	store    database.Store
	cache    *EntityCache[product.Product]
	resolver *Resolver[product.Product]
	uploader blobstore.Uploader
	effects  *SideEffects
	folder   string
}

// NewProductService creates a ProductService. folder is the remote blob
// folder uploads land in.
func NewProductService(store database.Store, cache *EntityCache[product.Product], uploader blobstore.Uploader, effects *SideEffects, folder string) *ProductService {
	s := &ProductService{
		store:    store,
		cache:    cache,
		uploader: uploader,
		effects:  effects,
		folder:   folder,
	}
	s.resolver = NewResolver(cache, store.GetProduct)
	return s
}

// Create uploads the staged image files, persists the product, and sweeps
// the listing cache. imagePaths are local temp files; they are enqueued for
// cleanup on every exit path.
func (s *ProductService) Create(ctx context.Context, req *product.CreateRequest, imagePaths []string) (*product.Product, error) {
	defer s.effects.CleanupFiles(ctx, imagePaths)

	if err := req.Validate(); err != nil {
		return nil, err
	}

	urls, err := s.uploadImages(ctx, imagePaths)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	p := &product.Product{
		Name:         req.Name,
		Description:  req.Description,
		Images:       urls,
		Category:     req.Category,
		Brand:        req.Brand,
		Weight:       req.Weight,
		Dimensions:   req.Dimensions,
		Price:        req.Price,
		DiscountRate: req.DiscountRate,
		Stock:        req.Stock,
		Slug:         req.Slug,
		Featured:     req.Featured,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateProduct(ctx, p); err != nil {
		return nil, err
	}

	s.cache.InvalidateListings(ctx)
	slog.Info("product created", "product_id", p.ID, "slug", p.Slug)
	return p, nil
}

// Get resolves a product read-through and reports the serving source.
func (s *ProductService) Get(ctx context.Context, id int64) (*product.Product, Source, error) {
	return s.resolver.Resolve(ctx, id)
}

// List returns one catalog page, served from the cache when possible. The
// returned Source reports which path served the page.
func (s *ProductService) List(ctx context.Context, page, limit int) (*database.Page[product.Product], Source, error) {
	if cached, ok := GetPage[product.Product, database.Page[product.Product]](ctx, s.cache, page, limit); ok {
		return cached, SourceCache, nil
	}

	result, err := s.store.ListProducts(ctx, page, limit)
	if err != nil {
		return nil, SourceDatabase, err
	}
	SetPage(ctx, s.cache, page, limit, result)
	return result, SourceDatabase, nil
}

// ListFeatured returns featured products. Featured listings bypass the
// cache: they are small and change with every catalog edit.
func (s *ProductService) ListFeatured(ctx context.Context, page, limit int) ([]product.Product, error) {
	return s.store.ListFeaturedProducts(ctx, page, limit)
}

// Search filters the catalog. Results are not cached; the filter space is
// unbounded.
func (s *ProductService) Search(ctx context.Context, q product.SearchQuery) (*database.Page[product.Product], error) {
	return s.store.SearchProducts(ctx, q)
}

// Update applies the non-nil fields of req to the product, uploads any newly
// staged images, persists, and invalidates the cache.
func (s *ProductService) Update(ctx context.Context, id int64, req *product.UpdateRequest, imagePaths []string) (*product.Product, error) {
	defer s.effects.CleanupFiles(ctx, imagePaths)

	if err := req.Validate(); err != nil {
		return nil, err
	}

	p, err := s.store.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	applyUpdate(p, req)

	if len(imagePaths) > 0 {
		urls, err := s.uploadImages(ctx, imagePaths)
		if err != nil {
			return nil, err
		}
		p.Images = append(p.Images, urls...)
	}
	p.UpdatedAt = time.Now().UTC()

	if err := s.store.UpdateProduct(ctx, p); err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx, id)
	slog.Info("product updated", "product_id", id)
	return p, nil
}

// Delete removes a product and invalidates its cache entries.
func (s *ProductService) Delete(ctx context.Context, id int64) error {
	if err := s.store.DeleteProduct(ctx, id); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, id)
	slog.Info("product deleted", "product_id", id)
	return nil
}

func (s *ProductService) uploadImages(ctx context.Context, paths []string) ([]string, error) {
	urls := make([]string, 0, len(paths))
	for _, path := range paths {
		url, err := s.uploader.Upload(ctx, path, s.folder)
		if err != nil {
			return nil, fmt.Errorf("upload image %s: %w", path, err)
		}
		urls = append(urls, url)
	}
	return urls, nil
}

func applyUpdate(p *product.Product, req *product.UpdateRequest) {
	if req.Name != nil {
		p.Name = *req.Name
	}
	if req.Description != nil {
		p.Description = *req.Description
	}
	if req.Category != nil {
		p.Category = req.Category
	}
	if req.Brand != nil {
		p.Brand = *req.Brand
	}
	if req.Weight != nil {
		p.Weight = *req.Weight
	}
	if req.Dimensions != nil {
		p.Dimensions = *req.Dimensions
	}
	if req.Price != nil {
		p.Price = *req.Price
	}
	if req.DiscountRate != nil {
		p.DiscountRate = *req.DiscountRate
	}
	if req.Stock != nil {
		p.Stock = *req.Stock
	}
	if req.Slug != nil {
		p.Slug = *req.Slug
	}
	if req.Featured != nil {
		p.Featured = *req.Featured
	}
	if req.Images != nil {
		p.Images = req.Images
	}
}
