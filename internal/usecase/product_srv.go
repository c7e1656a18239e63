package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"marketplace-api/internal/data/entity"
	"marketplace-api/internal/data/repository"
	"marketplace-api/internal/dto/request"
	"marketplace-api/internal/dto/response"
	"marketplace-api/pkg/storage"
	"marketplace-api/pkg/utils"

	"github.com/google/uuid"
	"github.com/samber/oops"
	"go.uber.org/zap"
)

type ProductService interface {
	List(ctx context.Context, req *request.ProductListRequest) (*response.PaginatedResponse[response.ProductResponse], error)
	Get(ctx context.Context, id uuid.UUID) (*response.ProductResponse, error)
	ListMine(ctx context.Context, sellerID uuid.UUID) ([]response.ProductResponse, error)
	Create(ctx context.Context, sellerID uuid.UUID, req *request.ProductRequest) (*response.ProductResponse, error)
	Update(ctx context.Context, sellerID, id uuid.UUID, req *request.ProductRequest) (*response.ProductResponse, error)
	Delete(ctx context.Context, sellerID, id uuid.UUID) error
	ImageUploadURL(ctx context.Context, sellerID uuid.UUID, req *request.UploadURLRequest) (*response.UploadURLResponse, error)
}

type productService struct {
	productRepo repository.ProductRepository
	images      storage.ImageStore
	log         *zap.Logger
	now         func() time.Time
}

func NewProductService(productRepo repository.ProductRepository, images storage.ImageStore, log *zap.Logger, clock func() time.Time) ProductService {
	if clock == nil {
		clock = time.Now
	}
	return &productService{
		productRepo: productRepo,
		images:      images,
		log:         log.With(zap.String("service", "product")),
		now:         clock,
	}
}

func (ps *productService) List(ctx context.Context, req *request.ProductListRequest) (_ *response.PaginatedResponse[response.ProductResponse], err error) {
	ctx, span := tracer.Start(ctx, "product.list")
	defer func() { endSpan(span, err) }()

	// 1. Validasi dan default
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, validationErr(errs)
	}
	if req.MinPrice != nil && req.MaxPrice != nil && *req.MinPrice > *req.MaxPrice {
		return nil, fieldErr("MinPrice", "Must not be greater than the maximum price")
	}
	req.Normalize()

	filter := repository.ProductFilter{
		Category:  req.Category,
		Condition: req.Condition,
		MinPrice:  req.MinPrice,
		MaxPrice:  req.MaxPrice,
		Search:    strings.TrimSpace(req.Search),
		SortBy:    req.SortBy,
		SortOrder: req.SortOrder,
	}
	if strings.EqualFold(filter.Category, "all") {
		filter.Category = ""
	}

	// 2. Query data dan total
	products, err := ps.productRepo.FindAll(ctx, filter, req.Limit(), req.Offset())
	if err != nil {
		utils.LogError(ps.log, "Failed to list products", err)
		return nil, storeErr("find_all_products", err)
	}
	total, err := ps.productRepo.CountAll(ctx, filter)
	if err != nil {
		utils.LogError(ps.log, "Failed to count products", err)
		return nil, storeErr("count_products", err)
	}

	return response.NewPaginatedResponse(response.ProductsToResponse(products), req.Page, req.Limit(), total), nil
}

func (ps *productService) Get(ctx context.Context, id uuid.UUID) (*response.ProductResponse, error) {
	views, err := ps.productRepo.IncrementViews(ctx, id)
	if errors.Is(err, repository.ErrProductNotFound) {
		return nil, productNotFound(id)
	}
	if err != nil {
		utils.LogError(ps.log, "Failed to increment views", err, zap.String("product_id", id.String()))
		return nil, storeErr("increment_views", err)
	}

	product, err := ps.productRepo.FindByID(ctx, id)
	if err != nil {
		utils.LogError(ps.log, "Failed to find product", err, zap.String("product_id", id.String()))
		return nil, storeErr("find_product", err)
	}
	if product == nil {
		return nil, productNotFound(id)
	}
	product.Views = views

	resp := response.ProductToResponse(product, true)
	return &resp, nil
}

func (ps *productService) ListMine(ctx context.Context, sellerID uuid.UUID) ([]response.ProductResponse, error) {
	products, err := ps.productRepo.FindBySeller(ctx, sellerID)
	if err != nil {
		utils.LogError(ps.log, "Failed to list seller products", err, zap.String("seller_id", sellerID.String()))
		return nil, storeErr("find_by_seller", err)
	}
	return response.ProductsToResponse(products), nil
}

func (ps *productService) Create(ctx context.Context, sellerID uuid.UUID, req *request.ProductRequest) (*response.ProductResponse, error) {
	if err := validateProduct(req); err != nil {
		return nil, err
	}

	now := ps.now()
	product := &entity.Product{
		Base: entity.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		SellerID:    sellerID,
		IsAvailable: true,
	}
	applyProduct(product, req)

	if err := ps.productRepo.Create(ctx, product); err != nil {
		utils.LogError(ps.log, "Failed to create product", err, zap.String("seller_id", sellerID.String()))
		return nil, storeErr("create_product", err)
	}

	ps.log.Info("Product created",
		zap.String("product_id", product.ID.String()),
		zap.String("seller_id", sellerID.String()))

	resp := response.ProductToResponse(product, false)
	return &resp, nil
}

func (ps *productService) Update(ctx context.Context, sellerID, id uuid.UUID, req *request.ProductRequest) (*response.ProductResponse, error) {
	if err := validateProduct(req); err != nil {
		return nil, err
	}

	product, err := ps.owned(ctx, sellerID, id)
	if err != nil {
		return nil, err
	}

	applyProduct(product, req)
	product.UpdatedAt = ps.now()

	if err := ps.productRepo.Update(ctx, product); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, productNotFound(id)
		}
		utils.LogError(ps.log, "Failed to update product", err, zap.String("product_id", id.String()))
		return nil, storeErr("update_product", err)
	}

	ps.log.Info("Product updated", zap.String("product_id", id.String()))
	resp := response.ProductToResponse(product, false)
	return &resp, nil
}

func (ps *productService) Delete(ctx context.Context, sellerID, id uuid.UUID) error {
	if _, err := ps.owned(ctx, sellerID, id); err != nil {
		return err
	}

	if err := ps.productRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return productNotFound(id)
		}
		utils.LogError(ps.log, "Failed to delete product", err, zap.String("product_id", id.String()))
		return storeErr("delete_product", err)
	}
	return nil
}

func (ps *productService) ImageUploadURL(ctx context.Context, sellerID uuid.UUID, req *request.UploadURLRequest) (*response.UploadURLResponse, error) {
	if ps.images == nil {
		return nil, oops.Code("UPLOADS_DISABLED").Wrap(ErrUploadsDisabled)
	}
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, validationErr(errs)
	}

	upload, err := ps.images.PresignUpload(ctx, sellerID, strings.ToLower(strings.TrimSpace(req.ContentType)))
	if errors.Is(err, storage.ErrUnsupportedContentType) {
		return nil, fieldErr("ContentType", "Only JPEG, PNG, WebP and GIF images are allowed")
	}
	if err != nil {
		utils.LogError(ps.log, "Failed to presign image upload", err, zap.String("seller_id", sellerID.String()))
		return nil, oops.Code("UPLOAD_URL_FAILED").Wrapf(err, "presign image upload")
	}

	return &response.UploadURLResponse{
		Key:       upload.Key,
		URL:       upload.URL,
		Method:    "PUT",
		ExpiresAt: upload.ExpiresAt,
	}, nil
}

// owned loads a product and checks that sellerID may change it.
func (ps *productService) owned(ctx context.Context, sellerID, id uuid.UUID) (*entity.Product, error) {
	product, err := ps.productRepo.FindByID(ctx, id)
	if err != nil {
		utils.LogError(ps.log, "Failed to find product", err, zap.String("product_id", id.String()))
		return nil, storeErr("find_product", err)
	}
	if product == nil {
		return nil, productNotFound(id)
	}
	if product.SellerID != sellerID {
		ps.log.Warn("Product change by non-owner",
			zap.String("product_id", id.String()),
			zap.String("user_id", sellerID.String()))
		return nil, oops.Code("PRODUCT_FORBIDDEN").With("product_id", id.String()).Wrap(ErrForbidden)
	}
	return product, nil
}

func validateProduct(req *request.ProductRequest) error {
	errs := utils.ValidateStruct(req)
	if errs == nil {
		errs = map[string]string{}
	}
	if req.Category != "" && !entity.ProductCategory(req.Category).Valid() {
		errs["Category"] = "Invalid category"
	}
	if req.Condition != "" && !entity.ProductCondition(req.Condition).Valid() {
		errs["Condition"] = "Invalid condition"
	}
	if len(errs) > 0 {
		return validationErr(errs)
	}
	return nil
}

func applyProduct(p *entity.Product, req *request.ProductRequest) {
	p.Title = strings.TrimSpace(req.Title)
	p.Description = strings.TrimSpace(req.Description)
	p.Price = req.Price
	p.Category = entity.ProductCategory(req.Category)
	p.Condition = entity.ProductCondition(req.Condition)
	p.Images = req.Images
	p.Location = req.Location
	p.Tags = normalizeTags(req.Tags)
	if req.IsAvailable != nil {
		p.IsAvailable = *req.IsAvailable
	}
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if _, dup := seen[t]; t == "" || dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func productNotFound(id uuid.UUID) error {
	return oops.Code("PRODUCT_NOT_FOUND").With("product_id", id.String()).Wrap(ErrNotFound)
}
