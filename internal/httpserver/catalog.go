package httpserver

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/transport"
	"github.com/Skotchmaster/storefront/internal/util"
	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

type CatalogHTTP struct {
	Catalog *service.CatalogService
}

func (h *CatalogHTTP) ListCategories(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.list_categories")

	cats, err := h.Catalog.ListCategories(ctx)
	if err != nil {
		return fail(l, "list_categories_error", err)
	}
	return c.JSON(http.StatusOK, cats)
}

func (h *CatalogHTTP) CreateCategory(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.create_category")

	var req transport.CreateCategoryRequest
	if err := bindAndValidate(c, l, "create_category_error", &req); err != nil {
		return err
	}
	cat, err := h.Catalog.CreateCategory(ctx, req.Name)
	if err != nil {
		return fail(l, "create_category_error", err)
	}
	return c.JSON(http.StatusCreated, cat)
}

func (h *CatalogHTTP) DeleteCategory(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.delete_category")

	id, err := paramID(c, l, "delete_category_error", "id")
	if err != nil {
		return err
	}
	if err := h.Catalog.DeleteCategory(ctx, id); err != nil {
		return fail(l, "delete_category_error", err)
	}
	return c.JSON(http.StatusOK, map[string]any{"message": "category deleted", "id": id})
}

func parseDecimalParam(c echo.Context, name string) (*decimal.Decimal, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, name+" must be a number")
	}
	return &d, nil
}

func (h *CatalogHTTP) ListProducts(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.list_products")

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("limit"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size, util.DefaultPageSize, util.MaxPageSize)
	if page < 1 {
		page = 1
	}

	f := repo.ProductFilter{
		Q:      strings.TrimSpace(c.QueryParam("q")),
		Sort:   c.QueryParam("sort"),
		Offset: offset,
		Limit:  limit,
	}
	filters := map[string]any{}
	if f.Q != "" {
		filters["q"] = f.Q
	}
	if raw := c.QueryParam("category_id"); raw != "" {
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			l.Warn("list_products_error", "status", 400, "reason", "bad category_id", "error", err)
			return echo.NewHTTPError(http.StatusBadRequest, "category_id must be a positive integer")
		}
		id := uint(n)
		f.CategoryID = &id
		filters["category_id"] = id
	}
	var err error
	if f.MinPrice, err = parseDecimalParam(c, "min_price"); err != nil {
		l.Warn("list_products_error", "status", 400, "reason", "bad min_price")
		return err
	}
	if f.MaxPrice, err = parseDecimalParam(c, "max_price"); err != nil {
		l.Warn("list_products_error", "status", 400, "reason", "bad max_price")
		return err
	}
	if f.MinPrice != nil {
		filters["min_price"] = f.MinPrice.String()
	}
	if f.MaxPrice != nil {
		filters["max_price"] = f.MaxPrice.String()
	}
	if f.Sort == "" {
		f.Sort = "new"
	}

	total, items, err := h.Catalog.ListProducts(ctx, f)
	if err != nil {
		return fail(l, "list_products_error", err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"items": items,
		"meta": transport.PageMeta{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: util.TotalPages(total, limit),
			Sort:       f.Sort,
			Filters:    filters,
		},
	})
}

func (h *CatalogHTTP) GetProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.get_product")

	id, err := paramID(c, l, "get_product_error", "id")
	if err != nil {
		return err
	}
	p, err := h.Catalog.GetProduct(ctx, id)
	if err != nil {
		return fail(l, "get_product_error", err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *CatalogHTTP) SearchProducts(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.search")

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("limit"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size, util.DefaultPageSize, util.MaxPageSize)
	if page < 1 {
		page = 1
	}
	q := c.QueryParam("q")

	total, items, err := h.Catalog.Search(ctx, q, offset, limit)
	if err != nil {
		return fail(l, "search_error", err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"items": items,
		"meta": transport.PageMeta{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: util.TotalPages(total, limit),
			Filters:    map[string]any{"q": strings.TrimSpace(q)},
		},
	})
}

func (h *CatalogHTTP) CreateProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.create_product")

	var req transport.CreateProductRequest
	if err := bindAndValidate(c, l, "create_product_error", &req); err != nil {
		return err
	}

	p, err := h.Catalog.CreateProduct(ctx, service.ProductInput{
		Name:        &req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		CategoryID:  req.CategoryID,
	})
	if err != nil {
		return fail(l, "create_product_error", err)
	}

	l.Info("product_created", "product_id", p.ID)
	return c.JSON(http.StatusCreated, p)
}

func (h *CatalogHTTP) UpdateProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.update_product")

	id, err := paramID(c, l, "update_product_error", "id")
	if err != nil {
		return err
	}
	var req transport.UpdateProductRequest
	if err := bindAndValidate(c, l, "update_product_error", &req); err != nil {
		return err
	}

	p, err := h.Catalog.UpdateProduct(ctx, id, service.ProductInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		CategoryID:  req.CategoryID,
	})
	if err != nil {
		return fail(l, "update_product_error", err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *CatalogHTTP) DeleteProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.delete_product")

	id, err := paramID(c, l, "delete_product_error", "id")
	if err != nil {
		return err
	}
	if err := h.Catalog.DeleteProduct(ctx, id); err != nil {
		return fail(l, "delete_product_error", err)
	}

	l.Info("product_deleted", "product_id", id)
	return c.JSON(http.StatusOK, map[string]any{"message": "product deleted", "id": id})
}
