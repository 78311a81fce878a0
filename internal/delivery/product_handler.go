package delivery

import (
	"io"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/MarkRaffy28/MicroBits/internal/domain"
	"github.com/MarkRaffy28/MicroBits/internal/usecase"
)

// ImageStore is the slice of the image store the product and user handlers
// need for uploads and URL resolution.
type ImageStore interface {
	Save(kind string, id int, ext string, data []byte) (string, error)
	URL(kind string, id int) string
}

type ProductHandler struct {
	catalog usecase.CatalogUseCase
	images  ImageStore
	log     *logrus.Logger
}

func NewProductHandler(catalog usecase.CatalogUseCase, images ImageStore, logger *logrus.Logger) *ProductHandler {
	return &ProductHandler{
		catalog: catalog,
		images:  images,
		log:     logger,
	}
}

// RegisterRoutes leaves reads public; every mutation is admin-gated.
func (h *ProductHandler) RegisterRoutes(router gin.IRouter, auth, admin gin.HandlerFunc) {
	products := router.Group("/products")
	{
		products.GET("", h.ListProducts)
		products.GET("/:id", h.GetProductByID)
		products.POST("", auth, admin, h.CreateProduct)
		products.PUT("/:id", auth, admin, h.UpdateProduct)
		products.DELETE("/:id", auth, admin, h.DeleteProduct)
		products.PUT("/:id/image", auth, admin, h.UploadImage)
	}
}

type productRequest struct {
	Name        string          `json:"name" binding:"required"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
}

func (h *ProductHandler) CreateProduct(c *gin.Context) {
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	product := &domain.Product{
		Name:        req.Name,
		Category:    req.Category,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
	}
	created, err := h.catalog.CreateProduct(product)
	if err != nil {
		h.log.Warnf("Failed to create product '%s': %v", req.Name, err)
		ErrorResponse(c, mapErrorToStatus(err), "Failed to create product: "+err.Error())
		return
	}
	SuccessResponse(c, http.StatusCreated, "Product created successfully", created)
}

func (h *ProductHandler) ListProducts(c *gin.Context) {
	products, err := h.catalog.ListProducts()
	if err != nil {
		h.log.Errorf("Failed to list products: %v", err)
		ErrorResponse(c, http.StatusInternalServerError, "Failed to retrieve products")
		return
	}
	if h.images != nil {
		for i := range products {
			if products[i].Image == "" {
				products[i].Image = h.images.URL("products", products[i].ID)
			}
		}
	}
	SuccessResponse(c, http.StatusOK, "Products retrieved successfully", products)
}

func (h *ProductHandler) GetProductByID(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		ErrorResponse(c, http.StatusBadRequest, "Invalid product ID format")
		return
	}

	product, err := h.catalog.GetProductByID(id)
	if err != nil {
		ErrorResponse(c, mapErrorToStatus(err), "Failed to retrieve product: "+err.Error())
		return
	}
	if h.images != nil && product.Image == "" {
		product.Image = h.images.URL("products", product.ID)
	}
	SuccessResponse(c, http.StatusOK, "Product retrieved successfully", product)
}

func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		ErrorResponse(c, http.StatusBadRequest, "Invalid product ID format")
		return
	}

	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	existing, err := h.catalog.GetProductByID(id)
	if err != nil {
		ErrorResponse(c, mapErrorToStatus(err), "Failed to retrieve product: "+err.Error())
		return
	}

	product := &domain.Product{
		Name:        req.Name,
		Category:    req.Category,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		Image:       existing.Image,
	}
	updated, err := h.catalog.UpdateProduct(id, product)
	if err != nil {
		h.log.Warnf("Failed to update product %d: %v", id, err)
		ErrorResponse(c, mapErrorToStatus(err), "Failed to update product: "+err.Error())
		return
	}
	SuccessResponse(c, http.StatusOK, "Product updated successfully", updated)
}

func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		ErrorResponse(c, http.StatusBadRequest, "Invalid product ID format")
		return
	}

	product, err := h.catalog.GetProductByID(id)
	if err != nil {
		ErrorResponse(c, mapErrorToStatus(err), "Failed to retrieve product: "+err.Error())
		return
	}
	if err := h.catalog.DeleteProduct(id); err != nil {
		ErrorResponse(c, mapErrorToStatus(err), "Failed to delete product: "+err.Error())
		return
	}
	SuccessResponse(c, http.StatusOK, "Product deleted", gin.H{"deleted": true, "product": product})
}

func (h *ProductHandler) UploadImage(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		ErrorResponse(c, http.StatusBadRequest, "Invalid product ID format")
		return
	}
	if h.images == nil {
		ErrorResponse(c, http.StatusNotImplemented, "Image storage is not configured")
		return
	}

	existing, err := h.catalog.GetProductByID(id)
	if err != nil {
		ErrorResponse(c, mapErrorToStatus(err), "Failed to retrieve product: "+err.Error())
		return
	}

	file, err := c.FormFile("image")
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Image file is required")
		return
	}
	src, err := file.Open()
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Could not read uploaded file")
		return
	}
	defer src.Close()
	data, err := io.ReadAll(src)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Could not read uploaded file")
		return
	}

	url, err := h.images.Save("products", id, filepath.Ext(file.Filename), data)
	if err != nil {
		h.log.Errorf("Failed to store image for product %d: %v", id, err)
		ErrorResponse(c, http.StatusInternalServerError, "Failed to store image")
		return
	}

	existing.Image = url
	updated, err := h.catalog.UpdateProduct(id, existing)
	if err != nil {
		ErrorResponse(c, mapErrorToStatus(err), "Failed to update product image: "+err.Error())
		return
	}
	SuccessResponse(c, http.StatusOK, "Product image updated", updated)
}
