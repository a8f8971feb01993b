// Package handler exposes the book catalog over REST under /api/v1/books.
// Reads are public; writes require an authenticated identity.
package handler

import (
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/Sumitbhoyar/bookstore-microservices-sub002/internal/catalog/domain"
	"github.com/Sumitbhoyar/bookstore-microservices-sub002/internal/catalog/repository"
	"github.com/Sumitbhoyar/bookstore-microservices-sub002/internal/server/middleware"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// CatalogHandler serves the /api/v1/books endpoints.
type CatalogHandler struct {
	repo repository.Repository
}

// NewCatalogHandler returns a CatalogHandler backed by repo.
func NewCatalogHandler(repo repository.Repository) *CatalogHandler {
	return &CatalogHandler{repo: repo}
}

// Register mounts the catalog routes on r.
func (h *CatalogHandler) Register(r fiber.Router) {
	r.Get("/", h.list)
	r.Get("/:id", h.get)
	r.Post("/", middleware.RequireAuth(), h.create)
}

type createBookRequest struct {
	Title      string `json:"title"`
	Author     string `json:"author"`
	ISBN       string `json:"isbn"`
	PriceCents int64  `json:"price_cents"`
	Stock      int32  `json:"stock"`
}

func (r createBookRequest) validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Required),
		validation.Field(&r.Author, validation.Required),
		validation.Field(&r.ISBN, validation.Required, validation.Length(10, 17)),
		validation.Field(&r.PriceCents, validation.Min(0)),
		validation.Field(&r.Stock, validation.Min(0)),
	)
}

type bookResponse struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Author     string    `json:"author"`
	ISBN       string    `json:"isbn"`
	PriceCents int64     `json:"price_cents"`
	Stock      int32     `json:"stock"`
	CreatedAt  time.Time `json:"created_at"`
}

func newBookResponse(b *domain.Book) bookResponse {
	return bookResponse{
		ID:         b.ID,
		Title:      b.Title,
		Author:     b.Author,
		ISBN:       b.ISBN,
		PriceCents: b.PriceCents,
		Stock:      b.Stock,
		CreatedAt:  b.CreatedAt,
	}
}

func (h *CatalogHandler) list(c *fiber.Ctx) error {
	limit := int32(c.QueryInt("limit", defaultPageSize))
	if limit <= 0 || limit > maxPageSize {
		limit = defaultPageSize
	}
	offset := int32(c.QueryInt("offset", 0))
	if offset < 0 {
		offset = 0
	}

	books, err := h.repo.List(c.UserContext(), limit, offset)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
	out := make([]bookResponse, 0, len(books))
	for _, b := range books {
		out = append(out, newBookResponse(b))
	}
	return c.JSON(fiber.Map{"books": out})
}

func (h *CatalogHandler) get(c *fiber.Ctx) error {
	b, err := h.repo.FindByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
	if b == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "book not found"})
	}
	return c.JSON(newBookResponse(b))
}

func (h *CatalogHandler) create(c *fiber.Ctx) error {
	var req createBookRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "malformed request body"})
	}
	if err := req.validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	now := time.Now().UTC()
	book := &domain.Book{
		ID:         uuid.New().String(),
		Title:      req.Title,
		Author:     req.Author,
		ISBN:       req.ISBN,
		PriceCents: req.PriceCents,
		Stock:      req.Stock,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := h.repo.Create(c.UserContext(), book); err != nil {
		if errors.Is(err, repository.ErrDuplicateISBN) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "isbn already cataloged"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
	return c.Status(fiber.StatusCreated).JSON(newBookResponse(book))
}
