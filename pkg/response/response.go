// Package response holds the JSON envelope every endpoint answers with.
package response

import "github.com/gofiber/fiber/v2"

type Meta struct {
	Page      int `json:"page"`
	Limit     int `json:"limit"`
	Total     int `json:"total"`
	TotalPage int `json:"total_page"`
}

// NewMeta pages total rows by limit.
func NewMeta(page, limit, total int) *Meta {
	m := &Meta{Page: page, Limit: limit, Total: total}
	if limit > 0 {
		m.TotalPage = (total + limit - 1) / limit
	}
	return m
}

// Envelope wraps a payload of type T. Handlers write Envelope[any];
// clients and tests decode into the concrete payload they expect, e.g.
// Envelope[dto.BatchResult] for damage ingest.
type Envelope[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    T      `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Meta    *Meta  `json:"meta,omitempty"`
}

func Success[T any](message string, data T) Envelope[T] {
	return Envelope[T]{Success: true, Message: message, Data: data}
}

func Failure(message string, err string) Envelope[any] {
	return Envelope[any]{Message: message, Error: err}
}

// WriteSuccess writes a success envelope with the given status code.
func WriteSuccess(c *fiber.Ctx, code int, message string, data any) error {
	return c.Status(code).JSON(Success(message, data))
}

// WriteSuccessWithMeta is WriteSuccess for paged lists.
func WriteSuccessWithMeta(c *fiber.Ctx, code int, message string, data any, meta *Meta) error {
	env := Success(message, data)
	env.Meta = meta
	return c.Status(code).JSON(env)
}

func WriteError(c *fiber.Ctx, code int, message string, err string) error {
	return c.Status(code).JSON(Failure(message, err))
}
