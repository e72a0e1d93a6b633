// Package service holds the business logic behind the HTTP handlers: the
// reporting engine and the user, product and session services.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/iliyamo/admin-dashboard/internal/apperr"
	"github.com/iliyamo/admin-dashboard/internal/queue"
)

// Failures surfaced to API clients.
var (
	ErrUserNotFound    = apperr.NotFound("User not found")
	ErrEmailTaken      = apperr.BadRequest("User with this email already exists")
	ErrSelfDeactivate  = apperr.BadRequest("You cannot delete your own account")
	ErrProductNotFound = apperr.NotFound("Product not found")
	ErrSKUTaken        = apperr.BadRequest("Product with this SKU already exists")
)

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
)

// Pagination describes one page of a listing.
type Pagination struct {
	CurrentPage int   `json:"currentPage"`
	TotalPages  int   `json:"totalPages"`
	Total       int64 `json:"-"`
	HasNextPage bool  `json:"hasNextPage"`
	HasPrevPage bool  `json:"hasPrevPage"`
	Limit       int   `json:"limit"`
}

// normalizePage clamps page to >= 1 and limit to [1, maxPageLimit], with 0
// meaning the default limit.
func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit == 0 {
		limit = defaultPageLimit
	}
	return page, min(max(limit, 1), maxPageLimit)
}

func newPagination(page, limit int, total int64) Pagination {
	pages := int((total + int64(limit) - 1) / int64(limit))
	return Pagination{
		CurrentPage: page,
		TotalPages:  pages,
		Total:       total,
		HasNextPage: page < pages,
		HasPrevPage: page > 1,
		Limit:       limit,
	}
}

// publish sends an activity event. Broker failures never fail the request.
func publish(ctx context.Context, p queue.Publisher, log *slog.Logger, typ, action string, itemID uint64, item string, actorID uint64, at time.Time) {
	ev := queue.NewActivityEvent(typ, action, itemID, item, actorID, at)
	if err := p.Publish(ctx, ev); err != nil {
		log.Warn("activity event not published",
			slog.String("event_id", ev.ID.String()),
			slog.String("type", typ),
			slog.String("action", action),
			slog.Any("error", err))
	}
}
