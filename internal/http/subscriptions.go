package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/driftlab/newsletter-service/internal/config"
	"github.com/driftlab/newsletter-service/internal/model"
	"github.com/driftlab/newsletter-service/internal/service/subscription"
	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
)

// listSubscriptionsHandler validates the four recognized query parameters
// and serves one cursor page of the admin list view.
func listSubscriptionsHandler(svc *subscription.Service, pg config.PaginationConfig) echo.HandlerFunc {
	return func(c echo.Context) error {
		limit := pg.DefaultLimit
		if v := c.QueryParam("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				return c.JSON(http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			}
			limit = n
		}
		if pg.MaxLimit > 0 && limit > pg.MaxLimit {
			limit = pg.MaxLimit
		}

		var cursor *int64
		if v := c.QueryParam("cursor"); v != "" {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return c.JSON(http.StatusBadRequest, map[string]string{"error": "cursor must be numeric"})
			}
			cursor = &n
		}

		dir, ok := model.ParseDirection(c.QueryParam("direction"))
		if !ok {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "direction must either be forward or backward"})
		}

		guids := c.QueryParams()["category_guids"]
		for _, g := range guids {
			if strings.TrimSpace(g) == "" {
				return c.JSON(http.StatusBadRequest, map[string]string{"error": "category_guids must be a list of non-empty strings"})
			}
		}

		page, err := svc.List(c.Request().Context(), subscription.ListOptions{
			CategoryGUIDs: guids,
			Cursor:        cursor,
			Direction:     dir,
			Limit:         limit,
		})
		if err != nil {
			if errors.Is(err, subscription.ErrInvalidLimit) ||
				errors.Is(err, subscription.ErrInvalidDirection) ||
				errors.Is(err, subscription.ErrInvalidFilter) {
				return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
			}

			log.Errorf("list subscriptions failed: %v", err)

			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query failed"})
		}

		return c.JSON(http.StatusOK, page)
	}
}

type createReq struct {
	WorkEmail     string   `json:"work_email"`
	FirstName     string   `json:"first_name"`
	LastName      string   `json:"last_name"`
	CategoryGUIDs []string `json:"category_guids"`
}

func createSubscriptionHandler(svc *subscription.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req createReq
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}

		req.WorkEmail = strings.TrimSpace(req.WorkEmail)
		req.FirstName = strings.TrimSpace(req.FirstName)
		req.LastName = strings.TrimSpace(req.LastName)

		if req.FirstName == "" || req.LastName == "" {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "first_name and last_name are required"})
		}
		if !subscription.ValidEmail(req.WorkEmail) {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "work_email must be a valid email address"})
		}
		if len(req.CategoryGUIDs) == 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "category_guids cannot be empty"})
		}
		for _, g := range req.CategoryGUIDs {
			if strings.TrimSpace(g) == "" {
				return c.JSON(http.StatusBadRequest, map[string]string{"error": "category_guids must be a list of non-empty strings"})
			}
		}

		if err := svc.Create(c.Request().Context(), subscription.CreateParams{
			WorkEmail:     req.WorkEmail,
			FirstName:     req.FirstName,
			LastName:      req.LastName,
			CategoryGUIDs: req.CategoryGUIDs,
		}); err != nil {
			if errors.Is(err, subscription.ErrEmailUnavailable) {
				return c.JSON(http.StatusConflict, map[string]string{"error": "work email is not available"})
			}
			if errors.Is(err, subscription.ErrInvalidEmail) ||
				errors.Is(err, subscription.ErrMissingName) ||
				errors.Is(err, subscription.ErrInvalidFilter) {
				return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
			}

			log.Errorf("create subscription failed: %v", err)

			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "subscription failed"})
		}

		return c.NoContent(http.StatusCreated)
	}
}
