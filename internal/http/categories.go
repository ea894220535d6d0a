package http

import (
	"net/http"

	"github.com/driftlab/newsletter-service/internal/model"
	"github.com/driftlab/newsletter-service/internal/repository"
	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
)

// listCategoriesHandler serves the active category catalog. Deliberately
// unpaginated: the catalog stays small.
func listCategoriesHandler(repo repository.CategoriesRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		cats, err := repo.ListActive(c.Request().Context())
		if err != nil {
			log.Errorf("list categories failed: %v", err)

			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query failed"})
		}
		if cats == nil {
			cats = []model.CategoryRef{}
		}

		return c.JSON(http.StatusOK, map[string]any{"categories": cats})
	}
}
