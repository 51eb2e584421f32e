package transport

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"mesaYaRelay/internal/modules/relay/application/usecase"
)

// NewGroupsHTTPHandler serves GET /groups as `groups list: ["a", "b"]`.
func NewGroupsHTTPHandler(listUC *usecase.ListGroupsUseCase) echo.HandlerFunc {
	return func(c echo.Context) error {
		groups := listUC.Execute()
		quoted := make([]string, len(groups))
		for i, g := range groups {
			quoted[i] = strconv.Quote(g)
		}
		return c.String(http.StatusOK, "groups list: ["+strings.Join(quoted, ", ")+"]")
	}
}

func HealthHTTPHandler(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}
