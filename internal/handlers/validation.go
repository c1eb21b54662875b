package handlers

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	appErrors "github.com/charlesng35/partyd/pkg/errors"
	"github.com/charlesng35/partyd/pkg/response"
	appValidator "github.com/charlesng35/partyd/pkg/validator"
)

// bindAndValidate binds the JSON payload into dest and runs struct validation rules.
// When validation fails, an error response is automatically written and false is returned.
// An empty body binds as an empty object.
func bindAndValidate[T any](c *gin.Context, dest *T) bool {
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(dest); err != nil {
			response.Error(c, appErrors.NewBadRequest("invalid JSON payload"))
			return false
		}
	}

	if err := appValidator.ValidateStruct(dest); err != nil {
		response.Error(c, err)
		return false
	}

	return true
}

func parseIntQuery(c *gin.Context, key string, fallback int) int {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
