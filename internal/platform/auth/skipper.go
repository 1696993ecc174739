package auth

import (
	"github.com/labstack/echo/v4"
)

// publicPaths bypass authentication. These are infrastructure endpoints that
// probes call without credentials.
var publicPaths = map[string]bool{
	"/health":    true,
	"/health/db": true,
}

// AuthSkipper returns true for requests whose path should skip authentication.
func AuthSkipper(c echo.Context) bool {
	return publicPaths[c.Path()]
}

func IsPublicPath(path string) bool {
	return publicPaths[path]
}
