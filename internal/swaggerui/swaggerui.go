// Package swaggerui serves the embedded Swagger UI for the HTTP surface.
package swaggerui

import (
	"net/http"

	swgui "github.com/swaggest/swgui/v5"
)

const title = "Veliger API"

// Handler serves the UI under basePath, reading the document at specPath.
func Handler(specPath, basePath string) http.Handler {
	return swgui.New(title, specPath, basePath)
}
