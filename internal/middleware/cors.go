package middleware

import (
	"net/http"

	"github.com/rs/cors"
)

// EnableCORS lets the separately served editor UI call the API with
// credentials and read download names from Content-Disposition.
func EnableCORS(next http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowOriginFunc:  func(string) bool { return true },
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", RequestIDHeader},
		ExposedHeaders:   []string{"Content-Disposition", RequestIDHeader},
		AllowCredentials: true,
	}).Handler(next)
}
