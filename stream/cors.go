package stream

import (
	"net/http"
	"strconv"
	"strings"
)

// Cors configures cross-origin headers on the SSE server so browser-based
// dashboards can subscribe to progress streams.
type Cors struct {
	AllowCredentials *bool
	AllowHeaders     []string
	AllowMethods     []string
	AllowOrigins     []string
	MaxAge           *int64
}

func defaultCors() *Cors {
	return &Cors{
		AllowHeaders: []string{"Content-Type", "Last-Event-ID"},
		AllowMethods: []string{http.MethodGet, http.MethodOptions},
		AllowOrigins: []string{"*"},
	}
}

func (c *Cors) originAllowed(origin string) bool {
	for _, candidate := range c.AllowOrigins {
		if candidate == "*" || candidate == origin {
			return true
		}
	}
	return false
}

func (c *Cors) setHeaders(writer http.ResponseWriter, request *http.Request) {
	if c == nil {
		return
	}
	origin := request.Header.Get("Origin")
	switch {
	case origin == "" && c.originAllowed("*"):
		writer.Header().Set("Access-Control-Allow-Origin", "*")
	case origin != "" && c.originAllowed(origin):
		writer.Header().Set("Access-Control-Allow-Origin", origin)
	}
	if len(c.AllowMethods) > 0 {
		writer.Header().Set("Access-Control-Allow-Methods", strings.Join(c.AllowMethods, ", "))
	}
	if len(c.AllowHeaders) > 0 {
		writer.Header().Set("Access-Control-Allow-Headers", strings.Join(c.AllowHeaders, ", "))
	}
	if c.AllowCredentials != nil {
		writer.Header().Set("Access-Control-Allow-Credentials", strconv.FormatBool(*c.AllowCredentials))
	}
	if c.MaxAge != nil {
		writer.Header().Set("Access-Control-Max-Age", strconv.Itoa(int(*c.MaxAge)))
	}
}

// Middleware sets CORS headers and short-circuits preflight requests.
func (c *Cors) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		c.setHeaders(writer, request)
		if request.Method == http.MethodOptions {
			writer.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(writer, request)
	})
}
