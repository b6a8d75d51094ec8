package request

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
)

// RouteStringParam returns a URL route parameter as string.
func RouteStringParam(r *http.Request, param string) string {
	return mux.Vars(r)[param]
}

// QueryStringParam returns a query string parameter as string, or
// defaultValue when it is absent.
func QueryStringParam(r *http.Request, param, defaultValue string) string {
	value := r.URL.Query().Get(param)
	if value == "" {
		value = defaultValue
	}
	return value
}

// QueryIntParam returns a query string parameter as int, or defaultValue
// when it is absent or not a positive number.
func QueryIntParam(r *http.Request, param string, defaultValue int) int {
	value, err := strconv.Atoi(r.URL.Query().Get(param))
	if err != nil || value < 0 {
		return defaultValue
	}
	return value
}
