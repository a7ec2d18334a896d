package middleware

import (
	"fmt"
	"net/http"

	"github.com/angelmondragon/portfolios-backend/api/responses"
	pkgerrors "github.com/angelmondragon/portfolios-backend/pkg/errors"
	"github.com/angelmondragon/portfolios-backend/pkg/logger"
)

// Recoverer answers a handler panic with an internal error envelope.
// http.ErrAbortHandler is re-raised so the server still aborts the response.
func Recoverer(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				err := fmt.Errorf("panic serving %s %s: %v", r.Method, r.URL.Path, rec)
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "internal error"))
			}()
			next.ServeHTTP(w, r)
		})
	}
}
