package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/dd0wney/cluso-tara/pkg/logging"
)

// PanicRecovery creates middleware that recovers from panics in HTTP
// handlers. This prevents server crashes and returns a proper error
// response. Internal details are logged but not exposed to clients.
func PanicRecovery(log logging.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = logging.DefaultLogger()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.Error("panic in HTTP handler",
						logging.String("method", r.Method),
						logging.Path(r.URL.Path),
						logging.Any("panic", err),
						logging.String("stack", string(debug.Stack())))

					http.Error(w,
						"Internal server error",
						http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
