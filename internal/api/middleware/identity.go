// identity.go — identificador de petición y identidad administrativa
// propagada por el gateway. La autenticación real ocurre aguas arriba;
// aquí sólo se leen las cabeceras ya validadas.
package middleware

import (
	"context"
	"net/http"
	"strconv"

	"github.com/google/uuid"
)

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	adminUserKey contextKey = "admin_user_id"
)

// Cabeceras reconocidas.
const (
	HeaderRequestID   = "X-Request-Id"
	HeaderAdminUserID = "X-Admin-User-Id"
)

// RequestID devuelve un middleware que asegura un identificador único por
// petición: respeta el X-Request-Id entrante o genera un UUID nuevo, y lo
// devuelve también en la respuesta.
func RequestID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(HeaderRequestID)
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set(HeaderRequestID, id)

			ctx := context.WithValue(r.Context(), requestIDKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestIDFromContext devuelve el identificador de la petición, o vacío.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// AdminIdentity devuelve un middleware que propaga al contexto el id del
// operador administrativo inyectado por el gateway, si está presente.
func AdminIdentity() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get(HeaderAdminUserID)
			if raw == "" {
				next.ServeHTTP(w, r)
				return
			}
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || id <= 0 {
				next.ServeHTTP(w, r)
				return
			}
			ctx := context.WithValue(r.Context(), adminUserKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AdminUserIDFromContext devuelve el id del operador, o nil si la
// petición llegó sin identidad.
func AdminUserIDFromContext(ctx context.Context) *int64 {
	id, ok := ctx.Value(adminUserKey).(int64)
	if !ok {
		return nil
	}
	return &id
}
