package middlewares

import "context"

type ctxKey string

const (
	// ctxAccountIDKey guarda el ID de cuenta extraído del access token
	ctxAccountIDKey ctxKey = "account_id"
	// ctxRequestIDKey guarda el request ID
	ctxRequestIDKey ctxKey = "request_id"
)

// WithAccountID inyecta el ID de cuenta en el contexto.
func WithAccountID(ctx context.Context, accountID string) context.Context {
	return context.WithValue(ctx, ctxAccountIDKey, accountID)
}

func setRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxRequestIDKey, requestID)
}

// GetAccountID obtiene el ID de cuenta del contexto. Cadena vacía si el
// middleware de auth no se aplicó.
func GetAccountID(ctx context.Context) string {
	if v := ctx.Value(ctxAccountIDKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// GetRequestID obtiene el request ID del contexto.
func GetRequestID(ctx context.Context) string {
	if v := ctx.Value(ctxRequestIDKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
