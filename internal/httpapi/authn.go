package httpapi

import (
	"errors"
	"net/http"

	"osryn.bank/internal/auth"
	"osryn.bank/internal/ledger"
)

const authRealm = `Basic realm="osryn", charset="UTF-8"`

// withAccount checks HTTP Basic credentials on every request and binds the
// authenticated account id to the request context.
func (a *API) withAccount(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		username, secret, ok := r.BasicAuth()
		if !ok || username == "" {
			unauthorized(w, r, "missing credentials")
			return
		}
		acc, err := a.ledger.Authenticate(r.Context(), username, secret)
		if err != nil {
			if errors.Is(err, ledger.ErrInvalidCredentials) {
				unauthorized(w, r, err.Error())
				return
			}
			handleLedgerError(w, r, err)
			return
		}
		ctx := auth.ContextWithAccount(r.Context(), acc.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func unauthorized(w http.ResponseWriter, r *http.Request, msg string) {
	w.Header().Set("WWW-Authenticate", authRealm)
	writeError(w, r, http.StatusUnauthorized, codeInvalidCredentials, msg)
}

// accountID returns the id bound by withAccount.
func accountID(r *http.Request) string {
	id, _ := auth.AccountIDFromContext(r.Context())
	return id
}
