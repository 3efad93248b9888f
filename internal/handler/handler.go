package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/franchise-pos/api/internal/authz"
	"github.com/jackc/pgx/v5/pgconn"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("ERROR: failed to encode JSON response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDenial maps an authorization denial to 401 or 403 with the
// stable reason code as the error body.
func writeDenial(w http.ResponseWriter, err error) {
	var d *authz.Denial
	if !errors.As(err, &d) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}
	status := http.StatusForbidden
	if d.Reason == authz.ReasonNotAuthenticated {
		status = http.StatusUnauthorized
	}
	if d.Reason == authz.ReasonMissingLocations {
		status = http.StatusBadRequest
	}
	writeError(w, status, string(d.Reason))
}

// isUniqueViolation reports whether err is a Postgres duplicate-key
// error (code 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
