package middleware

import (
	"net/http"
	"net/url"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// redactedParams are query parameters that carry credentials.
var redactedParams = []string{"token"}

// RequestLogger is chi's access log with credentials removed from the logged
// request URI.
func RequestLogger(out chimiddleware.LoggerInterface) func(http.Handler) http.Handler {
	return chimiddleware.RequestLogger(&redactingFormatter{
		next: &chimiddleware.DefaultLogFormatter{Logger: out, NoColor: true},
	})
}

type redactingFormatter struct {
	next chimiddleware.LogFormatter
}

func (f *redactingFormatter) NewLogEntry(r *http.Request) chimiddleware.LogEntry {
	return f.next.NewLogEntry(redactQuery(r))
}

// redactQuery returns a shallow copy of r whose RequestURI hides credential
// parameters. r itself is left untouched.
func redactQuery(r *http.Request) *http.Request {
	if r.URL == nil || r.URL.RawQuery == "" {
		return r
	}
	q, err := url.ParseQuery(r.URL.RawQuery)
	if err != nil {
		out := *r
		out.RequestURI = r.URL.Path
		return &out
	}
	changed := false
	for _, name := range redactedParams {
		if q.Has(name) {
			q.Set(name, "REDACTED")
			changed = true
		}
	}
	if !changed {
		return r
	}
	out := *r
	out.RequestURI = r.URL.Path + "?" + q.Encode()
	return &out
}

// RequestID makes sure every request carries an X-Request-ID, echoing it back
// on the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
			r.Header.Set("X-Request-ID", id)
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r)
	})
}

// CORS allows the configured frontend origin.
func CORS(allowedOrigin string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && (allowedOrigin == "*" || origin == allowedOrigin) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID")
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, OPTIONS")
				w.Header().Add("Vary", "Origin")
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
