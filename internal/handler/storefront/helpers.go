package storefront

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/dukerupert/fusionx/internal/domain"
	"github.com/dukerupert/fusionx/internal/handler"
	"github.com/dukerupert/fusionx/internal/middleware"
)

var errNoSession = domain.Internal(nil, "http.session", "session middleware not installed")

// session returns the visitor session, answering 500 when the session
// middleware did not run.
func session(w http.ResponseWriter, r *http.Request) (*domain.SessionContext, bool) {
	sess := middleware.GetSession(r.Context())
	if sess == nil {
		handler.ErrorResponse(w, r, errNoSession)
		return nil, false
	}
	return sess, true
}

// pathUUID parses the named path value.
func pathUUID(r *http.Request, name, resource string) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		return uuid.Nil, domain.Errorf(domain.EINVALID, "http.path", "Invalid %s id", resource)
	}
	return id, nil
}
