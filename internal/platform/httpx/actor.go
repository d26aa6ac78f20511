package httpx

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/evgarage-erp/evgarage-erp/internal/shared"
)

// Identity headers set by the gateway that authenticates requests upstream.
const (
	HeaderActorID   = "X-Actor-Id"
	HeaderActorRole = "X-Actor-Role"
	HeaderOrgID     = "X-Org-Id"
)

// ActorFromRequest reads the authenticated actor from the gateway headers.
func ActorFromRequest(r *http.Request) (shared.Actor, error) {
	actor := shared.Actor{
		UserID: r.Header.Get(HeaderActorID),
		Role:   shared.Role(r.Header.Get(HeaderActorRole)),
		IP:     r.RemoteAddr,
	}
	if actor.UserID == "" {
		return shared.Actor{}, fmt.Errorf("%w: missing %s header", shared.ErrValidation, HeaderActorID)
	}
	if !actor.Role.Valid() {
		return shared.Actor{}, fmt.Errorf("%w: missing or unknown %s header", shared.ErrValidation, HeaderActorRole)
	}
	return actor, nil
}

// OrgFromRequest reads the tenant organization from the gateway headers.
func OrgFromRequest(r *http.Request) (uuid.UUID, error) {
	org, err := uuid.Parse(r.Header.Get(HeaderOrgID))
	if err != nil || org == uuid.Nil {
		return uuid.Nil, fmt.Errorf("%w: missing or malformed %s header", shared.ErrValidation, HeaderOrgID)
	}
	return org, nil
}
