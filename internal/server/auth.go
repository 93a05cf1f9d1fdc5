package server

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/jwtauth"

	"github.com/Silozo17/homeholdem-sub001/internal/protocol"
	"github.com/Silozo17/homeholdem-sub001/internal/table"
)

var errNoParticipant = protocol.NewError(protocol.CodeNotAuthorized, "server: token has no usable subject")

// NewAuth returns the HS256 token authority for secret
func NewAuth(secret string) *jwtauth.JWTAuth {
	return jwtauth.New("HS256", []byte(secret), nil)
}

// MintToken signs a token naming subject as the participant
func MintToken(auth *jwtauth.JWTAuth, subject string, ttl time.Duration) (string, error) {
	if subject == "" || subject == table.System {
		return "", fmt.Errorf("invalid subject %q", subject)
	}
	now := time.Now()
	_, token, err := auth.Encode(map[string]interface{}{
		"sub": subject,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	})
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

// participant returns the authenticated participant id of r. The reserved
// system identity is never accepted from a token.
func participant(r *http.Request) (string, error) {
	token, claims, err := jwtauth.FromContext(r.Context())
	if err != nil {
		return "", errors.Join(errNoParticipant, err)
	}
	if token == nil {
		return "", errNoParticipant
	}
	sub, _ := claims["sub"].(string)
	if sub == "" || sub == table.System {
		return "", errNoParticipant
	}
	return sub, nil
}
