package jwttoken

import (
	authmw "onekyc/pkg/platform/middleware/auth"
	"onekyc/pkg/requestcontext"
)

// JWTServiceAdapter exposes the service through the middleware's validator port.
type JWTServiceAdapter struct {
	service *JWTService
}

func NewJWTServiceAdapter(service *JWTService) *JWTServiceAdapter {
	return &JWTServiceAdapter{service: service}
}

func (a *JWTServiceAdapter) ValidateToken(tokenString string) (*authmw.JWTClaims, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return &authmw.JWTClaims{
		Subject: claims.Subject,
		Role:    requestcontext.Role(claims.Role),
		JTI:     claims.ID,
	}, nil
}
