package entities

import "github.com/golang-jwt/jwt/v4"

// AuthClaims identify an internal API client (the bot or the admin
// front-end) by service name.
type AuthClaims struct {
	jwt.RegisteredClaims
	Service string
}
