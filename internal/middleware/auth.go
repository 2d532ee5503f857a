package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"

	identityKey = "identity"
)

// Identity is the caller as asserted by the session service's token.
type Identity struct {
	CustomerID string
	Role       string
}

func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// SignToken issues an HS256 token for customerID. Tokens normally come from
// the session service; this exists for tooling and tests.
func SignToken(secret, customerID, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   customerID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// Auth requires a valid HMAC bearer token and stores the caller's Identity.
func Auth(secret string) gin.HandlerFunc {
	key := []byte(secret)
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
			return
		}
		parts := strings.Fields(auth)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header"})
			return
		}

		var claims Claims
		token, err := jwt.ParseWithClaims(parts[1], &claims, func(t *jwt.Token) (any, error) {
			return key, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		if claims.Subject == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token has no subject"})
			return
		}

		role := claims.Role
		if role == "" {
			role = RoleCustomer
		}
		SetIdentity(c, Identity{CustomerID: claims.Subject, Role: role})
		c.Next()
	}
}

// RequireRole must run after Auth.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := CurrentIdentity(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		if id.Role != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}

func SetIdentity(c *gin.Context, id Identity) {
	c.Set(identityKey, id)
}

var ErrNoIdentity = errors.New("not authenticated")

func CurrentIdentity(c *gin.Context) (Identity, error) {
	v, ok := c.Get(identityKey)
	if !ok {
		return Identity{}, ErrNoIdentity
	}
	id, ok := v.(Identity)
	if !ok {
		return Identity{}, ErrNoIdentity
	}
	return id, nil
}
