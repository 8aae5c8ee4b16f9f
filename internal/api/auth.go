package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// userIDKey is the gin context key the auth middleware stores the
// authenticated user id under.
const userIDKey = "auth.userID"

// JWTClaims contains the claims extracted from the bearer token
type JWTClaims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// JWTValidator validates bearer tokens issued by the external auth
// service that shares our signing secret.
type JWTValidator struct {
	secretKey []byte
	issuer    string
}

// NewJWTValidator creates a new JWT validator
func NewJWTValidator(secretKey []byte, issuer string) *JWTValidator {
	return &JWTValidator{secretKey: secretKey, issuer: issuer}
}

// Validate parses and checks the Authorization header value
func (v *JWTValidator) Validate(authHeader string) (*JWTClaims, error) {
	tokenString, err := extractBearerToken(authHeader)
	if err != nil {
		return nil, err
	}

	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secretKey, nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse token")
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}

	if v.issuer != "" && claims.Issuer != v.issuer {
		return nil, errors.New("unexpected token issuer")
	}

	if _, err := uuid.Parse(claims.UserID); err != nil {
		return nil, errors.Wrap(err, "invalid user id in token")
	}

	return claims, nil
}

// GenerateToken mints a token with this validator's secret. Test use
// only; issuance in production belongs to the auth service.
func (v *JWTValidator) GenerateToken(userID uuid.UUID, username string) (string, error) {
	claims := JWTClaims{
		UserID:   userID.String(),
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer: v.issuer,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secretKey)
}

func extractBearerToken(authHeader string) (string, error) {
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", errors.New("invalid authorization header format")
	}
	return parts[1], nil
}

// AuthMiddleware authenticates API requests and stores the caller's
// user id on the context.
func AuthMiddleware(validator *JWTValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := validator.Validate(c.GetHeader("Authorization"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		userID, _ := uuid.Parse(claims.UserID)
		c.Set(userIDKey, userID)
		c.Next()
	}
}

// currentUser returns the authenticated caller's id. With auth disabled
// (development mode) requests act as a fixed anonymous user.
func currentUser(c *gin.Context) uuid.UUID {
	if v, ok := c.Get(userIDKey); ok {
		if id, ok := v.(uuid.UUID); ok {
			return id
		}
	}
	return uuid.Nil
}
