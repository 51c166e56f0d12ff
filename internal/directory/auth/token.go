package auth

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gartstein/directory/internal/directory/models"
	"github.com/golang-jwt/jwt/v5"
)

const (
	issuer     = "directory"
	DefaultTTL = 24 * time.Hour
)

// GenerateToken signs an HS256 token for identity that expires after ttl.
func GenerateToken(identity models.Identity, secret string, ttl time.Duration) (string, error) {
	if !identity.Authenticated() {
		return "", fmt.Errorf("cannot issue a token for an anonymous identity")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":       strconv.FormatUint(uint64(identity.AccountID), 10),
		"username":  identity.Username,
		"superuser": identity.Superuser,
		"iat":       now.Unix(),
		"exp":       now.Add(ttl).Unix(),
		"iss":       issuer,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseToken validates tokenString and returns the identity it carries.
func ParseToken(tokenString, secret string) (models.Identity, error) {
	claims, err := validateToken(tokenString, secret)
	if err != nil {
		return models.Identity{}, err
	}
	return identityFromClaims(claims)
}

func identityFromClaims(claims jwt.MapClaims) (models.Identity, error) {
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return models.Identity{}, fmt.Errorf("invalid token claims: missing subject")
	}
	accountID, err := strconv.ParseUint(sub, 10, 64)
	if err != nil || accountID == 0 {
		return models.Identity{}, fmt.Errorf("invalid token claims: bad subject %q", sub)
	}
	username, _ := claims["username"].(string)
	superuser, _ := claims["superuser"].(bool)
	return models.Identity{
		AccountID: uint(accountID),
		Username:  username,
		Superuser: superuser,
	}, nil
}
