package service

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/zlnvch/whiteboard/models"
)

const tokenLifetime = 24 * time.Hour

// CreateJWT issues the token the auth provider would hand out. Used by tests
// and local tooling; production tokens come from the provider.
func (s *Service) CreateJWT(user models.User) (string, error) {
	claims := jwt.MapClaims{
		"id":   user.Id,
		"name": user.Name,
		"exp":  time.Now().Add(tokenLifetime).Unix(),
		"iat":  time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(s.JWTSecret)
	if err != nil {
		return "", err
	}

	return signedToken, nil
}

func (s *Service) VerifyJWT(tokenString string) (models.User, time.Time, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		return s.JWTSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return models.User{}, time.Time{}, err
	}

	if !token.Valid {
		return models.User{}, time.Time{}, errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return models.User{}, time.Time{}, errors.New("invalid token claims")
	}

	id, ok := claims["id"].(string)
	if !ok || id == "" {
		return models.User{}, time.Time{}, errors.New("missing id claim")
	}

	// Display name is optional
	name, _ := claims["name"].(string)

	expFloat, ok := claims["exp"].(float64)
	if !ok {
		return models.User{}, time.Time{}, errors.New("missing exp claim")
	}
	expiry := time.Unix(int64(expFloat), 0)

	return models.User{Id: id, Name: name}, expiry, nil
}

func (s *Service) AuthenticateToken(ctx context.Context, token string) (models.User, error) {
	if len(token) == 0 {
		return models.User{}, errors.New("token not provided")
	}

	user, _, err := s.VerifyJWT(token)
	if err != nil {
		return models.User{}, err
	}

	return user, nil
}
