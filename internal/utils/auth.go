package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// GenerateAgentToken generates a JWT bearer token for an automation agent
// (the orchestrating LLM runtime or a webhook caller).
func GenerateAgentToken(agentID, name, secret string) (string, error) {
	claims := jwt.MapClaims{
		"agent_id": agentID,
		"name":     name,
		"type":     "agent",
		"iat":      time.Now().Unix(),
		"exp":      time.Now().Add(time.Hour * 24 * 365).Unix(), // 1 year expiration
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ValidateToken parses and validates a token
func ValidateToken(tokenString string, secret string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}
