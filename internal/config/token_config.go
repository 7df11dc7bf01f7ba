package config

import "time"

type Token struct{}

var _ TokenConfig = Token{}

func (Token) GetTokenSecret() string {
	return GetEnv("TOKEN_SECRET", "")
}

func (Token) GetTokenIssuer() string {
	return GetEnv("TOKEN_ISSUER", "go-bankid-auth")
}

func (Token) GetTokenExpiry() time.Duration {
	return GetEnvDuration("TOKEN_EXPIRY", 30*time.Minute)
}
