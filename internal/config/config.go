package config

import "time"

type Config interface {
	EnvConfig
	CorsConfig
	ProxyConfig
	BankIDConfig
	StoreConfig
	TokenConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type ProxyConfig interface {
	GetTrustedProxies() TrustedProxies
}

type BankIDConfig interface {
	GetBankIDBaseURL() string
	GetBankIDCertPath() string
	GetBankIDCertPassword() string
	GetBankIDCAPath() string
	GetBankIDServerName() string
	GetBankIDInsecure() bool
	GetBankIDFake() bool
	GetCollectInterval() time.Duration
	GetCollectMaxTicks() int
}

type StoreConfig interface {
	GetStore() string
	GetOrderTTL() time.Duration
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisDB() int
}

type TokenConfig interface {
	GetTokenSecret() string
	GetTokenIssuer() string
	GetTokenExpiry() time.Duration
}

type mainConfig struct {
	EnvVars
	Cors
	Proxy
	BankID
	Store
	Token
}

func New() Config {
	return mainConfig{}
}
