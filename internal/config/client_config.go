package config

import "time"

// ClientConfig holds the login client defaults. Command line flags override them.
type ClientConfig interface {
	EnvConfig
	GetLoginServerURL() string
	GetIPLookupURL() string
	GetAppScheme() string
	GetPollInterval() time.Duration
	GetLoginTimeout() time.Duration
}

type Client struct {
	EnvVars
}

var _ ClientConfig = Client{}

func NewClientConfig() ClientConfig {
	return Client{}
}

func (Client) GetLoginServerURL() string {
	return GetEnv("LOGIN_SERVER_URL", "http://localhost:8080")
}

// GetIPLookupURL is empty by default, which means the public ipify service
func (Client) GetIPLookupURL() string {
	return GetEnv("IP_LOOKUP_URL", "")
}

func (Client) GetAppScheme() string {
	return GetEnv("BANKID_APP_SCHEME", "bankid")
}

func (Client) GetPollInterval() time.Duration {
	return GetEnvDuration("POLL_INTERVAL", time.Second)
}

func (Client) GetLoginTimeout() time.Duration {
	return GetEnvDuration("LOGIN_TIMEOUT", 3*time.Minute)
}
