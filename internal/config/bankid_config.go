package config

import "time"

type BankID struct{}

var _ BankIDConfig = BankID{}

// GetBankIDBaseURL returns the relying party API root, without the /rp/v6.0 suffix.
func (BankID) GetBankIDBaseURL() string {
	return GetEnv("BANKID_BASE_URL", "https://appapi2.test.bankid.com")
}

func (BankID) GetBankIDCertPath() string {
	return GetEnv("BANKID_CERT_PATH", "")
}

func (BankID) GetBankIDCertPassword() string {
	return GetEnv("BANKID_CERT_PASSWORD", "")
}

func (BankID) GetBankIDCAPath() string {
	return GetEnv("BANKID_CA_PATH", "")
}

func (BankID) GetBankIDServerName() string {
	return GetEnv("BANKID_SERVER_NAME", "appapi2.test.bankid.com")
}

func (BankID) GetBankIDInsecure() bool {
	return GetEnvBool("BANKID_INSECURE", false)
}

// GetBankIDFake swaps the relying party client for the in-process fake
func (BankID) GetBankIDFake() bool {
	return GetEnvBool("BANKID_FAKE", false)
}

func (BankID) GetCollectInterval() time.Duration {
	return GetEnvDuration("BANKID_COLLECT_INTERVAL", 2*time.Second)
}

func (BankID) GetCollectMaxTicks() int {
	return GetEnvInt("BANKID_COLLECT_MAX_TICKS", 15)
}
