package config_test

import (
	"net/netip"
	"testing"
	"time"

	"github.com/jrsteele09/go-bankid-auth/internal/config"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	c := config.New()

	require.Equal(t, ":8080", c.GetPort())
	require.Equal(t, "DEV", c.GetEnv())
	require.Equal(t, 2*time.Second, c.GetCollectInterval())
	require.Equal(t, 15, c.GetCollectMaxTicks())
	require.Equal(t, config.StoreMemory, c.GetStore())
	require.Equal(t, 10*time.Minute, c.GetOrderTTL())
	require.False(t, c.GetBankIDFake())
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("BANKID_COLLECT_INTERVAL", "500ms")
	t.Setenv("BANKID_COLLECT_MAX_TICKS", "3")
	t.Setenv("BANKID_FAKE", "true")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test, http://b.test")

	c := config.New()

	require.Equal(t, ":9000", c.GetPort())
	require.Equal(t, 500*time.Millisecond, c.GetCollectInterval())
	require.Equal(t, 3, c.GetCollectMaxTicks())
	require.True(t, c.GetBankIDFake())
	require.Equal(t, 2, c.GetRedisDB())
	require.True(t, c.GetAllowedOrigins().IsAllowedOrigin("http://b.test"))
	require.False(t, c.GetAllowedOrigins().IsAllowedOrigin("http://c.test"))
}

func TestInvalidValuesFallBack(t *testing.T) {
	t.Setenv("ORDER_TTL", "soon")
	t.Setenv("BANKID_INSECURE", "maybe")
	t.Setenv("BANKID_COLLECT_MAX_TICKS", "many")

	c := config.New()

	require.Equal(t, 10*time.Minute, c.GetOrderTTL())
	require.False(t, c.GetBankIDInsecure())
	require.Equal(t, 15, c.GetCollectMaxTicks())
}

func TestClientConfig(t *testing.T) {
	c := config.NewClientConfig()
	require.Equal(t, "http://localhost:8080", c.GetLoginServerURL())
	require.Equal(t, "bankid", c.GetAppScheme())
	require.Equal(t, time.Second, c.GetPollInterval())

	t.Setenv("LOGIN_SERVER_URL", "https://login.example.test")
	t.Setenv("POLL_INTERVAL", "250ms")
	require.Equal(t, "https://login.example.test", c.GetLoginServerURL())
	require.Equal(t, 250*time.Millisecond, c.GetPollInterval())
}

func TestTrustedProxies(t *testing.T) {
	require.Empty(t, config.New().GetTrustedProxies())

	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 192.0.2.7, not-an-ip, ::1")
	proxies := config.New().GetTrustedProxies()
	require.Len(t, proxies, 3)

	tests := []struct {
		addr string
		want bool
	}{
		{addr: "10.20.30.40", want: true},
		{addr: "192.0.2.7", want: true},
		{addr: "::ffff:192.0.2.7", want: true},
		{addr: "::1", want: true},
		{addr: "192.0.2.8", want: false},
		{addr: "81.2.3.4", want: false},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, proxies.Contains(netip.MustParseAddr(tt.addr)), tt.addr)
	}
}
