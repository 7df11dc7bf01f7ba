package bankid_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/jrsteele09/go-bankid-auth/bankid"
	"github.com/stretchr/testify/require"
)

func TestQRData(t *testing.T) {
	const (
		token  = "67df3917-fa0d-44e5-b327-edcc928297f8"
		secret = "d28db9a7-4cde-429e-a983-359be676944c"
	)

	require.Equal(t,
		"bankid.67df3917-fa0d-44e5-b327-edcc928297f8.0.dc69358e712458a66a7525beef148ae8526b1c71610eff2c16cdffb4cdac9bf8",
		bankid.QRData(token, secret, 900*time.Millisecond))
	require.Equal(t,
		"bankid.67df3917-fa0d-44e5-b327-edcc928297f8.12.7b2410a2fdbae51a1f3c5c1e223752d3840ea4664444ceb81319f0707d219a3c",
		bankid.QRData(token, secret, 12*time.Second+500*time.Millisecond))
}

func TestRenderQR(t *testing.T) {
	png, err := bankid.RenderQR("bankid.token.0.abc", 0)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(png, []byte("\x89PNG\r\n\x1a\n")))
}

func TestNormalizePersonalNumber(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "199001011234", want: "199001011234"},
		{in: "19900101-1234", want: "199001011234"},
		{in: "900101-1234", want: "199001011234"},
		{in: "0501011234", want: "200501011234"},
		{in: "2001011234", want: "202001011234"},
		{in: "2101011234", want: "192101011234"},
		{in: "19 900101 1234", want: "199001011234"},
		{in: "", wantErr: true},
		{in: "90010A-1234", wantErr: true},
		{in: "12345", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := bankid.NormalizePersonalNumber(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestUserMessage(t *testing.T) {
	require.Equal(t, "RFA8", bankid.UserMessage(bankid.StatusFailed, bankid.HintExpiredTransaction))
	require.Equal(t, "RFA6", bankid.UserMessage(bankid.StatusFailed, bankid.HintUserCancel))
	require.Equal(t, "RFA22", bankid.UserMessage(bankid.StatusFailed, "somethingNew"))
	require.Equal(t, "RFA21", bankid.UserMessage(bankid.StatusPending, "somethingNew"))
}
