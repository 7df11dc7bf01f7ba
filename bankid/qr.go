package bankid

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/skip2/go-qrcode"
)

// DefaultQRSize is the rendered image width in pixels
const DefaultQRSize = 150

// QRData builds the animated QR payload for an order that has been running for elapsed.
// The code changes every second: bankid.<qrStartToken>.<seconds>.<hmac>
func QRData(qrStartToken, qrStartSecret string, elapsed time.Duration) string {
	secs := strconv.FormatInt(int64(elapsed/time.Second), 10)
	mac := hmac.New(sha256.New, []byte(qrStartSecret))
	mac.Write([]byte(secs))
	return "bankid." + qrStartToken + "." + secs + "." + hex.EncodeToString(mac.Sum(nil))
}

// RenderQR encodes data as a borderless PNG of the given size.
func RenderQR(data string, size int) ([]byte, error) {
	if size <= 0 {
		size = DefaultQRSize
	}
	code, err := qrcode.New(data, qrcode.Medium)
	if err != nil {
		return nil, errors.Wrap(err, "[RenderQR]")
	}
	code.DisableBorder = true

	png, err := code.PNG(size)
	if err != nil {
		return nil, errors.Wrap(err, "[RenderQR] encode")
	}
	return png, nil
}
