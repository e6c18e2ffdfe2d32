package connection

import (
	"encoding/base64"

	qrCode "github.com/skip2/go-qrcode"
)

// renderQRCode encodes the daemon's raw pairing code as a PNG data URI the
// front end can drop straight into an img tag.
func renderQRCode(code string) (string, error) {
	qrPNG, err := qrCode.Encode(code, qrCode.Medium, 256)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(qrPNG), nil
}
