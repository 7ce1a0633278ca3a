package qrtoken

import (
	"encoding/base64"

	"github.com/skip2/go-qrcode"
)

// DefaultSize is the edge length in pixels of generated images.
const DefaultSize = 256

// PNG renders the serialized token as a QR code image.
func PNG(token string, size int) ([]byte, error) {
	if size <= 0 {
		size = DefaultSize
	}
	return qrcode.Encode(token, qrcode.Medium, size)
}

// DataURL renders the token and wraps the PNG for inline <img> use.
func DataURL(token string, size int) (string, error) {
	png, err := PNG(token, size)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
