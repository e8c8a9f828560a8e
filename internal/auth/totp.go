// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package auth

import (
	"encoding/base64"
	"fmt"

	"github.com/pquerna/otp/totp"
	qrcode "github.com/skip2/go-qrcode"
)

// TOTPSetup is returned when an admin starts 2FA enrolment.
type TOTPSetup struct {
	Secret string `json:"secret"`
	URL    string `json:"otpauth_url"`
	QRCode string `json:"qr_code_png"` // base64-encoded PNG
}

// NewTOTP generates a TOTP secret for account and renders its QR code.
func NewTOTP(issuer, account string) (*TOTPSetup, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: account,
	})
	if err != nil {
		return nil, fmt.Errorf("generate totp: %w", err)
	}

	qrPNG, err := qrcode.Encode(key.URL(), qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("encode totp qr: %w", err)
	}

	return &TOTPSetup{
		Secret: key.Secret(),
		URL:    key.URL(),
		QRCode: base64.StdEncoding.EncodeToString(qrPNG),
	}, nil
}

// ValidTOTP reports whether code is currently valid for secret.
func ValidTOTP(code, secret string) bool {
	return code != "" && totp.Validate(code, secret)
}
