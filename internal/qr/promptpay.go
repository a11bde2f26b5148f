// Package qr builds PromptPay payment payloads (EMVCo QR format) and renders
// them as QR images, so a creditor can show debtors a scannable "pay me"
// code with the amount embedded.
package qr

import (
	"fmt"
	"strings"

	"github.com/skip2/go-qrcode"
)

const (
	idPayloadFormat   = "00"
	idPointOfInit     = "01"
	idMerchantInfo    = "29"
	idCurrency        = "53"
	idAmount          = "54"
	idCountry         = "58"
	idCRC             = "63"
	promptPayAID      = "A000000677010111"
	currencyTHB       = "764"
	countryTH         = "TH"
	pointOfInitStatic = "11"
	pointOfInitOnce   = "12"
)

// BuildPayload assembles the EMV TLV payload for a PromptPay transfer to
// target (a Thai phone number or 13-digit national id). amount > 0 produces
// a one-time dynamic code with the amount embedded; amount == 0 produces a
// reusable static code.
func BuildPayload(target string, amount float64) (string, error) {
	account, accountTag, err := normalizeTarget(target)
	if err != nil {
		return "", err
	}

	pointOfInit := pointOfInitStatic
	if amount > 0 {
		pointOfInit = pointOfInitOnce
	}

	merchant := tlv("00", promptPayAID) + tlv(accountTag, account)

	var b strings.Builder
	b.WriteString(tlv(idPayloadFormat, "01"))
	b.WriteString(tlv(idPointOfInit, pointOfInit))
	b.WriteString(tlv(idMerchantInfo, merchant))
	b.WriteString(tlv(idCurrency, currencyTHB))
	if amount > 0 {
		b.WriteString(tlv(idAmount, fmt.Sprintf("%.2f", amount)))
	}
	b.WriteString(tlv(idCountry, countryTH))

	// The CRC covers everything up to and including its own id and length.
	payload := b.String() + idCRC + "04"
	return payload + fmt.Sprintf("%04X", crc16([]byte(payload))), nil
}

// Image renders the payload as a PNG QR code of the given pixel size.
func Image(target string, amount float64, size int) ([]byte, error) {
	payload, err := BuildPayload(target, amount)
	if err != nil {
		return nil, err
	}
	png, err := qrcode.Encode(payload, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("failed to encode qr code: %w", err)
	}
	return png, nil
}

// normalizeTarget strips formatting and classifies the target: a 10-digit
// phone number becomes the 0066-prefixed international form under tag 01, a
// 13-digit national id stays as-is under tag 02.
func normalizeTarget(target string) (account, tag string, err error) {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, target)

	switch {
	case len(digits) == 10 && strings.HasPrefix(digits, "0"):
		return "0066" + digits[1:], "01", nil
	case len(digits) == 13:
		return digits, "02", nil
	default:
		return "", "", fmt.Errorf("unsupported promptpay target %q", target)
	}
}

// tlv encodes one id-length-value element; lengths are two decimal digits.
func tlv(id, value string) string {
	return fmt.Sprintf("%s%02d%s", id, len(value), value)
}

// crc16 is CRC-16/CCITT-FALSE (poly 0x1021, init 0xFFFF), as required by the
// EMVCo QR spec.
func crc16(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
