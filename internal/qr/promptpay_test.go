package qr

import (
	"strconv"
	"strings"
	"testing"
)

func TestCRC16KnownVector(t *testing.T) {
	// CRC-16/CCITT-FALSE check value.
	if got := crc16([]byte("123456789")); got != 0x29B1 {
		t.Errorf("crc16(123456789) = %04X, want 29B1", got)
	}
}

func TestBuildPayloadPhone(t *testing.T) {
	payload, err := BuildPayload("081-234-5678", 100.50)
	if err != nil {
		t.Fatalf("BuildPayload failed: %v", err)
	}

	if !strings.HasPrefix(payload, "000201") {
		t.Errorf("payload missing format indicator: %s", payload)
	}
	if !strings.Contains(payload, "0066812345678") {
		t.Errorf("payload missing international phone form: %s", payload)
	}
	if !strings.Contains(payload, "5406100.50") {
		t.Errorf("payload missing amount element: %s", payload)
	}
	if !strings.Contains(payload, "5303764") || !strings.Contains(payload, "5802TH") {
		t.Errorf("payload missing currency/country: %s", payload)
	}

	// Dynamic code when an amount is present.
	if !strings.Contains(payload, "010212") {
		t.Errorf("expected one-time point of initiation: %s", payload)
	}

	// Trailing CRC: id 63, length 04, 4 hex digits, and it must verify.
	idx := strings.LastIndex(payload, "6304")
	if idx < 0 || len(payload)-idx != 8 {
		t.Fatalf("payload missing trailing CRC element: %s", payload)
	}
	got, err := strconv.ParseUint(payload[idx+4:], 16, 16)
	if err != nil {
		t.Fatalf("bad CRC suffix %q: %v", payload[idx+4:], err)
	}
	if want := crc16([]byte(payload[:idx+4])); uint16(got) != want {
		t.Errorf("CRC = %04X, want %04X", got, want)
	}
}

func TestBuildPayloadStatic(t *testing.T) {
	payload, err := BuildPayload("0812345678", 0)
	if err != nil {
		t.Fatalf("BuildPayload failed: %v", err)
	}
	if !strings.Contains(payload, "010211") {
		t.Errorf("expected static point of initiation: %s", payload)
	}
	if strings.Contains(payload, "5406") {
		t.Errorf("static payload must not embed an amount: %s", payload)
	}
}

func TestBuildPayloadNationalID(t *testing.T) {
	payload, err := BuildPayload("1234567890123", 0)
	if err != nil {
		t.Fatalf("BuildPayload failed: %v", err)
	}
	if !strings.Contains(payload, "02131234567890123") {
		t.Errorf("payload missing national id element: %s", payload)
	}
}

func TestBuildPayloadRejectsGarbage(t *testing.T) {
	if _, err := BuildPayload("not-a-number", 10); err == nil {
		t.Error("expected error for unusable target")
	}
}

func TestImageProducesPNG(t *testing.T) {
	png, err := Image("0812345678", 50.0, 256)
	if err != nil {
		t.Fatalf("Image failed: %v", err)
	}
	if len(png) < 8 || string(png[1:4]) != "PNG" {
		t.Error("output does not look like a PNG")
	}
}
