package vcard

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"cardscan/internal/common"
	"cardscan/internal/contact"
)

func lines(t *testing.T, data []byte) []string {
	t.Helper()
	s := string(data)
	if strings.Contains(strings.ReplaceAll(s, "\r\n", ""), "\n") {
		t.Fatalf("line terminator must be CRLF:\n%s", s)
	}
	return strings.Split(s, "\r\n")
}

func TestEncodeRoundTrip(t *testing.T) {
	rec := &contact.Record{
		Name:    "田中 太郎",
		Company: "株式会社テスト",
		Phone:   "03-1234-5678 ext",
	}
	data, err := Encode(rec)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	got := lines(t, data)

	want := []string{
		"BEGIN:VCARD",
		"VERSION:3.0",
		"FN:田中 太郎",
		"N:太郎;田中;;;",
		"ORG:株式会社テスト",
		"TEL;TYPE=WORK,VOICE:03-1234-5678",
		"END:VCARD",
	}
	if len(got) != len(want) {
		t.Fatalf("got %d lines, want %d:\n%s", len(got), len(want), data)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("line %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestEncodeAllFieldsOrdered(t *testing.T) {
	rec := &contact.Record{
		Name:    "John Smith",
		Company: "Example Inc",
		Title:   "CTO",
		Phone:   "+1 (555) 123-4567",
		Email:   "john@example.com",
		Website: "example.com",
		Address: "1-2-3 Shibuya, Tokyo",
		Photo:   []byte{0xFF, 0xD8, 0xFF},
	}
	data, err := Encode(rec)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	got := lines(t, data)

	want := []string{
		"BEGIN:VCARD",
		"VERSION:3.0",
		"FN:John Smith",
		"N:Smith;John;;;",
		"ORG:Example Inc",
		"TITLE:CTO",
		"TEL;TYPE=WORK,VOICE:+1 (555) 123-4567",
		"EMAIL;TYPE=WORK:john@example.com",
		"URL:https://example.com",
		"ADR;TYPE=WORK:;;1-2-3 Shibuya, Tokyo;;;;",
		"PHOTO;ENCODING=BASE64;TYPE=JPEG:" + base64.StdEncoding.EncodeToString(rec.Photo),
		"END:VCARD",
	}
	if len(got) != len(want) {
		t.Fatalf("got %d lines, want %d:\n%s", len(got), len(want), data)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("line %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestEncodeWebsiteKeepsScheme(t *testing.T) {
	rec := &contact.Record{Name: "X Y", Website: "http://example.com"}
	data, err := Encode(rec)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if !strings.Contains(string(data), "URL:http://example.com") {
		t.Fatalf("existing scheme must be preserved:\n%s", data)
	}
}

func TestEncodeValidationGate(t *testing.T) {
	_, err := Encode(&contact.Record{Phone: "03-1234-5678", Email: "a@b.co"})
	if !errors.Is(err, common.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}

	if _, err := Encode(&contact.Record{Company: "株式会社テスト"}); err != nil {
		t.Fatalf("company alone must pass the gate, got %v", err)
	}
}

func TestIsValid(t *testing.T) {
	if IsValid(&contact.Record{}) {
		t.Fatalf("empty record must be invalid")
	}
	if !IsValid(&contact.Record{Company: "Example Inc"}) {
		t.Fatalf("company-only record must be valid")
	}
	if !IsValid(&contact.Record{FirstName: "太郎"}) {
		t.Fatalf("firstName-only record must be valid")
	}
}

func TestCleanPhone(t *testing.T) {
	cases := []struct{ in, want string }{
		{"03-1234-5678 ext", "03-1234-5678"},
		{"+81 (3) 1234-5678", "+81 (3) 1234-5678"},
		{"TEL: 03-1234-5678", "03-1234-5678"},
	}
	for _, tc := range cases {
		if got := CleanPhone(tc.in); got != tc.want {
			t.Fatalf("CleanPhone(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFilenameSanitization(t *testing.T) {
	rec := &contact.Record{Name: "田中 太郎 & Co."}
	got := Filename(rec)

	if !strings.HasSuffix(got, ".vcf") {
		t.Fatalf("filename = %q, want .vcf suffix", got)
	}
	base := strings.TrimSuffix(got, ".vcf")
	for _, c := range []string{"&", ".", " "} {
		if strings.Contains(base, c) {
			t.Fatalf("filename base %q contains forbidden %q", base, c)
		}
	}
	if !strings.Contains(base, "田中") || !strings.Contains(base, "太郎") {
		t.Fatalf("filename base %q must preserve Japanese characters", base)
	}
}

func TestFilenameFallsBackToCompanyThenContact(t *testing.T) {
	if got := Filename(&contact.Record{Company: "Example Inc"}); got != "Example_Inc.vcf" {
		t.Fatalf("company fallback = %q", got)
	}
	if got := Filename(&contact.Record{}); got != "contact.vcf" {
		t.Fatalf("empty fallback = %q", got)
	}
}
