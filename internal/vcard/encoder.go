// Package vcard serializes a contact record to the vCard 3.0 wire format.
// The format is fixed: CRLF terminators, deterministic field order, fields
// emitted only when non-empty.
package vcard

import (
	"encoding/base64"
	"regexp"
	"strings"

	"cardscan/internal/common"
	"cardscan/internal/contact"
)

const Version = "3.0"

var (
	rePhoneClean = regexp.MustCompile(`[^\d\-+() ]`)
	reScheme     = regexp.MustCompile(`^https?://`)
)

// IsValid reports whether the record carries enough identifying information to
// encode: at least one of name, lastName, firstName, or company.
func IsValid(r *contact.Record) bool {
	return r != nil && r.HasIdentity()
}

// Encode serializes the record. It fails with common.ErrValidation when the
// record has no identifying field; encoding is never attempted in that case.
func Encode(r *contact.Record) ([]byte, error) {
	if !IsValid(r) {
		return nil, common.NewAppError("VCARD_NO_IDENTITY", "record needs a name or company", common.ErrValidation)
	}

	lines := []string{
		"BEGIN:VCARD",
		"VERSION:" + Version,
	}

	if fn, last, first := splitName(r); fn != "" {
		lines = append(lines, "FN:"+fn)
		lines = append(lines, "N:"+last+";"+first+";;;")
	}
	if r.Company != "" {
		lines = append(lines, "ORG:"+r.Company)
	}
	if r.Title != "" {
		lines = append(lines, "TITLE:"+r.Title)
	}
	if r.Phone != "" {
		if tel := CleanPhone(r.Phone); tel != "" {
			lines = append(lines, "TEL;TYPE=WORK,VOICE:"+tel)
		}
	}
	if r.Email != "" {
		lines = append(lines, "EMAIL;TYPE=WORK:"+r.Email)
	}
	if r.Website != "" {
		lines = append(lines, "URL:"+ensureScheme(r.Website))
	}
	if r.Address != "" {
		// Appended multi-line addresses carry literal newlines; vCard 3.0
		// wants them escaped inside the value.
		addr := strings.ReplaceAll(r.Address, "\n", `\n`)
		lines = append(lines, "ADR;TYPE=WORK:;;"+addr+";;;;")
	}
	if len(r.Photo) > 0 {
		lines = append(lines, "PHOTO;ENCODING=BASE64;TYPE=JPEG:"+base64.StdEncoding.EncodeToString(r.Photo))
	}
	lines = append(lines, "END:VCARD")

	return []byte(strings.Join(lines, "\r\n")), nil
}

// CleanPhone strips every character except digits, '-', '+', parentheses, and
// spaces, then trims; "03-1234-5678 ext" becomes "03-1234-5678".
func CleanPhone(phone string) string {
	return strings.TrimSpace(rePhoneClean.ReplaceAllString(phone, ""))
}

// Filename builds the download name: display name with every rune outside
// ASCII alphanumerics and the hiragana/katakana/kanji ranges replaced by '_',
// suffixed ".vcf".
func Filename(r *contact.Record) string {
	base := r.DisplayName()
	out := make([]rune, 0, len(base))
	for _, c := range base {
		if allowedFilenameRune(c) {
			out = append(out, c)
		} else {
			out = append(out, '_')
		}
	}
	return string(out) + ".vcf"
}

func allowedFilenameRune(c rune) bool {
	switch {
	case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		return true
	case c >= 0x3040 && c <= 0x309F: // hiragana
		return true
	case c >= 0x30A0 && c <= 0x30FF: // katakana
		return true
	case c >= 0x4E00 && c <= 0x9FAF: // kanji
		return true
	}
	return false
}

// splitName derives the FN/N values. Explicit lastName/firstName slots win;
// otherwise the full name splits on whitespace with the trailing token as the
// family-name part, matching the reference serializer.
func splitName(r *contact.Record) (fn, last, first string) {
	fn = r.Name
	if fn == "" {
		fn = strings.TrimSpace(r.LastName + " " + r.FirstName)
	}
	if fn == "" {
		return "", "", ""
	}
	if r.LastName != "" || r.FirstName != "" {
		return fn, r.LastName, r.FirstName
	}
	parts := strings.Fields(r.Name)
	if len(parts) > 1 {
		return fn, parts[len(parts)-1], strings.Join(parts[:len(parts)-1], " ")
	}
	return fn, "", parts[0]
}

func ensureScheme(url string) string {
	if reScheme.MatchString(url) {
		return url
	}
	return "https://" + url
}
