package extract

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"cardscan/internal/contact"
)

var (
	reEmail = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	rePhone = regexp.MustCompile(`(\+\d{1,3}[-. ]?)?\(?\d{2,4}\)?[-. ]?\d{2,4}[-. ]?\d{3,4}`)
	reURL   = regexp.MustCompile(`^(https?://|www\.)`)
)

// Legal-entity markers that promote a line to a company name.
var companyKeywords = []string{
	"株式会社", "有限会社", "合同会社", "一般社団法人",
	"Corporation", "Corp.", "Inc", "LLC", "Ltd", "K.K.",
}

// Geographic markers that collect a line into the address.
var addressKeywords = []string{
	"〒", "都", "道", "府", "県", "市", "区", "町", "村",
	"丁目", "番地", "号", "ビル", "階",
	"Street", "St.", "Avenue", "Ave", "Road", "Rd.", "Blvd",
	"Building", "Floor", "Prefecture",
}

// lineClass tags the single bucket a line fell into.
type lineClass int

const (
	classUnclassified lineClass = iota
	classEmail
	classPhone
	classURL
	classCompany
	classAddress
)

// HeuristicTextExtractor classifies raw OCR lines into contact fields with an
// ordered first-match-wins rule list.
type HeuristicTextExtractor struct {
	logger *slog.Logger
}

func NewHeuristicTextExtractor(logger *slog.Logger) *HeuristicTextExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &HeuristicTextExtractor{logger: logger}
}

// Extract applies the rule list to each non-empty trimmed line in original
// order. Lines claimed by a rule are absorbed into fields; residual lines feed
// the name/company candidate pools and are otherwise discarded, so this
// variant emits no unassigned items.
func (h *HeuristicTextExtractor) Extract(_ context.Context, raw string) (Result, error) {
	start := time.Now()

	var ec contact.ExtractedContact
	var addressParts []string
	var nameCandidates []string
	var companyCandidates []string

	idx := 0
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		switch cls, match := h.classify(line, &ec); cls {
		case classEmail:
			ec.Email = match
		case classPhone:
			ec.Phone = match
		case classURL:
			// dropped entirely so it cannot pollute name/company/address
		case classCompany:
			ec.Company = line
		case classAddress:
			addressParts = append(addressParts, line)
		case classUnclassified:
			if n := utf8.RuneCountInString(line); n > 2 && n < 49 {
				if idx < 2 {
					nameCandidates = append(nameCandidates, line)
				}
				companyCandidates = append(companyCandidates, line)
			}
		}
		idx++
	}

	ec.Address = strings.Join(addressParts, " ")
	ec.Name = resolveName(nameCandidates)
	if ec.Company == "" {
		ec.Company = resolveCompany(companyCandidates, ec.Name)
	}

	h.logger.Debug("extract.heuristic.ok",
		"lines", idx,
		"has_email", ec.Email != "",
		"has_phone", ec.Phone != "",
		"address_lines", len(addressParts),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return Result{Contact: ec, Raw: raw}, nil
}

// classify evaluates the rule list in precedence order and returns the first
// matching class. Email and phone are "first wins": once the field is filled
// those rules are skipped, so a second email-bearing line falls through to the
// later rules and may be mis-bucketed. That gap is documented reference
// behavior and is kept as-is.
func (h *HeuristicTextExtractor) classify(line string, ec *contact.ExtractedContact) (lineClass, string) {
	if ec.Email == "" {
		if m := reEmail.FindString(line); m != "" {
			return classEmail, m
		}
	}
	if ec.Phone == "" {
		if m := rePhone.FindString(line); m != "" {
			return classPhone, m
		}
	}
	if reURL.MatchString(line) {
		return classURL, ""
	}
	if ec.Company == "" {
		for _, kw := range companyKeywords {
			if strings.Contains(line, kw) {
				return classCompany, line
			}
		}
	}
	for _, kw := range addressKeywords {
		if strings.Contains(line, kw) {
			return classAddress, line
		}
	}
	return classUnclassified, ""
}

// resolveName prefers a short candidate that does not itself look like a
// phone number or email address, then falls back to the first candidate.
func resolveName(candidates []string) string {
	for _, c := range candidates {
		if utf8.RuneCountInString(c) < 20 && !rePhone.MatchString(c) && !reEmail.MatchString(c) {
			return c
		}
	}
	if len(candidates) > 0 {
		return candidates[0]
	}
	return ""
}

func resolveCompany(candidates []string, name string) string {
	for _, c := range candidates {
		if c != name && utf8.RuneCountInString(c) < 100 {
			return c
		}
	}
	return ""
}
