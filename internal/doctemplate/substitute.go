package doctemplate

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// Token is a recognized placeholder key. In template HTML it appears as {{key}}.
type Token string

const (
	TokenCompanyName Token = "companyName"
	TokenCompanyLogo Token = "companyLogo"
	TokenReportTitle Token = "reportTitle"
	TokenClientName  Token = "clientName"
	TokenReportDate  Token = "reportDate"
	TokenCurrentPage Token = "currentPage"
	TokenTotalPages  Token = "totalPages"
)

var knownTokens = []Token{
	TokenCompanyName,
	TokenCompanyLogo,
	TokenReportTitle,
	TokenClientName,
	TokenReportDate,
	TokenCurrentPage,
	TokenTotalPages,
}

// KnownTokens returns the fixed list of recognized tokens.
func KnownTokens() []Token {
	return slices.Clone(knownTokens)
}

// Valid reports whether t is a recognized token.
func (t Token) Valid() bool {
	return slices.Contains(knownTokens, t)
}

// Placeholder returns the {{key}} form of t.
func (t Token) Placeholder() string {
	return "{{" + string(t) + "}}"
}

// Data is the render-time value bag. It is never persisted.
type Data struct {
	CompanyName string `json:"company_name" yaml:"company_name"`
	CompanyLogo string `json:"company_logo" yaml:"company_logo"`
	ReportTitle string `json:"report_title" yaml:"report_title"`
	ClientName  string `json:"client_name" yaml:"client_name"`
	ReportDate  string `json:"report_date" yaml:"report_date"`
	CurrentPage int    `json:"current_page" yaml:"current_page"`
	TotalPages  int    `json:"total_pages" yaml:"total_pages"`
}

// Value returns the replacement text for t. ok is false for unrecognized
// tokens. Page numbers render as "" until they are known (zero).
func (d Data) Value(t Token) (value string, ok bool) {
	switch t {
	case TokenCompanyName:
		return d.CompanyName, true
	case TokenCompanyLogo:
		return d.CompanyLogo, true
	case TokenReportTitle:
		return d.ReportTitle, true
	case TokenClientName:
		return d.ClientName, true
	case TokenReportDate:
		return d.ReportDate, true
	case TokenCurrentPage:
		return pageNumber(d.CurrentPage), true
	case TokenTotalPages:
		return pageNumber(d.TotalPages), true
	}
	return "", false
}

// WithPage returns a copy of d stamped with the given page numbers.
func (d Data) WithPage(current, total int) Data {
	d.CurrentPage = current
	d.TotalPages = total
	return d
}

func pageNumber(n int) string {
	if n <= 0 {
		return ""
	}
	return strconv.Itoa(n)
}

// UnknownPolicy decides what happens to {{key}} markers whose key is not a
// recognized token.
type UnknownPolicy int

const (
	// PassThrough leaves unknown markers verbatim.
	PassThrough UnknownPolicy = iota
	// Strict fails with ErrUnknownToken.
	Strict
)

// ErrUnknownToken is returned under the Strict policy.
var ErrUnknownToken = errors.New("unknown template token")

var placeholderRe = regexp.MustCompile(`\{\{([A-Za-z0-9_]+)\}\}`)

// Substituter replaces placeholders according to Policy.
type Substituter struct {
	Policy UnknownPolicy
}

// Apply replaces every recognized {{key}} in html with its value from data.
// Replacement is purely textual: values are not HTML-escaped and are never
// rescanned for further placeholders.
func (s Substituter) Apply(html string, data Data) (string, error) {
	var unknown []string
	out := placeholderRe.ReplaceAllStringFunc(html, func(m string) string {
		key := m[2 : len(m)-2]
		if v, ok := data.Value(Token(key)); ok {
			return v
		}
		if !slices.Contains(unknown, key) {
			unknown = append(unknown, key)
		}
		return m
	})
	if s.Policy == Strict && len(unknown) > 0 {
		return "", fmt.Errorf("%w: %s", ErrUnknownToken, strings.Join(unknown, ", "))
	}
	return out, nil
}

// Substitute applies the PassThrough policy. It never fails.
func Substitute(html string, data Data) string {
	out, _ := Substituter{Policy: PassThrough}.Apply(html, data)
	return out
}

// Tokens lists the placeholders found in html, split into recognized tokens
// and unknown keys, each deduplicated in order of first appearance.
func Tokens(html string) (known []Token, unknown []string) {
	for _, m := range placeholderRe.FindAllStringSubmatch(html, -1) {
		key := m[1]
		if t := Token(key); t.Valid() {
			if !slices.Contains(known, t) {
				known = append(known, t)
			}
			continue
		}
		if !slices.Contains(unknown, key) {
			unknown = append(unknown, key)
		}
	}
	return known, unknown
}

// Validate checks every HTML fragment of t for unknown placeholders.
func Validate(t Template) error {
	fragments := []string{t.HeaderHTML, t.FooterHTML, t.CoverPageHTML}
	for _, s := range t.Sections {
		fragments = append(fragments, s.Content)
	}
	var unknown []string
	for _, f := range fragments {
		_, u := Tokens(f)
		for _, key := range u {
			if !slices.Contains(unknown, key) {
				unknown = append(unknown, key)
			}
		}
	}
	if len(unknown) > 0 {
		return fmt.Errorf("%w: %s", ErrUnknownToken, strings.Join(unknown, ", "))
	}
	return nil
}
