// Package ai builds report prompts from audit data and forwards them to a
// generative text model.
package ai

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Report template types understood by BuildPrompt.
const (
	TypeSEOAudit = "seo-audit"
	TypeLocalSEO = "local-seo"
	TypeMonthly  = "monthly"
)

// TemplateTypes lists the report types with a dedicated instruction.
func TemplateTypes() []string {
	return []string{TypeSEOAudit, TypeLocalSEO, TypeMonthly}
}

var instructions = map[string]string{
	TypeSEOAudit: `You are a senior SEO consultant. Write a technical SEO audit report for the client.
Cover crawlability and indexation, on-page optimisation, site performance and Core Web Vitals,
and backlinks. For each finding, state its impact and a concrete recommendation, then close
with a prioritised action plan.`,
	TypeLocalSEO: `You are a local SEO specialist. Write a local SEO report for the client.
Cover the Google Business Profile, local listings and citation consistency (name, address, phone),
reviews and ratings, and local keyword rankings. Finish with quick wins and a 90-day plan.`,
	TypeMonthly: `You are an account manager at an SEO agency. Write the monthly performance report
for the client. Summarise organic traffic, clicks, impressions, average position and conversions,
compare with the previous period when the data allows it, highlight the work done this month,
and list next month's priorities.`,
}

const genericInstruction = `You are an SEO consultant. Write a clear, well structured report for the client
based on the data below, with findings and actionable recommendations.`

const outputRules = `Answer in Markdown only: use headings, bullet lists and tables where useful.
Do not invent figures that are not present in the data. If a data source is empty, say that it
was unavailable instead of guessing.`

// BuildPrompt assembles the prompt for templateType from auditData. Unknown
// types fall back to a generic instruction. Audit data is embedded as
// indented JSON.
func BuildPrompt(templateType string, auditData map[string]any) (string, error) {
	instruction, ok := instructions[templateType]
	if !ok {
		instruction = genericInstruction
	}

	data := []byte("{}")
	if len(auditData) > 0 {
		var err error
		data, err = json.MarshalIndent(auditData, "", "  ")
		if err != nil {
			return "", fmt.Errorf("encode audit data: %w", err)
		}
	}

	var b strings.Builder
	b.WriteString(instruction)
	b.WriteString("\n\n")
	b.WriteString(outputRules)
	b.WriteString("\n\nAudit data (JSON):\n```json\n")
	b.Write(data)
	b.WriteString("\n```\n")
	return b.String(), nil
}
