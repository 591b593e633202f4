package ai

import (
	"context"
	"errors"
	"fmt"
)

// Request is the body of the generate-report function.
type Request struct {
	AuditData    map[string]any `json:"auditData"`
	TemplateType string         `json:"templateType"`
}

// Response is the successful answer of the generate-report function.
type Response struct {
	Content string `json:"content"`
	Model   string `json:"model"`
	Prompt  string `json:"prompt"`
}

// ErrorResponse is the failure answer of the generate-report function.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ErrMissingTemplateType is returned when the request names no report type.
var ErrMissingTemplateType = errors.New("ai: templateType is required")

// ReportFunction builds the prompt and forwards it to the generator. A nil
// generator makes every call fail with ErrUnavailable.
type ReportFunction struct {
	gen Generator
}

// NewReportFunction wraps gen, which may be nil.
func NewReportFunction(gen Generator) *ReportFunction {
	return &ReportFunction{gen: gen}
}

// Available reports whether a generator is configured.
func (f *ReportFunction) Available() bool { return f != nil && f.gen != nil }

// Run executes the function for req. The raw generated text is returned
// unmodified.
func (f *ReportFunction) Run(ctx context.Context, req Request) (Response, error) {
	if req.TemplateType == "" {
		return Response{}, ErrMissingTemplateType
	}
	if !f.Available() {
		return Response{}, ErrUnavailable
	}
	prompt, err := BuildPrompt(req.TemplateType, req.AuditData)
	if err != nil {
		return Response{}, err
	}
	c, err := f.gen.Generate(ctx, prompt)
	if err != nil {
		return Response{}, fmt.Errorf("generate %s report: %w", req.TemplateType, err)
	}
	return Response{Content: c.Text, Model: c.Model, Prompt: prompt}, nil
}
