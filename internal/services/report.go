package services

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/diewo77/seo-backoffice/internal/ai"
	"github.com/diewo77/seo-backoffice/internal/doctemplate"
	"github.com/diewo77/seo-backoffice/internal/metrics"
	"github.com/diewo77/seo-backoffice/internal/models"
	"github.com/diewo77/seo-backoffice/internal/report"
	"github.com/diewo77/seo-backoffice/validation"
)

// ReportInput starts a new report. AuditData entries override the gathered
// metrics of the same key.
type ReportInput struct {
	ClientID  uint              `json:"client_id"`
	Type      models.ReportType `json:"type"`
	Title     string            `json:"title"`
	AuditData map[string]any    `json:"audit_data"`
}

func (in *ReportInput) Validate() error {
	v := validation.Violations{}
	validation.RequiredID("client_id", in.ClientID, v)
	if in.Type == "" {
		v.Add("type", "required")
	} else if !in.Type.Valid() {
		v.Add("type", "invalid_report_type")
	}
	validation.MaxLen("title", in.Title, 255, v)
	return invalid(v)
}

// ReportService gathers metrics, asks the model for a report and renders
// it to HTML and PDF.
type ReportService struct {
	db        *gorm.DB
	collector *metrics.Collector
	fn        *ai.ReportFunction
	renderer  *report.Renderer
	docs      *DocumentService
	log       *zap.Logger
	now       func() time.Time
}

func NewReportService(conn *gorm.DB, collector *metrics.Collector, fn *ai.ReportFunction, docs *DocumentService, log *zap.Logger) *ReportService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ReportService{
		db:        conn,
		collector: collector,
		fn:        fn,
		renderer:  report.NewRenderer(),
		docs:      docs,
		log:       log,
		now:       time.Now,
	}
}

// List returns the account's reports, newest first, optionally for one
// client.
func (s *ReportService) List(ctx context.Context, userID, clientID uint) ([]models.Report, error) {
	q := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if clientID != 0 {
		q = q.Where("client_id = ?", clientID)
	}
	var out []models.Report
	if err := q.Omit("prompt").Order("created_at DESC, id DESC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return out, nil
}

// Get loads one report with its client.
func (s *ReportService) Get(ctx context.Context, userID, id uint) (*models.Report, error) {
	var r models.Report
	err := s.db.WithContext(ctx).Preload("Client").Where("id = ? AND user_id = ?", id, userID).First(&r).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &r, nil
}

// Create stores a draft report and generates it. When generation fails the
// draft is kept and the error returned.
func (s *ReportService) Create(ctx context.Context, userID uint, in ReportInput) (*models.Report, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	var client models.Client
	if err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", in.ClientID, userID).First(&client).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, invalid(validation.Violations{"client_id": "invalid"})
		}
		return nil, fmt.Errorf("load client: %w", err)
	}
	rec := models.Report{
		UserID:    userID,
		ClientID:  client.ID,
		Type:      in.Type,
		Title:     strings.TrimSpace(in.Title),
		Status:    models.ReportStatusDraft,
		AuditData: datatypes.JSONMap(in.AuditData),
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return nil, fmt.Errorf("create report: %w", err)
	}
	rec.Client = &client
	if err := s.generate(ctx, &rec); err != nil {
		return &rec, err
	}
	return &rec, nil
}

// Generate (re)generates an existing report. Published reports are frozen.
func (s *ReportService) Generate(ctx context.Context, userID, id uint) (*models.Report, error) {
	rec, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := s.generate(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *ReportService) generate(ctx context.Context, rec *models.Report) error {
	if rec.Status == models.ReportStatusPublished {
		return fmt.Errorf("%w: %s -> %s", models.ErrInvalidTransition, rec.Status, models.ReportStatusGenerated)
	}
	if !s.fn.Available() {
		return ai.ErrUnavailable
	}

	audit := map[string]any{}
	if s.collector != nil {
		res, err := s.collector.Collect(ctx, metrics.Target{UserID: rec.UserID, ClientID: rec.ClientID})
		if err != nil {
			return err
		}
		audit = res.AuditData()
		rec.SourceErrors = toJSONMap(res.Failures)
	}
	if rec.Client != nil {
		audit["client"] = map[string]any{
			"name":     rec.Client.DisplayName(),
			"website":  rec.Client.Website,
			"industry": rec.Client.Industry,
			"city":     rec.Client.City,
		}
	}
	maps.Copy(audit, rec.AuditData)

	resp, err := s.fn.Run(ctx, ai.Request{AuditData: audit, TemplateType: string(rec.Type)})
	if err != nil {
		s.log.Error("report generation failed", zap.Uint("report_id", rec.ID), zap.Error(err))
		return err
	}
	htmlOut, err := s.renderer.HTML(resp.Content)
	if err != nil {
		return err
	}

	if err := rec.TransitionTo(models.ReportStatusGenerated, s.now()); err != nil {
		return err
	}
	rec.Content = report.StripFence(resp.Content)
	rec.HTML = htmlOut
	rec.Model = resp.Model
	rec.Prompt = resp.Prompt
	if rec.Title == "" {
		rec.Title = report.Title(resp.Content)
	}
	if rec.Title == "" {
		rec.Title = fmt.Sprintf("Rapport %s", rec.Type)
	}
	err = s.db.WithContext(ctx).Model(rec).Select(
		"status", "content", "html", "model", "prompt", "title", "source_errors", "generated_at",
	).Updates(rec).Error
	if err != nil {
		return fmt.Errorf("save report %d: %w", rec.ID, err)
	}
	s.log.Info("report generated",
		zap.Uint("report_id", rec.ID),
		zap.String("type", string(rec.Type)),
		zap.String("model", rec.Model),
		zap.Int("failed_sources", len(rec.SourceErrors)))
	return nil
}

func toJSONMap(m map[string]string) datatypes.JSONMap {
	if len(m) == 0 {
		return nil
	}
	out := make(datatypes.JSONMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Publish freezes a generated report.
func (s *ReportService) Publish(ctx context.Context, userID, id uint) (*models.Report, error) {
	rec, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := rec.TransitionTo(models.ReportStatusPublished, s.now()); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(rec).Select("status", "published_at").Updates(rec).Error; err != nil {
		return nil, fmt.Errorf("publish report %d: %w", id, err)
	}
	return rec, nil
}

// Delete soft-deletes a report that is not published.
func (s *ReportService) Delete(ctx context.Context, userID, id uint) error {
	rec, err := s.Get(ctx, userID, id)
	if err != nil {
		return err
	}
	if rec.Status == models.ReportStatusPublished {
		return ErrNotEditable
	}
	return s.db.WithContext(ctx).Delete(rec).Error
}

// PDF renders a generated report with templateID, or the account's default
// seo-report template. The report HTML becomes a section after the
// template's own sections.
func (s *ReportService) PDF(ctx context.Context, userID, id, templateID uint) (*Document, error) {
	rec, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if rec.Status == models.ReportStatusDraft {
		return nil, ErrReportNotGenerated
	}
	t, err := s.docs.Layout(ctx, userID, doctemplate.SEOReport, templateID)
	if err != nil {
		return nil, err
	}
	data, err := s.docs.Branding(ctx, userID)
	if err != nil {
		return nil, err
	}
	data.ReportTitle = rec.Title
	if rec.Client != nil {
		data.ClientName = rec.Client.DisplayName()
	}
	if rec.GeneratedAt != nil {
		data.ReportDate = rec.GeneratedAt.Format(DateLayout)
	}
	t = t.WithSection(doctemplate.Section{
		ID:        "report-content",
		Name:      rec.Title,
		Content:   rec.HTML,
		IsEnabled: true,
	})
	b, err := s.docs.Render(t, data)
	if err != nil {
		return nil, err
	}
	return &Document{Filename: fmt.Sprintf("report-%d.pdf", rec.ID), Bytes: b}, nil
}
