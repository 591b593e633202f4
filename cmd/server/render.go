package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/diewo77/seo-backoffice/internal/db"
	"github.com/diewo77/seo-backoffice/internal/doctemplate"
	"github.com/diewo77/seo-backoffice/internal/pdf"
	"github.com/diewo77/seo-backoffice/internal/services"
)

type renderOptions struct {
	templateFile string
	name         string
	out          string
	company      string
	client       string
	title        string
}

var renderOpts renderOptions

// renderCmd turns a YAML template file into a PDF without a database, for
// checking a layout before importing it.
var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render a template file to PDF with sample data",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := renderTemplateFile(renderOpts, time.Now())
		if err != nil {
			return err
		}
		logger.Info("pdf written", zap.String("path", renderOpts.out), zap.Int("bytes", out))
		return nil
	},
}

func init() {
	f := renderCmd.Flags()
	f.StringVar(&renderOpts.templateFile, "template", "", "YAML file holding a templates list")
	f.StringVar(&renderOpts.name, "name", "", "template to render (defaults to the first one)")
	f.StringVar(&renderOpts.out, "out", "template.pdf", "output PDF path")
	f.StringVar(&renderOpts.company, "company", "Votre agence", "value for {{companyName}}")
	f.StringVar(&renderOpts.client, "client", "Client exemple", "value for {{clientName}}")
	f.StringVar(&renderOpts.title, "title", "", "value for {{reportTitle}} (defaults to the template name)")
	_ = renderCmd.MarkFlagRequired("template")
}

// renderTemplateFile writes the PDF and returns its size.
func renderTemplateFile(opts renderOptions, now time.Time) (int, error) {
	raw, err := os.ReadFile(opts.templateFile)
	if err != nil {
		return 0, fmt.Errorf("read template file: %w", err)
	}
	templates, err := db.ParseTemplates(raw)
	if err != nil {
		return 0, err
	}
	t, err := pickTemplate(templates, opts.name)
	if err != nil {
		return 0, err
	}

	data := doctemplate.Data{
		CompanyName: opts.company,
		ClientName:  opts.client,
		ReportTitle: opts.title,
		ReportDate:  now.Format(services.DateLayout),
	}
	if data.ReportTitle == "" {
		data.ReportTitle = t.Name
	}
	doc, err := pdf.Render(t, data)
	if err != nil {
		return 0, fmt.Errorf("render %q: %w", t.Name, err)
	}
	if err := os.WriteFile(opts.out, doc, 0o644); err != nil {
		return 0, fmt.Errorf("write pdf: %w", err)
	}
	return len(doc), nil
}

func pickTemplate(templates []doctemplate.Template, name string) (doctemplate.Template, error) {
	if len(templates) == 0 {
		return doctemplate.Template{}, fmt.Errorf("template file holds no templates")
	}
	if name == "" {
		return templates[0], nil
	}
	for _, t := range templates {
		if t.Name == name {
			return t, nil
		}
	}
	return doctemplate.Template{}, fmt.Errorf("no template named %q", name)
}
