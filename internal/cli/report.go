package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"assessment-service/internal/app"
	"assessment-service/internal/config"
	"assessment-service/internal/domain"
	"assessment-service/internal/report"
)

type offlineSubmission struct {
	PersonalInfo domain.Respondent `json:"personalInfo"`
	Answers      map[string]string `json:"answers"`
	Locale       string            `json:"locale"`
}

// NewReportCmd renders a report offline from a JSON submission, without delivering it.
func NewReportCmd(configPath *string) *cobra.Command {
	var input, output, locale string
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Render a PDF report from a JSON submission",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			return renderOffline(cmd.Context(), offlineConfig(cfg), input, output, locale)
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "submission JSON ({personalInfo, answers, locale})")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output PDF path (defaults to the attachment name)")
	cmd.Flags().StringVar(&locale, "locale", "", "override the submission locale")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

// offlineConfig keeps catalog, bands and branding but drops every outbound and shared backend.
func offlineConfig(cfg config.Config) config.Config {
	cfg.Redis.Addr = ""
	cfg.SMTP.Host = ""
	cfg.Sheets.SpreadsheetID = ""
	cfg.Notifications.InternalRecipients = nil
	cfg.Notifications.ConsultationRecipients = nil
	return cfg
}

func renderOffline(ctx context.Context, cfg config.Config, input, output, locale string) error {
	data, err := os.ReadFile(input)
	if err != nil {
		return err
	}
	var sub offlineSubmission
	if err := json.Unmarshal(data, &sub); err != nil {
		return fmt.Errorf("decode %s: %w", input, err)
	}
	if locale != "" {
		sub.Locale = locale
	}

	svc, err := buildServices(ctx, cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	doc, err := svc.assessments.Report(ctx, app.ReportRequest{
		Respondent: sub.PersonalInfo,
		Answers:    sub.Answers,
		Locale:     sub.Locale,
	})
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := svc.renderer.Render(ctx, doc, &buf); err != nil {
		return err
	}
	if output == "" {
		output = filepath.Join(".", report.AttachmentName(doc.Respondent.Company))
	}
	if err := os.WriteFile(output, buf.Bytes(), 0o644); err != nil {
		return err
	}
	log.Printf("report written to %s: score=%d/%d (%d%%) band=%s pages=%d",
		output, doc.Score.TotalPoints, doc.Score.MaxPoints, doc.Score.Percentage, doc.Band, len(doc.Pages))
	return nil
}
