package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"assessment-service/internal/domain"
	"assessment-service/internal/i18n"
	"assessment-service/internal/notify"
	"assessment-service/internal/report"
	"assessment-service/internal/scoring"
)

const (
	ChannelRespondentEmail = "respondent_email"
	ChannelInternalNotice  = "internal_notice"
	ChannelSheet           = "sheet"
)

type DeliveryStatus string

const (
	StatusDelivered DeliveryStatus = "delivered"
	StatusFailed    DeliveryStatus = "failed"
	StatusSkipped   DeliveryStatus = "skipped"
)

// Delivery is the result of one channel. Err wraps domain.ErrDeliveryFailure when Status is failed.
type Delivery struct {
	Status DeliveryStatus
	Err    error
}

func (d Delivery) MarshalJSON() ([]byte, error) {
	out := struct {
		Status DeliveryStatus `json:"status"`
		Error  string         `json:"error,omitempty"`
	}{Status: d.Status}
	if d.Err != nil {
		out.Error = d.Err.Error()
	}
	return json.Marshal(out)
}

// Outcome records every channel of one dispatch independently.
type Outcome struct {
	SubmissionID string              `json:"submissionId"`
	Deliveries   map[string]Delivery `json:"deliveries"`
}

// Failed reports whether channel was attempted and failed.
func (o Outcome) Failed(channel string) bool {
	return o.Deliveries[channel].Status == StatusFailed
}

// Renderer turns a report document into bytes.
type Renderer interface {
	Render(ctx context.Context, doc *report.Document, w io.Writer) error
}

// DispatcherConfig wires the dispatcher's collaborators. Nil senders or empty recipients skip a channel.
type DispatcherConfig struct {
	Mail               EmailSender
	Rows               RowAppender
	Renderer           Renderer
	Composer           *notify.Composer
	Catalogs           CatalogRepository
	CatalogID          string
	Classifier         *scoring.Classifier
	Bundle             *i18n.Bundle
	Brand              report.Brand
	InternalRecipients []string
	Sheet              string
	// Timeout bounds one background dispatch.
	Timeout time.Duration
}

// Dispatcher delivers completed submissions: respondent email with the PDF, internal notice and
// a sheet row, concurrently and without any channel cancelling another.
type Dispatcher struct {
	cfg DispatcherConfig

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	if cfg.Classifier == nil {
		cfg.Classifier = scoring.MustClassifier(nil)
	}
	if cfg.Bundle == nil {
		cfg.Bundle = i18n.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = time.Minute
	}
	if cfg.Sheet == "" {
		cfg.Sheet = "Sheet1"
	}
	return &Dispatcher{cfg: cfg}
}

// Compose builds the report document for a submission.
func (d *Dispatcher) Compose(ctx context.Context, ev domain.SubmissionEvent) (*report.Document, domain.Catalog, error) {
	c, err := d.cfg.Catalogs.GetCatalog(ctx, d.cfg.CatalogID)
	if err != nil {
		return nil, domain.Catalog{}, err
	}
	strs := d.cfg.Bundle.Lookup(ev.Locale)
	doc, err := report.Compose(ev.Respondent, ev.Answers, ev.Score, c, report.Options{
		Classifier: d.cfg.Classifier,
		Strings:    &strs,
		Brand:      &d.cfg.Brand,
		Now:        func() time.Time { return ev.SubmittedAt },
	})
	if err != nil {
		return nil, domain.Catalog{}, err
	}
	return doc, c, nil
}

// Deliver composes and dispatches synchronously.
func (d *Dispatcher) Deliver(ctx context.Context, ev domain.SubmissionEvent) (Outcome, error) {
	doc, c, err := d.Compose(ctx, ev)
	if err != nil {
		return Outcome{}, err
	}
	return d.Dispatch(ctx, ev, doc, c), nil
}

// Dispatch renders the document once and runs the three deliveries concurrently.
func (d *Dispatcher) Dispatch(ctx context.Context, ev domain.SubmissionEvent, doc *report.Document, c domain.Catalog) Outcome {
	out := Outcome{SubmissionID: ev.ID, Deliveries: make(map[string]Delivery, 3)}
	var mu sync.Mutex
	record := func(channel string, del Delivery) {
		if del.Status == StatusFailed {
			log.Printf("dispatch: submission=%s channel=%s failed: %v", ev.ID, channel, del.Err)
		}
		mu.Lock()
		out.Deliveries[channel] = del
		mu.Unlock()
	}

	var g errgroup.Group
	g.Go(func() error {
		record(ChannelRespondentEmail, d.sendReport(ctx, ev, doc))
		return nil
	})
	g.Go(func() error {
		record(ChannelInternalNotice, d.sendNotice(ctx, ev, c))
		return nil
	})
	g.Go(func() error {
		record(ChannelSheet, d.appendRow(ctx, ev, c))
		return nil
	})
	_ = g.Wait()
	log.Printf("dispatch: submission=%s respondent=%s internal=%s sheet=%s", ev.ID,
		out.Deliveries[ChannelRespondentEmail].Status, out.Deliveries[ChannelInternalNotice].Status, out.Deliveries[ChannelSheet].Status)
	return out
}

func failed(format string, args ...any) Delivery {
	return Delivery{Status: StatusFailed, Err: fmt.Errorf("%w: "+format, append([]any{domain.ErrDeliveryFailure}, args...)...)}
}

func (d *Dispatcher) sendReport(ctx context.Context, ev domain.SubmissionEvent, doc *report.Document) Delivery {
	if d.cfg.Mail == nil || d.cfg.Composer == nil || d.cfg.Renderer == nil {
		return Delivery{Status: StatusSkipped}
	}
	var buf bytes.Buffer
	if err := render(ctx, d.cfg.Renderer, doc, &buf); err != nil {
		return failed("render report: %v", err)
	}
	msg, err := d.cfg.Composer.Report(ev, notify.Attachment{
		Filename:    report.AttachmentName(ev.Respondent.Company),
		ContentType: "application/pdf",
		Data:        buf.Bytes(),
	})
	if err != nil {
		return failed("compose respondent email: %v", err)
	}
	if err := d.cfg.Mail.Send(ctx, msg); err != nil {
		return failed("send respondent email: %v", err)
	}
	return Delivery{Status: StatusDelivered}
}

func render(ctx context.Context, r Renderer, doc *report.Document, w io.Writer) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("renderer panic: %v", p)
		}
	}()
	return r.Render(ctx, doc, w)
}

func (d *Dispatcher) sendNotice(ctx context.Context, ev domain.SubmissionEvent, c domain.Catalog) Delivery {
	if d.cfg.Mail == nil || d.cfg.Composer == nil || len(d.cfg.InternalRecipients) == 0 {
		return Delivery{Status: StatusSkipped}
	}
	msg, err := d.cfg.Composer.InternalNotice(ev, c, d.cfg.InternalRecipients)
	if err != nil {
		return failed("compose internal notice: %v", err)
	}
	if err := d.cfg.Mail.Send(ctx, msg); err != nil {
		return failed("send internal notice: %v", err)
	}
	return Delivery{Status: StatusDelivered}
}

func (d *Dispatcher) appendRow(ctx context.Context, ev domain.SubmissionEvent, c domain.Catalog) Delivery {
	if d.cfg.Rows == nil {
		return Delivery{Status: StatusSkipped}
	}
	if err := d.cfg.Rows.Append(ctx, d.cfg.Sheet, SubmissionHeader(c), SubmissionRow(ev, c)); err != nil {
		return failed("append sheet row: %v", err)
	}
	return Delivery{Status: StatusDelivered}
}

// SubmissionHeader is the sheet header for a catalog.
func SubmissionHeader(c domain.Catalog) []string {
	header := []string{"Timestamp", "Name", "Email", "Company", "Position", "Score", "Percentage", "Band"}
	for _, q := range c.Questions {
		header = append(header, questionColumn(q))
	}
	return header
}

func questionColumn(q domain.Question) string {
	label := strings.ToUpper(q.ID)
	text := []rune(q.Text)
	if len(text) > 50 {
		return label + " - " + string(text[:50]) + "..."
	}
	return label + " - " + q.Text
}

// SubmissionRow flattens a submission into one row; unanswered questions are empty.
func SubmissionRow(ev domain.SubmissionEvent, c domain.Catalog) []string {
	r := ev.Respondent
	row := []string{
		ev.SubmittedAt.UTC().Format(time.RFC3339),
		r.Name,
		r.Email,
		r.Company,
		r.Position,
		strconv.Itoa(ev.Score.TotalPoints),
		strconv.Itoa(ev.Score.Percentage),
		ev.Band.Title(),
	}
	for _, q := range c.Questions {
		label := ""
		if value, ok := ev.Answers.Get(q.ID); ok {
			if opt, found := q.Option(value); found {
				label = opt.Label
			}
		}
		row = append(row, label)
	}
	return row
}

// Enqueue dispatches in the background; it never blocks on delivery.
func (d *Dispatcher) Enqueue(ev domain.SubmissionEvent) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		log.Printf("dispatch: submission=%s dropped, dispatcher closed", ev.ID)
		return
	}
	d.wg.Add(1)
	d.mu.Unlock()

	go func() {
		defer d.wg.Done()
		defer func() {
			if p := recover(); p != nil {
				log.Printf("dispatch: submission=%s failed: panic: %v", ev.ID, p)
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), d.cfg.Timeout)
		defer cancel()
		if _, err := d.Deliver(ctx, ev); err != nil {
			log.Printf("dispatch: submission=%s not composed: %v", ev.ID, err)
		}
	}()
}

// Close stops accepting submissions and waits for in-flight deliveries or ctx.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
