package app

import (
	"context"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"assessment-service/internal/domain"
	"assessment-service/internal/notify"
)

const (
	ChannelConsultationSheet        = "sheet"
	ChannelConsultationNotice       = "internal_notice"
	ChannelConsultationConfirmation = "confirmation_email"
)

// ConsultationHeader is the header row of the consultation sheet.
var ConsultationHeader = []string{"Timestamp", "First Name", "Last Name", "Email", "Phone", "Company", "Score"}

// ConsultationService books follow-up consultations from the results page.
type ConsultationService struct {
	mail       EmailSender
	rows       RowAppender
	composer   *notify.Composer
	sheet      string
	recipients []string
	now        func() time.Time
}

func NewConsultationService(mail EmailSender, rows RowAppender, composer *notify.Composer, sheet string, recipients []string) *ConsultationService {
	if sheet == "" {
		sheet = "Sheet2"
	}
	return &ConsultationService{
		mail:       mail,
		rows:       rows,
		composer:   composer,
		sheet:      sheet,
		recipients: recipients,
		now:        time.Now,
	}
}

// WithClock is test-only.
func (s *ConsultationService) WithClock(now func() time.Time) *ConsultationService {
	s.now = now
	return s
}

// BookingOutcome records each channel of a booking.
type BookingOutcome struct {
	Deliveries map[string]Delivery `json:"deliveries"`
}

// AllFailed reports whether no channel delivered. Skipped channels do not count as delivered.
func (o BookingOutcome) AllFailed() bool {
	attempted := false
	for _, d := range o.Deliveries {
		switch d.Status {
		case StatusDelivered:
			return false
		case StatusFailed:
			attempted = true
		}
	}
	return attempted
}

// Book validates the request, then appends the sheet row and sends both emails concurrently.
func (s *ConsultationService) Book(ctx context.Context, req domain.ConsultationRequest) (BookingOutcome, error) {
	if err := req.Validate(); err != nil {
		return BookingOutcome{}, err
	}
	at := s.now()
	out := BookingOutcome{Deliveries: make(map[string]Delivery, 3)}
	var mu sync.Mutex
	record := func(channel string, d Delivery) {
		if d.Status == StatusFailed {
			log.Printf("consultation: email=%s channel=%s failed: %v", strings.TrimSpace(req.Email), channel, d.Err)
		}
		mu.Lock()
		out.Deliveries[channel] = d
		mu.Unlock()
	}

	var g errgroup.Group
	g.Go(func() error {
		record(ChannelConsultationSheet, s.appendRow(ctx, req, at))
		return nil
	})
	g.Go(func() error {
		if len(s.recipients) == 0 {
			record(ChannelConsultationNotice, Delivery{Status: StatusSkipped})
			return nil
		}
		record(ChannelConsultationNotice, s.send(ctx, func() (notify.Message, error) {
			return s.composer.ConsultationNotice(req, at, s.recipients)
		}))
		return nil
	})
	g.Go(func() error {
		record(ChannelConsultationConfirmation, s.send(ctx, func() (notify.Message, error) {
			return s.composer.ConsultationConfirmation(req, at)
		}))
		return nil
	})
	_ = g.Wait()
	return out, nil
}

func (s *ConsultationService) send(ctx context.Context, build func() (notify.Message, error)) Delivery {
	if s.mail == nil || s.composer == nil {
		return Delivery{Status: StatusSkipped}
	}
	msg, err := build()
	if err != nil {
		return failed("compose: %v", err)
	}
	if err := s.mail.Send(ctx, msg); err != nil {
		return failed("send: %v", err)
	}
	return Delivery{Status: StatusDelivered}
}

func (s *ConsultationService) appendRow(ctx context.Context, req domain.ConsultationRequest, at time.Time) Delivery {
	if s.rows == nil {
		return Delivery{Status: StatusSkipped}
	}
	if err := s.rows.Append(ctx, s.sheet, ConsultationHeader, ConsultationRow(req, at)); err != nil {
		return failed("append sheet row: %v", err)
	}
	return Delivery{Status: StatusDelivered}
}

// ConsultationRow flattens a booking into the consultation sheet layout.
func ConsultationRow(req domain.ConsultationRequest, at time.Time) []string {
	company, score := "", ""
	if req.Context.PersonalInfo != nil {
		company = req.Context.PersonalInfo.Company
	}
	if req.Context.Score != nil {
		score = strconv.Itoa(*req.Context.Score)
	}
	return []string{
		at.UTC().Format(time.RFC3339),
		strings.TrimSpace(req.FirstName),
		strings.TrimSpace(req.LastName),
		strings.TrimSpace(req.Email),
		strings.TrimSpace(req.Phone),
		company,
		score,
	}
}
