package service

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/wedding-rsvp/internal/apperror"
	"github.com/sakif/wedding-rsvp/internal/metrics"
	"github.com/sakif/wedding-rsvp/internal/model"
	"github.com/sakif/wedding-rsvp/internal/sheets"
)

// DefaultRemoteTimeout bounds every Google round trip made for one request.
const DefaultRemoteTimeout = 15 * time.Second

// TimestampLayout formats the first column of every RSVP row (15.10.2026, 14:03:00).
const TimestampLayout = "02.01.2006, 15:04:05"

// ClientSource hands out authenticated HTTP clients.
// *SessionService implements it.
type ClientSource interface {
	HTTPClient(ctx context.Context) (*http.Client, error)
}

// RSVPService turns a guest's submission into one spreadsheet row.
type RSVPService struct {
	session     ClientSource
	provisioner *Provisioner
	newClient   sheets.Factory
	metrics     metrics.Recorder
	logger      *slog.Logger

	now      func() time.Time
	location *time.Location
	timeout  time.Duration
}

// RSVPOption customizes an RSVPService.
type RSVPOption func(*RSVPService)

// WithClock replaces time.Now; tests use it to pin timestamps.
func WithClock(now func() time.Time) RSVPOption {
	return func(s *RSVPService) { s.now = now }
}

// WithLocation sets the time zone of the timestamp column.
func WithLocation(loc *time.Location) RSVPOption {
	return func(s *RSVPService) { s.location = loc }
}

// WithRemoteTimeout bounds the whole remote part of one submission
// (token refresh, provisioning and append).
func WithRemoteTimeout(d time.Duration) RSVPOption {
	return func(s *RSVPService) { s.timeout = d }
}

// NewRSVPService creates an RSVPService.
func NewRSVPService(
	session ClientSource,
	provisioner *Provisioner,
	newClient sheets.Factory,
	rec metrics.Recorder,
	logger *slog.Logger,
	opts ...RSVPOption,
) *RSVPService {
	s := &RSVPService{
		session:     session,
		provisioner: provisioner,
		newClient:   newClient,
		metrics:     rec,
		logger:      logger,
		now:         time.Now,
		location:    time.Local,
		timeout:     DefaultRemoteTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit appends rsvp to the RSVP spreadsheet.
//
// Errors, in the order they are checked:
//   - apperror.ErrNotConfigured:     no Google account linked (any payload)
//   - apperror.ErrValidation:        name missing or blank
//   - apperror.ErrSheetProvisioning: the spreadsheet could not be resolved
//   - apperror.ErrSubmission:        the row append failed
func (s *RSVPService) Submit(ctx context.Context, rsvp model.RSVP) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	httpClient, err := s.session.HTTPClient(ctx)
	if err != nil {
		if errors.Is(err, apperror.ErrNotConfigured) {
			s.metrics.RecordSubmission(metrics.ResultNotConfigured)
			return err
		}
		s.metrics.RecordSubmission(metrics.ResultFailure)
		return apperror.SubmissionFailed(err)
	}

	name := strings.TrimSpace(rsvp.Name)
	if name == "" {
		s.metrics.RecordSubmission(metrics.ResultInvalid)
		return apperror.ValidationFailed("name", "Name is required")
	}

	client, err := s.newClient(ctx, httpClient)
	if err != nil {
		s.metrics.RecordSubmission(metrics.ResultFailure)
		return apperror.SubmissionFailed(err)
	}

	spreadsheetID, err := s.provisioner.Ensure(ctx, client)
	if err != nil {
		s.metrics.RecordSubmission(metrics.ResultFailure)
		return err
	}

	row := s.buildRow(name, rsvp)
	id := xid.New().String()

	start := time.Now()
	err = client.AppendRow(ctx, spreadsheetID, row)
	s.metrics.RecordRemoteCall("append", time.Since(start))
	if err != nil {
		s.metrics.RecordSubmission(metrics.ResultFailure)
		s.logger.Error("rsvp append failed",
			slog.String("submissionId", id),
			slog.String("spreadsheetId", spreadsheetID),
			slog.String("error", err.Error()),
		)
		return apperror.SubmissionFailed(err)
	}

	s.metrics.RecordSubmission(metrics.ResultSuccess)
	s.logger.Info("rsvp recorded",
		slog.String("submissionId", id),
		slog.String("spreadsheetId", spreadsheetID),
		slog.Bool("attending", rsvp.IsAttending()),
		slog.Int("guests", rsvp.AdultGuests()),
	)
	return nil
}

// buildRow lays out [timestamp, name, Yes/No, adult guests, diet, message].
func (s *RSVPService) buildRow(name string, rsvp model.RSVP) []any {
	attending := "No"
	if rsvp.IsAttending() {
		attending = "Yes"
	}
	return []any{
		s.now().In(s.location).Format(TimestampLayout),
		name,
		attending,
		rsvp.AdultGuests(),
		rsvp.Diet,
		rsvp.Message,
	}
}
