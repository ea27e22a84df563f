package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sakif/wedding-rsvp/internal/apperror"
	"github.com/sakif/wedding-rsvp/internal/metrics"
	"github.com/sakif/wedding-rsvp/internal/model"
	"github.com/sakif/wedding-rsvp/internal/repository"
	"github.com/sakif/wedding-rsvp/internal/sheets"
)

// HeaderRow is the first row written to a freshly created spreadsheet.
var HeaderRow = []any{"Timestamp", "Name", "Attending", "Guest Count", "Dietary Requirements", "Message"}

// DefaultSheetTitle names spreadsheets created on first submission.
const DefaultSheetTitle = "Wedding RSVPs - Maria & Andrei"

// Provisioner resolves the spreadsheet that receives RSVP rows, creating
// and caching one on first use.
//
// Resolution order:
//  1. a fixed id from configuration (GOOGLE_SHEET_ID), never stored;
//  2. the id cached under google_sheet_id;
//  3. a new spreadsheet: create, cache the id, append the header row.
//
// There is no lock around step 3. Two concurrent first submissions can
// each create a spreadsheet; the later write to google_sheet_id wins and
// the other spreadsheet is orphaned (it keeps the row that created it).
type Provisioner struct {
	store   repository.ConfigRepository
	fixedID string
	title   string
	metrics metrics.Recorder
	logger  *slog.Logger
}

// NewProvisioner creates a Provisioner. fixedID may be empty; an empty
// title falls back to DefaultSheetTitle.
func NewProvisioner(
	store repository.ConfigRepository,
	fixedID, title string,
	rec metrics.Recorder,
	logger *slog.Logger,
) *Provisioner {
	if title == "" {
		title = DefaultSheetTitle
	}
	return &Provisioner{
		store:   store,
		fixedID: fixedID,
		title:   title,
		metrics: rec,
		logger:  logger,
	}
}

// Ensure returns the spreadsheet id to append to, using client to create
// the spreadsheet when none exists yet.
//
// Failures are apperror.ErrSheetProvisioning with the failing stage:
//   - StageLookup:       reading the cached id failed
//   - StageCreate:       creating the spreadsheet or caching its id failed
//   - StageHeaderAppend: the header row could not be written; the id is
//     already cached, so the spreadsheet is reused without a header
func (p *Provisioner) Ensure(ctx context.Context, client sheets.Client) (string, error) {
	if p.fixedID != "" {
		p.metrics.RecordProvisioning(metrics.ProvisionFixed)
		return p.fixedID, nil
	}

	id, err := p.store.Get(ctx, model.ConfigKeyGoogleSheetID)
	switch {
	case err == nil && id != "":
		p.metrics.RecordProvisioning(metrics.ProvisionCached)
		return id, nil
	case err != nil && !errors.Is(err, apperror.ErrNotFound):
		return "", p.fail(apperror.StageLookup, err)
	}

	start := time.Now()
	id, err = client.CreateSpreadsheet(ctx, p.title)
	p.metrics.RecordRemoteCall("create", time.Since(start))
	if err != nil {
		return "", p.fail(apperror.StageCreate, err)
	}

	if err := p.store.Put(ctx, model.ConfigKeyGoogleSheetID, id); err != nil {
		return "", p.fail(apperror.StageCreate, err)
	}

	p.logger.Info("created rsvp spreadsheet",
		slog.String("spreadsheetId", id),
		slog.String("title", p.title),
	)

	start = time.Now()
	err = client.AppendRow(ctx, id, HeaderRow)
	p.metrics.RecordRemoteCall("append", time.Since(start))
	if err != nil {
		return "", p.fail(apperror.StageHeaderAppend, err)
	}

	p.metrics.RecordProvisioning(metrics.ProvisionCreated)
	return id, nil
}

func (p *Provisioner) fail(stage apperror.Stage, cause error) error {
	p.metrics.RecordProvisioning(metrics.ProvisionFailed)
	return apperror.SheetProvisioningFailed(stage, cause)
}
