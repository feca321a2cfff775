// Package ingest sequences the upload pipeline: parse, duplicate
// rejection, continuation detection, profile resolution, biomarker
// matching, unit conversion, persistence and quota accounting.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/biopulse/biopulse/internal/domain/account"
	"github.com/biopulse/biopulse/internal/domain/biomarker"
	"github.com/biopulse/biopulse/internal/domain/document"
	"github.com/biopulse/biopulse/internal/domain/profile"
	"github.com/biopulse/biopulse/internal/platform/aiparse"
	"github.com/biopulse/biopulse/internal/platform/blobstore"
	"github.com/biopulse/biopulse/internal/platform/ttlstore"
)

// PendingTimeout is how long a pending-name disambiguation may sit
// idle before its document is failed with reason timeout.
const PendingTimeout = 10 * time.Minute

// outcomeTTL is how long a processing outcome stays available for
// result polling.
const outcomeTTL = time.Hour

// maxFlaggedExamples caps how many out-of-range readings a summary
// lists.
const maxFlaggedExamples = 10

// ErrNoPending is returned by the disambiguation operations when the
// account has no live pending document.
var ErrNoPending = errors.New("no pending document")

// ErrPendingExpired is returned when the pending document timed out
// before the user answered. The document has already been failed.
var ErrPendingExpired = errors.New("pending document expired")

// OutcomeKind classifies what happened to an upload.
type OutcomeKind string

const (
	OutcomeProcessed    OutcomeKind = "processed"
	OutcomeContinuation OutcomeKind = "continuation"
	OutcomePendingName  OutcomeKind = "pending_name"
	OutcomeRejected     OutcomeKind = "rejected"
	OutcomeFailed       OutcomeKind = "failed"
)

// Outcome is the structured result of one upload, rendered by the
// presentation layer into chat or dashboard form.
type Outcome struct {
	Kind       OutcomeKind        `json:"kind"`
	DocumentID uuid.UUID          `json:"document_id"`
	Reason     string             `json:"reason,omitempty"`
	Profile    *profile.Profile   `json:"profile,omitempty"`
	Profiles   []*profile.Profile `json:"profiles,omitempty"`
	Summary    *Summary           `json:"summary,omitempty"`
}

// Summary describes the readings extracted from one upload.
type Summary struct {
	ProfileName string           `json:"profile_name"`
	TestDate    *string          `json:"test_date,omitempty"`
	LabName     *string          `json:"lab_name,omitempty"`
	Total       int              `json:"total"`
	Matched     int              `json:"matched"`
	Flagged     int              `json:"flagged"`
	Examples    []FlaggedReading `json:"examples,omitempty"`
}

// FlaggedReading is one out-of-range reading shown in a summary.
type FlaggedReading struct {
	Name   string   `json:"name"`
	Value  string   `json:"value"`
	Unit   *string  `json:"unit,omitempty"`
	Flag   string   `json:"flag"`
	RefMin *float64 `json:"ref_min,omitempty"`
	RefMax *float64 `json:"ref_max,omitempty"`
}

// Metrics is the slice of the telemetry surface the pipeline reports
// to.
type Metrics interface {
	IngestOutcome(source, outcome string)
	ParseRequest(provider, status string)
	ObserveParseDuration(d time.Duration)
}

type nopMetrics struct{}

func (nopMetrics) IngestOutcome(string, string)       {}
func (nopMetrics) ParseRequest(string, string)        {}
func (nopMetrics) ObserveParseDuration(time.Duration) {}

type Service struct {
	accounts  *account.Service
	profiles  *profile.Service
	documents document.Repository
	readings  document.ReadingRepository
	catalog   *biomarker.Catalog
	parser    aiparse.Provider
	blobs     blobstore.Store
	logger    zerolog.Logger
	metrics   Metrics

	lastUploads *ttlstore.Store[uuid.UUID, *lastUpload]
	pending     *ttlstore.Store[uuid.UUID, *pendingUpload]
	outcomes    *ttlstore.Store[uuid.UUID, *Outcome]
	locks       *keyedMutex

	now func() time.Time
}

func NewService(
	accounts *account.Service,
	profiles *profile.Service,
	documents document.Repository,
	readings document.ReadingRepository,
	catalog *biomarker.Catalog,
	parser aiparse.Provider,
	blobs blobstore.Store,
	logger zerolog.Logger,
	metrics Metrics,
) *Service {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &Service{
		accounts:    accounts,
		profiles:    profiles,
		documents:   documents,
		readings:    readings,
		catalog:     catalog,
		parser:      parser,
		blobs:       blobs,
		logger:      logger,
		metrics:     metrics,
		lastUploads: ttlstore.New[uuid.UUID, *lastUpload](ContinuationWindow),
		pending:     ttlstore.New[uuid.UUID, *pendingUpload](PendingTimeout),
		outcomes:    ttlstore.New[uuid.UUID, *Outcome](outcomeTTL),
		locks:       newKeyedMutex(),
		now:         time.Now,
	}
}

// Begin validates an upload, checks the monthly quota, stores the
// raw file and records the document as pending. Parsing happens
// afterwards in Process.
func (s *Service) Begin(ctx context.Context, acct *account.Account, contentType string, data []byte) (*document.Document, error) {
	if err := blobstore.ValidateUpload(contentType, int64(len(data))); err != nil {
		return nil, err
	}
	if _, err := s.accounts.CheckUploadQuota(ctx, acct); err != nil {
		return nil, err
	}

	doc := &document.Document{
		AccountID: acct.ID,
		FileType:  contentType,
		FileSize:  int64(len(data)),
		Status:    document.StatusPending,
	}
	if err := s.documents.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}

	doc.StoragePath = storagePath(acct.ID, doc.ID, contentType)
	if err := s.blobs.Put(ctx, doc.StoragePath, contentType, data); err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}
	if err := s.documents.Update(ctx, doc); err != nil {
		return nil, fmt.Errorf("update document: %w", err)
	}
	return doc, nil
}

// Process runs the pipeline for one upload. It is dispatched without
// blocking the caller's acknowledgment; the outcome is stored for
// polling under the document id. Processing is serialized per account
// so concurrent uploads cannot race on the continuation and
// pending-name state.
func (s *Service) Process(ctx context.Context, acct *account.Account, doc *document.Document, data []byte) *Outcome {
	s.locks.Lock(acct.ID)
	defer s.locks.Unlock(acct.ID)

	out := s.process(ctx, acct, doc, data)
	s.outcomes.Put(doc.ID, out)
	s.metrics.IngestOutcome("upload", string(out.Kind))
	s.logger.Info().
		Str("document_id", doc.ID.String()).
		Str("account_id", acct.ID.String()).
		Str("outcome", string(out.Kind)).
		Str("reason", out.Reason).
		Msg("upload processed")
	return out
}

func (s *Service) process(ctx context.Context, acct *account.Account, doc *document.Document, data []byte) *Outcome {
	doc.Status = document.StatusProcessing
	if err := s.documents.Update(ctx, doc); err != nil {
		return s.fail(ctx, doc, err.Error())
	}

	start := s.now()
	resp, err := s.parser.Parse(ctx, data, doc.FileType, acct.Locale)
	elapsed := s.now().Sub(start)
	s.metrics.ObserveParseDuration(elapsed)
	if err != nil {
		s.metrics.ParseRequest(s.parser.Name(), "error")
		return s.fail(ctx, doc, err.Error())
	}
	s.metrics.ParseRequest(s.parser.Name(), "ok")

	res := resp.Result
	doc.AIModel = &resp.Model
	doc.AITokensIn = resp.TokensIn
	doc.AITokensOut = resp.TokensOut
	doc.ProcessingTimeMs = elapsed.Milliseconds()
	doc.ParsedName = res.PatientName
	doc.ParsedDOB = res.PatientDOB
	doc.ParsedSex = res.PatientSex
	doc.TestDate = res.TestDate
	doc.LabName = res.LabName
	doc.DocumentType = res.DocumentType
	doc.Language = res.Language
	doc.IsPartial = res.PartialResult
	if payload, perr := json.Marshal(res); perr == nil {
		doc.ParsedPayload = payload
	}

	if len(res.Readings) == 0 {
		return s.reject(ctx, doc, document.ReasonNoReadings)
	}

	if res.PatientName != nil && res.TestDate != nil {
		dup, err := s.documents.HasCompleted(ctx, acct.ID, *res.PatientName, *res.TestDate, res.DocumentType)
		if err != nil {
			return s.fail(ctx, doc, err.Error())
		}
		if dup {
			return s.reject(ctx, doc, document.ReasonDuplicate)
		}
	}

	if last, ok := s.lastUploads.Get(acct.ID); ok && continuationMatch(last, res) {
		return s.attachContinuation(ctx, acct, doc, res, last)
	}

	name := strings.TrimSpace(deref(res.PatientName))
	if len([]rune(name)) < 2 {
		return s.suspendForName(ctx, acct, doc, res)
	}

	prof, err := s.profiles.Resolve(ctx, acct.ID, name)
	if err != nil {
		return s.fail(ctx, doc, err.Error())
	}
	return s.finalize(ctx, acct, doc, prof, res)
}

// attachContinuation records this upload as an extra page of the
// account's last document: the auxiliary document is completed under
// a sentinel name and its readings are filed against the target.
func (s *Service) attachContinuation(ctx context.Context, acct *account.Account, doc *document.Document, res *aiparse.Result, last *lastUpload) *Outcome {
	s.lastUploads.Touch(acct.ID)

	name := document.ContinuationName
	doc.ParsedName = &name
	doc.ProfileID = &last.ProfileID
	doc.Status = document.StatusDone
	if err := s.documents.Update(ctx, doc); err != nil {
		return s.fail(ctx, doc, err.Error())
	}

	summary, err := s.persistReadings(ctx, last.DocumentID, last.ProfileID, res, last.TestDate)
	if err != nil {
		return s.fail(ctx, doc, err.Error())
	}
	summary.ProfileName = last.PatientName
	if prof, perr := s.profiles.Get(ctx, last.ProfileID); perr == nil {
		summary.ProfileName = prof.FullName
	}
	return &Outcome{Kind: OutcomeContinuation, DocumentID: doc.ID, Summary: summary}
}

// suspendForName parks the parsed document until the user says whose
// it is. A still-live prior pending document is superseded and failed
// with reason timeout.
func (s *Service) suspendForName(ctx context.Context, acct *account.Account, doc *document.Document, res *aiparse.Result) *Outcome {
	if prev, ok := s.pending.Pop(acct.ID); ok && prev.DocumentID != doc.ID {
		s.failByID(ctx, prev.DocumentID, document.ReasonTimeout)
	}

	if err := s.documents.Update(ctx, doc); err != nil {
		return s.fail(ctx, doc, err.Error())
	}
	s.pending.Put(acct.ID, &pendingUpload{
		DocumentID: doc.ID,
		Parsed:     res,
		Stage:      StageSelectProfile,
	})

	profiles, err := s.profiles.List(ctx, acct.ID)
	if err != nil {
		s.logger.Error().Err(err).Str("account_id", acct.ID.String()).Msg("list profiles for prompt")
	}
	return &Outcome{Kind: OutcomePendingName, DocumentID: doc.ID, Profiles: profiles}
}

// finalize completes an original (non-continuation) document: links
// the profile, persists readings, charges the quota once and arms the
// continuation window.
func (s *Service) finalize(ctx context.Context, acct *account.Account, doc *document.Document, prof *profile.Profile, res *aiparse.Result) *Outcome {
	doc.ProfileID = &prof.ID
	doc.Status = document.StatusDone
	if err := s.documents.Update(ctx, doc); err != nil {
		return s.fail(ctx, doc, err.Error())
	}

	// A report printing no date borrows the date of the account's
	// last upload while that window is still live.
	var fallbackDate *string
	if last, ok := s.lastUploads.Get(acct.ID); ok {
		fallbackDate = last.TestDate
	}

	summary, err := s.persistReadings(ctx, doc.ID, prof.ID, res, fallbackDate)
	if err != nil {
		return s.fail(ctx, doc, err.Error())
	}
	summary.ProfileName = prof.FullName

	if err := s.accounts.RecordUpload(ctx, acct); err != nil {
		s.logger.Error().Err(err).Str("account_id", acct.ID.String()).Msg("record upload")
	}

	patientName := strings.TrimSpace(deref(res.PatientName))
	if patientName == "" {
		patientName = prof.FullName
	}
	s.lastUploads.Put(acct.ID, &lastUpload{
		DocumentID:   doc.ID,
		ProfileID:    prof.ID,
		PatientName:  patientName,
		LabName:      res.LabName,
		TestDate:     res.TestDate,
		DocumentType: res.DocumentType,
	})

	return &Outcome{Kind: OutcomeProcessed, DocumentID: doc.ID, Profile: prof, Summary: summary}
}

// persistReadings matches, converts and batch-inserts the extracted
// readings against the given document and profile. Readings inserted
// before a later failure remain; persistence is at-least-once, not
// atomic.
func (s *Service) persistReadings(ctx context.Context, docID, profileID uuid.UUID, res *aiparse.Result, fallbackDate *string) (*Summary, error) {
	testedAt := deref(res.TestDate)
	if testedAt == "" {
		testedAt = deref(fallbackDate)
	}
	if testedAt == "" {
		testedAt = s.now().UTC().Format("2006-01-02")
	}

	// Matching and conversion are independent per reading; fan them
	// out with a bounded group.
	rows := make([]*document.Reading, len(res.Readings))
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, r := range res.Readings {
		i, r := i, r
		g.Go(func() error {
			rows[i] = s.buildReading(docID, profileID, r, testedAt)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	summary := &Summary{TestDate: res.TestDate, LabName: res.LabName, Total: len(res.Readings)}
	for i, row := range rows {
		if row.BiomarkerID != nil {
			summary.Matched++
		}
		if flagged(row.Flag) {
			summary.Flagged++
			if len(summary.Examples) < maxFlaggedExamples {
				summary.Examples = append(summary.Examples, FlaggedReading{
					Name:   row.OriginalName,
					Value:  res.Readings[i].Value.String(),
					Unit:   row.Unit,
					Flag:   row.Flag,
					RefMin: row.RefMin,
					RefMax: row.RefMax,
				})
			}
		}
	}

	if err := s.readings.CreateBatch(ctx, rows); err != nil {
		return nil, fmt.Errorf("persist readings: %w", err)
	}
	return summary, nil
}

// buildReading maps one extracted row to its catalog entry and
// converts the value and reference bounds into the canonical unit
// with a single shared factor.
func (s *Service) buildReading(docID, profileID uuid.UUID, r aiparse.Reading, testedAt string) *document.Reading {
	row := &document.Reading{
		DocumentID:   docID,
		ProfileID:    profileID,
		OriginalName: r.Name,
		RefMin:       r.RefMin,
		RefMax:       r.RefMax,
		Unit:         r.Unit,
		TestedAt:     testedAt,
	}

	bm := s.catalog.Match(r.Name)
	if bm != nil {
		row.BiomarkerID = &bm.ID
	}

	if r.Value.IsNum {
		v, unit := biomarker.Convert(bm, r.Value.Number, deref(r.Unit))
		if unit != deref(r.Unit) {
			row.Unit = &unit
			row.RefMin = convertBound(bm, r.RefMin, deref(r.Unit))
			row.RefMax = convertBound(bm, r.RefMax, deref(r.Unit))
		}
		row.Value = &v
	} else if text := strings.TrimSpace(r.Value.Text); text != "" {
		row.ValueText = &text
	}

	row.Flag = normalizeFlag(r.Flag, row.Value, row.RefMin, row.RefMax)
	return row
}

// convertBound carries a reference bound through the same unit
// conversion as the value it brackets.
func convertBound(bm *biomarker.Biomarker, p *float64, unit string) *float64 {
	if p == nil {
		return nil
	}
	v, _ := biomarker.Convert(bm, *p, unit)
	return &v
}

// normalizeFlag lowercases the lab's flag, deriving one from the
// reference bounds when the lab printed none.
func normalizeFlag(flag string, value, refMin, refMax *float64) string {
	f := strings.ToLower(strings.TrimSpace(flag))
	if f != "" {
		return f
	}
	if value != nil {
		if refMin != nil && *value < *refMin {
			return document.FlagLow
		}
		if refMax != nil && *value > *refMax {
			return document.FlagHigh
		}
	}
	return document.FlagNormal
}

func flagged(flag string) bool {
	return flag != "" && flag != document.FlagNormal
}

// SelectProfile resolves a pending document to one of the account's
// existing profiles.
func (s *Service) SelectProfile(ctx context.Context, acct *account.Account, profileID uuid.UUID) (*Outcome, error) {
	s.locks.Lock(acct.ID)
	defer s.locks.Unlock(acct.ID)

	p, err := s.livePending(ctx, acct.ID)
	if err != nil {
		return nil, err
	}
	prof, err := s.profiles.Get(ctx, profileID)
	if err != nil || prof.AccountID != acct.ID {
		return nil, profile.ErrNotFound
	}

	return s.resolvePending(ctx, acct, p, prof)
}

// RequestNewProfile moves a pending document from profile selection
// to name entry. The next submitted text becomes the profile name.
func (s *Service) RequestNewProfile(ctx context.Context, acct *account.Account) error {
	s.locks.Lock(acct.ID)
	defer s.locks.Unlock(acct.ID)

	p, err := s.livePending(ctx, acct.ID)
	if err != nil {
		return err
	}
	p.Stage = StageEnterName
	s.pending.Put(acct.ID, p)
	return nil
}

// SubmitName resolves a pending document through free-text name
// entry. Names under two characters are rejected and the pending
// state is left untouched.
func (s *Service) SubmitName(ctx context.Context, acct *account.Account, name string) (*Outcome, error) {
	s.locks.Lock(acct.ID)
	defer s.locks.Unlock(acct.ID)

	p, err := s.livePending(ctx, acct.ID)
	if err != nil {
		return nil, err
	}
	if p.Stage != StageEnterName {
		return nil, ErrNoPending
	}
	prof, err := s.profiles.Resolve(ctx, acct.ID, name)
	if err != nil {
		return nil, err
	}
	return s.resolvePending(ctx, acct, p, prof)
}

// livePending returns the account's pending upload, failing the
// document first if the state sat idle past its timeout.
func (s *Service) livePending(ctx context.Context, accountID uuid.UUID) (*pendingUpload, error) {
	if p, ok := s.pending.PopExpired(accountID); ok {
		s.failByID(ctx, p.DocumentID, document.ReasonTimeout)
		s.metrics.IngestOutcome("upload", string(OutcomeFailed))
		return nil, ErrPendingExpired
	}
	p, ok := s.pending.Get(accountID)
	if !ok {
		return nil, ErrNoPending
	}
	return p, nil
}

func (s *Service) resolvePending(ctx context.Context, acct *account.Account, p *pendingUpload, prof *profile.Profile) (*Outcome, error) {
	doc, err := s.documents.GetByID(ctx, p.DocumentID)
	if err != nil {
		s.pending.Delete(acct.ID)
		return nil, err
	}
	s.pending.Delete(acct.ID)

	out := s.finalize(ctx, acct, doc, prof, p.Parsed)
	s.outcomes.Put(doc.ID, out)
	s.metrics.IngestOutcome("upload", string(out.Kind))
	return out, nil
}

// SweepPending fails the account's pending document if its window has
// lapsed. Timeouts are cooperative: they are checked on the next
// relevant event, not by a background timer.
func (s *Service) SweepPending(ctx context.Context, accountID uuid.UUID) {
	if p, ok := s.pending.PopExpired(accountID); ok {
		s.failByID(ctx, p.DocumentID, document.ReasonTimeout)
		s.metrics.IngestOutcome("upload", string(OutcomeFailed))
	}
}

// Pending reports the stage of the account's live pending document.
func (s *Service) Pending(accountID uuid.UUID) (Stage, bool) {
	p, ok := s.pending.Get(accountID)
	if !ok {
		return "", false
	}
	return p.Stage, true
}

// Outcome returns the stored processing outcome for a document, if
// it is still within the polling window.
func (s *Service) Outcome(documentID uuid.UUID) (*Outcome, bool) {
	return s.outcomes.Get(documentID)
}

func (s *Service) reject(ctx context.Context, doc *document.Document, reason string) *Outcome {
	doc.Status = document.StatusError
	doc.ErrorMessage = &reason
	if err := s.documents.Update(ctx, doc); err != nil {
		s.logger.Error().Err(err).Str("document_id", doc.ID.String()).Msg("mark document rejected")
	}
	return &Outcome{Kind: OutcomeRejected, DocumentID: doc.ID, Reason: reason}
}

func (s *Service) fail(ctx context.Context, doc *document.Document, msg string) *Outcome {
	doc.Status = document.StatusError
	doc.ErrorMessage = &msg
	if err := s.documents.Update(ctx, doc); err != nil {
		s.logger.Error().Err(err).Str("document_id", doc.ID.String()).Msg("mark document failed")
	}
	return &Outcome{Kind: OutcomeFailed, DocumentID: doc.ID, Reason: msg}
}

func (s *Service) failByID(ctx context.Context, id uuid.UUID, reason string) {
	doc, err := s.documents.GetByID(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("document_id", id.String()).Msg("load document for failure")
		return
	}
	out := s.fail(ctx, doc, reason)
	s.outcomes.Put(id, out)
}

func storagePath(accountID, docID uuid.UUID, contentType string) string {
	return fmt.Sprintf("%s/%s%s", accountID, docID, extFor(contentType))
}

func extFor(contentType string) string {
	switch contentType {
	case "application/pdf":
		return ".pdf"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}
