package report

import (
	"context"
	"errors"
	"strings"
	"time"

	"city-samadhan/events"
	"city-samadhan/media"
	"city-samadhan/metrics"
	"city-samadhan/types"
	"city-samadhan/upload"

	"github.com/sirupsen/logrus"
)

// Identity answers who is submitting.
type Identity interface {
	CurrentUser(ctx context.Context) (types.User, error)
}

type Uploader interface {
	Upload(ctx context.Context, asset media.Asset) (upload.Uploaded, error)
	UploadAll(ctx context.Context, assets []media.Asset) ([]upload.Uploaded, error)
}

// Repository writes reports. CreateReport stores report under report.ID when
// it is set, so an id from NewReportID names the document before it exists.
type Repository interface {
	NewReportID() string
	CreateReport(ctx context.Context, report types.Report) (string, error)
}

// OrphanJournal remembers uploads that no report will reference. reportID is
// the id the failed write used, empty if none was attempted.
type OrphanJournal interface {
	RecordOrphans(ctx context.Context, userID, reportID, reason string, uploads []upload.Uploaded) error
}

type EventPublisher interface {
	PublishReportSubmitted(ctx context.Context, event events.ReportSubmitted) error
}

type Option func(*Submitter)

func WithOrphanJournal(j OrphanJournal) Option {
	return func(s *Submitter) { s.orphans = j }
}

func WithEventPublisher(p EventPublisher) Option {
	return func(s *Submitter) { s.events = p }
}

func WithPersistTimeout(d time.Duration) Option {
	return func(s *Submitter) { s.persistTimeout = d }
}

// Submitter turns a complete draft into a persisted report.
type Submitter struct {
	identity       Identity
	uploader       Uploader
	repo           Repository
	orphans        OrphanJournal
	events         EventPublisher
	persistTimeout time.Duration
	log            logrus.FieldLogger
	now            func() time.Time
}

func NewSubmitter(identity Identity, uploader Uploader, repo Repository, log logrus.FieldLogger, opts ...Option) *Submitter {
	s := &Submitter{
		identity:       identity,
		uploader:       uploader,
		repo:           repo,
		persistTimeout: 15 * time.Second,
		log:            log,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Validate checks the draft without any I/O.
func Validate(d Draft) error {
	const op = "report.Validate"

	if strings.TrimSpace(d.Title) == "" {
		return types.Errorf(types.KindValidation, op, "title is required")
	}
	if len(d.Images) > MaxImages {
		return types.Errorf(types.KindValidation, op, "at most %d images per report", MaxImages)
	}
	if d.Location == nil {
		return types.Errorf(types.KindValidation, op, "location is required")
	}
	pos := types.Position{Latitude: d.Location.Latitude, Longitude: d.Location.Longitude}
	if !pos.Valid() {
		return types.Errorf(types.KindValidation, op, "location %f,%f is out of range", pos.Latitude, pos.Longitude)
	}
	return nil
}

// Submit validates d, uploads its media in order, and creates the report
// owned by the current user. Nothing is uploaded unless the draft is valid
// and a user is signed in.
func (s *Submitter) Submit(ctx context.Context, d Draft) (string, error) {
	id, err := s.submit(ctx, d)
	if err != nil {
		metrics.SubmissionsTotal.WithLabelValues(string(types.KindOf(err))).Inc()
		return "", err
	}
	metrics.SubmissionsTotal.WithLabelValues("ok").Inc()
	return id, nil
}

func (s *Submitter) submit(ctx context.Context, d Draft) (string, error) {
	const op = "report.Submit"

	if err := Validate(d); err != nil {
		return "", err
	}

	user, err := s.identity.CurrentUser(ctx)
	if err != nil {
		return "", classifyAs(types.KindAuth, op, err)
	}
	log := s.log.WithField("user_id", user.ID)

	images, err := s.uploader.UploadAll(ctx, d.Images)
	if err != nil {
		s.journal(ctx, log, user.ID, "", "upload_failed", images)
		return "", classifyAs(types.KindUpload, op, err)
	}

	var voiceNote *string
	uploaded := images
	if d.VoiceNote != nil {
		vn, err := s.uploader.Upload(ctx, *d.VoiceNote)
		if err != nil {
			s.journal(ctx, log, user.ID, "", "upload_failed", images)
			return "", classifyAs(types.KindUpload, op, err)
		}
		voiceNote = &vn.URL
		uploaded = append(uploaded, vn)
	}

	category, known := types.ParseCategory(string(d.Category))
	if !known {
		log.WithField("category", d.Category).Warn("Unknown category, filing as Other")
	}

	loc := *d.Location
	report := types.Report{
		ID:        s.repo.NewReportID(),
		Title:     strings.TrimSpace(d.Title),
		Category:  category,
		Location:  &loc,
		Images:    urls(images),
		VoiceNote: voiceNote,
		Status:    types.Pending,
		UserID:    user.ID,
	}

	pctx, cancel := context.WithTimeout(ctx, s.persistTimeout)
	id, err := s.repo.CreateReport(pctx, report)
	cancel()
	if err != nil {
		// a timed out write may still commit; the sweep checks report.ID before deleting
		s.journal(ctx, log, user.ID, report.ID, "persist_failed", uploaded)
		return "", classifyAs(types.KindPersistence, op, err)
	}

	log = log.WithField("report_id", id)
	log.WithField("images", len(report.Images)).Info("Report submitted")
	s.publish(ctx, log, id, report)
	return id, nil
}

func (s *Submitter) journal(ctx context.Context, log logrus.FieldLogger, userID, reportID, reason string, uploads []upload.Uploaded) {
	if len(uploads) == 0 {
		return
	}
	metrics.OrphansTotal.WithLabelValues(reason).Add(float64(len(uploads)))

	if s.orphans == nil {
		log.WithField("orphans", len(uploads)).Warn("Uploaded media left unreferenced")
		return
	}

	// the request context may already be done; the journal write must still happen
	jctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.persistTimeout)
	defer cancel()
	if err := s.orphans.RecordOrphans(jctx, userID, reportID, reason, uploads); err != nil {
		log.WithError(err).WithField("orphans", len(uploads)).Error("Failed to journal orphaned media")
	}
}

func (s *Submitter) publish(ctx context.Context, log logrus.FieldLogger, id string, report types.Report) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishReportSubmitted(ctx, events.NewReportSubmitted(id, report, s.now())); err != nil {
		log.WithError(err).Warn("Failed to publish report.submitted")
	}
}

func urls(uploads []upload.Uploaded) []string {
	out := make([]string, len(uploads))
	for i, up := range uploads {
		out[i] = up.URL
	}
	return out
}

// classifyAs converts err to kind unless it already is that kind.
func classifyAs(kind types.ErrorKind, op string, err error) error {
	if types.KindOf(err) == kind {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &types.Error{Kind: kind, Op: op, Msg: "timed out", Err: err}
	}
	return types.E(kind, op, err)
}
