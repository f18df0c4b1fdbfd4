package cronjobs

import (
	"context"
	"fmt"
	"time"

	"city-samadhan/db"
	"city-samadhan/metrics"
	"city-samadhan/types"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const (
	orphanBatchSize = 100
	// entries younger than this may belong to a write still in flight
	orphanGrace = 10 * time.Minute
)

type OrphanJournal interface {
	ListOrphans(ctx context.Context, limit int) ([]db.Orphan, error)
	DeleteOrphan(ctx context.Context, id string) error
}

type ObjectDeleter interface {
	Delete(ctx context.Context, path string) error
}

type ReportLookup interface {
	GetReport(ctx context.Context, id string) (types.Report, error)
}

// OrphanSweeper deletes uploaded media that no report references and then
// drops the journal entry. An entry naming a report that exists after all is
// dropped without touching the object. Entries whose object or report cannot
// be checked stay for the next run.
type OrphanSweeper struct {
	journal OrphanJournal
	reports ReportLookup
	store   ObjectDeleter
	log     logrus.FieldLogger
	now     func() time.Time
}

func NewOrphanSweeper(journal OrphanJournal, reports ReportLookup, store ObjectDeleter, log logrus.FieldLogger) *OrphanSweeper {
	return &OrphanSweeper{journal: journal, reports: reports, store: store, log: log, now: time.Now}
}

func (s *OrphanSweeper) Sweep(ctx context.Context) (int, error) {
	orphans, err := s.journal.ListOrphans(ctx, orphanBatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to list orphans: %w", err)
	}

	swept, kept := 0, 0
	for _, o := range orphans {
		// listed oldest first
		if s.now().Sub(o.CreatedAt) < orphanGrace {
			break
		}
		log := s.log.WithFields(logrus.Fields{"orphan": o.ID, "path": o.Path})

		if o.ReportID != "" {
			referenced, err := s.reportExists(ctx, o.ReportID)
			if err != nil {
				log.WithError(err).Warn("Failed to check report of orphaned object")
				continue
			}
			if referenced {
				if err := s.journal.DeleteOrphan(ctx, o.ID); err != nil {
					log.WithError(err).Warn("Failed to remove orphan journal entry")
					continue
				}
				log.WithField("report_id", o.ReportID).Info("Report was committed, keeping its media")
				kept++
				continue
			}
		}

		if err := s.store.Delete(ctx, o.Path); err != nil {
			log.WithError(err).Warn("Failed to delete orphaned object")
			continue
		}
		if err := s.journal.DeleteOrphan(ctx, o.ID); err != nil {
			log.WithError(err).Warn("Failed to remove orphan journal entry")
			continue
		}
		swept++
	}

	if swept > 0 {
		metrics.OrphansTotal.WithLabelValues("swept").Add(float64(swept))
	}
	if kept > 0 {
		metrics.OrphansTotal.WithLabelValues("kept").Add(float64(kept))
	}
	return swept, nil
}

func (s *OrphanSweeper) reportExists(ctx context.Context, id string) (bool, error) {
	_, err := s.reports.GetReport(ctx, id)
	switch {
	case err == nil:
		return true, nil
	case types.KindOf(err) == types.KindNotFound:
		return false, nil
	default:
		return false, err
	}
}

type DraftEvicter interface {
	EvictStale(ttl time.Duration) int
}

type Schedules struct {
	OrphanSweep string
	DraftSweep  string
	DraftTTL    time.Duration
}

// InitCronJobs schedules the background jobs and starts the scheduler.
// sweeper may be nil when there is no orphan journal.
func InitCronJobs(sweeper *OrphanSweeper, drafts DraftEvicter, sched Schedules, log logrus.FieldLogger) (*cron.Cron, error) {
	c := cron.New()

	if sweeper != nil {
		_, err := c.AddFunc(sched.OrphanSweep, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()

			swept, err := sweeper.Sweep(ctx)
			if err != nil {
				log.WithError(err).Error("CronJob: orphan sweep failed")
				return
			}
			log.WithField("swept", swept).Info("CronJob: orphan sweep finished")
		})
		if err != nil {
			return nil, fmt.Errorf("error scheduling orphan sweep: %w", err)
		}
	}

	_, err := c.AddFunc(sched.DraftSweep, func() {
		if evicted := drafts.EvictStale(sched.DraftTTL); evicted > 0 {
			log.WithField("evicted", evicted).Info("CronJob: evicted stale drafts")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("error scheduling draft eviction: %w", err)
	}

	c.Start()
	return c, nil
}
