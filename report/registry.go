package report

import (
	"sync"
	"time"

	"city-samadhan/types"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type registryEntry struct {
	userID   string
	composer *Composer
}

// Registry keeps each user's open drafts between requests.
type Registry struct {
	mu        sync.Mutex
	drafts    map[string]registryEntry
	submitter DraftSubmitter
	discarder Discarder
	log       logrus.FieldLogger
}

func NewRegistry(submitter DraftSubmitter, discarder Discarder, log logrus.FieldLogger) *Registry {
	return &Registry{
		drafts:    make(map[string]registryEntry),
		submitter: submitter,
		discarder: discarder,
		log:       log,
	}
}

// Create opens a new empty draft for userID.
func (r *Registry) Create(userID string) (string, *Composer) {
	id := uuid.NewString()
	c := NewComposer(r.submitter, r.discarder)

	r.mu.Lock()
	r.drafts[id] = registryEntry{userID: userID, composer: c}
	r.mu.Unlock()
	return id, c
}

// Get returns userID's draft. Another user's draft is reported as not found.
func (r *Registry) Get(userID, draftID string) (*Composer, error) {
	r.mu.Lock()
	entry, ok := r.drafts[draftID]
	r.mu.Unlock()

	if !ok || entry.userID != userID {
		return nil, types.Errorf(types.KindNotFound, "report.Registry.Get", "draft %s not found", draftID)
	}
	return entry.composer, nil
}

// Delete discards a draft and its staged media.
func (r *Registry) Delete(userID, draftID string) error {
	c, err := r.Get(userID, draftID)
	if err != nil {
		return err
	}
	if err := c.Discard(); err != nil {
		return err
	}

	r.mu.Lock()
	delete(r.drafts, draftID)
	r.mu.Unlock()
	return nil
}

// Forget removes a draft without touching its media, used after a successful submit.
func (r *Registry) Forget(draftID string) {
	r.mu.Lock()
	delete(r.drafts, draftID)
	r.mu.Unlock()
}

// EvictStale discards drafts untouched for longer than ttl. Drafts that are
// being submitted are left alone.
func (r *Registry) EvictStale(ttl time.Duration) int {
	cutoff := time.Now().Add(-ttl)

	r.mu.Lock()
	var stale []string
	for id, entry := range r.drafts {
		if !entry.composer.Submitting() && entry.composer.Touched().Before(cutoff) {
			stale = append(stale, id)
		}
	}
	r.mu.Unlock()

	evicted := 0
	for _, id := range stale {
		r.mu.Lock()
		entry, ok := r.drafts[id]
		r.mu.Unlock()
		if !ok {
			continue
		}
		if err := r.Delete(entry.userID, id); err != nil {
			r.log.WithError(err).WithField("draft_id", id).Debug("Skipped stale draft")
			continue
		}
		evicted++
	}
	return evicted
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.drafts)
}
