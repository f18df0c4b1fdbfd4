package report

import (
	"context"
	"sync"
	"time"

	"city-samadhan/media"
	"city-samadhan/types"
)

// DraftSubmitter is what a Composer hands its draft to.
type DraftSubmitter interface {
	Submit(ctx context.Context, d Draft) (string, error)
}

// Discarder removes staged media that is no longer needed.
type Discarder interface {
	Discard(assets ...media.Asset)
}

// Composer owns one draft. While a submission is in flight the draft is
// frozen: every mutation and any second Submit fail with AlreadySubmitting.
type Composer struct {
	mu         sync.Mutex
	draft      Draft
	submitting bool
	touched    time.Time

	submitter DraftSubmitter
	discarder Discarder
	now       func() time.Time
}

func NewComposer(submitter DraftSubmitter, discarder Discarder) *Composer {
	c := &Composer{submitter: submitter, discarder: discarder, now: time.Now}
	c.touched = c.now()
	return c
}

func (c *Composer) SetTitle(title string) error {
	return c.update(func(d *Draft) []media.Asset {
		d.Title = title
		return nil
	})
}

func (c *Composer) SetCategory(category types.Category) error {
	return c.update(func(d *Draft) []media.Asset {
		d.Category = category
		return nil
	})
}

func (c *Composer) SetLocation(loc *types.LocationRecord) error {
	return c.update(func(d *Draft) []media.Asset {
		if loc == nil {
			d.Location = nil
			return nil
		}
		l := *loc
		d.Location = &l
		return nil
	})
}

// AddImage appends to the image queue. Queue order is the order of the persisted URLs.
func (c *Composer) AddImage(asset media.Asset) error {
	return c.update(func(d *Draft) []media.Asset {
		d.Images = append(d.Images, asset)
		return nil
	})
}

// RemoveImage drops the image with the given asset id.
func (c *Composer) RemoveImage(assetID string) error {
	var found bool
	err := c.update(func(d *Draft) []media.Asset {
		for i, img := range d.Images {
			if img.ID == assetID {
				found = true
				d.Images = append(d.Images[:i:i], d.Images[i+1:]...)
				return []media.Asset{img}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if !found {
		return types.Errorf(types.KindNotFound, "report.RemoveImage", "image %s not in draft", assetID)
	}
	return nil
}

// SetVoiceNote replaces any previous recording.
func (c *Composer) SetVoiceNote(asset media.Asset) error {
	return c.update(func(d *Draft) []media.Asset {
		prev := d.VoiceNote
		d.VoiceNote = &asset
		if prev != nil {
			return []media.Asset{*prev}
		}
		return nil
	})
}

func (c *Composer) ClearVoiceNote() error {
	return c.update(func(d *Draft) []media.Asset {
		prev := d.VoiceNote
		d.VoiceNote = nil
		if prev != nil {
			return []media.Asset{*prev}
		}
		return nil
	})
}

// Draft returns a copy of the current draft.
func (c *Composer) Draft() Draft {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft.Clone()
}

func (c *Composer) Submitting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.submitting
}

// Touched is the time of the last change to the draft.
func (c *Composer) Touched() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.touched
}

// Submit hands a snapshot of the draft to the submitter. On success the
// draft is cleared and its staged media discarded; on failure it is left
// exactly as it was.
func (c *Composer) Submit(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.submitting {
		c.mu.Unlock()
		return "", alreadySubmitting("report.Composer.Submit")
	}
	c.submitting = true
	snapshot := c.draft.Clone()
	c.mu.Unlock()

	id, err := c.submitter.Submit(ctx, snapshot)

	c.mu.Lock()
	c.submitting = false
	if err != nil {
		c.mu.Unlock()
		return "", err
	}
	staged := c.draft.assets()
	c.draft = Draft{}
	c.touched = c.now()
	c.mu.Unlock()

	c.discard(staged)
	return id, nil
}

// Discard drops the whole draft and its staged media.
func (c *Composer) Discard() error {
	return c.update(func(d *Draft) []media.Asset {
		staged := d.assets()
		*d = Draft{}
		return staged
	})
}

func (c *Composer) update(fn func(d *Draft) []media.Asset) error {
	c.mu.Lock()
	if c.submitting {
		c.mu.Unlock()
		return alreadySubmitting("report.Composer.update")
	}
	drop := fn(&c.draft)
	c.touched = c.now()
	c.mu.Unlock()

	c.discard(drop)
	return nil
}

func (c *Composer) discard(assets []media.Asset) {
	if len(assets) > 0 && c.discarder != nil {
		c.discarder.Discard(assets...)
	}
}

func alreadySubmitting(op string) error {
	return types.Errorf(types.KindAlreadySubmitting, op, "submission in progress")
}
