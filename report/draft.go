package report

import (
	"city-samadhan/media"
	"city-samadhan/types"
)

// MaxImages caps the images one report may carry.
const MaxImages = 10

// Draft is an unsaved report: everything the user has entered or captured so far.
type Draft struct {
	Title     string                `json:"title"`
	Category  types.Category        `json:"category"`
	Location  *types.LocationRecord `json:"location"`
	Images    []media.Asset         `json:"images"`
	VoiceNote *media.Asset          `json:"voiceNote"`
}

// Clone returns a copy that shares no mutable state with d.
func (d Draft) Clone() Draft {
	out := d
	if d.Location != nil {
		loc := *d.Location
		out.Location = &loc
	}
	if d.Images != nil {
		out.Images = append([]media.Asset(nil), d.Images...)
	}
	if d.VoiceNote != nil {
		vn := *d.VoiceNote
		out.VoiceNote = &vn
	}
	return out
}

// Empty reports whether nothing has been entered.
func (d Draft) Empty() bool {
	return d.Title == "" && d.Category == "" && d.Location == nil && len(d.Images) == 0 && d.VoiceNote == nil
}

func (d Draft) assets() []media.Asset {
	assets := append([]media.Asset(nil), d.Images...)
	if d.VoiceNote != nil {
		assets = append(assets, *d.VoiceNote)
	}
	return assets
}
