// Package pipeline turns an issue index into sorted cover records: it
// acquires each cover, extracts its color signature, classifies its
// brightness and groups the results.
package pipeline

import (
	"cmp"
	"log/slog"
	"slices"

	"github.com/lepinkainen/coverspectrum/internal/brightness"
	coverrors "github.com/lepinkainen/coverspectrum/internal/errors"
	"github.com/lepinkainen/coverspectrum/internal/fileutil"
	"github.com/lepinkainen/coverspectrum/internal/issues"
	"github.com/lepinkainen/coverspectrum/internal/signature"
)

// CoverRecord is the unit of output for one successfully acquired cover.
type CoverRecord struct {
	// Seq is the identifier's position in index order. It breaks wavelength
	// ties so persisted records re-sort identically.
	Seq           int                 `json:"seq"`
	Volume        string              `json:"volume"`
	Issue         string              `json:"issue"`
	ImagePath     string              `json:"image_path"`
	ThumbnailPath string              `json:"thumbnail_path"`
	Signature     signature.Signature `json:"signature"`
	Brightness    float64             `json:"brightness"`
	IsDark        bool                `json:"is_dark"`
	Classified    bool                `json:"classified"`
	SourceURL     string              `json:"source_url"`
}

// ID returns the record's identifier.
func (r CoverRecord) ID() issues.Identifier {
	return issues.Identifier{Volume: r.Volume, Issue: r.Issue}
}

// Class returns "dark", "light" or "unclassified".
func (r CoverRecord) Class() string {
	switch {
	case !r.Classified:
		return "unclassified"
	case r.IsDark:
		return "dark"
	default:
		return "light"
	}
}

// Result holds the three presentation groups, each sorted by wavelength.
// Dark and Light together contain exactly the classified records of All.
type Result struct {
	All   []CoverRecord
	Dark  []CoverRecord
	Light []CoverRecord

	// Unavailable lists identifiers whose cover could not be acquired.
	Unavailable []issues.Identifier
}

// DecodeErrors counts records carrying the failed-extraction sentinel.
func (r *Result) DecodeErrors() int {
	n := 0
	for _, rec := range r.All {
		if !rec.Signature.OK() {
			n++
		}
	}
	return n
}

// Unclassified counts records left out of both Dark and Light.
func (r *Result) Unclassified() int {
	return len(r.All) - len(r.Dark) - len(r.Light)
}

// Partition sorts records and splits the classified ones into dark and
// light groups. The input slice is not modified.
func Partition(records []CoverRecord) *Result {
	res := &Result{
		All:   slices.Clone(records),
		Dark:  []CoverRecord{},
		Light: []CoverRecord{},
	}
	if res.All == nil {
		res.All = []CoverRecord{}
	}
	Sort(res.All)

	for _, rec := range res.All {
		if !rec.Classified {
			continue
		}
		if rec.IsDark {
			res.Dark = append(res.Dark, rec)
		} else {
			res.Light = append(res.Light, rec)
		}
	}
	return res
}

// Sort orders records by ascending wavelength, then by Seq.
func Sort(records []CoverRecord) {
	slices.SortStableFunc(records, func(a, b CoverRecord) int {
		if c := cmp.Compare(a.Signature.WavelengthNM, b.Signature.WavelengthNM); c != 0 {
			return c
		}
		return cmp.Compare(a.Seq, b.Seq)
	})
}

// Reclassify reapplies c's threshold to the stored brightness of every
// classified record, in place.
func Reclassify(records []CoverRecord, c *brightness.Classifier) {
	for i := range records {
		if records[i].Classified {
			records[i].IsDark = c.IsDarkMean(records[i].Brightness)
		}
	}
}

// DropMissingThumbnails marks classified records whose thumbnail is no
// longer on disk as unclassified, so they stay in All but leave the dark and
// light groups. It returns the number of records affected.
func DropMissingThumbnails(records []CoverRecord) int {
	missing := 0
	for i := range records {
		rec := &records[i]
		if !rec.Classified || fileutil.FileExists(rec.ThumbnailPath) {
			continue
		}
		slog.Warn("Missing thumbnail", "id", rec.ID().String(), "path", rec.ThumbnailPath,
			"error", coverrors.NewMissingArtifactError(rec.ID().String(), "thumbnail", rec.ThumbnailPath))
		rec.Classified = false
		missing++
	}
	return missing
}
