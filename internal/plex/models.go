package plex

import (
	"strconv"
	"strings"
	"time"

	"github.com/sweeparr/sweeparr/internal/media"
)

// Plex wraps every payload in a MediaContainer envelope.
type mediaContainer struct {
	MediaContainer struct {
		Directory []directory `json:"Directory"`
		Metadata  []metadata  `json:"Metadata"`
	} `json:"MediaContainer"`
}

type directory struct {
	Key   string `json:"key"`
	Title string `json:"title"`
	Type  string `json:"type"`
}

type metadata struct {
	RatingKey        string     `json:"ratingKey"`
	Title            string     `json:"title"`
	Year             int        `json:"year"`
	Type             string     `json:"type"`
	AddedAt          int64      `json:"addedAt"`
	GrandparentTitle string     `json:"grandparentTitle"`
	ParentIndex      int        `json:"parentIndex"`
	Index            int        `json:"index"`
	Guid             []guidRef  `json:"Guid"`
	Media            []mediaRef `json:"Media"`
}

type guidRef struct {
	ID string `json:"id"`
}

type mediaRef struct {
	ID              int64     `json:"id"`
	VideoResolution string    `json:"videoResolution"`
	Part            []partRef `json:"Part"`
}

type partRef struct {
	Size int64  `json:"size"`
	File string `json:"file"`
}

// externalID extracts the catalog id from the Guid list: tmdb for movies,
// tvdb for shows and episodes. Zero means unresolved.
func externalID(md metadata, kind media.SectionKind) int64 {
	prefix := "tmdb://"
	if kind == media.KindShow {
		prefix = "tvdb://"
	}
	for _, g := range md.Guid {
		if v, ok := strings.CutPrefix(g.ID, prefix); ok {
			id, err := strconv.ParseInt(v, 10, 64)
			if err == nil {
				return id
			}
		}
	}
	return 0
}

// itemFrom converts one metadata record into the shared library item model.
func itemFrom(md metadata, sectionID string, kind media.SectionKind) media.LibraryItem {
	it := media.LibraryItem{
		RatingKey:   md.RatingKey,
		SectionID:   sectionID,
		SectionKind: kind,
		ExternalID:  externalID(md, kind),
		Title:       md.Title,
		Year:        md.Year,
	}
	if md.AddedAt > 0 {
		it.AddedAt = time.Unix(md.AddedAt, 0).UTC()
	}
	if md.Type == "episode" {
		it.ShowTitle = md.GrandparentTitle
		it.Season = md.ParentIndex
		it.Episode = md.Index
	}

	for _, m := range md.Media {
		var size int64
		var file string
		for _, p := range m.Part {
			size += p.Size
			if file == "" {
				file = p.File
			}
		}
		it.Facets = append(it.Facets, media.QualityFacet{
			MediaID:            strconv.FormatInt(m.ID, 10),
			ResolutionPriority: media.ResolutionPriority(m.VideoResolution),
			FileSizeBytes:      size,
			Label:              m.VideoResolution,
			FilePath:           file,
		})
	}
	return it
}
