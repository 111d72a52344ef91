// Package geodata extracts track timestamps from GPX files and syncs them
// into QuickTime headers so Streetview Studio accepts the footage.
package geodata

import (
	"encoding/xml"
	"fmt"
	"os"
	"strings"
	"time"
)

// TimeRecord is the first track point time of a GPX file.
type TimeRecord struct {
	Raw  string // timestamp as found, before normalization
	Time time.Time
}

// HeaderTime renders the timestamp in QuickTime header notation.
func (r TimeRecord) HeaderTime() string {
	return r.Time.Format("2006:01:02 15:04:05")
}

type gpxDoc struct {
	Tracks []struct {
		Segments []struct {
			Points []struct {
				Time string `xml:"time"`
			} `xml:"trkpt"`
		} `xml:"trkseg"`
	} `xml:"trk"`
}

// FirstTrackTime reads the first <trkpt> timestamp from the GPX file at
// path. Sub-second digits and the zone marker are dropped; the result is
// interpreted as UTC, matching how the camera writes track times.
func FirstTrackTime(path string) (TimeRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return TimeRecord{}, err
	}

	var doc gpxDoc
	if err := xml.Unmarshal(data, &doc); err != nil {
		return TimeRecord{}, fmt.Errorf("parse gpx: %w", err)
	}

	raw := firstPointTime(doc)
	if raw == "" {
		return TimeRecord{}, fmt.Errorf("no track point time in %s", path)
	}
	return parseTrackTime(raw)
}

func firstPointTime(doc gpxDoc) string {
	for _, trk := range doc.Tracks {
		for _, seg := range trk.Segments {
			for _, pt := range seg.Points {
				if t := strings.TrimSpace(pt.Time); t != "" {
					return t
				}
			}
		}
	}
	return ""
}

func parseTrackTime(raw string) (TimeRecord, error) {
	normalized := strings.TrimSuffix(raw, "Z")
	if idx := strings.IndexByte(normalized, '.'); idx >= 0 {
		normalized = normalized[:idx]
	}
	t, err := time.ParseInLocation("2006-01-02T15:04:05", normalized, time.UTC)
	if err != nil {
		return TimeRecord{}, fmt.Errorf("parse track time %q: %w", raw, err)
	}
	return TimeRecord{Raw: raw, Time: t}, nil
}
