package storage

import (
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// ReportLabel prefixes every report filename
const ReportLabel = "carbon-sink-report"

// ZonesPrefix is the root folder of per-zone report artifacts
const ZonesPrefix = "zones/"

// ReportFilename builds <label>-<zone-name>-<YYYY-MM-DD>.pdf
func ReportFilename(zoneName string, date time.Time) string {
	return fmt.Sprintf("%s-%s-%s.pdf", ReportLabel, SanitizeName(zoneName), date.Format("2006-01-02"))
}

// ReportPath places a report file in its zone folder: zones/<zoneID>/<filename>
func ReportPath(zoneID int64, filename string) string {
	return fmt.Sprintf("%s%d/%s", ZonesPrefix, zoneID, filename)
}

// SanitizeName makes a zone name safe for use in a filename.
// Path separators, reserved characters and whitespace become underscores.
func SanitizeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "zone"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case strings.ContainsRune(`/\:*?"<>|`, r):
			return '_'
		case unicode.IsSpace(r), unicode.IsControl(r):
			return '_'
		default:
			return r
		}
	}, name)
}

// CleanObjectPath normalizes an object path and rejects traversal outside the root
func CleanObjectPath(objectPath string) (string, error) {
	if objectPath == "" || strings.Contains(objectPath, "\\") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, objectPath)
	}
	for _, part := range strings.Split(objectPath, "/") {
		if part == ".." {
			return "", fmt.Errorf("%w: %q", ErrInvalidPath, objectPath)
		}
	}
	cleaned := strings.TrimPrefix(path.Clean("/"+objectPath), "/")
	if cleaned == "" || cleaned == "." {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, objectPath)
	}
	return cleaned, nil
}

// ZoneIDFromPath extracts the zone id from zones/<id>/..., or 0
func ZoneIDFromPath(objectPath string) int64 {
	rest, ok := strings.CutPrefix(objectPath, ZonesPrefix)
	if !ok {
		return 0
	}
	idPart, _, _ := strings.Cut(rest, "/")
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// sortAndLimit orders reports newest first (path breaks ties) and applies limit
func sortAndLimit(reports []ReportInfo, limit int) []ReportInfo {
	sort.Slice(reports, func(i, j int) bool {
		if !reports[i].Updated.Equal(reports[j].Updated) {
			return reports[i].Updated.After(reports[j].Updated)
		}
		return reports[i].Path > reports[j].Path
	})
	if limit > 0 && limit < len(reports) {
		reports = reports[:limit]
	}
	return reports
}

// GetContentType determines the MIME content type based on file extension
func GetContentType(filename string) string {
	switch strings.ToLower(path.Ext(filename)) {
	case ".pdf":
		return "application/pdf"
	case ".json":
		return "application/json"
	case ".txt":
		return "text/plain"
	case ".html":
		return "text/html"
	case ".css":
		return "text/css"
	case ".md":
		return "text/markdown"
	case ".png":
		return "image/png"
	case ".svg":
		return "image/svg+xml"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	default:
		return "application/octet-stream"
	}
}
