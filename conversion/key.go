package conversion

import (
	"regexp"
	"strings"

	"mediaondemand/models"
)

const maxSlugLen = 60

var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)

// StorageKey is the deterministic location of an artifact. The same
// (contentID, filename) pair always yields the same key.
type StorageKey struct {
	Folder    string
	ContentID string
	Slug      string
	Ext       string
}

// Slugify lower-cases input, collapses non-alphanumeric runs into a single
// hyphen, trims edge hyphens and caps the result at 60 characters.
func Slugify(input, fallback string) string {
	if s := slugify(input, maxSlugLen); s != "" {
		return s
	}
	return fallback
}

func slugify(input string, limit int) string {
	s := nonAlphanumeric.ReplaceAllString(strings.ToLower(input), "-")
	s = strings.Trim(s, "-")
	if limit > 0 && len(s) > limit {
		s = s[:limit]
	}
	return s
}

func DeriveKey(kind models.ArtifactKind, filename, contentID string) StorageKey {
	key := StorageKey{
		ContentID: slugify(contentID, 0),
		Slug:      Slugify(filename, string(kind)),
	}
	switch kind {
	case models.KindVideo:
		key.Folder = "videos/"
		key.Ext = ".mp4"
	default:
		key.Folder = "ebooks/"
		key.Ext = ".pdf"
	}
	return key
}

func (k StorageKey) WithExt(ext string) StorageKey {
	k.Ext = ext
	return k
}

func (k StorageKey) Name() string {
	if k.ContentID != "" {
		return k.ContentID + "-" + k.Slug + k.Ext
	}
	return k.Slug + k.Ext
}

func (k StorageKey) Path() string {
	return k.Folder + k.Name()
}

// Matches is the legacy-name heuristic used by the secondary cache probe:
// any object in the folder whose name contains the content id or the slug.
// Unrelated artifacts with overlapping slugs can match.
func (k StorageKey) Matches(objectKey, rawContentID string) bool {
	name := strings.TrimPrefix(objectKey, k.Folder)
	if name == "" || strings.Contains(name, "/") || !strings.HasSuffix(name, k.Ext) {
		return false
	}
	if rawContentID != "" && strings.Contains(name, rawContentID) {
		return true
	}
	if k.ContentID != "" && strings.Contains(name, k.ContentID) {
		return true
	}
	return strings.Contains(name, k.Slug)
}
