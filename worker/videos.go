package worker

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"mediaondemand/conversion"
	"mediaondemand/models"
)

var videoContentTypes = map[string]string{
	".mp4":  "video/mp4",
	".mov":  "video/quicktime",
	".m4v":  "video/x-m4v",
	".webm": "video/webm",
}

// VideoJobs lists the video files directly under dir, keyed as
// videos/<slug><ext>.
func VideoJobs(dir string) ([]UploadJob, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", dir, err)
	}

	var jobs []UploadJob
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := strings.ToLower(filepath.Ext(name))
		contentType, ok := videoContentTypes[ext]
		if !ok {
			continue
		}

		key := conversion.DeriveKey(models.KindVideo, strings.TrimSuffix(name, filepath.Ext(name)), "").WithExt(ext)
		jobs = append(jobs, UploadJob{
			LocalPath:   filepath.Join(dir, name),
			Filename:    name,
			Key:         key.Path(),
			ContentType: contentType,
		})
	}

	sort.Slice(jobs, func(i, j int) bool { return jobs[i].Filename < jobs[j].Filename })
	return jobs, nil
}
