package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
	"workorder-invoicer/internal/scrapers/ingenico"
)

// ClosedJobsStampLayout stamps closed job folders and files.
const ClosedJobsStampLayout = "20060102_150405"

type ClosedJobsMetadata struct {
	FetchTimestamp string           `json:"fetch_timestamp"`
	Filters        ingenico.Filters `json:"filters"`
	TotalJobs      int              `json:"total_jobs"`
}

type closedJobsFile struct {
	Metadata ClosedJobsMetadata   `json:"metadata"`
	Jobs     []ingenico.ClosedJob `json:"jobs"`
}

// SavedClosedJobs locates the files of a saved search.
type SavedClosedJobs struct {
	Folder    string `json:"folder"`
	HTMLFile  string `json:"html_file"`
	JSONFile  string `json:"json_file"`
	TotalJobs int    `json:"total_jobs"`
}

func dashed(date string) string {
	return strings.ReplaceAll(date, "/", "-")
}

// WriteClosedJobs saves the raw results page next to the parsed jobs under
// <dir>/<stamp>_<from>to<to>/closed_jobs_<from>_<to>_<stamp>.{html,json}.
func WriteClosedJobs(dir string, result ingenico.SearchResult, now time.Time) (SavedClosedJobs, error) {
	stamp := now.Format(ClosedJobsStampLayout)
	from := dashed(result.Filters.FromDate)
	to := dashed(result.Filters.ToDate)

	folder := filepath.Join(dir, fmt.Sprintf("%s_%sto%s", stamp, from, to))
	err := os.MkdirAll(folder, 0755)
	if err != nil {
		return SavedClosedJobs{}, fmt.Errorf("write closed jobs: %w", err)
	}
	base := fmt.Sprintf("closed_jobs_%s_%s_%s", from, to, stamp)

	saved := SavedClosedJobs{
		Folder:    folder,
		HTMLFile:  filepath.Join(folder, base+".html"),
		JSONFile:  filepath.Join(folder, base+".json"),
		TotalJobs: len(result.Jobs),
	}

	err = os.WriteFile(saved.HTMLFile, result.RawHTML, 0644)
	if err != nil {
		return SavedClosedJobs{}, fmt.Errorf("write closed jobs: %w", err)
	}

	jobs := result.Jobs
	if jobs == nil {
		jobs = []ingenico.ClosedJob{}
	}
	encoded, err := json.MarshalIndent(closedJobsFile{
		Metadata: ClosedJobsMetadata{
			FetchTimestamp: stamp,
			Filters:        result.Filters,
			TotalJobs:      len(jobs),
		},
		Jobs: jobs,
	}, "", "  ")
	if err != nil {
		return SavedClosedJobs{}, fmt.Errorf("write closed jobs: %w", err)
	}
	err = os.WriteFile(saved.JSONFile, encoded, 0644)
	if err != nil {
		return SavedClosedJobs{}, fmt.Errorf("write closed jobs: %w", err)
	}
	return saved, nil
}

// Download describes a previously saved closed job search.
type Download struct {
	Folder    string `json:"folder"`
	Timestamp string `json:"timestamp"`
	DateRange string `json:"date_range"`
	TotalJobs int    `json:"total_jobs"`
	JSONFile  string `json:"json_file"`
	HTMLFile  string `json:"html_file"`
}

// ListDownloads returns the saved searches, most recent first. Folders without a
// readable json file are skipped and passed to skipped.
func ListDownloads(dir string, skipped func(path string, err error)) ([]Download, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return []Download{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list downloads: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	slices.Sort(names)
	slices.Reverse(names)

	downloads := []Download{}
	for _, name := range names {
		matches, err := filepath.Glob(filepath.Join(dir, name, "*.json"))
		if err != nil || len(matches) == 0 {
			continue
		}
		jsonFile := matches[0]
		metadata, err := readMetadata(jsonFile)
		if err != nil {
			if skipped != nil {
				skipped(jsonFile, err)
			}
			continue
		}
		downloads = append(downloads, Download{
			Folder:    name,
			Timestamp: metadata.FetchTimestamp,
			DateRange: fmt.Sprintf("%s - %s", metadata.Filters.FromDate, metadata.Filters.ToDate),
			TotalJobs: metadata.TotalJobs,
			JSONFile:  jsonFile,
			HTMLFile:  strings.TrimSuffix(jsonFile, ".json") + ".html",
		})
	}
	return downloads, nil
}

func readMetadata(path string) (ClosedJobsMetadata, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return ClosedJobsMetadata{}, err
	}
	var file closedJobsFile
	err = json.Unmarshal(contents, &file)
	if err != nil {
		return ClosedJobsMetadata{}, err
	}
	return file.Metadata, nil
}
