package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"mediaondemand/models"
)

const (
	exportTaskName = "export-pdf"
	importTaskName = "import-ebook"
	convertTask    = "convert-ebook"
)

// CloudConvertService runs EPUB to PDF jobs: import by URL, convert, export
// as a temporary URL.
type CloudConvertService struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewCloudConvertService(baseURL, apiKey string) *CloudConvertService {
	return &CloudConvertService{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type ccTask struct {
	Name    string `json:"name"`
	Status  string `json:"status"`
	Message string `json:"message"`
	Result  *struct {
		Files []struct {
			Filename string `json:"filename"`
			URL      string `json:"url"`
		} `json:"files"`
	} `json:"result"`
}

type ccJobResponse struct {
	Data struct {
		ID     string   `json:"id"`
		Status string   `json:"status"`
		Tasks  []ccTask `json:"tasks"`
	} `json:"data"`
}

func (c *CloudConvertService) Submit(ctx context.Context, sourceURL, filename string) (*models.ConversionJob, error) {
	payload := map[string]interface{}{
		"tasks": map[string]interface{}{
			importTaskName: map[string]interface{}{
				"operation": "import/url",
				"url":       sourceURL,
				"filename":  filename,
			},
			convertTask: map[string]interface{}{
				"operation":     "convert",
				"input":         importTaskName,
				"input_format":  "epub",
				"output_format": "pdf",
			},
			exportTaskName: map[string]interface{}{
				"operation": "export/url",
				"input":     convertTask,
				"inline":    false,
			},
		},
	}

	var resp ccJobResponse
	if err := doJSON(ctx, c.client, "CloudConvert", http.MethodPost, c.baseURL+"/jobs", payload, c.authorize, &resp); err != nil {
		return nil, err
	}
	return toConversionJob(&resp), nil
}

func (c *CloudConvertService) Poll(ctx context.Context, jobID string) (*models.ConversionJob, error) {
	var resp ccJobResponse
	endpoint := fmt.Sprintf("%s/jobs/%s", c.baseURL, url.PathEscape(jobID))
	if err := doJSON(ctx, c.client, "CloudConvert", http.MethodGet, endpoint, nil, c.authorize, &resp); err != nil {
		return nil, err
	}
	job := toConversionJob(&resp)
	if job.JobID == "" {
		job.JobID = jobID
	}
	return job, nil
}

func (c *CloudConvertService) authorize(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
}

// toConversionJob maps the provider's waiting/processing/finished/error
// states onto pending/finished/error.
func toConversionJob(resp *ccJobResponse) *models.ConversionJob {
	job := &models.ConversionJob{
		JobID:  resp.Data.ID,
		Status: models.JobPending,
	}

	switch resp.Data.Status {
	case "finished":
		job.Status = models.JobFinished
		for _, task := range resp.Data.Tasks {
			if task.Name == exportTaskName && task.Result != nil && len(task.Result.Files) > 0 {
				job.ResultURL = task.Result.Files[0].URL
			}
		}
	case "error":
		job.Status = models.JobError
		for _, task := range resp.Data.Tasks {
			if task.Status == "error" {
				job.ErrorMessage = task.Message
				break
			}
		}
	}
	return job
}
