package assemblynet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"github.com/MindMate-tech/mri-processor/internal/domain/analysis"
)

// Client talks to the AssemblyNet volumetric analysis service:
// POST /upload (multipart file + demographics) and GET /status/{job_id}.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Submit uploads the scan file and returns the job handle. Any
// transport error or non-2xx response is an UploadError carrying the
// status and response body for diagnosis.
func (c *Client) Submit(ctx context.Context, req analysis.SubmitRequest) (analysis.JobID, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreatePart(fileHeader(req.FileName, req.MimeType))
	if err != nil {
		return "", &analysis.UploadError{Detail: err.Error(), Err: err}
	}
	if _, err := io.Copy(part, req.File); err != nil {
		return "", &analysis.UploadError{Detail: err.Error(), Err: err}
	}
	if err := w.WriteField("age", strconv.Itoa(req.Age)); err != nil {
		return "", &analysis.UploadError{Detail: err.Error(), Err: err}
	}
	if err := w.WriteField("sex", req.Sex); err != nil {
		return "", &analysis.UploadError{Detail: err.Error(), Err: err}
	}
	if err := w.Close(); err != nil {
		return "", &analysis.UploadError{Detail: err.Error(), Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload", &buf)
	if err != nil {
		return "", &analysis.UploadError{Detail: err.Error(), Err: err}
	}
	httpReq.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", &analysis.UploadError{Detail: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", &analysis.UploadError{Status: resp.StatusCode, Detail: strings.TrimSpace(string(body))}
	}

	var out struct {
		JobID string `json:"job_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", &analysis.UploadError{Detail: "decode upload response: " + err.Error(), Err: err}
	}
	if out.JobID == "" {
		return "", &analysis.UploadError{Detail: "upload response missing job_id"}
	}
	return analysis.JobID(out.JobID), nil
}

// statusResponse is the raw wire shape; it is decoded into the
// JobStatus union here and nowhere else.
type statusResponse struct {
	Status         string               `json:"status"`
	VolumetricData analysis.Volumetrics `json:"volumetric_data"`
	Findings       []string             `json:"findings"`
	PDFReportURL   string               `json:"pdf_report_url"`
	CSVReportURL   string               `json:"csv_report_url"`
	Error          string               `json:"error"`
}

// Poll fetches the job state. Transport failures and non-2xx responses
// come back as plain errors: the poller treats them as transient.
func (c *Client) Poll(ctx context.Context, id analysis.JobID) (analysis.JobStatus, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/status/"+string(id), nil)
	if err != nil {
		return analysis.JobStatus{}, err
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return analysis.JobStatus{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return analysis.JobStatus{}, fmt.Errorf("status check failed: %d", resp.StatusCode)
	}

	var raw statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return analysis.JobStatus{}, fmt.Errorf("decode status response: %w", err)
	}

	switch analysis.JobState(raw.Status) {
	case analysis.JobQueued:
		return analysis.JobStatus{State: analysis.JobQueued}, nil
	case analysis.JobProcessing:
		return analysis.JobStatus{State: analysis.JobProcessing}, nil
	case analysis.JobFailed:
		return analysis.JobStatus{State: analysis.JobFailed, Reason: raw.Error}, nil
	case analysis.JobCompleted:
		res := &analysis.Result{
			VolumetricData: raw.VolumetricData,
			Findings:       raw.Findings,
			PDFReportURL:   raw.PDFReportURL,
			CSVReportURL:   raw.CSVReportURL,
		}
		if res.VolumetricData == nil {
			res.VolumetricData = analysis.Volumetrics{}
		}
		return analysis.JobStatus{State: analysis.JobCompleted, Result: res}, nil
	default:
		return analysis.JobStatus{}, fmt.Errorf("unknown job status %q", raw.Status)
	}
}

func fileHeader(filename, mimeType string) textproto.MIMEHeader {
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename))
	h.Set("Content-Type", mimeType)
	return h
}
