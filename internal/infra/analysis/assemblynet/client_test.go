package assemblynet

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MindMate-tech/mri-processor/internal/domain/analysis"
)

func submitRequest() analysis.SubmitRequest {
	return analysis.SubmitRequest{
		File:     strings.NewReader("nifti-bytes"),
		FileName: "brain.nii.gz",
		MimeType: "application/x-gzip",
		Age:      64,
		Sex:      "Female",
	}
}

func TestSubmit(t *testing.T) {
	var gotPath, gotAge, gotSex, gotFilename, gotFile string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, r.ParseMultipartForm(1<<20))
		gotAge = r.FormValue("age")
		gotSex = r.FormValue("sex")

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		gotFilename = header.Filename

		buf, err := io.ReadAll(file)
		require.NoError(t, err)
		gotFile = string(buf)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"job_id":"J1"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second)
	jobID, err := client.Submit(context.Background(), submitRequest())
	require.NoError(t, err)

	assert.Equal(t, analysis.JobID("J1"), jobID)
	assert.Equal(t, "/upload", gotPath)
	assert.Equal(t, "64", gotAge)
	assert.Equal(t, "Female", gotSex)
	assert.Equal(t, "brain.nii.gz", gotFilename)
	assert.Equal(t, "nifti-bytes", gotFile)
}

func TestSubmit_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("model service unavailable"))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second)
	_, err := client.Submit(context.Background(), submitRequest())
	require.Error(t, err)

	var uerr *analysis.UploadError
	require.ErrorAs(t, err, &uerr)
	assert.Equal(t, http.StatusBadGateway, uerr.Status)
	assert.Equal(t, "model service unavailable", uerr.Detail)
}

func TestSubmit_MissingJobID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second)
	_, err := client.Submit(context.Background(), submitRequest())

	var uerr *analysis.UploadError
	require.ErrorAs(t, err, &uerr)
	assert.Contains(t, uerr.Detail, "job_id")
}

func TestPoll_States(t *testing.T) {
	tests := []struct {
		name string
		body string
		want analysis.JobStatus
	}{
		{
			name: "queued",
			body: `{"status":"queued"}`,
			want: analysis.JobStatus{State: analysis.JobQueued},
		},
		{
			name: "processing",
			body: `{"status":"processing"}`,
			want: analysis.JobStatus{State: analysis.JobProcessing},
		},
		{
			name: "failed_with_reason",
			body: `{"status":"failed","error":"segmentation fault in model"}`,
			want: analysis.JobStatus{State: analysis.JobFailed, Reason: "segmentation fault in model"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/status/J1", r.URL.Path)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := NewClient(srv.URL, 5*time.Second)
			status, err := client.Poll(context.Background(), "J1")
			require.NoError(t, err)
			assert.Equal(t, tt.want, status)
		})
	}
}

func TestPoll_Completed(t *testing.T) {
	body := `{
		"status": "completed",
		"volumetric_data": {
			"hippocampus": {"volume_mm3": 6000, "normalized": 0.42}
		},
		"findings": ["mild recall deficit"],
		"pdf_report_url": "https://reports/j1.pdf",
		"csv_report_url": "https://reports/j1.csv"
	}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second)
	status, err := client.Poll(context.Background(), "J1")
	require.NoError(t, err)

	assert.Equal(t, analysis.JobCompleted, status.State)
	require.NotNil(t, status.Result)
	assert.Equal(t, float64(6000), status.Result.VolumetricData["hippocampus"].VolumeMM3)
	assert.Equal(t, 0.42, status.Result.VolumetricData["hippocampus"].Normalized)
	assert.Equal(t, []string{"mild recall deficit"}, status.Result.Findings)
	assert.Equal(t, "https://reports/j1.pdf", status.Result.PDFReportURL)
	assert.Equal(t, "https://reports/j1.csv", status.Result.CSVReportURL)
}

func TestPoll_CompletedWithoutVolumes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"completed"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second)
	status, err := client.Poll(context.Background(), "J1")
	require.NoError(t, err)
	require.NotNil(t, status.Result)
	assert.NotNil(t, status.Result.VolumetricData)
}

func TestPoll_NonSuccessStatusIsPlainError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second)
	_, err := client.Poll(context.Background(), "J1")
	require.Error(t, err)

	var uerr *analysis.UploadError
	assert.False(t, errors.As(err, &uerr))
	assert.Contains(t, err.Error(), "503")
}

func TestPoll_UnknownStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"paused"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second)
	_, err := client.Poll(context.Background(), "J1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "paused")
}
