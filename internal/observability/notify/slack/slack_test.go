package slack

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/mmk-task-service/internal/observability/notify"
)

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient(Config{}); err == nil {
		t.Fatal("expected error when webhook url missing")
	}
}

func TestFormatMessageIncludesFields(t *testing.T) {
	client, err := NewClient(Config{
		WebhookURL: "https://hooks.slack.com/services/test",
		Channel:    "#alerts",
		Username:   "bot",
		Timeout:    time.Second,
	})
	require.NoError(t, err)

	msg := client.formatMessage(notify.JobFailurePayload{
		JobID:         "job-123",
		JobName:       "nightly-sync",
		AppModuleCode: "mod1",
		Path:          "/jobs/run",
		TenantCode:    "10044",
		Account:       "admin",
		Message:       "Job execution failed!",
		Error:         "connection refused",
		ErrorClass:    "net_operror",
	})

	assert.Equal(t, "bot", msg.Username)
	assert.Equal(t, "#alerts", msg.Channel)
	require.NotEmpty(t, msg.Blocks)
	assert.Contains(t, msg.Blocks[0].Text.Text, "nightly-sync")

	text := msg.Text
	for _, want := range []string{
		"Job failure alert", "nightly-sync", "mod1", "job-123", "/jobs/run",
		"admin@10044", "Job execution failed!", "connection refused", "net_operror",
	} {
		assert.Contains(t, text, want)
	}
}

func TestFormatJobValuePermutations(t *testing.T) {
	tcs := []struct {
		name   string
		jobID  string
		job    string
		prefix string
		want   string
	}{
		{
			name:   "id with link",
			jobID:  "job-1",
			prefix: "https://tasks.example/jobs",
			want:   "<https://tasks.example/jobs/job-1|job-1>",
		},
		{
			name:   "name only",
			job:    "Nightly",
			prefix: "https://tasks.example/jobs",
			want:   "Nightly",
		},
		{
			name:   "id and name with link",
			jobID:  "job-2",
			job:    "Nightly",
			prefix: "https://tasks.example/jobs",
			want:   "<https://tasks.example/jobs/job-2|Nightly> (job-2)",
		},
		{
			name:   "id and name without link",
			jobID:  "job-3",
			job:    "Nightly",
			prefix: "not a url",
			want:   "Nightly (job-3)",
		},
		{
			name:   "escapes name",
			jobID:  "job-4",
			job:    "a & <b>",
			prefix: "",
			want:   "a &amp; &lt;b&gt; (job-4)",
		},
		{
			name: "empty inputs",
			want: "",
		},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			client, err := NewClient(Config{
				WebhookURL:   "https://hooks.slack.com/services/test",
				JobURLPrefix: tc.prefix,
			})
			require.NoError(t, err)
			assert.Equal(t, tc.want, client.formatJobValue(tc.jobID, tc.job))
		})
	}
}

func TestSendJobFailureRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var msg map[string]any
		if err := json.Unmarshal(body, &msg); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte("try again"))
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client, err := NewClient(Config{WebhookURL: srv.URL, RetryLimit: 1})
	require.NoError(t, err)

	err = client.SendJobFailure(context.Background(), notify.JobFailurePayload{JobID: "job-1"})
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestSendJobFailureReturnsLastError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("invalid_token"))
	}))
	defer srv.Close()

	client, err := NewClient(Config{WebhookURL: srv.URL})
	require.NoError(t, err)

	err = client.SendJobFailure(context.Background(), notify.JobFailurePayload{JobID: "job-1"})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "invalid_token"))
}

func TestFormatMessageMetadataSorted(t *testing.T) {
	client, err := NewClient(Config{WebhookURL: "https://hooks.slack.com/services/test"})
	require.NoError(t, err)

	msg := client.formatMessage(notify.JobFailurePayload{
		JobID:    "job-1",
		Metadata: map[string]string{"b": "2", "a": "<1>"},
	})

	assert.Contains(t, msg.Text, "• Metadata:\n    • a: &lt;1&gt;\n    • b: 2")
	last := msg.Blocks[len(msg.Blocks)-1]
	require.NotNil(t, last.Text)
	assert.True(t, strings.HasPrefix(last.Text.Text, "*Metadata*"))
}

func TestSendJobFailureSkipsRetryOnClientError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("no_service"))
	}))
	defer srv.Close()

	client, err := NewClient(Config{WebhookURL: srv.URL, RetryLimit: 2})
	require.NoError(t, err)

	err = client.SendJobFailure(context.Background(), notify.JobFailurePayload{JobID: "job-1"})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}
