package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aliyun/alibaba-cloud-sdk-go/sdk"
	"github.com/aliyun/alibaba-cloud-sdk-go/sdk/requests"
	log "github.com/sirupsen/logrus"
)

const (
	fileTransProduct = "nls-filetrans"
	fileTransVersion = "2018-08-17"

	taskStatusRunning  = "RUNNING"
	taskStatusQueueing = "QUEUEING"
	taskStatusSuccess  = "SUCCESS"
	// The service reports this when the file decoded fine but contained no
	// usable speech; the transcript is simply empty.
	taskStatusNoFragment = "SUCCESS_WITH_NO_VALID_FRAGMENT"
)

// FileTransRecognizer drives the Alibaba Cloud file-transcription service:
// submit a task for an OSS URL, then poll until the task leaves the queue.
// A single call can legitimately take minutes for long recordings.
type FileTransRecognizer struct {
	client       *sdk.Client
	appKey       string
	region       string
	pollInterval time.Duration
}

func NewFileTransRecognizer(region, accessKeyID, accessKeySecret, appKey string, pollInterval time.Duration) (*FileTransRecognizer, error) {
	client, err := sdk.NewClientWithAccessKey(region, accessKeyID, accessKeySecret)
	if err != nil {
		return nil, fmt.Errorf("create speech client: %w", err)
	}
	if pollInterval <= 0 {
		pollInterval = 10 * time.Second
	}
	return &FileTransRecognizer{
		client:       client,
		appKey:       appKey,
		region:       region,
		pollInterval: pollInterval,
	}, nil
}

type taskResponse struct {
	TaskId     string `json:"TaskId"`
	StatusText string `json:"StatusText"`
	Result     struct {
		Sentences []struct {
			Text string `json:"Text"`
		} `json:"Sentences"`
		Text string `json:"Text"`
	} `json:"Result"`
}

func (r *FileTransRecognizer) Recognize(ctx context.Context, fileURL string) (Transcript, error) {
	taskID, err := r.submitTask(fileURL)
	if err != nil {
		return Transcript{}, err
	}
	log.Infof("speech recognition task %s submitted", taskID)

	timer := time.NewTimer(r.pollInterval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return Transcript{}, fmt.Errorf("speech recognition: %w", ctx.Err())
		case <-timer.C:
		}

		resp, err := r.fetchTask(taskID)
		if err != nil {
			return Transcript{}, err
		}
		switch resp.StatusText {
		case taskStatusRunning, taskStatusQueueing:
			timer.Reset(r.pollInterval)
			continue
		case taskStatusSuccess, taskStatusNoFragment:
			t := Transcript{Text: resp.Result.Text}
			for _, s := range resp.Result.Sentences {
				t.Sentences = append(t.Sentences, s.Text)
			}
			return t, nil
		default:
			return Transcript{}, fmt.Errorf("speech recognition task %s ended with status %s", taskID, resp.StatusText)
		}
	}
}

func (r *FileTransRecognizer) submitTask(fileURL string) (string, error) {
	task, err := json.Marshal(map[string]string{
		"appkey":       r.appKey,
		"file_link":    fileURL,
		"version":      "4.0",
		"enable_words": "false",
	})
	if err != nil {
		return "", err
	}

	req := r.newRequest("SubmitTask", requests.POST)
	req.FormParams["Task"] = string(task)

	raw, err := r.client.ProcessCommonRequest(req)
	if err != nil {
		return "", fmt.Errorf("submit recognition task: %w", err)
	}

	var resp taskResponse
	if err := json.Unmarshal(raw.GetHttpContentBytes(), &resp); err != nil {
		return "", fmt.Errorf("decode submit response: %w", err)
	}
	if resp.StatusText != taskStatusSuccess {
		return "", fmt.Errorf("submit recognition task rejected: %s", resp.StatusText)
	}
	return resp.TaskId, nil
}

func (r *FileTransRecognizer) fetchTask(taskID string) (taskResponse, error) {
	req := r.newRequest("GetTaskResult", requests.GET)
	req.QueryParams["TaskId"] = taskID

	raw, err := r.client.ProcessCommonRequest(req)
	if err != nil {
		return taskResponse{}, fmt.Errorf("poll recognition task: %w", err)
	}

	var resp taskResponse
	if err := json.Unmarshal(raw.GetHttpContentBytes(), &resp); err != nil {
		return taskResponse{}, fmt.Errorf("decode task result: %w", err)
	}
	return resp, nil
}

func (r *FileTransRecognizer) newRequest(apiName, method string) *requests.CommonRequest {
	req := requests.NewCommonRequest()
	req.Domain = fmt.Sprintf("filetrans.%s.aliyuncs.com", r.region)
	req.Version = fileTransVersion
	req.Product = fileTransProduct
	req.ApiName = apiName
	req.Method = method
	return req
}
