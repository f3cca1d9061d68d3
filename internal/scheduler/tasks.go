// Package scheduler wires the asynq task queue: typed task payloads, the
// enqueueing client, the worker, and the periodic sweep dispatchers.
package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskTouchDue = "outreach.touch.due"

const TaskVoiceRetry = "outreach.voice.retry"

const TaskHealthRefresh = "seats.health.refresh"

const TaskReaperSweep = "connections.reaper.sweep"

type TouchDuePayload struct {
	CampaignID string `json:"campaignId"`
	LeadID     string `json:"leadId"`
	TouchIndex int    `json:"touchIndex"`
}

type VoiceRetryPayload struct {
	LeadID        string `json:"leadId"`
	CampaignID    string `json:"campaignId"`
	AttemptNumber int    `json:"attemptNumber"`
}

func NewTouchDueTask(payload TouchDuePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTouchDue, data), nil
}

func ParseTouchDuePayload(task *asynq.Task) (TouchDuePayload, error) {
	var payload TouchDuePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return TouchDuePayload{}, err
	}
	return payload, nil
}

func NewVoiceRetryTask(payload VoiceRetryPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskVoiceRetry, data), nil
}

func ParseVoiceRetryPayload(task *asynq.Task) (VoiceRetryPayload, error) {
	var payload VoiceRetryPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return VoiceRetryPayload{}, err
	}
	return payload, nil
}

// Health refresh and reaper sweep tasks carry no payload.

func NewHealthRefreshTask() *asynq.Task {
	return asynq.NewTask(TaskHealthRefresh, nil)
}

func NewReaperSweepTask() *asynq.Task {
	return asynq.NewTask(TaskReaperSweep, nil)
}
