package scheduler

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"github.com/Keiracom/Agency-OS-sub001/platform/config"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

// Client enqueues outreach tasks. It satisfies campaigns.TouchEnqueuer and
// voice.RetryEnqueuer.
type Client struct {
	client *asynq.Client
	queue  string
}

func NewClient(cfg config.SchedulerConfig) (*Client, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	return &Client{
		client: asynq.NewClient(opt),
		queue:  queue,
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// EnqueueTouch schedules one touch task. The task ID makes re-enqueueing the
// same (campaign, lead, touch) a no-op while a copy is still queued.
func (c *Client) EnqueueTouch(ctx context.Context, campaignID, leadID uuid.UUID, touchIndex int, runAt time.Time) error {
	task, err := NewTouchDueTask(TouchDuePayload{
		CampaignID: campaignID.String(),
		LeadID:     leadID.String(),
		TouchIndex: touchIndex,
	})
	if err != nil {
		return err
	}

	taskID := fmt.Sprintf("touch:%s:%s:%d", campaignID, leadID, touchIndex)
	_, err = c.client.EnqueueContext(ctx, task,
		asynq.ProcessAt(runAt),
		asynq.Queue(c.queue),
		asynq.TaskID(taskID),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	return err
}

// EnqueueVoiceRetry schedules a future dial, deduplicated on the attempt
// number so a duplicate outcome report never produces a second retry.
func (c *Client) EnqueueVoiceRetry(ctx context.Context, leadID, campaignID uuid.UUID, attemptNumber int, runAt time.Time) error {
	task, err := NewVoiceRetryTask(VoiceRetryPayload{
		LeadID:        leadID.String(),
		CampaignID:    campaignID.String(),
		AttemptNumber: attemptNumber,
	})
	if err != nil {
		return err
	}

	taskID := fmt.Sprintf("voiceretry:%s:%s:%d", campaignID, leadID, attemptNumber)
	_, err = c.client.EnqueueContext(ctx, task,
		asynq.ProcessAt(runAt),
		asynq.Queue(c.queue),
		asynq.TaskID(taskID),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	return err
}

// EnqueueHealthRefresh triggers one fleet-wide seat health refresh.
func (c *Client) EnqueueHealthRefresh(ctx context.Context) error {
	_, err := c.client.EnqueueContext(ctx, NewHealthRefreshTask(), asynq.Queue(c.queue))
	return err
}

// EnqueueReaperSweep triggers one stale connection-request sweep.
func (c *Client) EnqueueReaperSweep(ctx context.Context) error {
	_, err := c.client.EnqueueContext(ctx, NewReaperSweepTask(), asynq.Queue(c.queue))
	return err
}

func redisClientOpt(redisURL string, tlsInsecure bool) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	var tlsConfig *tls.Config
	if opt.TLSConfig != nil {
		clone := opt.TLSConfig.Clone()
		if tlsInsecure {
			clone.InsecureSkipVerify = true
		}
		tlsConfig = clone
	} else if tlsInsecure {
		tlsConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: tlsConfig,
	}, nil
}
