package jobs

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskConsoleSweep closes idle console sessions of one instance.
	TaskConsoleSweep = "console:sweep"
)

// InstanceQueue returns a queue name private to this process. Console
// sessions live in process memory, so their sweep must run where they live.
func InstanceQueue() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "local"
	}
	host = strings.ReplaceAll(host, ":", "-")
	return fmt.Sprintf("console:%s:%s", host, uuid.NewString()[:8])
}

// ConsoleSweepPayload carries the idle threshold for the sweep.
type ConsoleSweepPayload struct {
	IdleTTL time.Duration `json:"idle_ttl"`
}

// NewConsoleSweepTask constructs an Asynq task bound to queue.
func NewConsoleSweepTask(queue string, idleTTL time.Duration) (*asynq.Task, error) {
	body, err := json.Marshal(ConsoleSweepPayload{IdleTTL: idleTTL})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskConsoleSweep, body, asynq.Queue(queue), asynq.MaxRetry(0), asynq.Timeout(time.Minute)), nil
}
