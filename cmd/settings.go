package cmd

import (
	"fmt"
	"os"
	"time"

	"orderflow/internal/core/application/usecases/commands"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/jobs"

	"gopkg.in/yaml.v3"
)

// Settings are the workflow rules and scheduler tuning read from the policy
// file. Fields missing from the file keep their defaults.
type Settings struct {
	Workflow  WorkflowSettings  `yaml:"workflow"`
	Scheduler SchedulerSettings `yaml:"scheduler"`
	Outbox    OutboxSettings    `yaml:"outbox"`
}

type WorkflowSettings struct {
	DeliveryGracePeriod   time.Duration `yaml:"deliveryGracePeriod"`
	NegotiationTTL        time.Duration `yaml:"negotiationTTL"`
	MinCancelReasonLength int           `yaml:"minCancelReasonLength"`
	CancelExpiry          string        `yaml:"cancelExpiry"`
}

type SchedulerSettings struct {
	AutoApproval      string `yaml:"autoApproval"`
	NegotiationExpiry string `yaml:"negotiationExpiry"`
	OutboxRelay       string `yaml:"outboxRelay"`
	BatchSize         int    `yaml:"batchSize"`
}

type OutboxSettings struct {
	BatchSize   int           `yaml:"batchSize"`
	MaxAttempts int           `yaml:"maxAttempts"`
	BaseBackoff time.Duration `yaml:"baseBackoff"`
	MaxBackoff  time.Duration `yaml:"maxBackoff"`
}

func DefaultSettings() Settings {
	policy := order.DefaultPolicy()
	return Settings{
		Workflow: WorkflowSettings{
			DeliveryGracePeriod:   policy.DeliveryGracePeriod,
			NegotiationTTL:        policy.NegotiationTTL,
			MinCancelReasonLength: policy.MinCancelReasonLength,
			CancelExpiry:          string(policy.CancelExpiry),
		},
		Scheduler: SchedulerSettings{
			AutoApproval:      "0 * * * * *",
			NegotiationExpiry: "30 * * * * *",
			OutboxRelay:       "*/5 * * * * *",
			BatchSize:         100,
		},
		Outbox: OutboxSettings{
			BatchSize:   100,
			MaxAttempts: 10,
			BaseBackoff: 5 * time.Second,
			MaxBackoff:  10 * time.Minute,
		},
	}
}

// LoadSettings overlays the YAML file at path on DefaultSettings. An empty
// path returns the defaults.
func LoadSettings(path string) (Settings, error) {
	settings := DefaultSettings()
	if path == "" {
		return settings, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("read policy file: %w", err)
	}
	if err = yaml.Unmarshal(data, &settings); err != nil {
		return Settings{}, fmt.Errorf("parse policy file %s: %w", path, err)
	}
	if _, err = settings.Policy(); err != nil {
		return Settings{}, fmt.Errorf("policy file %s: %w", path, err)
	}
	if _, err = settings.RelayCommand(); err != nil {
		return Settings{}, fmt.Errorf("policy file %s: %w", path, err)
	}
	return settings, nil
}

func (s Settings) Policy() (order.Policy, error) {
	policy := order.Policy{
		DeliveryGracePeriod:   s.Workflow.DeliveryGracePeriod,
		NegotiationTTL:        s.Workflow.NegotiationTTL,
		MinCancelReasonLength: s.Workflow.MinCancelReasonLength,
		CancelExpiry:          order.CancelExpiryPolicy(s.Workflow.CancelExpiry),
	}
	if err := policy.Validate(); err != nil {
		return order.Policy{}, err
	}
	return policy, nil
}

func (s Settings) Schedules() jobs.Schedules {
	return jobs.Schedules{
		AutoApproval:      s.Scheduler.AutoApproval,
		NegotiationExpiry: s.Scheduler.NegotiationExpiry,
		OutboxRelay:       s.Scheduler.OutboxRelay,
	}
}

func (s Settings) RelayCommand() (commands.RelayOutboxCommand, error) {
	return commands.NewRelayOutboxCommand(s.Outbox.BatchSize, s.Outbox.MaxAttempts, s.Outbox.BaseBackoff, s.Outbox.MaxBackoff)
}
