package actionlib

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pkg/errors"

	"github.com/team-rocos/rosgo/ros"
)

// Environment variables read by LoadServerOptionsFromEnv and LoadClientOptionsFromEnv all start
// with this prefix, e.g. ROSGO_ACTION_RESULT_TIMEOUT=10m or ROSGO_ACTION_STATUS_QOS_DEPTH=5.
const envPrefix = "ROSGO_ACTION_"

var (
	servicesQoS = ros.QoSProfile{History: ros.KeepLast, Depth: 10, Durability: ros.Volatile}
	feedbackQoS = ros.QoSProfile{History: ros.KeepLast, Depth: 10, Durability: ros.Volatile}
	statusQoS   = ros.QoSProfile{History: ros.KeepLast, Depth: 1, Durability: ros.TransientLocal}
)

// ServerOptions configures an ActionServer.
type ServerOptions struct {
	GoalServiceQoS   ros.QoSProfile `envPrefix:"GOAL_SERVICE_QOS_"`
	CancelServiceQoS ros.QoSProfile `envPrefix:"CANCEL_SERVICE_QOS_"`
	ResultServiceQoS ros.QoSProfile `envPrefix:"RESULT_SERVICE_QOS_"`
	FeedbackTopicQoS ros.QoSProfile `envPrefix:"FEEDBACK_QOS_"`
	StatusTopicQoS   ros.QoSProfile `envPrefix:"STATUS_QOS_"`
	// ResultTimeout is how long a terminal goal stays tracked before ExpireGoals drops it.
	ResultTimeout time.Duration `env:"RESULT_TIMEOUT"`
}

// ClientOptions configures an ActionClient.
type ClientOptions struct {
	GoalServiceQoS   ros.QoSProfile `envPrefix:"GOAL_SERVICE_QOS_"`
	CancelServiceQoS ros.QoSProfile `envPrefix:"CANCEL_SERVICE_QOS_"`
	ResultServiceQoS ros.QoSProfile `envPrefix:"RESULT_SERVICE_QOS_"`
	FeedbackTopicQoS ros.QoSProfile `envPrefix:"FEEDBACK_QOS_"`
	StatusTopicQoS   ros.QoSProfile `envPrefix:"STATUS_QOS_"`
}

// DefaultServerOptions returns reliable service and feedback queues of depth 10, a latched status
// topic of depth 1 and a 15 minute result timeout.
func DefaultServerOptions() ServerOptions {
	return ServerOptions{
		GoalServiceQoS:   servicesQoS,
		CancelServiceQoS: servicesQoS,
		ResultServiceQoS: servicesQoS,
		FeedbackTopicQoS: feedbackQoS,
		StatusTopicQoS:   statusQoS,
		ResultTimeout:    15 * time.Minute,
	}
}

func DefaultClientOptions() ClientOptions {
	return ClientOptions{
		GoalServiceQoS:   servicesQoS,
		CancelServiceQoS: servicesQoS,
		ResultServiceQoS: servicesQoS,
		FeedbackTopicQoS: feedbackQoS,
		StatusTopicQoS:   statusQoS,
	}
}

// LoadServerOptionsFromEnv overlays ROSGO_ACTION_* variables on the defaults.
func LoadServerOptionsFromEnv() (ServerOptions, error) {
	opts := DefaultServerOptions()
	if err := env.ParseWithOptions(&opts, env.Options{Prefix: envPrefix}); err != nil {
		return DefaultServerOptions(), errors.Wrap(err, "parse env")
	}
	return opts, opts.Validate()
}

// LoadClientOptionsFromEnv overlays ROSGO_ACTION_* variables on the defaults.
func LoadClientOptionsFromEnv() (ClientOptions, error) {
	opts := DefaultClientOptions()
	if err := env.ParseWithOptions(&opts, env.Options{Prefix: envPrefix}); err != nil {
		return DefaultClientOptions(), errors.Wrap(err, "parse env")
	}
	return opts, opts.Validate()
}

func validateQoS(profiles map[string]ros.QoSProfile) error {
	for name, qos := range profiles {
		if err := qos.Validate(); err != nil {
			return errors.Wrapf(ErrInvalidArgument, "%s: %v", name, err)
		}
	}
	return nil
}

func (o ServerOptions) Validate() error {
	if o.ResultTimeout <= 0 {
		return errors.Wrapf(ErrInvalidArgument, "result timeout must be positive, got %s", o.ResultTimeout)
	}
	return validateQoS(map[string]ros.QoSProfile{
		"goal service":   o.GoalServiceQoS,
		"cancel service": o.CancelServiceQoS,
		"result service": o.ResultServiceQoS,
		"feedback topic": o.FeedbackTopicQoS,
		"status topic":   o.StatusTopicQoS,
	})
}

func (o ClientOptions) Validate() error {
	return validateQoS(map[string]ros.QoSProfile{
		"goal service":   o.GoalServiceQoS,
		"cancel service": o.CancelServiceQoS,
		"result service": o.ResultServiceQoS,
		"feedback topic": o.FeedbackTopicQoS,
		"status topic":   o.StatusTopicQoS,
	})
}
