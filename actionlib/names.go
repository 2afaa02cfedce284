package actionlib

import (
	"strings"

	"github.com/pkg/errors"
)

// actionNames are the channel names an action is multiplexed over.
type actionNames struct {
	goalService   string
	cancelService string
	resultService string
	feedbackTopic string
	statusTopic   string
}

func newActionNames(action string) (actionNames, error) {
	if strings.TrimSpace(action) == "" {
		return actionNames{}, errors.Wrap(ErrInvalidArgument, "action name is empty")
	}
	if strings.ContainsAny(action, " \t\n") {
		return actionNames{}, errors.Wrapf(ErrInvalidArgument, "action name %q contains whitespace", action)
	}
	prefix := strings.TrimSuffix(action, "/") + "/_action/"
	return actionNames{
		goalService:   prefix + "send_goal",
		cancelService: prefix + "cancel_goal",
		resultService: prefix + "get_result",
		feedbackTopic: prefix + "feedback",
		statusTopic:   prefix + "status",
	}, nil
}
