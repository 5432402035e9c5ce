package mqtt

import (
	"fmt"
	"strings"
)

// Topic prefixes.
const (
	TopicPrefix       = "edgemining"
	TopicPrefixCore   = TopicPrefix + "/core"
	TopicPrefixSystem = TopicPrefix + "/system"
)

// Topics builds the topics this service publishes on.
//
//	topic := mqtt.Topics{}.RegistryEvent("invalidated")
//	// edgemining/core/registry/invalidated
type Topics struct{}

// Status returns the retained online/offline topic of one client.
//
// Example: edgemining/system/status/edgemining-core
func (Topics) Status(clientID string) string {
	return fmt.Sprintf("%s/status/%s", TopicPrefixSystem, clientID)
}

// RegistryEvent returns the topic for registry cache events.
//
// Example: edgemining/core/registry/invalidated
func (Topics) RegistryEvent(event string) string {
	return fmt.Sprintf("%s/registry/%s", TopicPrefixCore, event)
}

// AdapterEvent returns the topic for configuration changes to one adapter.
//
// Example: edgemining/core/adapter/notifier/N1
func (Topics) AdapterEvent(category, id string) string {
	return fmt.Sprintf("%s/adapter/%s/%s", TopicPrefixCore, category, id)
}

// AllRegistryEvents matches every registry event.
func (Topics) AllRegistryEvents() string {
	return TopicPrefixCore + "/registry/+"
}

// AllStatuses matches every client status topic.
func (Topics) AllStatuses() string {
	return TopicPrefixSystem + "/status/+"
}

// AllTopics matches everything under the service prefix.
func (Topics) AllTopics() string {
	return TopicPrefix + "/#"
}

// ValidateTopic checks topic syntax. Wildcards are only accepted in
// subscription filters, and must occupy a whole level; # must be last.
func ValidateTopic(topic string, filter bool) error {
	if topic == "" {
		return fmt.Errorf("%w: empty", ErrInvalidTopic)
	}
	if strings.ContainsRune(topic, 0) {
		return fmt.Errorf("%w: contains NUL", ErrInvalidTopic)
	}
	levels := strings.Split(topic, "/")
	for i, level := range levels {
		if !strings.ContainsAny(level, "+#") {
			continue
		}
		if !filter {
			return fmt.Errorf("%w: wildcard in publish topic %q", ErrInvalidTopic, topic)
		}
		if len(level) != 1 {
			return fmt.Errorf("%w: wildcard must fill a level in %q", ErrInvalidTopic, topic)
		}
		if level == "#" && i != len(levels)-1 {
			return fmt.Errorf("%w: # must be the last level in %q", ErrInvalidTopic, topic)
		}
	}
	return nil
}

// MatchTopic reports whether topic matches the subscription filter.
func MatchTopic(filter, topic string) bool {
	f := strings.Split(filter, "/")
	t := strings.Split(topic, "/")
	for i, level := range f {
		switch {
		case level == "#":
			return true
		case i >= len(t):
			return false
		case level == "+":
			continue
		case level != t[i]:
			return false
		}
	}
	return len(f) == len(t)
}
