package mqtt

import "fmt"

// TopicPrefix is the root of every plantline topic.
const TopicPrefix = "plantline"

// Topics provides builders for plantline MQTT topics.
//
//	topic := mqtt.Topics{}.VirtualSet("ar_command")
//	// Returns: "plantline/virtual/set/ar_command"
type Topics struct{}

// SystemStatus returns the retained online/offline status topic.
func (Topics) SystemStatus() string {
	return TopicPrefix + "/system/status"
}

// RunProgress returns the topic progress of run id is published on.
//
// Example: plantline/runs/3f2a.../progress
func (Topics) RunProgress(runID string) string {
	return fmt.Sprintf("%s/runs/%s/progress", TopicPrefix, runID)
}

// AllRunProgress matches the progress topics of every run.
func (Topics) AllRunProgress() string {
	return TopicPrefix + "/runs/+/progress"
}

// VirtualSet returns the topic that forces a twin variable to the payload value.
func (Topics) VirtualSet(name string) string {
	return fmt.Sprintf("%s/virtual/set/%s", TopicPrefix, name)
}

// VirtualRelease returns the topic that releases a forced twin variable.
func (Topics) VirtualRelease(name string) string {
	return fmt.Sprintf("%s/virtual/release/%s", TopicPrefix, name)
}

// VirtualState returns the retained topic carrying the value of a twin variable.
func (Topics) VirtualState(name string) string {
	return fmt.Sprintf("%s/virtual/state/%s", TopicPrefix, name)
}

// AllVirtualStates matches every twin variable state topic.
func (Topics) AllVirtualStates() string {
	return TopicPrefix + "/virtual/state/+"
}

// SceneInsert returns the topic library object placements are published on.
func (Topics) SceneInsert() string {
	return TopicPrefix + "/virtual/scene/insert"
}

// SceneVariables returns the topic symbolic variable declarations are published on.
func (Topics) SceneVariables() string {
	return TopicPrefix + "/virtual/scene/variables"
}
