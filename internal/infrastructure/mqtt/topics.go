package mqtt

// TopicPrefix is the root of every qrauto topic.
const TopicPrefix = "qrauto"

// Topics builds qrauto topic names.
type Topics struct{}

// SystemStatus is the retained online/offline status topic.
func (Topics) SystemStatus() string {
	return TopicPrefix + "/system/status"
}

// RunStarted is published when a run passes validation and execution begins.
//
// Example: qrauto/run/4f1c.../started
func (Topics) RunStarted(runID string) string {
	return TopicPrefix + "/run/" + runID + "/started"
}

// RunCompleted is published once per run with its final report.
func (Topics) RunCompleted(runID string) string {
	return TopicPrefix + "/run/" + runID + "/completed"
}

// AllRunEvents matches every run event.
func (Topics) AllRunEvents() string {
	return TopicPrefix + "/run/+/+"
}

// CommandRun carries payload text to execute as a remote run.
func (Topics) CommandRun() string {
	return TopicPrefix + "/command/run"
}
