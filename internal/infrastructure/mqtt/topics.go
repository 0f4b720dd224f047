package mqtt

import "fmt"

// Topic prefixes for the eblu MQTT hierarchy.
//
// All device topics use the flat scheme: eblu/device/{address}/{leaf}
const (
	// TopicPrefix is the base for all eblu topics.
	TopicPrefix = "eblu"

	// TopicPrefixDevice is the base for per-device topics.
	TopicPrefixDevice = "eblu/device"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "eblu/system"
)

// Topics provides builders for eblu MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	stateTopic := topics.DeviceState("aa-bb-cc-dd-ee-ff")
//	// Returns: "eblu/device/aa-bb-cc-dd-ee-ff/state"
type Topics struct{}

// DeviceState returns the retained presence topic for one device.
// The payload is the device's current canonical state JSON.
//
// Example: eblu/device/aa-bb-cc-dd-ee-ff/state
func (Topics) DeviceState(address string) string {
	return fmt.Sprintf("%s/%s/state", TopicPrefixDevice, TopicAddress(address))
}

// DeviceEvent returns the topic for lifecycle events of one device.
//
// Example: eblu/device/aa-bb-cc-dd-ee-ff/event
func (Topics) DeviceEvent(address string) string {
	return fmt.Sprintf("%s/%s/event", TopicPrefixDevice, TopicAddress(address))
}

// DeviceCommand returns the topic on which consumers request an action
// for one device. Payloads name the action: connect, disconnect, toggle.
//
// Example: eblu/device/aa-bb-cc-dd-ee-ff/command
func (Topics) DeviceCommand(address string) string {
	return fmt.Sprintf("%s/%s/command", TopicPrefixDevice, TopicAddress(address))
}

// Discovered returns the topic for discovery scan results.
//
// Example: eblu/discovered
func (Topics) Discovered() string {
	return fmt.Sprintf("%s/discovered", TopicPrefix)
}

// SystemStatus returns the service status topic. This carries the online/
// offline payloads, including the Last Will and Testament.
//
// Example: eblu/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// AllDeviceStates returns a pattern matching every device state topic.
//
// Pattern: eblu/device/+/state
func (Topics) AllDeviceStates() string {
	return fmt.Sprintf("%s/+/state", TopicPrefixDevice)
}

// AllDeviceEvents returns a pattern matching every device event topic.
//
// Pattern: eblu/device/+/event
func (Topics) AllDeviceEvents() string {
	return fmt.Sprintf("%s/+/event", TopicPrefixDevice)
}

// AllDeviceCommands returns a pattern matching every device command topic.
//
// Pattern: eblu/device/+/command
func (Topics) AllDeviceCommands() string {
	return fmt.Sprintf("%s/+/command", TopicPrefixDevice)
}

// AllTopics returns a pattern matching all eblu topics.
// Use with caution - this receives ALL traffic.
//
// Pattern: eblu/#
func (Topics) AllTopics() string {
	return "eblu/#"
}

// TopicAddress converts a hardware address to its topic-safe form.
// Colons are MQTT-legal but awkward in tooling, so they become dashes
// and the result is lowercased.
//
// Example: "AA:BB:CC:DD:EE:FF" -> "aa-bb-cc-dd-ee-ff"
func TopicAddress(address string) string {
	safe := make([]byte, len(address))
	for i := 0; i < len(address); i++ {
		c := address[i]
		switch {
		case c == ':':
			c = '-'
		case c >= 'A' && c <= 'Z':
			c += 'a' - 'A'
		}
		safe[i] = c
	}
	return string(safe)
}
