package mqtt

import "testing"

func TestTopicBuilders(t *testing.T) {
	topics := Topics{}

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"device state", topics.DeviceState("AA:BB:CC:DD:EE:FF"), "eblu/device/aa-bb-cc-dd-ee-ff/state"},
		{"device event", topics.DeviceEvent("aa:bb:cc:dd:ee:ff"), "eblu/device/aa-bb-cc-dd-ee-ff/event"},
		{"device command", topics.DeviceCommand("AA:BB:CC:DD:EE:FF"), "eblu/device/aa-bb-cc-dd-ee-ff/command"},
		{"discovered", topics.Discovered(), "eblu/discovered"},
		{"system status", topics.SystemStatus(), "eblu/system/status"},
		{"all device states", topics.AllDeviceStates(), "eblu/device/+/state"},
		{"all device events", topics.AllDeviceEvents(), "eblu/device/+/event"},
		{"all device commands", topics.AllDeviceCommands(), "eblu/device/+/command"},
		{"all topics", topics.AllTopics(), "eblu/#"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestTopicAddress(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"AA:BB:CC:DD:EE:FF", "aa-bb-cc-dd-ee-ff"},
		{"aa-bb-cc-dd-ee-ff", "aa-bb-cc-dd-ee-ff"},
		{"0C:8D:DB:90:12:34", "0c-8d-db-90-12-34"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := TopicAddress(tt.in); got != tt.want {
			t.Errorf("TopicAddress(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
