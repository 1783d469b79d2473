package mqtt

import "testing"

func TestTopicBuilders(t *testing.T) {
	topics := Topics{}

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"ControllerCommand", topics.ControllerCommand("gantry-01", "axis-x"), "motion/command/gantry-01/axis-x"},
		{"ControllerAck", topics.ControllerAck("gantry-01", "axis-x"), "motion/ack/gantry-01/axis-x"},
		{"ControllerHealth", topics.ControllerHealth("gantry-01"), "motion/health/gantry-01"},
		{"CoreRunEvent", topics.CoreRunEvent("seq-homing"), "motion/core/run/seq-homing/event"},
		{"CoreRunProgress", topics.CoreRunProgress("seq-homing"), "motion/core/run/seq-homing/progress"},
		{"SystemStatus", topics.SystemStatus(), "motion/system/status"},
		{"AllControllerAcks", topics.AllControllerAcks(), "motion/ack/+/+"},
		{"AllControllerHealth", topics.AllControllerHealth(), "motion/health/+"},
		{"AllTopics", topics.AllTopics(), "motion/#"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}
