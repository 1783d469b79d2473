package gateway

import (
	"errors"
	"testing"
)

func TestParseAckTopic(t *testing.T) {
	tests := []struct {
		topic          string
		wantController string
		wantDevice     string
		wantErr        bool
	}{
		{"motion/ack/ctrl-a/servo1", "ctrl-a", "servo1", false},
		{"motion/ack/workshop-1/axis-x", "workshop-1", "axis-x", false},
		{"motion/ack/ctrl-a", "", "", true},
		{"motion/ack/ctrl-a/servo1/extra", "", "", true},
		{"motion/command/ctrl-a/servo1", "", "", true},
		{"motion/ack//servo1", "", "", true},
		{"motion/ack/ctrl-a/", "", "", true},
		{"", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.topic, func(t *testing.T) {
			controller, device, err := parseAckTopic(tt.topic)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidTopic) {
					t.Errorf("parseAckTopic(%q) error = %v, want ErrInvalidTopic", tt.topic, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseAckTopic(%q) error = %v", tt.topic, err)
			}
			if controller != tt.wantController || device != tt.wantDevice {
				t.Errorf("parseAckTopic(%q) = %q, %q", tt.topic, controller, device)
			}
		})
	}
}

func TestParseHealthTopic(t *testing.T) {
	tests := []struct {
		topic   string
		want    string
		wantErr bool
	}{
		{"motion/health/ctrl-a", "ctrl-a", false},
		{"motion/health/ctrl-a/extra", "", true},
		{"motion/health/", "", true},
		{"motion/ack/ctrl-a", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.topic, func(t *testing.T) {
			got, err := parseHealthTopic(tt.topic)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidTopic) {
					t.Errorf("parseHealthTopic(%q) error = %v, want ErrInvalidTopic", tt.topic, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseHealthTopic(%q) error = %v", tt.topic, err)
			}
			if got != tt.want {
				t.Errorf("parseHealthTopic(%q) = %q, want %q", tt.topic, got, tt.want)
			}
		})
	}
}
