package config

import (
	"testing"
	"time"
)

func TestDurationOrDefault(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		def     string
		want    time.Duration
		wantErr bool
	}{
		{name: "value wins", value: "2s", def: "10s", want: 2 * time.Second},
		{name: "blank uses default", value: "  ", def: "1m30s", want: 90 * time.Second},
		{name: "zero allowed", value: "0s", def: "5s", want: 0},
		{name: "both blank", value: "", def: "", wantErr: true},
		{name: "garbage", value: "soon", def: "5s", wantErr: true},
		{name: "negative", value: "-1s", def: "5s", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DurationOrDefault(tt.value, tt.def)
			if (err != nil) != tt.wantErr {
				t.Fatalf("DurationOrDefault() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("DurationOrDefault() = %v, want %v", got, tt.want)
			}
		})
	}
}
