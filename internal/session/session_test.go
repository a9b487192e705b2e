package session

import (
	"context"
	"testing"

	"github.com/metal-toolbox/snatt/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentifyVendor(t *testing.T) {
	tests := []struct {
		output string
		want   string
	}{
		{"Cisco Nexus Operating System (NX-OS) Software", VendorCisco},
		{"JUNOS Software Release [18.4R2]", VendorJuniper},
		{"HP ProCurve Switch 2810-24G", VendorHP},
		{"Huawei Versatile Routing Platform Software", VendorHuawei},
		{"platform: MikroTik RouterOS", VendorMikroTik},
		{"EdgeOS v2.0.9", VendorUbiquiti},
		{"Linux 5.15.0", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, IdentifyVendor(tt.output), tt.output)
	}
}

func TestIdentifyCisco(t *testing.T) {
	out := "Cisco IOS Software, C2960 Software (C2960-LANBASEK9-M), Version 15.0(2)SE11\n" +
		"core-sw1 uptime is 1 week, 2 days\n" +
		"cisco WS-C2960-24TT-L (PowerPC405) processor (revision B0) with 65536K bytes of memory.\n"

	id := Identify(out)
	assert.Equal(t, VendorCisco, id.Vendor)
	assert.Equal(t, "core-sw1", id.Hostname)
	assert.Equal(t, "WS-C2960-24TT-L", id.Model)
	assert.Contains(t, id.OSVersion, "Version 15.0(2)SE11")
}

func TestDryRunSessionIdentifiesEveryVendor(t *testing.T) {
	ctx := context.Background()

	for _, ip := range []string{"10.0.0.1", "10.0.0.2", "10.0.0.3", "10.0.0.4", "10.0.0.5", "10.0.0.6", "172.16.4.20"} {
		s := NewDryRunSession(&model.Device{IPAddress: ip})
		require.Nil(t, s.Open(ctx))

		out, err := s.Run(ctx, "show version")
		require.Nil(t, err)

		deviceStatesMu.Lock()
		state := *deviceStates[ip]
		deviceStatesMu.Unlock()

		id := Identify(out)
		assert.Equal(t, state.vendor, id.Vendor, ip)
		assert.Equal(t, state.hostname, id.Hostname, ip)

		require.Nil(t, s.Close(ctx))
	}
}

func TestDryRunSessionRequiresOpen(t *testing.T) {
	s := NewDryRunSession(&model.Device{IPAddress: "10.1.1.1"})

	_, err := s.Run(context.Background(), "show version")
	assert.ErrorIs(t, err, errSessionClosed)
}

func TestDryRunSessionDeterministic(t *testing.T) {
	ctx := context.Background()
	device := &model.Device{IPAddress: "192.168.10.7"}

	first := NewDryRunSession(device)
	require.Nil(t, first.Open(ctx))
	a, err := first.Run(ctx, "show running-config")
	require.Nil(t, err)

	second := NewDryRunSession(device)
	require.Nil(t, second.Open(ctx))
	b, err := second.Run(ctx, "show running-config")
	require.Nil(t, err)

	assert.Equal(t, a, b)
	assert.Contains(t, a, "192.168.10.7")
}

func TestDryRunSessionUnsupportedCommand(t *testing.T) {
	ctx := context.Background()
	s := NewDryRunSession(&model.Device{IPAddress: "10.2.2.2"})
	require.Nil(t, s.Open(ctx))

	_, err := s.Run(ctx, "reload")
	assert.ErrorIs(t, err, errUnsupportedCommand)
}

func TestDryRunSessionCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewDryRunSession(&model.Device{IPAddress: "10.3.3.3"})
	assert.ErrorIs(t, s.Open(ctx), context.Canceled)
}
