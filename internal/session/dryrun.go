package session

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"

	"github.com/metal-toolbox/snatt/internal/model"
	"github.com/pkg/errors"
)

var (
	errSessionClosed      = errors.New("dryrun session is not open")
	errUnsupportedCommand = errors.New("% Invalid input detected")

	dryRunVendors = []string{VendorCisco, VendorCisco, VendorJuniper, VendorHP, VendorHuawei, VendorMikroTik}

	deviceStates   = make(map[string]*deviceState)
	deviceStatesMu sync.Mutex
)

// deviceState is the simulated device behind an address, stable across sessions.
type deviceState struct {
	seed     uint32
	vendor   string
	hostname string
}

// DryRunSession is a simulated implementation of the Session interface.
// It fabricates deterministic output per address and never touches the network.
type DryRunSession struct {
	address string
	mu      sync.Mutex
	open    bool
}

// NewDryRunSession creates a Session for a simulated device
func NewDryRunSession(device *model.Device) Session {
	deviceStatesMu.Lock()
	defer deviceStatesMu.Unlock()

	if _, ok := deviceStates[device.IPAddress]; !ok {
		deviceStates[device.IPAddress] = newDeviceState(device.IPAddress)
	}

	return &DryRunSession{address: device.IPAddress}
}

// DryRunFactory is the Factory for simulated sessions.
func DryRunFactory(device *model.Device) Session {
	return NewDryRunSession(device)
}

func newDeviceState(address string) *deviceState {
	h := fnv.New32a()
	_, _ = h.Write([]byte(address))
	seed := h.Sum32()

	vendor := dryRunVendors[seed%uint32(len(dryRunVendors))]

	return &deviceState{
		seed:     seed,
		vendor:   vendor,
		hostname: strings.ToLower(vendor) + "-" + strings.ReplaceAll(address, ".", "-"),
	}
}

// Open simulates logging in to the device
func (s *DryRunSession) Open(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.open = true

	return nil
}

// Close simulates logging out of the device
func (s *DryRunSession) Close(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.open = false

	return nil
}

// Run returns simulated command output
func (s *DryRunSession) Run(ctx context.Context, command string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	open := s.open
	s.mu.Unlock()

	if !open {
		return "", errSessionClosed
	}

	deviceStatesMu.Lock()
	state := *deviceStates[s.address]
	deviceStatesMu.Unlock()

	cmd := strings.ToLower(strings.TrimSpace(command))

	switch {
	case cmd == "show version":
		return state.version(), nil
	case cmd == "show interfaces":
		return state.interfaces(), nil
	case cmd == "show processes cpu":
		return fmt.Sprintf("CPU utilization for five seconds: %d%%/1%%; one minute: 12%%; five minutes: 10%%\n", state.cpu()), nil
	case cmd == "show memory statistics":
		return state.memory(), nil
	case cmd == "show ip route":
		return state.routes(s.address), nil
	case strings.HasPrefix(cmd, "ping "):
		return state.ping(strings.TrimPrefix(cmd, "ping ")), nil
	case cmd == "show logging":
		return state.logging(), nil
	case cmd == "show running-config", cmd == "display current-configuration", cmd == "show configuration":
		return state.config(s.address, "running"), nil
	case cmd == "show startup-config", cmd == "display saved-configuration":
		return state.config(s.address, "startup"), nil
	default:
		return "", errors.Wrap(errUnsupportedCommand, command)
	}
}

func (d *deviceState) version() string {
	switch d.vendor {
	case VendorJuniper:
		return "Hostname: " + d.hostname + "\n" +
			"Model: ex2300-24t\n" +
			"Junos: 20.4R3.8\n" +
			"JUNOS OS Kernel 64-bit [20210908.0a7b8c4_builder_stable_11]\n"
	case VendorHP:
		return "HP ProCurve J9773A 2530-24G-PoEP Switch\n" +
			"Software revision  : YA.16.10.0012\n" +
			"System Name        : " + d.hostname + "\n"
	case VendorHuawei:
		return "Huawei Versatile Routing Platform Software\n" +
			"VRP (R) software, Version 5.170 (S5720 V200R011C10SPC600)\n" +
			"HUAWEI S5720-28X-SI-AC Routing Switch\n" +
			"sysname " + d.hostname + "\n"
	case VendorMikroTik:
		return "identity: " + d.hostname + "\n" +
			"version: 6.49.10 (long-term)\n" +
			"board-name: CCR1009-7G-1C-1S+\n" +
			"platform: MikroTik RouterOS\n"
	default:
		return "Cisco IOS Software, C2960 Software (C2960-LANBASEK9-M), Version 15.0(2)SE11, RELEASE SOFTWARE (fc3)\n" +
			d.hostname + " uptime is 12 weeks, 3 days, 4 hours\n" +
			"cisco WS-C2960-24TT-L (PowerPC405) processor (revision B0) with 65536K bytes of memory.\n"
	}
}

func (d *deviceState) interfaces() string {
	var b strings.Builder

	b.WriteString("GigabitEthernet0/0 is up, line protocol is up\n")

	switch {
	case d.seed%5 == 0:
		b.WriteString("GigabitEthernet0/1 is administratively down, line protocol is down\n")
	case d.seed%4 == 0:
		b.WriteString("GigabitEthernet0/1 is down, line protocol is down\n")
	default:
		b.WriteString("GigabitEthernet0/1 is up, line protocol is up\n")
	}

	if d.seed%13 == 0 {
		b.WriteString("GigabitEthernet0/2 err-disabled\n")
	}

	return b.String()
}

func (d *deviceState) cpu() int {
	return 20 + int(d.seed%75)
}

func (d *deviceState) memory() string {
	used := 30 + int((d.seed/7)%65)

	return fmt.Sprintf("Processor Pool Total: 1048576 Used: %d Free: %d (%d%% used)\n",
		1048576*used/100, 1048576*(100-used)/100, used)
}

func (d *deviceState) routes(address string) string {
	var b strings.Builder

	b.WriteString("Codes: C - connected, S - static\n\n")

	if d.seed%7 != 0 {
		b.WriteString("S*    0.0.0.0/0 [1/0] via " + gatewayFor(address) + "\n")
	}

	b.WriteString("C     " + address + "/24 is directly connected, GigabitEthernet0/0\n")

	return b.String()
}

func (d *deviceState) ping(target string) string {
	if d.seed%11 == 0 {
		return "Sending 5, 100-byte ICMP Echos to " + target + ", timeout is 2 seconds:\n.....\n" +
			"Success rate is 0 percent (0/5)\n"
	}

	return "Sending 5, 100-byte ICMP Echos to " + target + ", timeout is 2 seconds:\n!!!!!\n" +
		"Success rate is 100 percent (5/5), round-trip min/avg/max = 1/2/4 ms\n"
}

func (d *deviceState) logging() string {
	var b strings.Builder

	b.WriteString("*Mar  1 00:01:02: %SYS-5-CONFIG_I: Configured from console by admin\n")

	if d.seed%3 == 0 {
		b.WriteString("*Mar  1 00:02:10: %ENVMON-4-FAN_WARNING: Warning fan speed above nominal\n")
	}

	if d.seed%6 == 0 {
		b.WriteString("*Mar  1 00:03:44: %SNMP-3-AUTHFAIL: Authentication failure for SNMP req from host 10.1.1.1\n")
	}

	return b.String()
}

func (d *deviceState) config(address, kind string) string {
	return fmt.Sprintf("! %s configuration\nhostname %s\n!\ninterface GigabitEthernet0/0\n ip address %s 255.255.255.0\n!\nend\n",
		kind, d.hostname, address)
}

func gatewayFor(address string) string {
	idx := strings.LastIndex(address, ".")
	if idx < 0 {
		return address
	}

	return address[:idx] + ".1"
}
