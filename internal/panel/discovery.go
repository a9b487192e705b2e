package panel

import (
	"context"
	"fmt"
	"strings"

	"github.com/metal-toolbox/snatt/internal/client"
	"github.com/metal-toolbox/snatt/internal/model"
	"github.com/sirupsen/logrus"
)

// DiscoveryView is what the discovery panel renders.
type DiscoveryView struct {
	Status
	IPRange  string
	Devices  []*model.Device
	Selected map[string]bool
}

func (v *DiscoveryView) SelectedCount() int {
	n := 0

	for _, d := range v.Devices {
		if v.Selected[d.ID] {
			n++
		}
	}

	return n
}

func (v *DiscoveryView) SelectAllEnabled() bool {
	return len(v.Devices) > 0
}

func (v *DiscoveryView) AllSelected() bool {
	return len(v.Devices) > 0 && v.SelectedCount() == len(v.Devices)
}

func (v *DiscoveryView) CanConnect() bool {
	return !v.Busy() && v.SelectedCount() > 0
}

func (v *DiscoveryView) CanScan() bool {
	return !v.Busy() && strings.TrimSpace(v.IPRange) != ""
}

func (v *DiscoveryView) ConnectLabel() string {
	return fmt.Sprintf("Connect Selected (%d)", v.SelectedCount())
}

func (v *DiscoveryView) ScanLabel() string {
	if v.Busy() {
		return "Scanning..."
	}

	return "Scan Network"
}

// Discovery scans a range and connects to the selected devices.
type Discovery struct {
	base
	api client.API

	ipRange  string
	devices  []*model.Device
	selected map[string]bool
}

func NewDiscovery(api client.API, logger *logrus.Entry, notify Notifier) *Discovery {
	return &Discovery{
		base:     newBase(IDDiscovery, logger, notify),
		api:      api,
		devices:  []*model.Device{},
		selected: map[string]bool{},
	}
}

// Scan replaces the device list with the devices found in ipRange and clears the selection.
func (p *Discovery) Scan(ctx context.Context, ipRange string) error {
	ipRange = strings.TrimSpace(ipRange)

	p.mu.Lock()
	busy := p.status.Phase == PhaseBusy
	if !busy {
		p.ipRange = ipRange
	}
	p.mu.Unlock()

	if busy {
		return ErrBusy
	}

	if ipRange == "" {
		return p.reject(ErrEmptyRange)
	}

	return p.run(ctx, "scan", func(ctx context.Context) (string, error) {
		devices, err := p.api.Scan(ctx, ipRange)
		if err != nil {
			return "", err
		}

		p.mu.Lock()
		p.devices = append([]*model.Device{}, devices...)
		p.selected = map[string]bool{}
		p.mu.Unlock()

		return "", nil
	})
}

// Toggle flips the selection of a listed device.
func (p *Discovery) Toggle(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.indexOf(id) < 0 {
		return
	}

	if p.selected[id] {
		delete(p.selected, id)
		return
	}

	p.selected[id] = true
}

// SelectAll selects or clears every listed device, it is a no-op on an empty list.
func (p *Discovery) SelectAll(on bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.selected = map[string]bool{}

	if !on {
		return
	}

	for _, d := range p.devices {
		p.selected[d.ID] = true
	}
}

// Select replaces the selection, identifiers not listed are ignored.
func (p *Discovery) Select(ids []string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.selected = map[string]bool{}

	for _, id := range ids {
		if p.indexOf(id) >= 0 {
			p.selected[id] = true
		}
	}
}

// CanConnect reports whether at least one device is selected.
func (p *Discovery) CanConnect() bool {
	v := p.Snapshot()
	return v.CanConnect()
}

// Connect connects the selected devices and marks them connected.
func (p *Discovery) Connect(ctx context.Context) error {
	p.mu.Lock()
	if p.status.Phase == PhaseBusy {
		p.mu.Unlock()
		return ErrBusy
	}

	ids := []string{}

	for _, d := range p.devices {
		if p.selected[d.ID] {
			ids = append(ids, d.ID)
		}
	}
	p.mu.Unlock()

	if len(ids) == 0 {
		return p.reject(ErrNoSelection)
	}

	return p.run(ctx, "connect", func(ctx context.Context) (string, error) {
		res, err := p.api.Connect(ctx, ids)
		if err != nil {
			return "", err
		}

		p.mu.Lock()
		for _, id := range ids {
			if i := p.indexOf(id); i >= 0 {
				d := *p.devices[i]
				d.Status = model.DeviceStatusConnected
				p.devices[i] = &d
			}
		}
		p.mu.Unlock()

		return fmt.Sprintf("Connected to %d devices", res.Connected), nil
	})
}

func (p *Discovery) indexOf(id string) int {
	for i, d := range p.devices {
		if d.ID == id {
			return i
		}
	}

	return -1
}

func (p *Discovery) Snapshot() *DiscoveryView {
	p.mu.Lock()
	defer p.mu.Unlock()

	return deepCopy(&DiscoveryView{
		Status:   p.status,
		IPRange:  p.ipRange,
		Devices:  p.devices,
		Selected: p.selected,
	})
}
