package discovery

import (
	"context"
	"net/netip"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/metal-toolbox/snatt/internal/configuration"
	"github.com/metal-toolbox/snatt/internal/metrics"
	"github.com/metal-toolbox/snatt/internal/model"
	"github.com/metal-toolbox/snatt/internal/session"
	"github.com/metal-toolbox/snatt/internal/store"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"
)

var (
	pkgName = "internal/discovery"
)

// Discovery sweeps address ranges and opens sessions to the devices it found.
type Discovery struct {
	repository store.Repository
	prober     Prober
	sessions   session.Factory
	logger     *logrus.Entry
	maxHosts   int
	workers    int
}

type Option func(*Discovery)

// WithProber overrides the prober picked from configuration.
func WithProber(p Prober) Option {
	return func(d *Discovery) {
		d.prober = p
	}
}

// WithSessionFactory overrides the device session factory.
func WithSessionFactory(f session.Factory) Option {
	return func(d *Discovery) {
		d.sessions = f
	}
}

// New returns a Discovery configured from cfg.
func New(cfg *configuration.Configuration, repository store.Repository, logger *logrus.Entry, opts ...Option) *Discovery {
	d := &Discovery{
		repository: repository,
		sessions:   session.DryRunFactory,
		logger:     logger,
		maxHosts:   cfg.Discovery.MaxHosts,
		workers:    cfg.Discovery.Concurrency,
	}

	switch {
	case cfg.Dryrun:
		d.prober = &DryRunProber{}
	case cfg.Discovery.Method == configuration.ProbeMethodICMP:
		d.prober = &ICMPProber{Timeout: cfg.Discovery.ProbeTimeout}
	default:
		d.prober = &TCPProber{Ports: cfg.Discovery.ProbePorts, Timeout: cfg.Discovery.ProbeTimeout}
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Scan probes every address in ipRange and replaces the device list with the reachable hosts.
func (d *Discovery) Scan(ctx context.Context, ipRange string) ([]*model.Device, error) {
	ctx, span := otel.Tracer(pkgName).Start(ctx, "discovery.Scan")
	defer span.End()

	addrs, err := ParseTargets(ipRange, d.maxHosts)
	if err != nil {
		return nil, err
	}

	logger := d.logger.WithFields(logrus.Fields{"range": ipRange, "hosts": len(addrs)})
	logger.Info("network scan started")

	started := time.Now()

	var (
		mu        sync.Mutex
		reachable []netip.Addr
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.workers)

	for _, addr := range addrs {
		g.Go(func() error {
			ok, err := d.prober.Probe(gctx, addr)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}

				logger.WithError(err).WithField("address", addr.String()).Debug("probe error")

				return nil
			}

			if ok {
				mu.Lock()
				reachable = append(reachable, addr)
				mu.Unlock()
			}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, "network scan aborted")
	}

	sort.Slice(reachable, func(i, j int) bool { return reachable[i].Less(reachable[j]) })

	now := time.Now()
	devices := make([]*model.Device, 0, len(reachable))

	for _, addr := range reachable {
		devices = append(devices, &model.Device{
			ID:        uuid.NewString(),
			IPAddress: addr.String(),
			Status:    model.DeviceStatusReachable,
			LastSeen:  now,
		})
	}

	if err := d.repository.ReplaceDevices(ctx, devices); err != nil {
		return nil, errors.Wrap(err, "failed to store scan results")
	}

	metrics.DevicesDiscovered.Set(float64(len(devices)))

	logger.WithFields(logrus.Fields{
		"found":   len(devices),
		"elapsed": time.Since(started).String(),
	}).Info("network scan completed")

	return devices, nil
}

// Connect opens a session to each known device in ids, identifies it and marks it connected.
// Identifiers not in the current device list are skipped.
func (d *Discovery) Connect(ctx context.Context, ids []string) (int, error) {
	ctx, span := otel.Tracer(pkgName).Start(ctx, "discovery.Connect")
	defer span.End()

	if len(ids) == 0 {
		return 0, model.InvalidRequestf("no devices selected")
	}

	var connected int

	for _, id := range ids {
		device, err := d.repository.DeviceByID(ctx, id)
		if err != nil {
			if errors.Is(err, model.ErrUnknownDevice) {
				d.logger.WithField("device_id", id).Warn("connect skipped unknown device")
				continue
			}

			return connected, err
		}

		if err := d.connect(ctx, device); err != nil {
			if ctx.Err() != nil {
				return connected, ctx.Err()
			}

			d.logger.WithFields(logrus.Fields{"address": device.IPAddress}).WithError(err).Warn("device connection failed")

			continue
		}

		if err := d.repository.UpdateDevice(ctx, device); err != nil {
			return connected, err
		}

		connected++
	}

	d.logger.WithField("connected", connected).Info("device connections completed")

	return connected, nil
}

func (d *Discovery) connect(ctx context.Context, device *model.Device) error {
	s := d.sessions(device)

	if err := s.Open(ctx); err != nil {
		return errors.Wrap(err, "session open")
	}

	defer func() {
		if err := s.Close(ctx); err != nil {
			d.logger.WithError(err).Warn("session close error")
		}
	}()

	out, err := s.Run(ctx, "show version")
	if err != nil {
		return errors.Wrap(err, "show version")
	}

	id := session.Identify(out)

	if id.Vendor != "" {
		device.Vendor = id.Vendor
	}

	if id.Hostname != "" {
		device.Hostname = id.Hostname
	}

	device.Model = id.Model
	device.OSVersion = id.OSVersion
	device.Status = model.DeviceStatusConnected
	device.LastSeen = time.Now()

	d.logger.WithFields(logrus.Fields{
		"address": device.IPAddress,
		"vendor":  device.Vendor,
	}).Info("device connected")

	return nil
}
