// Package discovery finds Home Assistant instances on the local network over
// mDNS so the login form can be prefilled.
package discovery

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"
)

const (
	// ServiceType is the zeroconf service Home Assistant advertises
	ServiceType = "_home-assistant._tcp"

	// ServiceDomain is the mDNS domain
	ServiceDomain = "local."

	// DefaultScanTimeout bounds a scan
	DefaultScanTimeout = 3 * time.Second
)

// Instance is one Home Assistant server found on the network
type Instance struct {
	Name         string
	Hostname     string
	IP           string
	Port         int
	BaseURL      string
	InternalURL  string
	Version      string
	UUID         string
	DiscoveredAt time.Time
}

// Host returns the value to put in the login form's host field
func (i *Instance) Host() string {
	return i.IP
}

// Scanner browses for Home Assistant instances
type Scanner struct {
	Timeout time.Duration
	logger  *zap.Logger
}

// NewScanner creates a scanner with the default timeout
func NewScanner(logger *zap.Logger) *Scanner {
	return &Scanner{
		Timeout: DefaultScanTimeout,
		logger:  logger,
	}
}

// Scan browses until the timeout or ctx expires and returns the instances
// seen, ordered by name. Duplicate announcements are collapsed.
func (s *Scanner) Scan(ctx context.Context) ([]*Instance, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	var mu sync.Mutex
	found := make(map[string]*Instance)

	go func() {
		for entry := range entries {
			inst := parseServiceEntry(entry)
			if inst == nil {
				continue
			}
			s.logger.Debug("Home Assistant instance found",
				zap.String("name", inst.Name),
				zap.String("ip", inst.IP))
			mu.Lock()
			found[inst.Name+"|"+inst.IP] = inst
			mu.Unlock()
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	<-ctx.Done()

	mu.Lock()
	defer mu.Unlock()
	instances := make([]*Instance, 0, len(found))
	for _, inst := range found {
		instances = append(instances, inst)
	}
	sort.Slice(instances, func(a, b int) bool {
		if instances[a].Name != instances[b].Name {
			return instances[a].Name < instances[b].Name
		}
		return instances[a].IP < instances[b].IP
	})
	return instances, nil
}

// parseServiceEntry converts an mDNS answer; nil when it has no address
func parseServiceEntry(entry *zeroconf.ServiceEntry) *Instance {
	if entry == nil {
		return nil
	}

	var ip string
	if len(entry.AddrIPv4) > 0 {
		ip = entry.AddrIPv4[0].String()
	} else if len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}
	if ip == "" {
		return nil
	}

	txt := parseTXT(entry.Text)

	name := txt["location_name"]
	if name == "" {
		name = entry.Instance
	}

	return &Instance{
		Name:         name,
		Hostname:     strings.TrimSuffix(entry.HostName, "."),
		IP:           ip,
		Port:         entry.Port,
		BaseURL:      txt["base_url"],
		InternalURL:  txt["internal_url"],
		Version:      txt["version"],
		UUID:         txt["uuid"],
		DiscoveredAt: time.Now(),
	}
}

func parseTXT(records []string) map[string]string {
	out := make(map[string]string, len(records))
	for _, r := range records {
		k, v, _ := strings.Cut(r, "=")
		out[k] = v
	}
	return out
}
