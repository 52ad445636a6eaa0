package bans

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"golang.org/x/text/cases"
)

type BanType string

const (
	BanTypeAddress BanType = "address"
	BanTypeName    BanType = "name"
)

type Ban struct {
	Type      BanType   `toml:"type"`
	Address   string    `toml:"address,omitempty"`
	Name      string    `toml:"name,omitempty"`
	Reason    string    `toml:"reason,omitempty"`
	BannedAt  time.Time `toml:"banned_at"`
	ExpiresAt time.Time `toml:"expires_at,omitempty"`
	Permanent bool      `toml:"permanent"`

	prefix netip.Prefix
}

func (b *Ban) expired(now time.Time) bool {
	return !b.Permanent && now.After(b.ExpiresAt)
}

type banFile struct {
	Bans []*Ban `toml:"ban"`
}

// Manager holds address and name bans checked when a client joins.
// Addresses may be single IPs or CIDR prefixes; names match case-insensitively.
type Manager struct {
	filePath string
	fold     cases.Caser
	now      func() time.Time

	mu        sync.RWMutex
	addresses []*Ban
	names     map[string]*Ban
}

func NewManager(filePath string) *Manager {
	return &Manager{
		filePath: filePath,
		fold:     cases.Fold(),
		now:      time.Now,
		names:    make(map[string]*Ban),
	}
}

// Load replaces the in-memory list with the file contents. A missing file is an empty list.
func (m *Manager) Load() error {
	if m.filePath == "" {
		return nil
	}

	var file banFile
	if _, err := toml.DecodeFile(m.filePath, &file); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to parse bans file: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.addresses = m.addresses[:0]
	clear(m.names)
	now := m.now()
	for i, ban := range file.Bans {
		if ban.expired(now) {
			continue
		}
		if ban.Type == "" {
			ban.Type = BanTypeAddress
		}
		if err := m.insertLocked(ban); err != nil {
			return fmt.Errorf("bans file entry %d: %w", i, err)
		}
	}
	return nil
}

func (m *Manager) insertLocked(ban *Ban) error {
	switch ban.Type {
	case BanTypeAddress:
		prefix, err := parsePrefix(ban.Address)
		if err != nil {
			return err
		}
		ban.prefix = prefix
		m.addresses = append(m.addresses, ban)
	case BanTypeName:
		if ban.Name == "" {
			return fmt.Errorf("name ban without a name")
		}
		m.names[m.fold.String(ban.Name)] = ban
	default:
		return fmt.Errorf("unknown ban type %q", ban.Type)
	}
	return nil
}

func parsePrefix(s string) (netip.Prefix, error) {
	if prefix, err := netip.ParsePrefix(s); err == nil {
		return prefix.Masked(), nil
	}
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Prefix{}, fmt.Errorf("invalid ban address %q", s)
	}
	return netip.PrefixFrom(addr.Unmap(), addr.Unmap().BitLen()), nil
}

// Check reports the ban matching a joining endpoint ("ip:port") or name, if any.
func (m *Manager) Check(endpoint, name string) (*Ban, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := m.now()
	if ap, err := netip.ParseAddrPort(endpoint); err == nil {
		addr := ap.Addr().Unmap()
		for _, ban := range m.addresses {
			if ban.prefix.Contains(addr) && !ban.expired(now) {
				return ban, true
			}
		}
	}
	if ban, ok := m.names[m.fold.String(name)]; ok && !ban.expired(now) {
		return ban, true
	}
	return nil, false
}

// Add records a ban and persists the list. A zero duration is permanent.
func (m *Manager) Add(ban Ban, duration time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	ban.BannedAt = now
	ban.Permanent = duration == 0
	if duration > 0 {
		ban.ExpiresAt = now.Add(duration)
	}
	if err := m.insertLocked(&ban); err != nil {
		return err
	}
	return m.saveLocked()
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.addresses) + len(m.names)
}

func (m *Manager) saveLocked() error {
	if m.filePath == "" {
		return nil
	}

	now := m.now()
	var file banFile
	for _, ban := range m.addresses {
		if !ban.expired(now) {
			file.Bans = append(file.Bans, ban)
		}
	}
	for _, ban := range m.names {
		if !ban.expired(now) {
			file.Bans = append(file.Bans, ban)
		}
	}

	f, err := os.Create(m.filePath)
	if err != nil {
		return fmt.Errorf("failed to write bans file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(file); err != nil {
		return fmt.Errorf("failed to encode bans: %w", err)
	}
	return nil
}
