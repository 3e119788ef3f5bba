package connection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/arencloud/strata/internal/db"
	"github.com/arencloud/strata/internal/errs"
	"github.com/arencloud/strata/internal/logging"
	"github.com/arencloud/strata/internal/metrics"
	"github.com/arencloud/strata/internal/models"
	"github.com/arencloud/strata/internal/s3"
	"github.com/arencloud/strata/internal/secrets"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Manager applies connection changes to the secret store, the record store
// and the registry, in that order. A record is never persisted without its
// secret; mutations are serialized.
type Manager struct {
	mu       sync.Mutex
	reg      *Registry
	store    db.Store
	secrets  secrets.Store
	factory  s3.ClientFactory
	validate *validator.Validate
	log      logging.Logger
	now      func() time.Time
}

func NewManager(reg *Registry, store db.Store, sec secrets.Store, factory s3.ClientFactory, logger logging.Logger) *Manager {
	return &Manager{
		reg:      reg,
		store:    store,
		secrets:  sec,
		factory:  factory,
		validate: validator.New(),
		log:      logger.With("service", "connections"),
		now:      time.Now,
	}
}

func (m *Manager) Registry() *Registry { return m.reg }

// Bootstrap fills the registry from the record store. A connection whose
// secret cannot be read is still loaded, with an empty secret.
func (m *Manager) Bootstrap() error {
	conns, err := m.store.Load()
	if err != nil {
		m.log.Error("load connections failed", "error", err)
		return err
	}
	for id, c := range conns {
		secret, err := m.secrets.Get(id)
		if err != nil {
			if errors.Is(err, secrets.ErrNotFound) {
				m.log.Warn("no secret stored for connection", "id", id, "name", c.Name)
			} else {
				m.log.Warn("read secret failed", "id", id, "error", err)
			}
			secret = ""
		}
		m.reg.Put(models.ConnectionWithSecret{Connection: c, SecretKey: secret})
	}
	m.log.Info("connections loaded", "count", len(conns))
	metrics.Connections.Set(float64(m.reg.Len()))
	return nil
}

func (m *Manager) List() []models.Connection {
	all := m.reg.List()
	out := make([]models.Connection, 0, len(all))
	for _, c := range all {
		out = append(out, c.Record())
	}
	return out
}

func (m *Manager) Get(id string) (models.Connection, error) {
	c, err := m.reg.Get(id)
	if err != nil {
		return models.Connection{}, err
	}
	return c.Record(), nil
}

func (m *Manager) check(c models.Connection) error {
	if err := m.validate.Struct(c); err != nil {
		return errs.Validation(err.Error(), err)
	}
	return nil
}

func apply(c *models.ConnectionWithSecret, in models.ConnectionInput) {
	if in.Name != nil {
		c.Name = strings.TrimSpace(*in.Name)
	}
	if in.Provider != nil {
		c.Provider = *in.Provider
	}
	if in.Endpoint != nil {
		c.Endpoint = strings.TrimSpace(*in.Endpoint)
	}
	if in.Region != nil {
		c.Region = strings.TrimSpace(*in.Region)
	}
	if in.AccessKey != nil {
		c.AccessKey = *in.AccessKey
	}
	if in.SecretKey != nil {
		c.SecretKey = *in.SecretKey
	}
	if in.UseSSL != nil {
		c.UseSSL = *in.UseSSL
	}
	if in.UsePathStyle != nil {
		c.UsePathStyle = *in.UsePathStyle
	}
}

// FromInput builds an unsaved connection. Unset addressing follows the
// provider's default.
func FromInput(in models.ConnectionInput) models.ConnectionWithSecret {
	var c models.ConnectionWithSecret
	c.Provider = models.ProviderCustom
	c.UseSSL = true
	apply(&c, in)
	if in.UsePathStyle == nil {
		c.UsePathStyle = s3.ProfileFor(c.Provider).DefaultPathStyle
	}
	return c
}

func (m *Manager) Create(in models.ConnectionInput) (models.Connection, error) {
	c := FromInput(in)
	c.ID = uuid.NewString()
	ts := m.now().Unix()
	c.CreatedAt, c.UpdatedAt = ts, ts
	m.log.Debug("create connection", "name", c.Name, "provider", c.Provider)
	if err := m.check(c.Connection); err != nil {
		return models.Connection{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.secrets.Set(c.ID, c.SecretKey); err != nil {
		m.log.Error("store secret failed", "id", c.ID, "error", err)
		return models.Connection{}, err
	}
	if err := m.store.Put(c.Record()); err != nil {
		m.log.Error("persist connection failed", "id", c.ID, "error", err)
		if derr := m.secrets.Delete(c.ID); derr != nil {
			m.log.Warn("drop orphaned secret failed", "id", c.ID, "error", derr)
		}
		return models.Connection{}, err
	}
	m.reg.Put(c)
	m.log.Info("connection created", "id", c.ID, "name", c.Name)
	metrics.Connections.Set(float64(m.reg.Len()))
	return c.Record(), nil
}

// Update changes the fields set in in. A nil SecretKey keeps the stored secret.
// Switching provider without an explicit UsePathStyle takes the new
// provider's default addressing.
func (m *Manager) Update(id string, in models.ConnectionInput) (models.Connection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, err := m.reg.Get(id)
	if err != nil {
		return models.Connection{}, err
	}
	m.log.Debug("update connection", "id", id)
	c := old
	apply(&c, in)
	if c.Provider != old.Provider && in.UsePathStyle == nil {
		c.UsePathStyle = s3.ProfileFor(c.Provider).DefaultPathStyle
	}
	c.UpdatedAt = m.now().Unix()
	if err := m.check(c.Connection); err != nil {
		return models.Connection{}, err
	}
	if in.SecretKey != nil {
		if err := m.secrets.Set(id, c.SecretKey); err != nil {
			m.log.Error("store secret failed", "id", id, "error", err)
			return models.Connection{}, err
		}
	}
	if err := m.store.Put(c.Record()); err != nil {
		m.log.Error("persist connection failed", "id", id, "error", err)
		if in.SecretKey != nil {
			if rerr := m.secrets.Set(id, old.SecretKey); rerr != nil {
				m.log.Warn("restore previous secret failed", "id", id, "error", rerr)
			}
		}
		return models.Connection{}, err
	}
	m.reg.Put(c)
	m.log.Info("connection updated", "id", id)
	return c.Record(), nil
}

func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.reg.Get(id); err != nil {
		return err
	}
	m.log.Debug("delete connection", "id", id)
	if err := m.store.Remove(id); err != nil {
		m.log.Error("remove connection failed", "id", id, "error", err)
		return err
	}
	if err := m.secrets.Delete(id); err != nil {
		m.log.Warn("delete secret failed", "id", id, "error", err)
	}
	m.reg.Remove(id)
	m.log.Info("connection deleted", "id", id)
	metrics.Connections.Set(float64(m.reg.Len()))
	return nil
}

// Test lists buckets with c to prove the endpoint and credentials work.
func (m *Manager) Test(ctx context.Context, c models.ConnectionWithSecret) error {
	m.log.Debug("test connection", "endpoint", c.Endpoint, "provider", c.Provider)
	admin, err := m.factory.Admin(c)
	if err != nil {
		return err
	}
	if _, err := admin.ListBuckets(ctx); err != nil {
		m.log.Warn("connection test failed", "endpoint", c.Endpoint, "error", err)
		return err
	}
	m.log.Info("connection test passed", "endpoint", c.Endpoint)
	return nil
}

// Export renders every connection, without ids or secrets, as indented JSON.
func (m *Manager) Export() ([]byte, error) {
	exp := models.ConnectionExport{Version: models.ExportVersion, Connections: []models.ExportedConnection{}}
	for _, c := range m.reg.List() {
		exp.Connections = append(exp.Connections, models.ExportedConnection{
			Name:         c.Name,
			Provider:     c.Provider,
			Endpoint:     c.Endpoint,
			Region:       c.Region,
			AccessKey:    c.AccessKey,
			UseSSL:       c.UseSSL,
			UsePathStyle: c.UsePathStyle,
		})
	}
	data, err := json.MarshalIndent(exp, "", "  ")
	if err != nil {
		return nil, errs.Serialization(err)
	}
	m.log.Info("connections exported", "count", len(exp.Connections))
	return data, nil
}

// Import adds every connection in data under a fresh id with an empty
// secret. Nothing is added unless the whole document parses and has a
// supported version.
func (m *Manager) Import(data []byte) ([]models.Connection, error) {
	var exp models.ConnectionExport
	if err := json.Unmarshal(data, &exp); err != nil {
		return nil, errs.Serialization(err)
	}
	if exp.Version != models.ExportVersion {
		return nil, errs.Config(fmt.Sprintf("unsupported export version: %d", exp.Version), nil)
	}
	ts := m.now().Unix()
	imported := make([]models.ConnectionWithSecret, 0, len(exp.Connections))
	for _, e := range exp.Connections {
		c := models.ConnectionWithSecret{Connection: models.Connection{
			ID:           uuid.NewString(),
			Name:         e.Name,
			Provider:     e.Provider,
			Endpoint:     e.Endpoint,
			Region:       e.Region,
			AccessKey:    e.AccessKey,
			UseSSL:       e.UseSSL,
			UsePathStyle: e.UsePathStyle,
			CreatedAt:    ts,
			UpdatedAt:    ts,
		}}
		if err := m.check(c.Connection); err != nil {
			return nil, err
		}
		imported = append(imported, c)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for i, c := range imported {
		if err := m.store.Put(c.Record()); err != nil {
			m.log.Error("persist imported connection failed", "name", c.Name, "error", err)
			for _, done := range imported[:i] {
				if rerr := m.store.Remove(done.ID); rerr != nil {
					m.log.Warn("roll back imported connection failed", "id", done.ID, "error", rerr)
				}
			}
			return nil, err
		}
	}
	out := make([]models.Connection, 0, len(imported))
	for _, c := range imported {
		m.reg.Put(c)
		out = append(out, c.Record())
	}
	m.log.Info("connections imported", "count", len(out))
	metrics.Connections.Set(float64(m.reg.Len()))
	return out, nil
}
