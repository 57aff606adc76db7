package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Skotchmaster/projects_api/internal/db"
	"github.com/Skotchmaster/projects_api/internal/events"
	"github.com/Skotchmaster/projects_api/internal/hash"
	"github.com/Skotchmaster/projects_api/internal/metrics"
	"github.com/Skotchmaster/projects_api/internal/models"
	"github.com/Skotchmaster/projects_api/internal/repo"
	"github.com/Skotchmaster/projects_api/internal/tokens"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type recordingPublisher struct {
	mu    sync.Mutex
	types []string
}

func (r *recordingPublisher) Publish(_ context.Context, e events.AuthEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types = append(r.types, e.Type)
	return nil
}

func (r *recordingPublisher) Close() error { return nil }

func (r *recordingPublisher) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.types...)
}

type testEnv struct {
	Repo    *repo.GormRepo
	Auth    *AuthService
	Clock   *clock
	Events  *recordingPublisher
	Metrics *metrics.Metrics
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	gdb, err := db.Open(context.Background(), db.DriverSQLite, ":memory:")
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))
	t.Cleanup(func() { _ = db.Close(gdb) })

	r := repo.New(gdb)
	c := &clock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	pub := &recordingPublisher{}
	m := metrics.New(prometheus.NewRegistry())

	auth := &AuthService{
		Users:      r,
		Ledger:     r,
		Revoked:    r,
		Hasher:     hash.Bcrypt{Cost: bcrypt.MinCost},
		Issuer:     tokens.NewIssuer([]byte(testSecret), 15*time.Minute, c.Now),
		RefreshTTL: 7 * 24 * time.Hour,
		Events:     pub,
		Metrics:    m,
		Now:        c.Now,
	}
	return &testEnv{Repo: r, Auth: auth, Clock: c, Events: pub, Metrics: m}
}

func (e *testEnv) register(t *testing.T, email string) *models.User {
	t.Helper()
	u, err := e.Auth.Register(context.Background(), email, "Secret123!")
	require.NoError(t, err)
	return u
}

func (e *testEnv) activeRefreshCount(t *testing.T, userID uint) int {
	t.Helper()
	list, err := e.Repo.ListRefreshTokens(context.Background(), userID)
	require.NoError(t, err)
	n := 0
	for i := range list {
		if list[i].IsActive(e.Clock.Now()) {
			n++
		}
	}
	return n
}
