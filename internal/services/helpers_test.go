package services

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/isdelr/diary-be/internal/apperr"
	"github.com/isdelr/diary-be/internal/auth"
	"github.com/isdelr/diary-be/internal/models"
	"github.com/isdelr/diary-be/internal/store/sqlite"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fixture struct {
	db     *sqlite.DB
	issuer *auth.Issuer
	users  *UserService
	diary  *DiaryService
	pub    *recordingPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	db, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "diary.db"))
	require.NoError(t, err)
	require.NoError(t, db.Migrate(ctx))
	t.Cleanup(func() { _ = db.Close() })

	hasher, err := auth.NewBcryptHasher(bcrypt.MinCost)
	require.NoError(t, err)
	issuer, err := auth.NewIssuer([]byte("test-secret"), time.Hour)
	require.NoError(t, err)

	pub := &recordingPublisher{}
	return &fixture{
		db:     db,
		issuer: issuer,
		users:  NewUserService(db.Users(), hasher, issuer, nil),
		diary:  NewDiaryService(db.Users(), db.Entries(), pub, nil),
		pub:    pub,
	}
}

func (f *fixture) register(t *testing.T, username string) string {
	t.Helper()
	id, err := f.users.Register(context.Background(), username, "s3cret", username+"@example.com")
	require.NoError(t, err)
	return id
}

type published struct {
	owner string
	entry models.DiaryEntry
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []published
}

func (p *recordingPublisher) Publish(ownerID string, entry models.DiaryEntry) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{owner: ownerID, entry: entry})
}

func (p *recordingPublisher) snapshot() []published {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]published(nil), p.events...)
}

var errDiskGone = errors.New("disk I/O error")

// brokenUsers fails every call the way an unreachable backend would.
type brokenUsers struct{}

func (brokenUsers) FindByUsername(context.Context, string) (*models.User, error) {
	return nil, errors.Join(apperr.ErrStorageUnavailable, errDiskGone)
}

func (brokenUsers) FindByID(context.Context, string) (*models.User, error) {
	return nil, errors.Join(apperr.ErrStorageUnavailable, errDiskGone)
}

func (brokenUsers) Insert(context.Context, *models.User) (*models.User, error) {
	return nil, errors.Join(apperr.ErrStorageUnavailable, errDiskGone)
}

// countingHasher records how the service exercised it.
type countingHasher struct {
	auth.PasswordHasher
	mu      sync.Mutex
	hashes  int
	verifys int
	dummies int
}

func (h *countingHasher) Hash(p string) (string, error) {
	h.mu.Lock()
	h.hashes++
	h.mu.Unlock()
	return h.PasswordHasher.Hash(p)
}

func (h *countingHasher) Verify(p, d string) bool {
	h.mu.Lock()
	h.verifys++
	h.mu.Unlock()
	return h.PasswordHasher.Verify(p, d)
}

func (h *countingHasher) VerifyDummy(p string) {
	h.mu.Lock()
	h.dummies++
	h.mu.Unlock()
	h.PasswordHasher.VerifyDummy(p)
}
