//go:build integration

package postgres_test

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/isdelr/diary-be/internal/apperr"
	"github.com/isdelr/diary-be/internal/models"
	"github.com/isdelr/diary-be/internal/store/postgres"
)

func setupPostgresContainer() (*postgres.DB, func(), error) {
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("diary_test"),
		tcpostgres.WithUsername("diary"),
		tcpostgres.WithPassword("diary"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, nil, err
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return nil, nil, err
	}

	db, err := postgres.Open(ctx, connStr)
	if err != nil {
		return nil, nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		_ = db.Close()
		_ = container.Terminate(ctx)
	}
	return db, cleanup, nil
}

func newUser(name string) *models.User {
	return &models.User{
		ID:           uuid.NewString(),
		Username:     name,
		Email:        name + "@example.com",
		PasswordHash: "digest",
		CreatedAt:    time.Now(),
	}
}

var _ = Describe("Postgres backend", func() {
	var db *postgres.DB
	var cleanup func()
	ctx := context.Background()

	BeforeEach(func() {
		var err error
		db, cleanup, err = setupPostgresContainer()
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		cleanup()
	})

	Describe("users", func() {
		It("finds inserted users by exact name", func() {
			alice, err := db.Users().Insert(ctx, newUser("alice"))
			Expect(err).NotTo(HaveOccurred())

			found, err := db.Users().FindByUsername(ctx, "alice")
			Expect(err).NotTo(HaveOccurred())
			Expect(found).NotTo(BeNil())
			Expect(found.ID).To(Equal(alice.ID))

			missing, err := db.Users().FindByUsername(ctx, "Alice")
			Expect(err).NotTo(HaveOccurred())
			Expect(missing).To(BeNil())
		})

		It("lets exactly one concurrent registration win", func() {
			var wg sync.WaitGroup
			errs := make([]error, 5)
			for i := range errs {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					_, errs[i] = db.Users().Insert(ctx, newUser("racer"))
				}(i)
			}
			wg.Wait()

			wins := 0
			for _, err := range errs {
				if err == nil {
					wins++
				} else {
					Expect(err).To(MatchError(apperr.ErrDuplicateUsername))
				}
			}
			Expect(wins).To(Equal(1))
		})
	})

	Describe("entries", func() {
		It("returns only the owner's entries in date order", func() {
			alice, err := db.Users().Insert(ctx, newUser("alice"))
			Expect(err).NotTo(HaveOccurred())
			bob, err := db.Users().Insert(ctx, newUser("bob"))
			Expect(err).NotTo(HaveOccurred())

			for _, e := range []struct{ owner, date string }{
				{alice.ID, "2024-01-02"}, {alice.ID, "2024-01-01"}, {bob.ID, "2024-01-01"},
			} {
				_, err := db.Entries().InsertEntry(ctx, &models.DiaryEntry{
					ID: uuid.NewString(), UserID: e.owner, EntryDate: e.date,
					Mood: models.MoodNeutral, ExerciseIntensity: models.IntensityModerate,
					CreatedAt: time.Now(),
				})
				Expect(err).NotTo(HaveOccurred())
			}

			got, err := db.Entries().ListEntries(ctx, alice.ID, models.EntryFilter{})
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(HaveLen(2))
			Expect(got[0].EntryDate).To(Equal("2024-01-01"))
			Expect(got[1].EntryDate).To(Equal("2024-01-02"))
		})

		It("rejects entries for unknown owners", func() {
			_, err := db.Entries().InsertEntry(ctx, &models.DiaryEntry{
				ID: uuid.NewString(), UserID: uuid.NewString(), EntryDate: "2024-01-01",
				Mood: models.MoodNeutral, ExerciseIntensity: models.IntensityLight,
				CreatedAt: time.Now(),
			})
			Expect(err).To(MatchError(apperr.ErrNotFound))
		})

		It("runs maintenance", func() {
			Expect(db.Maintain(ctx)).To(Succeed())
		})
	})
})
