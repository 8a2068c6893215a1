// Package workload generates the synthetic JSON documents seeded into the
// benchmark tables: one large document holding many user records and one
// small flat document.
package workload

import (
	"fmt"
	mrand "math/rand"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
)

// DefaultUsers is the number of user records in the large document.
const DefaultUsers = 1000

// TimestampLayout formats timestamps as ISO-8601 UTC with milliseconds.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Timestamp formats t in TimestampLayout.
func Timestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// User is a single synthetic record inside the large document.
type User struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

// LargeDocument is the payload stored in the large table.
type LargeDocument struct {
	Users     []User `json:"users"`
	UpdatedAt string `json:"updatedAt"`
}

// SmallDocument is the payload stored in the small table.
type SmallDocument struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	UpdatedAt string `json:"updatedAt"`
}

// Config controls document generation.
type Config struct {
	Users int
	Seed  int64
}

// Generator produces synthetic documents. Output is reproducible only
// for a fixed Seed.
type Generator struct {
	cfg   Config
	rng   *mrand.Rand
	faker *gofakeit.Faker

	// Now stamps updatedAt. Defaults to time.Now.
	Now func() time.Time
}

// NewGenerator creates a Generator from the given Config.
func NewGenerator(cfg Config) *Generator {
	return &Generator{
		cfg:   cfg,
		rng:   mrand.New(mrand.NewSource(cfg.Seed)),
		faker: gofakeit.New(uint64(cfg.Seed)),
		Now:   time.Now,
	}
}

// Large builds a document with cfg.Users user records.
func (g *Generator) Large() (LargeDocument, error) {
	if g.cfg.Users < 0 {
		return LargeDocument{}, fmt.Errorf("negative user count %d", g.cfg.Users)
	}

	users := make([]User, 0, g.cfg.Users)
	for i := 0; i < g.cfg.Users; i++ {
		u, err := g.user()
		if err != nil {
			return LargeDocument{}, fmt.Errorf("user %d: %w", i, err)
		}

		users = append(users, u)
	}

	return LargeDocument{
		Users:     users,
		UpdatedAt: Timestamp(g.Now()),
	}, nil
}

// Small builds the flat document.
func (g *Generator) Small() (SmallDocument, error) {
	id, err := g.id()
	if err != nil {
		return SmallDocument{}, err
	}

	return SmallDocument{
		ID:        id,
		Name:      g.faker.Name(),
		UpdatedAt: Timestamp(g.Now()),
	}, nil
}

func (g *Generator) user() (User, error) {
	id, err := g.id()
	if err != nil {
		return User{}, err
	}

	return User{
		ID:      id,
		Name:    g.faker.Name(),
		Email:   g.faker.Email(),
		Address: g.faker.Address().Address,
		Phone:   g.faker.Phone(),
	}, nil
}

func (g *Generator) id() (string, error) {
	id, err := uuid.NewRandomFromReader(g.rng)
	if err != nil {
		return "", fmt.Errorf("generate id: %w", err)
	}

	return id.String(), nil
}
