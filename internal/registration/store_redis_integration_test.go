//go:build integration

package registration_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"identikit/internal/registration"
	"identikit/pkg/platform/sentinel"
	"identikit/pkg/testutil/containers"
)

type RedisDraftStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *registration.RedisDraftStore
}

func TestRedisDraftStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisDraftStoreSuite))
}

func (s *RedisDraftStoreSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.store = registration.NewRedisDraftStore(s.redis.Client)
}

func (s *RedisDraftStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisDraftStoreSuite) makeDraft() *registration.Draft {
	return &registration.Draft{
		ID:   "draft-1",
		Step: registration.StepSkills,
		Fields: registration.Fields{
			Name:      "Ada Lovelace",
			Email:     "ada@example.com",
			TopSkills: []string{"Go", "Redis", "Kubernetes"},
		},
		UpdatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
}

func (s *RedisDraftStoreSuite) TestLoadEmpty() {
	_, err := s.store.Load(context.Background(), "flow-a")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RedisDraftStoreSuite) TestSaveAndLoadRoundTrip() {
	ctx := context.Background()
	d := s.makeDraft()

	s.Require().NoError(s.store.Save(ctx, "flow-a", d))

	loaded, err := s.store.Load(ctx, "flow-a")
	s.Require().NoError(err)
	s.Equal(d.ID, loaded.ID)
	s.Equal(d.Step, loaded.Step)
	s.Equal(d.Fields.TopSkills, loaded.Fields.TopSkills)
	s.False(loaded.Submitted)
}

func (s *RedisDraftStoreSuite) TestSubmittedFlagSurvives() {
	ctx := context.Background()
	d := s.makeDraft()
	d.Submitted = true
	d.UserID = "user-42"
	s.Require().NoError(s.store.Save(ctx, "flow-a", d))

	loaded, err := s.store.Load(ctx, "flow-a")
	s.Require().NoError(err)
	s.True(loaded.Submitted)
	s.Equal("user-42", loaded.UserID)
}

func (s *RedisDraftStoreSuite) TestClear() {
	ctx := context.Background()
	s.Require().NoError(s.store.Save(ctx, "flow-a", s.makeDraft()))
	s.Require().NoError(s.store.Clear(ctx, "flow-a"))

	_, err := s.store.Load(ctx, "flow-a")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RedisDraftStoreSuite) TestTTLExpiry() {
	ctx := context.Background()
	short := registration.NewRedisDraftStore(s.redis.Client, registration.WithDraftTTL(time.Second))
	s.Require().NoError(short.Save(ctx, "flow-a", s.makeDraft()))

	time.Sleep(1500 * time.Millisecond)

	_, err := short.Load(ctx, "flow-a")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RedisDraftStoreSuite) TestKeyPrefixNamespacing() {
	ctx := context.Background()
	other := registration.NewRedisDraftStore(s.redis.Client, registration.WithDraftKeyPrefix("identikit:draft:app2:"))

	s.Require().NoError(s.store.Save(ctx, "flow-a", s.makeDraft()))

	_, err := other.Load(ctx, "flow-a")
	s.ErrorIs(err, sentinel.ErrNotFound)
}
