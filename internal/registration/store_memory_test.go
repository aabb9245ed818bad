package registration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"identikit/pkg/platform/sentinel"
)

type InMemoryDraftStoreSuite struct {
	suite.Suite
	store *InMemoryDraftStore
	ctx   context.Context
}

func (s *InMemoryDraftStoreSuite) SetupTest() {
	s.store = NewInMemoryDraftStore()
	s.ctx = context.Background()
}

func (s *InMemoryDraftStoreSuite) TestLoadEmpty() {
	_, err := s.store.Load(s.ctx, "flow-a")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InMemoryDraftStoreSuite) TestSaveAndLoad() {
	d := &Draft{ID: "d-1", Step: StepSkills, Fields: Fields{Email: "ada@example.com", TopSkills: []string{"Go"}}}
	s.Require().NoError(s.store.Save(s.ctx, "flow-a", d))

	got, err := s.store.Load(s.ctx, "flow-a")
	s.Require().NoError(err)
	s.Equal(StepSkills, got.Step)
	s.Equal("ada@example.com", got.Fields.Email)
}

func (s *InMemoryDraftStoreSuite) TestLoadReturnsCopy() {
	d := &Draft{ID: "d-1", Fields: Fields{TopSkills: []string{"Go", "Redis"}}}
	s.Require().NoError(s.store.Save(s.ctx, "flow-a", d))

	got, err := s.store.Load(s.ctx, "flow-a")
	s.Require().NoError(err)
	got.Fields.TopSkills[0] = "mutated"
	got.Fields.Email = "mutated@example.com"

	again, err := s.store.Load(s.ctx, "flow-a")
	s.Require().NoError(err)
	s.Equal("Go", again.Fields.TopSkills[0])
	s.Empty(again.Fields.Email)
}

func (s *InMemoryDraftStoreSuite) TestKeysAreIndependent() {
	s.Require().NoError(s.store.Save(s.ctx, "flow-a", &Draft{ID: "d-1"}))
	_, err := s.store.Load(s.ctx, "flow-b")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InMemoryDraftStoreSuite) TestClear() {
	s.Require().NoError(s.store.Save(s.ctx, "flow-a", &Draft{ID: "d-1"}))
	s.Require().NoError(s.store.Clear(s.ctx, "flow-a"))
	_, err := s.store.Load(s.ctx, "flow-a")
	s.ErrorIs(err, sentinel.ErrNotFound)

	// Clearing an absent draft is not an error.
	s.NoError(s.store.Clear(s.ctx, "flow-a"))
}

func TestInMemoryDraftStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryDraftStoreSuite))
}
