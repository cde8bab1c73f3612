package itinerary

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skyplan/internal/ai"
	"skyplan/internal/flow"
)

type fakeRepo struct {
	saved []Itinerary
	err   error
}

func (r *fakeRepo) Create(ctx context.Context, it *Itinerary) error {
	if r.err != nil {
		return r.err
	}
	it.ID = "id-1"
	r.saved = append(r.saved, *it)
	return nil
}

func (r *fakeRepo) ListByUser(ctx context.Context, uid string, limit int) ([]Itinerary, error) {
	if r.err != nil {
		return nil, r.err
	}
	var out []Itinerary
	for _, it := range r.saved {
		if it.UID == uid && len(out) < limit {
			out = append(out, it)
		}
	}
	return out, nil
}

func (r *fakeRepo) Get(ctx context.Context, uid, id string) (Itinerary, error) {
	for _, it := range r.saved {
		if it.UID == uid && it.ID == id {
			return it, nil
		}
	}
	return Itinerary{}, ErrNotFound
}

var beachWeek = Preferences{
	Budget:              "$1500",
	TravelStyle:         "relaxation",
	Interests:           "beaches, seafood",
	Duration:            "7",
	LocationPreferences: "Southeast Asia",
}

func answering(text string, prompt *string, calls *int) ai.Generator {
	return ai.GeneratorFunc(func(ctx context.Context, p string, _ *ai.Schema) (*ai.RawOutput, error) {
		if prompt != nil {
			*prompt = p
		}
		if calls != nil {
			*calls++
		}
		return &ai.RawOutput{Text: text}, nil
	})
}

func newTestService(gen ai.Generator, repo Repository) *Service {
	s := NewService(flow.NewEngine(gen, nil), repo, nil)
	s.now = func() time.Time { return time.Date(2024, 11, 4, 9, 0, 0, 0, time.UTC) }
	return s
}

func TestGenerateRendersPreferences(t *testing.T) {
	var prompt string
	svc := newTestService(answering(`{"itinerary":"  Day 1: Bali beaches  "}`, &prompt, nil), nil)

	it, err := svc.Generate(context.Background(), "", beachWeek)
	require.NoError(t, err)
	assert.Equal(t, "Day 1: Bali beaches", it.Text)
	assert.Equal(t, beachWeek, it.Preferences)
	assert.Empty(t, it.ID)

	assert.Contains(t, prompt, "Budget: $1500")
	assert.Contains(t, prompt, "Duration: 7 days")
	assert.Contains(t, prompt, "Location Preferences: Southeast Asia")
}

func TestGenerateRejectsShortFieldsWithoutModelCall(t *testing.T) {
	cases := map[string]func(p *Preferences){
		"budget":              func(p *Preferences) { p.Budget = "$" },
		"travelStyle":         func(p *Preferences) { p.TravelStyle = "" },
		"interests":           func(p *Preferences) { p.Interests = "ab" },
		"duration":            func(p *Preferences) { p.Duration = "" },
		"locationPreferences": func(p *Preferences) { p.LocationPreferences = "X" },
	}
	for field, mutate := range cases {
		calls := 0
		svc := newTestService(answering(`{"itinerary":"x"}`, nil, &calls), nil)
		prefs := beachWeek
		mutate(&prefs)

		_, err := svc.Generate(context.Background(), "", prefs)
		var verr *flow.ValidationError
		require.True(t, errors.As(err, &verr), field)
		assert.Equal(t, field, verr.Field)
		assert.Zero(t, calls, field)
	}
}

func TestGenerateEmptyItineraryIsOutputError(t *testing.T) {
	svc := newTestService(answering(`{"itinerary":""}`, nil, nil), nil)
	_, err := svc.Generate(context.Background(), "", beachWeek)
	assert.True(t, flow.IsOutputContract(err))
}

func TestGenerateSavesForSignedInUsers(t *testing.T) {
	repo := &fakeRepo{}
	svc := newTestService(answering(`{"itinerary":"Day 1"}`, nil, nil), repo)
	require.True(t, svc.Saving())

	guest, err := svc.Generate(context.Background(), "", beachWeek)
	require.NoError(t, err)
	assert.Empty(t, guest.ID)
	assert.Empty(t, repo.saved)

	mine, err := svc.Generate(context.Background(), "u1", beachWeek)
	require.NoError(t, err)
	assert.Equal(t, "id-1", mine.ID)
	require.Len(t, repo.saved, 1)

	list, err := svc.List(context.Background(), "u1", 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	got, err := svc.Get(context.Background(), "u1", "id-1")
	require.NoError(t, err)
	assert.Equal(t, "Day 1", got.Text)

	_, err = svc.Get(context.Background(), "u2", "id-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGenerateSurvivesSaveFailure(t *testing.T) {
	repo := &fakeRepo{err: errors.New("db down")}
	svc := newTestService(answering(`{"itinerary":"Day 1"}`, nil, nil), repo)

	it, err := svc.Generate(context.Background(), "u1", beachWeek)
	require.NoError(t, err)
	assert.Equal(t, "Day 1", it.Text)
	assert.Empty(t, it.ID)

	_, err = svc.List(context.Background(), "u1", 5)
	assert.Error(t, err)
}

func TestServiceWithoutRepository(t *testing.T) {
	svc := newTestService(answering(`{"itinerary":"Day 1"}`, nil, nil), nil)
	assert.False(t, svc.Saving())

	list, err := svc.List(context.Background(), "u1", 0)
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = svc.Get(context.Background(), "u1", "x")
	assert.ErrorIs(t, err, ErrNotFound)
}
