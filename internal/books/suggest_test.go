package books

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EgorLis/my-books/internal/domain"
)

func TestSuggest_EmptyQueryShortCircuits(t *testing.T) {
	svc, repo, _, _, cache, _ := newTestService(t)
	repo.seed("Anything")

	got := svc.Suggest(context.Background(), "   ", 10)
	assert.Empty(t, got)
	assert.Equal(t, 0, cache.Len(), "пустой запрос не должен трогать кеш")
	assert.Equal(t, 0, repo.distinctCalls)
}

func TestSuggest_CachesResult(t *testing.T) {
	svc, repo, _, _, _, _ := newTestService(t)
	repo.seed("Go in Action")
	ctx := context.Background()

	first := svc.Suggest(ctx, "go", 10)
	require.Equal(t, []string{"Go in Action"}, first)

	// индекс меняется, но закешированный ответ ещё жив
	svc.TitleIndexRef().Add("Go Brand New")
	second := svc.Suggest(ctx, "go", 10)
	assert.Equal(t, first, second)

	// другой limit — другой ключ, свежий результат
	third := svc.Suggest(ctx, "go", 5)
	assert.Equal(t, []string{"Go Brand New", "Go in Action"}, third)
}

func TestSuggest_LazyWarmsIndex(t *testing.T) {
	svc, repo, _, _, _, _ := newTestService(t)
	repo.seed("Cold Start")
	ctx := context.Background()

	require.False(t, svc.TitleIndexRef().Ready())
	got := svc.Suggest(ctx, "cold", 10)
	assert.Equal(t, []string{"Cold Start"}, got)
	assert.True(t, svc.TitleIndexRef().Ready())
	assert.Equal(t, 1, repo.distinctCalls)
}

func TestSuggest_DegradesToEmptyOnFailure(t *testing.T) {
	// и кеш, и warmup недоступны — автодополнение отвечает пустым списком
	repo := newFakeRepo()
	svc := New(testLogger(), &brokenTitlesRepo{fakeRepo: repo}, &fakeHistory{}, failCache{}, &fakeQueue{}, &fakeCovers{})

	got := svc.Suggest(context.Background(), "go", 10)
	assert.Empty(t, got)
}

func TestSuggest_DefaultLimit(t *testing.T) {
	svc, repo, _, _, _, _ := newTestService(t)
	for i := 0; i < 15; i++ {
		repo.seed("Go book")
	}
	// названия в индексе уникальны, добьём разных
	require.NoError(t, svc.WarmUp(context.Background()))
	for i := 0; i < 15; i++ {
		svc.TitleIndexRef().Add("Go " + string(rune('a'+i)))
	}

	got := svc.Suggest(context.Background(), "go", 0)
	assert.Len(t, got, DefaultSuggestLimit)
}

func TestSuggestTTLTiers(t *testing.T) {
	assert.Equal(t, domain.TTLSuggestShortQuery, domain.SuggestTTL("go", 5))
	assert.Equal(t, domain.TTLSuggestEmpty, domain.SuggestTTL("nothing", 0))
	assert.Equal(t, domain.TTLSuggestNormal, domain.SuggestTTL("golang", 3))
}
