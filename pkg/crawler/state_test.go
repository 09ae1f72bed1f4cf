package crawler_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xhad/bloodhound/internal/models"
	"github.com/xhad/bloodhound/pkg/crawler"
)

func TestCrawlState(t *testing.T) {
	state := crawler.NewCrawlState("obj", 2)
	assert.Equal(t, 0, state.Depth())
	assert.False(t, state.Full())

	assert.True(t, state.Visit(models.Document{URL: "http://a.test/1"}))
	assert.True(t, state.Has("http://a.test/1"))
	assert.False(t, state.Has("http://a.test/2"))
	assert.False(t, state.Full())

	assert.Equal(t, []string{"http://a.test/2", "http://a.test/3"},
		state.Unvisited([]string{"http://a.test/1", "http://a.test/2", "http://a.test/3"}))

	assert.True(t, state.Visit(models.Document{URL: "http://a.test/2"}))
	assert.Equal(t, 2, state.Depth())
	assert.True(t, state.Full())

	result := state.Result(models.StopMaxPathLength)
	assert.Equal(t, "obj", result.Objective)
	assert.Equal(t, []string{"http://a.test/1", "http://a.test/2"}, result.Visited)
	for i, doc := range result.Path {
		assert.Equal(t, result.Visited[i], doc.URL)
	}
}

func TestCrawlStateRejectsRevisit(t *testing.T) {
	state := crawler.NewCrawlState("", 3)
	require.True(t, state.Visit(models.Document{URL: "http://a.test/", Title: "first"}))

	assert.False(t, state.Visit(models.Document{URL: "http://a.test/", Title: "second"}))

	result := state.Result(models.StopNoCandidates)
	require.Len(t, result.Path, 1)
	assert.Equal(t, "first", result.Path[0].Title)
	assert.Equal(t, []string{"http://a.test/"}, result.Visited)
}

func TestCrawlStateVisitedIsACopy(t *testing.T) {
	state := crawler.NewCrawlState("", 3)
	state.Visit(models.Document{URL: "http://a.test/"})

	visited := state.Visited()
	visited[0] = "mutated"

	assert.Equal(t, []string{"http://a.test/"}, state.Visited())
}

func TestCrawlStateEmptyResult(t *testing.T) {
	result := crawler.NewCrawlState("", 3).Result(models.StopFetchFailed)

	assert.NotNil(t, result.Path)
	assert.NotNil(t, result.Visited)
	assert.Empty(t, result.Path)
	assert.Equal(t, 0, result.Hops())
}
