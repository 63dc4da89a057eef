package dedup_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/fwojciec/sweep"
	"github.com/fwojciec/sweep/dedup"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(url string) sweep.URLRecord {
	return sweep.URLRecord{URL: url, Source: "test"}
}

func TestDedup_ExactlyOnce(t *testing.T) {
	t.Parallel()

	d := dedup.New(100)

	first := d.Add(rec("https://example.com/a"), rec("https://example.com/b"))
	assert.Len(t, first, 2)

	second := d.Add(rec("https://example.com/a"))
	assert.Empty(t, second)
	assert.Equal(t, 2, d.Len())
}

func TestDedup_CanonicalKey(t *testing.T) {
	t.Parallel()

	d := dedup.New(100)

	d.Add(rec("https://Example.com/docs/"))
	again := d.Add(rec("https://example.com/docs"))

	assert.Empty(t, again, "trailing slash and host case are not distinct URLs")
}

func TestDedup_SeenAgreesWithAdd(t *testing.T) {
	t.Parallel()

	d := dedup.New(100)
	d.Add(rec("https://Example.com/docs/"))

	// Any variant of an added URL answers true, including the canonical form
	// itself, which the raw input never equaled.
	assert.True(t, d.Seen("https://example.com/docs"))
	assert.True(t, d.Seen("https://Example.com/docs/"))
	assert.False(t, d.Seen("https://example.com/other"))
}

func TestDedup_FeedingTwiceEqualsOnce(t *testing.T) {
	t.Parallel()

	stream := []sweep.URLRecord{
		rec("https://a.example.com/1"),
		rec("https://a.example.com/2"),
		rec("https://a.example.com/1"),
	}

	once := dedup.New(100)
	out1 := once.Add(stream...)

	twice := dedup.New(100)
	twice.Add(stream...)
	out2 := twice.Add(stream...)

	assert.Len(t, out1, 2)
	assert.Empty(t, out2)
	assert.Equal(t, once.Len(), twice.Len())
}

func TestDedup_Concurrent(t *testing.T) {
	t.Parallel()

	d := dedup.New(10000)
	var mu sync.Mutex
	emitted := 0

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				fresh := d.Add(rec(fmt.Sprintf("https://example.com/p/%d", i)))
				mu.Lock()
				emitted += len(fresh)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1000, emitted, "each URL emitted exactly once across workers")
	assert.Equal(t, 1000, d.Len())
}

func TestDedup_ExactPhraseFilter(t *testing.T) {
	t.Parallel()

	d := dedup.New(100, dedup.WithExactPhrase(`"Backward Spyglass"`))

	out := d.Add(
		sweep.URLRecord{URL: "https://a.com/1", Source: "google", Title: "Backward Spyglass Review"},
		sweep.URLRecord{URL: "https://a.com/2", Source: "google", Title: "Spyglass backwards"},
		sweep.URLRecord{URL: "https://a.com/backward-spyglass", Source: "google"},
	)

	require.Len(t, out, 2)
	assert.Equal(t, "https://a.com/1", out[0].URL)
	assert.Equal(t, "https://a.com/backward-spyglass", out[1].URL)
}

func TestDedup_TimeSliceFilter(t *testing.T) {
	t.Parallel()

	after := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	before := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	d := dedup.New(100, dedup.WithTimeSlice(after, before))

	in := rec("https://a.com/in")
	in.DiscoveredAt = time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	out := rec("https://a.com/out")
	out.DiscoveredAt = time.Date(2022, 6, 1, 0, 0, 0, 0, time.UTC)
	undated := rec("https://a.com/undated")

	fresh := d.Add(in, out, undated)

	require.Len(t, fresh, 2, "undated records pass the time filter")
	assert.Equal(t, "https://a.com/in", fresh[0].URL)
	assert.Equal(t, "https://a.com/undated", fresh[1].URL)
}

func TestPhraseRegexp(t *testing.T) {
	t.Parallel()

	re := dedup.PhraseRegexp("widget foo")
	require.NotNil(t, re)

	assert.True(t, re.MatchString("the widget foo report"))
	assert.True(t, re.MatchString("WIDGET-FOO"))
	assert.True(t, re.MatchString("widget_foo"))
	assert.True(t, re.MatchString("widget/foo"))
	assert.False(t, re.MatchString("foo widget"))
	assert.False(t, re.MatchString("widgetfoo"))
}
