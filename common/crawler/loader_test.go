package crawler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSession struct {
	navigateErr error
	waitErr     error
	scrollErr   error
	htmlErr     error
	html        string

	navigated []string
	scrolled  int
	closed    int
}

func (f *fakeSession) Navigate(_ context.Context, url string) error {
	f.navigated = append(f.navigated, url)
	return f.navigateErr
}

func (f *fakeSession) WaitFor(context.Context, string, time.Duration) error {
	return f.waitErr
}

func (f *fakeSession) Scroll(_ context.Context, _ string, maxAttempts int, _ time.Duration) (int, error) {
	f.scrolled = maxAttempts
	return 3, f.scrollErr
}

func (f *fakeSession) HTML(context.Context) (string, error) {
	return f.html, f.htmlErr
}

func (f *fakeSession) Close() error {
	f.closed++
	return nil
}

func loadOpts() LoadOptions {
	return LoadOptions{PageLoadTimeout: 15 * time.Second, ScrollMaxAttempts: 10, ScrollPause: time.Millisecond}
}

func TestLoadListing(t *testing.T) {
	sess := &fakeSession{html: "<ul></ul>"}

	html, err := LoadListing(context.Background(), sess, testSite{}, loadOpts())
	require.NoError(t, err)
	assert.Equal(t, "<ul></ul>", html)
	assert.Equal(t, []string{"https://news.example.com/latest"}, sess.navigated)
	assert.Equal(t, 10, sess.scrolled)
}

func TestLoadListingContinuesAfterTimeout(t *testing.T) {
	sess := &fakeSession{
		html:      "<ul><li class=\"item\"></li></ul>",
		waitErr:   ErrPageLoadTimeout,
		scrollErr: errors.New("execution context was destroyed"),
	}

	html, err := LoadListing(context.Background(), sess, testSite{}, loadOpts())
	require.NoError(t, err)
	assert.Equal(t, sess.html, html)
}

func TestLoadListingSkipsScrollWhenDisabled(t *testing.T) {
	sess := &fakeSession{html: "<ul></ul>"}
	opts := loadOpts()
	opts.ScrollMaxAttempts = 0

	_, err := LoadListing(context.Background(), sess, testSite{}, opts)
	require.NoError(t, err)
	assert.Zero(t, sess.scrolled)
}

func TestLoadListingNavigationFailure(t *testing.T) {
	sess := &fakeSession{navigateErr: ErrNavigation}

	_, err := LoadListing(context.Background(), sess, testSite{}, loadOpts())
	assert.ErrorIs(t, err, ErrNavigation)
}

func TestLoadListingHTMLFailure(t *testing.T) {
	sess := &fakeSession{htmlErr: errors.New("target closed")}

	_, err := LoadListing(context.Background(), sess, testSite{}, loadOpts())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "target closed")
}

func TestRegistry(t *testing.T) {
	RegisterSite(testSite{})

	site, err := GetSite("testsite")
	require.NoError(t, err)
	assert.Equal(t, "https://news.example.com/latest", site.ListingURL())
	assert.Contains(t, SiteNames(), "testsite")

	_, err = GetSite("nope")
	assert.ErrorIs(t, err, ErrUnknownSite)

	registry := GetSiteRegistry()
	delete(registry, "testsite")
	_, err = GetSite("testsite")
	assert.NoError(t, err)
}
