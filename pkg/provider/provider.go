// Package provider turns provider locators into archive URLs.
//
// A locator such as {"provider": "github", "name": "owner/repo",
// "revision": "v1.2.0"} names content on a code host. The matching
// [Provider] builds the URL of a downloadable archive for it, which the
// downloader then fetches like any other archive locator.
package provider

import (
	"cmp"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"sync"

	"github.com/matzehuels/stackload/pkg/errors"
	"github.com/matzehuels/stackload/pkg/locator"
)

// DefaultRevision is used when a locator names no revision.
const DefaultRevision = "master"

// Provider builds archive URLs for one code host.
type Provider interface {
	// Name is the value of the locator's provider field.
	Name() string

	// ArchiveURL returns the archive URL for loc.
	ArchiveURL(loc locator.Locator) (string, error)
}

// GitHub serves github.com archives:
// <base>/<owner>/<repo>/archive/<revision>.zip.
type GitHub struct {
	BaseURL string // default https://github.com
}

// Name returns "github".
func (GitHub) Name() string { return "github" }

// ArchiveURL implements [Provider].
func (g GitHub) ArchiveURL(loc locator.Locator) (string, error) {
	if err := errors.ValidateRepoName(loc.Name); err != nil {
		return "", err
	}
	base := strings.TrimSuffix(cmp.Or(g.BaseURL, "https://github.com"), "/")
	rev := cmp.Or(loc.Revision, DefaultRevision)
	return fmt.Sprintf("%s/%s/archive/%s.zip", base, loc.Name, url.PathEscape(rev)), nil
}

// GitLab serves gitlab.com archives:
// <base>/<group>/<project>/-/archive/<revision>/<project>-<revision>.zip.
type GitLab struct {
	BaseURL string // default https://gitlab.com
}

// Name returns "gitlab".
func (GitLab) Name() string { return "gitlab" }

// ArchiveURL implements [Provider].
func (g GitLab) ArchiveURL(loc locator.Locator) (string, error) {
	if err := errors.ValidateRepoName(loc.Name); err != nil {
		return "", err
	}
	base := strings.TrimSuffix(cmp.Or(g.BaseURL, "https://gitlab.com"), "/")
	rev := url.PathEscape(cmp.Or(loc.Revision, DefaultRevision))
	project := loc.Name[strings.LastIndex(loc.Name, "/")+1:]
	return fmt.Sprintf("%s/%s/-/archive/%s/%s-%s.zip", base, loc.Name, rev, project, rev), nil
}

// Registry maps provider names to providers. It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry creates a registry holding providers. Later providers
// replace earlier ones with the same name.
func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: make(map[string]Provider)}
	for _, p := range providers {
		r.Register(p)
	}
	return r
}

// Default returns a registry with the GitHub and GitLab providers.
func Default() *Registry {
	return NewRegistry(GitHub{}, GitLab{})
}

// Register adds or replaces a provider.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = p
}

// Lookup returns the provider registered under name.
func (r *Registry) Lookup(name string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	return p, ok
}

// Names returns the registered provider names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// ArchiveURL resolves loc through the provider it names.
func (r *Registry) ArchiveURL(loc locator.Locator) (string, error) {
	p, ok := r.Lookup(loc.Provider)
	if !ok {
		return "", errors.New(errors.ErrCodeUnknownProvider,
			"unknown provider %q (known: %s)", loc.Provider, strings.Join(r.Names(), ", "))
	}
	return p.ArchiveURL(loc)
}
