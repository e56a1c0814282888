package crawler

import (
	"fmt"
	"maps"
	"slices"
	"sync"
)

var (
	siteRegistry     = make(map[string]Site)
	siteRegistryLock sync.RWMutex
)

// RegisterSite makes a site available under its source name
func RegisterSite(site Site) {
	siteRegistryLock.Lock()
	defer siteRegistryLock.Unlock()
	siteRegistry[site.SourceName()] = site
}

// GetSite looks up a registered site
func GetSite(name string) (Site, error) {
	siteRegistryLock.RLock()
	defer siteRegistryLock.RUnlock()

	site, ok := siteRegistry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSite, name)
	}
	return site, nil
}

// GetSiteRegistry returns a copy of the registry
func GetSiteRegistry() map[string]Site {
	siteRegistryLock.RLock()
	defer siteRegistryLock.RUnlock()

	registryCopy := make(map[string]Site, len(siteRegistry))
	maps.Copy(registryCopy, siteRegistry)

	return registryCopy
}

// SiteNames lists the registered names in sorted order
func SiteNames() []string {
	return slices.Sorted(maps.Keys(GetSiteRegistry()))
}
