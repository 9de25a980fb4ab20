package lookup

// Cache is the in-memory view of one or more lookup files for a single run.
// It maps local component names to their KB component URLs (first found
// first) and "<name>/<version>" keys to resolved version URLs.
type Cache struct {
	components map[string][]string
	versions   map[string]string
	records    map[string]Record // first record added per name
}

// NewCache returns an empty Cache.
func NewCache() *Cache {
	return &Cache{
		components: make(map[string][]string),
		versions:   make(map[string]string),
		records:    make(map[string]Record),
	}
}

// Key returns the version map key for name and version.
func Key(name, version string) string {
	return name + "/" + version
}

// Register records compURL as a KB component for name. Duplicates are
// ignored.
func (c *Cache) Register(name, compURL string) {
	for _, u := range c.components[name] {
		if u == compURL {
			return
		}
	}
	c.components[name] = append(c.components[name], compURL)
}

// SetVersion records the version URL (or NoVersionMatch) for name/version.
func (c *Cache) SetVersion(name, version, versionURL string) {
	c.versions[Key(name, version)] = versionURL
}

// Add registers every mapping held by r. The first record added for a name
// is kept and returned by Record.
func (c *Cache) Add(r Record) {
	if _, ok := c.records[r.LocalName]; !ok {
		c.records[r.LocalName] = r
	}
	c.Register(r.LocalName, r.ComponentURL)
	for _, v := range r.Versions {
		c.SetVersion(r.LocalName, v.Version, v.URL)
	}
}

// Record returns the first record added for name.
func (c *Cache) Record(name string) (Record, bool) {
	r, ok := c.records[name]
	return r, ok
}

// Components returns the KB component URLs known for name, in the order they
// were registered.
func (c *Cache) Components(name string) ([]string, bool) {
	urls, ok := c.components[name]
	return urls, ok
}

// Primary returns the first KB component URL registered for name.
func (c *Cache) Primary(name string) (string, bool) {
	urls, ok := c.components[name]
	if !ok || len(urls) == 0 {
		return "", false
	}
	return urls[0], true
}

// IsNoMatch reports whether name is cached as unknown to the KB.
func (c *Cache) IsNoMatch(name string) bool {
	primary, ok := c.Primary(name)
	return ok && primary == NoMatch
}

// VersionURL returns the cached version URL for name/version. The URL may be
// NoVersionMatch.
func (c *Cache) VersionURL(name, version string) (string, bool) {
	u, ok := c.versions[Key(name, version)]
	return u, ok
}

// Len returns the number of cached component names.
func (c *Cache) Len() int {
	return len(c.components)
}
