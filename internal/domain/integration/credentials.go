package integration

// Credentials is the opaque per-platform credential blob. Each adapter knows
// which keys it needs and validates them at construction; the rest of the
// system treats the blob as an opaque map sealed before persistence.
type Credentials map[string]string

// Get returns the value for key, or "" when absent
func (c Credentials) Get(key string) string {
	if c == nil {
		return ""
	}
	return c[key]
}

// Require returns the value for key or a ConfigError when empty
func (c Credentials) Require(provider Provider, key string) (string, error) {
	v := c.Get(key)
	if v == "" {
		return "", NewConfigError(provider, key, "is required")
	}
	return v, nil
}

// Clone returns a shallow copy so callers can mutate safely
func (c Credentials) Clone() Credentials {
	if c == nil {
		return nil
	}
	out := make(Credentials, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}
