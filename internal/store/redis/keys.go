package redis

const (
	// KeyPrefixResolved is the prefix for learned input->resolved mappings.
	KeyPrefixResolved = "linksift:resolved:"
)

// ResolvedKey returns the key holding the learned resolution of an input URL.
func ResolvedKey(url string) string {
	return KeyPrefixResolved + url
}
