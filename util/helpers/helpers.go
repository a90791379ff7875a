package helpers

// CopyBytes returns a copy of b. Decoded keys and values must not alias
// page buffers owned by the buffer pool.
func CopyBytes(b []byte) []byte {
	cp := make([]byte, len(b))
	copy(cp, b)
	return cp
}
