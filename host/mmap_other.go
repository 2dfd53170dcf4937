//go:build !unix

package host

func mapAnon(size int) ([]byte, error) {
	return nil, ErrNotSupported
}

func unmap(data []byte) error {
	return nil
}
