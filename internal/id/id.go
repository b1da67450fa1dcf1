package id

import "github.com/google/uuid"

func New() string {
	return uuid.NewString()
}

// Valid reports whether in is usable as a caller-supplied request id.
func Valid(in string) bool {
	if in == "" || len(in) > 128 {
		return false
	}
	for _, r := range in {
		if r < 0x21 || r > 0x7e {
			return false
		}
	}
	return true
}
