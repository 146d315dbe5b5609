package common

// WipeByteArray overwrites b with zeros, for passwords read from the terminal.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
