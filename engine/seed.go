package engine

import "crypto/rand"

// cryptoRandRead fills buf from the OS CSPRNG; used only to derive a
// process-varying default seed when config.Seed is left at 0.
func cryptoRandRead(buf []byte) (int, error) {
	return rand.Read(buf)
}
