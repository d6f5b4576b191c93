// +build fixmem_debug

package fixmem

// debugAssert panics when a caller breaks a documented precondition. Release builds compile it
// to nothing, so nothing may depend on it for correctness.
func debugAssert(cond bool, msg string) {
	if !cond {
		panic("fixmem: " + msg)
	}
}
