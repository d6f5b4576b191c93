// +build !fixmem_debug

package fixmem

func debugAssert(bool, string) {}
