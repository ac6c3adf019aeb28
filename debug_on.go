//go:build spatialdebug

package spatial

// debugAssertions makes invariant violations fatal.
const debugAssertions = true
