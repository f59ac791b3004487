// Package section defines the low-level binary structures and constants
// for the JAC container format.
//
// It covers three layouts: FileHeader (once per file), BlockHeader plus
// its field directory (once per block), and the optional Footer (an
// index of block offsets, written once at the end of the file). None of
// these types compress or decompress payload bytes — that is compress's
// job — section only frames the bytes around them.
package section
