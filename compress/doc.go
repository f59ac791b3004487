// Package compress implements the two codecs JAC v1 actually ships:
// identity (id 0) and Zstandard (id 1). Ids 2 and 3 exist only as
// reserved slots in the wire enumeration; CreateCodec rejects them.
package compress
