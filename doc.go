// Copyright (c) Elliot Nunn
// Licensed under the MIT license

// Package inflatecore implements the core of a DEFLATE (RFC 1951)
// decompressor: a bit-addressed stream reader, a canonical Huffman
// decode table, and the block-driven state machine that turns a raw
// DEFLATE bit stream into the bytes it encodes.
//
// This package deliberately stops at the DEFLATE bit stream. Framing
// formats built on top of it (gzip, zlib) and the compressor side are
// out of scope; callers strip any surrounding header/trailer and hand
// this package the raw compressed bytes.
package inflatecore
