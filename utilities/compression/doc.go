// Package compression provides the tools vsfsctl uses to archive VSFS
// images: CompressVsfsImage/DecompressVsfsImage round-trip a raw image
// through RLE8 then gzip.
//
// A VSFS image is a fixed array of 512-byte blocks (layout.BlockSize). The
// emptier an image is, the more blocks consisting of entirely null bytes
// there are, so a mostly-empty image is mostly dead space that doesn't need
// to be stored byte for byte.
//
// To keep fixture images and `vsfsctl pack` output small, we compress the
// raw image as much as we can. In experiments, the best compression was
// achieved by run-length encoding the raw image first, then using gzip on
// the result. An IBM 8" image of 256,256 bytes can be compressed to 3,009
// bytes with only run-length encoding (98.8%). Compressing this with gzip
// results in a final size of 67 bytes -- a compression ratio of 99.97%.
//
// There are a variety of run-length encodings; this document refers strictly to
// the algorithm used by the Microsoft BMP file format, also known as RLE8. A
// brief explanation: if a byte B occurs N times where N >= 2, B is written twice,
// followed by a third (unsigned) byte indicating how many additional times B
// occurred. For example:
//
// 		WXXXXXXXXXXXXXXXYZZ
//		W XX 13 Y ZZ 0
//
// This scheme lets us represent runs of up to 257 bytes with three bytes. For
// runs longer than 257 bytes, they are treated as separate runs. For example,
// a run of 300 "X" is represented as `XX 255 XX 41`. Unfortunately, using a byte
// as its own escape sequence means that occurrences of the same byte exactly
// twice are stored as three bytes: the two bytes followed by a null byte
// indicating no further repetition.

package compression
