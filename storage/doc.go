// Package storage keeps fixed-size node records addressed by id. It knows nothing
// about tree shape: a Backend only reads and writes slots and the store metadata.
//
// Two backends exist. Memory keeps nodes in a map and is lost on close. File keeps
// them in a single file laid out as
//
//	header (28 bytes + extension) | record 0 | record 1 | ... | record capacity-1
//
// where every record is a 9 byte structural prefix followed by exactly PayloadSize
// bytes of entity payload. The stride is governed by the payload size stored in the
// header, never by the codec of the code reading the file.
package storage
