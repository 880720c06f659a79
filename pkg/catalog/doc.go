// Package catalog holds the local codec capability catalog.
//
// The catalog knows every codec implementation the device can offer and the
// selection priority of each. A codec only takes part in negotiation after it
// has been initialized through Initialize, which may call into an external
// codec backend (the device's encoder engine). Initialization happens once per
// codec, off the media path, and concurrent callers for the same codec share a
// single backend call.
//
// Codecs are listed highest priority first. Equal priorities are ordered by
// codec index so that listing is deterministic.
package catalog
