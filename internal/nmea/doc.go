// Package nmea frames, parses and dispatches NMEA 0183 sentences.
//
// Bytes are pushed into a Parser (WriteByte, Write, WriteLine). The framer
// cuts the stream into "$...\n" frames, each frame is parsed into a Sentence
// and valid sentences are handed synchronously to the wildcard handlers and
// then to the handler registered for the sentence name.
//
// A Parser is not safe for concurrent use. Callers reading several devices
// should use one Parser per stream.
package nmea
