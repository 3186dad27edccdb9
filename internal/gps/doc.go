// Package gps aggregates NMEA sentences into a GPS fix and runs the reader
// that feeds them from a serial receiver, a recorded log, or the simulator.
//
// Tracker is the aggregator: it registers named handlers on an nmea.Parser
// and decodes GGA, GSA, GSV, RMC, VTG, GLL and ZDA from GP and GN talkers.
// Service wraps a parser and a tracker behind one reader goroutine and
// publishes a Snapshot for status surfaces.
package gps
