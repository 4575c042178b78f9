// Package connectors provides implementations of the Connector interface.
// A connector discovers the source files of a corpus; normalisers turn
// them into text.
//
// The filesystem connector is the only source docqa ingests from.
package connectors
