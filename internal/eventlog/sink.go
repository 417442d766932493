// Package eventlog writes decoded packet events to CSV files.
package eventlog

import "tunwatch/internal/models"

// Sink receives decoded events from the capture pipeline. Errors are reported
// to the caller but never stop frame processing.
type Sink interface {
	Network(ev models.NetworkEvent) error
	Transport(ev models.TransportEvent) error
	App(ev models.AppEvent) error
	Close() error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Network(models.NetworkEvent) error     { return nil }
func (Nop) Transport(models.TransportEvent) error { return nil }
func (Nop) App(models.AppEvent) error             { return nil }
func (Nop) Close() error                          { return nil }
