// Package msgs defines the messages published off-board and the typed
// envelope carrying them.
package msgs

// Messages are published by evdashd and consumed by dashmon and dashcli.
//
// Producer: evdashd
// Consumer: dashmon, dashcli, any MQTT subscriber
