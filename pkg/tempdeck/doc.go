// Package tempdeck drives an Opentrons Tempdeck laboratory temperature
// module over its USB-CDC serial link.
//
// The device speaks a line-based ASCII protocol: discovery finds attached
// units by their USB vendor/product signature, a Session is opened on one
// port and validated by an identity handshake, and temperatures are then
// queried and set through synchronous command/response round trips.
//
//	devices, err := tempdeck.ListConnectedDevices()
//	...
//	sess, err := tempdeck.OpenFirstDevice()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer sess.Close()
//
//	if err := sess.SetTargetTemp(42.3); err != nil { ... }
//	reading, err := sess.GetTemps()
//
// Errors are classified by the sentinel values in errors.go and checked
// with errors.Is. The Mock type simulates the firmware end of the link for
// tests and offline development.
package tempdeck
