// Package serial connects the physical controllers of the line.
//
// Each controller is a microcontroller behind a USB serial port (or a
// ser2net-style TCP bridge). It speaks a line protocol: the host writes an
// opcode, the controller answers with the opcode followed by "f" once the
// motion has finished. A readProperties command is answered with
// "readPropertiesf_<id>_<color>_<type>".
//
// # Lane Assignment
//
// Ports are not bound to lanes in configuration. After opening a port the
// bridge writes "handshake" every interval until the controller identifies
// itself:
//
//	host                       controller
//	 │ ── handshake ──────────────► │
//	 │ ◄────────────── ar_arduino ── │   (arm)   or ss_arduino (sledge)
//	 │ ── ok ─────────────────────► │
//	 │        lane is Standby        │
//
// # Discovery
//
// The port list "auto" selects every USB port that looks like a controller
// (Arduino or WCH USB-serial chip).
//
// # Thread Safety
//
// Link and Bridge are safe for concurrent use. A Link accepts one command
// at a time; Send on a lane that is not Standby fails with ErrNotReady.
package serial
