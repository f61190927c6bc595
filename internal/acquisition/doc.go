// Package acquisition obtains raw payload text for an automation run.
//
// Four sources share one contract: each returns non-empty text or an error
// wrapping ErrNotAcquired. A miss is a normal outcome, not a fault.
//
//   - CaptureLoop samples frames from a camera until a symbol decodes, the
//     timeout elapses, or the operator quits
//   - ImageScanner decodes a single still image, once
//   - FromText passes known content through unchanged
//   - SerialScanner reads the first line sent by a USB/serial QR scanner
//
// Devices (camera, serial port) are opened inside the acquiring call and
// closed on every exit path before it returns.
//
// QRDecoder implements SymbolDecoder with gozxing.
package acquisition
