// Package decoder wraps the external barcode decoder behind a small stream
// contract.
//
// A Provider opens a decode stream on one camera and emits raw (payload,
// format) events until the stream is closed. The bundled provider runs zbar's
// zbarcam tool in --xml mode and decodes each <symbol> element, so
// payloads containing newlines stay whole; decoding itself stays in zbar. Stream settings such as frame rate or detection region
// are passed through to the provider untouched.
package decoder
