package transport

import "raytree/wire"

func testEnvelope(mark string) wire.Envelope {
	return wire.Envelope{Mark: mark, SenderID: 1, SenderAddr: "a"}
}
