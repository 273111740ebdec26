package parser

import "errors"

var (
	// ErrInvalidURI is returned for strings that are not well formed URIs.
	ErrInvalidURI = errors.New("invalid uri")
	// ErrUnsupportedProtocol is returned for schemes outside vmess/vless/ss/trojan.
	ErrUnsupportedProtocol = errors.New("unsupported protocol")
	// ErrMalformedPayload is returned when the Base64 or JSON body cannot be decoded.
	ErrMalformedPayload = errors.New("malformed payload")
	// ErrUnknownProtocol is returned when a descriptor carries no usable payload.
	ErrUnknownProtocol = errors.New("unknown protocol")
)
