package x11

import (
	"errors"
	"fmt"
	"log/slog"
)

// ErrExtensionUnavailable reports that the server lacks a required extension.
var ErrExtensionUnavailable = errors.New("x11: extension unavailable")

// The server answers with the highest version it supports that does not
// exceed the client's, so a large major version always negotiates.
const (
	clientMajorVersion = 999
	clientMinorVersion = 0
)

// NegotiationOrder is the order extensions are queried in. Composite must be
// confirmed before the overlay is requested and XFixes before its input
// region can be set.
var NegotiationOrder = []Extension{ExtComposite, ExtXFixes, ExtDamage}

// Versions holds the negotiated version of every required extension.
type Versions struct {
	Composite Version `json:"composite"`
	XFixes    Version `json:"xfixes"`
	Damage    Version `json:"damage"`
}

// Negotiate performs the version handshake for each extension in
// NegotiationOrder, waiting for every reply before the next query.
func Negotiate(r Requester, logger *slog.Logger) (Versions, error) {
	var out Versions
	for _, ext := range NegotiationOrder {
		v, err := r.QueryVersion(ext, clientMajorVersion, clientMinorVersion)
		if err != nil {
			if errors.Is(err, ErrExtensionUnavailable) {
				return Versions{}, err
			}
			return Versions{}, fmt.Errorf("query %s version: %w", ext, err)
		}
		if logger != nil {
			logger.Info("extension negotiated", "extension", ext.String(), "version", v.String())
		}

		switch ext {
		case ExtComposite:
			out.Composite = v
		case ExtXFixes:
			out.XFixes = v
		case ExtDamage:
			out.Damage = v
		}
	}
	return out, nil
}
