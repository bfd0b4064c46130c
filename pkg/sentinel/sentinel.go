package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and transports return
// these (optionally wrapped) so services can translate them into domain
// errors exactly once at the boundary.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: entity does not exist in store/catalog
// - ErrExpired: provisioning record or PIN past its window
// - ErrConflict: concurrent state transition lost
// - ErrUnavailable: downstream transport temporarily unavailable
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrExpired     = errors.New("expired")
	ErrUnavailable = errors.New("unavailable")
)
