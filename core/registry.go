package core

import (
	"github.com/ethereum/go-ethereum/common"
)

// Identity binds a wallet address to a student registration.
type Identity struct {
	Account   common.Address `json:"account"`
	Name      string         `json:"name"`
	Matricula string         `json:"matricula"`
	Curso     string         `json:"curso"`
	CreatedAt uint64         `json:"createdAt"`
}

// Event is an immutable record owned by the wallet that created it.
type Event struct {
	ID          uint64         `json:"id"`
	Owner       common.Address `json:"owner"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	EventDate   uint64         `json:"eventDate"`
	CreatedAt   uint64         `json:"createdAt"`
}

// NotificationKind names a registry notification.
type NotificationKind string

const (
	IdentityRegistered NotificationKind = "IdentityRegistered"
	IdentityUpdated    NotificationKind = "IdentityUpdated"
	EventCreated       NotificationKind = "EventCreated"
)

// Notification is emitted by every successful registry write. Identity
// notifications carry Account, Matricula and Name; EventCreated carries
// EventID, Account (the owner) and Title.
type Notification struct {
	Kind      NotificationKind `json:"kind"`
	Account   common.Address   `json:"account"`
	Matricula string           `json:"matricula,omitempty"`
	Name      string           `json:"name,omitempty"`
	EventID   uint64           `json:"id,omitempty"`
	Title     string           `json:"title,omitempty"`
}

// Receipt confirms a registry write.
type Receipt struct {
	// TxHash is the transaction hash for onchain writes and a sequence-derived
	// hash for the in-process ledger.
	TxHash       common.Hash
	Notification Notification
}

// Deployment describes where the registry contracts live.
type Deployment struct {
	Network          string         `json:"network"`
	ChainID          uint64         `json:"chainId"`
	DeployedAt       string         `json:"deployedAt"`
	IdentityRegistry common.Address `json:"identityRegistry"`
	EventStorage     common.Address `json:"eventStorage"`
}
