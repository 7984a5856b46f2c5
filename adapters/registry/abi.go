package registry

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/layer-3/labledger/core"
)

// IdentityRegistryABI is the interface of the deployed IdentityRegistry contract.
const IdentityRegistryABI = `[
  {"type":"error","name":"IdentityAlreadyExists","inputs":[]},
  {"type":"error","name":"IdentityNotFound","inputs":[]},
  {"type":"error","name":"MatriculaAlreadyInUse","inputs":[]},
  {"type":"event","name":"IdentityRegistered","anonymous":false,"inputs":[
    {"name":"account","type":"address","indexed":true},
    {"name":"matricula","type":"string","indexed":false},
    {"name":"name","type":"string","indexed":false}]},
  {"type":"event","name":"IdentityUpdated","anonymous":false,"inputs":[
    {"name":"account","type":"address","indexed":true},
    {"name":"matricula","type":"string","indexed":false},
    {"name":"name","type":"string","indexed":false}]},
  {"type":"function","name":"registerIdentity","stateMutability":"nonpayable","inputs":[
    {"name":"name","type":"string"},
    {"name":"matricula","type":"string"},
    {"name":"curso","type":"string"}],"outputs":[]},
  {"type":"function","name":"updateIdentity","stateMutability":"nonpayable","inputs":[
    {"name":"name","type":"string"},
    {"name":"curso","type":"string"}],"outputs":[]},
  {"type":"function","name":"getIdentity","stateMutability":"view","inputs":[
    {"name":"account","type":"address"}],"outputs":[
    {"name":"identity","type":"tuple","internalType":"struct IdentityRegistry.Identity","components":[
      {"name":"account","type":"address"},
      {"name":"name","type":"string"},
      {"name":"matricula","type":"string"},
      {"name":"curso","type":"string"},
      {"name":"createdAt","type":"uint256"}]},
    {"name":"exists","type":"bool"}]},
  {"type":"function","name":"getIdentityByMatricula","stateMutability":"view","inputs":[
    {"name":"matricula","type":"string"}],"outputs":[
    {"name":"identity","type":"tuple","internalType":"struct IdentityRegistry.Identity","components":[
      {"name":"account","type":"address"},
      {"name":"name","type":"string"},
      {"name":"matricula","type":"string"},
      {"name":"curso","type":"string"},
      {"name":"createdAt","type":"uint256"}]},
    {"name":"exists","type":"bool"}]},
  {"type":"function","name":"getAllIdentities","stateMutability":"view","inputs":[],"outputs":[
    {"name":"","type":"tuple[]","internalType":"struct IdentityRegistry.Identity[]","components":[
      {"name":"account","type":"address"},
      {"name":"name","type":"string"},
      {"name":"matricula","type":"string"},
      {"name":"curso","type":"string"},
      {"name":"createdAt","type":"uint256"}]}]}
]`

// EventStorageABI is the interface of the deployed EventStorage contract.
const EventStorageABI = `[
  {"type":"event","name":"EventCreated","anonymous":false,"inputs":[
    {"name":"id","type":"uint256","indexed":true},
    {"name":"owner","type":"address","indexed":true},
    {"name":"title","type":"string","indexed":false}]},
  {"type":"function","name":"createEvent","stateMutability":"nonpayable","inputs":[
    {"name":"title","type":"string"},
    {"name":"description","type":"string"},
    {"name":"eventDate","type":"uint256"}],"outputs":[
    {"name":"","type":"uint256"}]},
  {"type":"function","name":"getEvent","stateMutability":"view","inputs":[
    {"name":"id","type":"uint256"}],"outputs":[
    {"name":"eventData","type":"tuple","internalType":"struct EventStorage.EventRecord","components":[
      {"name":"id","type":"uint256"},
      {"name":"owner","type":"address"},
      {"name":"title","type":"string"},
      {"name":"description","type":"string"},
      {"name":"eventDate","type":"uint256"},
      {"name":"createdAt","type":"uint256"}]},
    {"name":"exists","type":"bool"}]},
  {"type":"function","name":"getEventsByOwner","stateMutability":"view","inputs":[
    {"name":"owner","type":"address"}],"outputs":[
    {"name":"","type":"tuple[]","internalType":"struct EventStorage.EventRecord[]","components":[
      {"name":"id","type":"uint256"},
      {"name":"owner","type":"address"},
      {"name":"title","type":"string"},
      {"name":"description","type":"string"},
      {"name":"eventDate","type":"uint256"},
      {"name":"createdAt","type":"uint256"}]}]},
  {"type":"function","name":"getAllEvents","stateMutability":"view","inputs":[],"outputs":[
    {"name":"","type":"tuple[]","internalType":"struct EventStorage.EventRecord[]","components":[
      {"name":"id","type":"uint256"},
      {"name":"owner","type":"address"},
      {"name":"title","type":"string"},
      {"name":"description","type":"string"},
      {"name":"eventDate","type":"uint256"},
      {"name":"createdAt","type":"uint256"}]}]}
]`

var (
	identityABI = mustParseABI(IdentityRegistryABI)
	eventABI    = mustParseABI(EventStorageABI)
)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(err)
	}
	return parsed
}

// revertErrors maps contract custom errors onto the registry sentinels.
var revertErrors = map[string]error{
	"IdentityAlreadyExists": core.ErrIdentityAlreadyExists,
	"MatriculaAlreadyInUse": core.ErrMatriculaAlreadyInUse,
	"IdentityNotFound":      core.ErrIdentityNotFound,
}

// identityTuple mirrors the IdentityRegistry.Identity struct.
type identityTuple struct {
	Account   common.Address
	Name      string
	Matricula string
	Curso     string
	CreatedAt *big.Int
}

func (t identityTuple) toCore() core.Identity {
	return core.Identity{
		Account:   t.Account,
		Name:      t.Name,
		Matricula: t.Matricula,
		Curso:     t.Curso,
		CreatedAt: toUint64(t.CreatedAt),
	}
}

// eventTuple mirrors the EventStorage.EventRecord struct.
type eventTuple struct {
	Id          *big.Int
	Owner       common.Address
	Title       string
	Description string
	EventDate   *big.Int
	CreatedAt   *big.Int
}

func (t eventTuple) toCore() core.Event {
	return core.Event{
		ID:          toUint64(t.Id),
		Owner:       t.Owner,
		Title:       t.Title,
		Description: t.Description,
		EventDate:   toUint64(t.EventDate),
		CreatedAt:   toUint64(t.CreatedAt),
	}
}

// identityLog is the decoded form of IdentityRegistered and IdentityUpdated.
type identityLog struct {
	Account   common.Address
	Matricula string
	Name      string
}

// eventCreatedLog is the decoded form of EventCreated.
type eventCreatedLog struct {
	Id    *big.Int
	Owner common.Address
	Title string
}

func toUint64(v *big.Int) uint64 {
	if v == nil || !v.IsUint64() {
		return 0
	}
	return v.Uint64()
}
