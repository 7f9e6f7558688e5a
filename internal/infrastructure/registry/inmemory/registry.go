package inmemory

import (
	"context"
	"sync"

	"github.com/tdex-network/tdex-escrow/internal/core/domain"
	"github.com/tdex-network/tdex-escrow/internal/core/ports"
	"github.com/tdex-network/tdex-escrow/internal/storageutil/uow"
)

// TransferHook is invoked right after an asset changed owner, with the
// context of the transfer. A failing hook reverts the transfer.
type TransferHook func(
	ctx context.Context, from, to domain.Account, asset domain.AssetID,
) error

// Registry is an in-memory non-fungible asset registry following the usual
// owner/approval/operator rules. Transfers are made through a Session bound
// to the account acting as operator.
type Registry struct {
	lock      *sync.RWMutex
	owners    map[domain.AssetID]domain.Account
	approvals map[domain.AssetID]domain.Account
	operators map[domain.Account]map[domain.Account]bool
	hook      TransferHook
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		lock:      &sync.RWMutex{},
		owners:    make(map[domain.AssetID]domain.Account),
		approvals: make(map[domain.AssetID]domain.Account),
		operators: make(map[domain.Account]map[domain.Account]bool),
	}
}

// SetTransferHook registers the hook called after every transfer.
func (r *Registry) SetTransferHook(hook TransferHook) {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.hook = hook
}

// Mint creates a new asset owned by the given account.
func (r *Registry) Mint(owner domain.Account, asset domain.AssetID) error {
	if len(owner) <= 0 {
		return ErrInvalidAccount
	}

	r.lock.Lock()
	defer r.lock.Unlock()

	if _, ok := r.owners[asset]; ok {
		return ErrAssetAlreadyExists
	}
	r.owners[asset] = owner
	return nil
}

// Approve allows the operator to transfer the given asset of owner. Any
// transfer of the asset clears the approval.
func (r *Registry) Approve(
	owner, operator domain.Account, asset domain.AssetID,
) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	currentOwner, ok := r.owners[asset]
	if !ok {
		return ErrAssetNotFound
	}
	if currentOwner != owner {
		return ErrWrongOwner
	}
	r.approvals[asset] = operator
	return nil
}

// SetApprovalForAll allows, or disallows, the operator to transfer every
// asset of owner.
func (r *Registry) SetApprovalForAll(
	owner, operator domain.Account, approved bool,
) error {
	if len(owner) <= 0 || len(operator) <= 0 {
		return ErrInvalidAccount
	}

	r.lock.Lock()
	defer r.lock.Unlock()

	if _, ok := r.operators[owner]; !ok {
		r.operators[owner] = make(map[domain.Account]bool)
	}
	r.operators[owner][operator] = approved
	return nil
}

// OwnerOf returns the committed owner of the asset.
func (r *Registry) OwnerOf(asset domain.AssetID) (domain.Account, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	owner, ok := r.owners[asset]
	if !ok {
		return "", ErrAssetNotFound
	}
	return owner, nil
}

// Session returns the AssetRegistry view of the registry for the given
// operator. Sessions of the same registry share the transaction opened by a
// unit of work.
func (r *Registry) Session(operator domain.Account) *Session {
	return &Session{registry: r, operator: operator}
}

// Session is the AssetRegistry implementation of an in-memory Registry,
// transferring assets on behalf of its operator.
type Session struct {
	registry *Registry
	operator domain.Account
}

var (
	_ ports.AssetRegistry = (*Session)(nil)
	_ uow.Transactional   = (*Session)(nil)
	_ uow.ContextProvider = (*Session)(nil)
)

// Begin opens a transaction buffering transfers until it's committed.
func (s *Session) Begin() (uow.Tx, error) {
	return &registryTx{
		registry:  s.registry,
		owners:    make(map[domain.AssetID]domain.Account),
		approvals: make(map[domain.AssetID]domain.Account),
	}, nil
}

func (s *Session) ContextKey() interface{} {
	return s.registry
}

func (s *Session) OwnerOf(
	ctx context.Context, asset domain.AssetID,
) (domain.Account, error) {
	s.registry.lock.RLock()
	defer s.registry.lock.RUnlock()

	return s.view(ctx).ownerOf(asset)
}

func (s *Session) IsApprovedForTransfer(
	ctx context.Context, asset domain.AssetID, operator domain.Account,
) (bool, error) {
	s.registry.lock.RLock()
	defer s.registry.lock.RUnlock()

	return s.view(ctx).isApproved(asset, operator)
}

func (s *Session) Transfer(
	ctx context.Context, from, to domain.Account, asset domain.AssetID,
) error {
	if len(to) <= 0 {
		return ErrInvalidAccount
	}

	s.registry.lock.Lock()
	v := s.view(ctx)
	prevOwner, prevApproval, err := v.transfer(s.operator, from, to, asset)
	hook := s.registry.hook
	s.registry.lock.Unlock()
	if err != nil {
		return err
	}

	if hook == nil {
		return nil
	}
	if err := hook(ctx, from, to, asset); err != nil {
		s.registry.lock.Lock()
		v.set(asset, prevOwner, prevApproval)
		s.registry.lock.Unlock()
		return err
	}
	return nil
}

func (s *Session) view(ctx context.Context) *view {
	v := &view{registry: s.registry}
	if tx, ok := uow.TxFromContext(ctx, s).(*registryTx); ok && !tx.done {
		v.tx = tx
	}
	return v
}

// view reads and writes through the pending transaction, if any. The caller
// is in charge of locking the registry.
type view struct {
	registry *Registry
	tx       *registryTx
}

func (v *view) ownerOf(asset domain.AssetID) (domain.Account, error) {
	if v.tx != nil {
		if owner, ok := v.tx.owners[asset]; ok {
			return owner, nil
		}
	}
	owner, ok := v.registry.owners[asset]
	if !ok {
		return "", ErrAssetNotFound
	}
	return owner, nil
}

func (v *view) approvalOf(asset domain.AssetID) domain.Account {
	if v.tx != nil {
		if approved, ok := v.tx.approvals[asset]; ok {
			return approved
		}
	}
	return v.registry.approvals[asset]
}

func (v *view) isApproved(
	asset domain.AssetID, operator domain.Account,
) (bool, error) {
	owner, err := v.ownerOf(asset)
	if err != nil {
		return false, err
	}
	if len(operator) <= 0 {
		return false, nil
	}
	if operator == owner || v.approvalOf(asset) == operator {
		return true, nil
	}
	return v.registry.operators[owner][operator], nil
}

func (v *view) transfer(
	operator, from, to domain.Account, asset domain.AssetID,
) (domain.Account, domain.Account, error) {
	owner, err := v.ownerOf(asset)
	if err != nil {
		return "", "", err
	}
	if owner != from {
		return "", "", ErrWrongOwner
	}
	approved, err := v.isApproved(asset, operator)
	if err != nil {
		return "", "", err
	}
	if !approved {
		return "", "", ErrNotAuthorized
	}

	prevApproval := v.approvalOf(asset)
	v.set(asset, to, "")
	return owner, prevApproval, nil
}

func (v *view) set(asset domain.AssetID, owner, approval domain.Account) {
	if v.tx != nil {
		v.tx.owners[asset] = owner
		v.tx.approvals[asset] = approval
		return
	}
	v.registry.owners[asset] = owner
	if len(approval) > 0 {
		v.registry.approvals[asset] = approval
	} else {
		delete(v.registry.approvals, asset)
	}
}

type registryTx struct {
	registry  *Registry
	owners    map[domain.AssetID]domain.Account
	approvals map[domain.AssetID]domain.Account
	done      bool
}

func (tx *registryTx) Commit() error {
	if tx.done {
		return nil
	}
	tx.registry.lock.Lock()
	defer tx.registry.lock.Unlock()

	for asset, owner := range tx.owners {
		tx.registry.owners[asset] = owner
	}
	for asset, approval := range tx.approvals {
		if len(approval) > 0 {
			tx.registry.approvals[asset] = approval
		} else {
			delete(tx.registry.approvals, asset)
		}
	}
	tx.done = true
	return nil
}

func (tx *registryTx) Rollback() error {
	tx.owners = nil
	tx.approvals = nil
	tx.done = true
	return nil
}
