package submission

import (
	"sync"

	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/internal/contract"
	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/internal/service/executor"

	"github.com/ethereum/go-ethereum/common"
)

// Registry 账户 -> Submitter，按需创建
// 所有 Submitter 共享同一个调用描述、执行器与配置
type Registry struct {
	call     contract.Call
	exec     executor.Executor
	opts     Options
	listener Listener

	mu    sync.RWMutex
	items map[common.Address]*Submitter
}

func NewRegistry(call contract.Call, exec executor.Executor, opts Options, listener Listener) *Registry {
	if opts.Policy == "" {
		opts.Policy = PolicyStrict
	}
	return &Registry{
		call:     call,
		exec:     exec,
		opts:     opts,
		listener: listener,
		items:    make(map[common.Address]*Submitter),
	}
}

// SetListener 在启动前设置，Submitter 创建后不再改变
func (r *Registry) SetListener(l Listener) {
	r.mu.Lock()
	r.listener = l
	r.mu.Unlock()
}

func (r *Registry) Get(account common.Address) *Submitter {
	r.mu.RLock()
	s, ok := r.items[account]
	r.mu.RUnlock()
	if ok {
		return s
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok = r.items[account]; ok {
		return s
	}
	s = NewSubmitter(account, r.call, r.exec, r.opts, r.listener)
	r.items[account] = s
	return s
}

func (r *Registry) Lookup(account common.Address) (*Submitter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.items[account]
	return s, ok
}

// Snapshot 未提交过的账户返回 idle
func (r *Registry) Snapshot(account common.Address) Snapshot {
	if s, ok := r.Lookup(account); ok {
		return s.Snapshot()
	}
	return Snapshot{Account: account.Hex(), State: StateIdle}
}

// InFlight 当前处于 submitting 的账户数
func (r *Registry) InFlight() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, s := range r.items {
		if s.State() == StateSubmitting {
			n++
		}
	}
	return n
}

// Policy 与每个 Submitter 实际使用的策略一致
func (r *Registry) Policy() Policy {
	return r.opts.Policy
}
